package client

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"io/fs"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTLSFakeServer serves the fake API over TLS. configure may adjust the
// server TLS config before it starts.
func newTLSFakeServer(t *testing.T, configure func(*tls.Config)) *fakeServer {
	t.Helper()
	f := &fakeServer{
		apis:     []string{"v4"},
		calls:    make(map[string]int),
		handlers: make(map[string]http.HandlerFunc),
	}
	f.srv = httptest.NewUnstartedServer(http.HandlerFunc(f.serveHTTP))
	if configure != nil {
		f.srv.TLS = &tls.Config{}
		configure(f.srv.TLS)
	}
	f.srv.StartTLS()
	t.Cleanup(f.srv.Close)
	return f
}

func writePEM(t *testing.T, name, blockType string, der []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}), 0o600))
	return path
}

// serverCAFile writes the test server certificate as a CA bundle.
func serverCAFile(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return writePEM(t, "ca.pem", "CERTIFICATE", srv.Certificate().Raw)
}

type clientCert struct {
	cert     tls.Certificate
	leaf     *x509.Certificate
	certFile string
	keyFile  string
}

func newClientCert(t *testing.T) clientCert {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(7),
		Subject:               pkix.Name{CommonName: "analyst"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	return clientCert{
		cert:     tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf},
		leaf:     leaf,
		certFile: writePEM(t, "client.pem", "CERTIFICATE", der),
		keyFile:  writePEM(t, "client.key", "EC PRIVATE KEY", keyDER),
	}
}

func TestNew_CAFileTrustsServer(t *testing.T) {
	f := newTLSFakeServer(t, nil)

	c, err := New(context.Background(), f.srv.URL, WithCAFile(serverCAFile(t, f.srv)), WithRetries(1))
	require.NoError(t, err)
	assert.True(t, c.IsV4())
	assert.Equal(t, 1, f.count("/api/v4/auth/login/"))
}

func TestNew_ClientCertificate(t *testing.T) {
	cc := newClientCert(t)
	pool := x509.NewCertPool()
	pool.AddCert(cc.leaf)
	f := newTLSFakeServer(t, func(cfg *tls.Config) {
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
		cfg.ClientCAs = pool
	})
	caFile := serverCAFile(t, f.srv)

	tests := []struct {
		name string
		opt  Option
	}{
		{"in memory", WithClientCertificate(cc.cert)},
		{"from files", WithClientCertificateFile(cc.certFile, cc.keyFile)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(context.Background(), f.srv.URL, WithCAFile(caFile), tt.opt, WithRetries(1))
			require.NoError(t, err)
			assert.True(t, c.IsV4())
		})
	}

	_, err := New(context.Background(), f.srv.URL, WithCAFile(caFile), WithRetries(1))
	assert.Error(t, err)
}

func TestNew_TLSOptionErrors(t *testing.T) {
	cc := newClientCert(t)
	dir := t.TempDir()
	noCerts := filepath.Join(dir, "empty.pem")
	require.NoError(t, os.WriteFile(noCerts, []byte("not a certificate\n"), 0o600))

	tests := []struct {
		name       string
		opts       []Option
		wantMsg    string
		wantStatus int
	}{
		{
			name:    "missing CA file",
			opts:    []Option{WithCAFile(filepath.Join(dir, "missing.pem"))},
			wantMsg: "reading CA file",
		},
		{
			name:       "CA file without certificates",
			opts:       []Option{WithCAFile(noCerts)},
			wantMsg:    "no certificate found",
			wantStatus: 400,
		},
		{
			name:    "key file without a key",
			opts:    []Option{WithClientCertificateFile(cc.certFile, noCerts)},
			wantMsg: "loading client certificate",
		},
		{
			name:    "missing certificate file",
			opts:    []Option{WithClientCertificateFile(filepath.Join(dir, "nope.pem"), cc.keyFile)},
			wantMsg: "loading client certificate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeServer(t)

			_, err := New(context.Background(), f.srv.URL, tt.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, tt.wantStatus, StatusCode(err))
			assert.Equal(t, 0, f.count("/api/v3/auth/init/"))
		})
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (fn roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return fn(r)
}

// failingOn forwards to the fake server except for paths containing part.
func failingOn(part string, fail error) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if strings.Contains(r.URL.Path, part) {
			return nil, fail
		}
		return http.DefaultTransport.RoundTrip(r)
	})}
}

func TestNew_HandshakeTransportFailures(t *testing.T) {
	tlsErr := &tls.CertificateVerificationError{Err: x509.UnknownAuthorityError{}}
	proxyErr := &net.OpError{Op: "proxyconnect", Net: "tcp", Err: errors.New("connection refused")}
	pathErr := &fs.PathError{Op: "open", Path: "sample.bin", Err: fs.ErrNotExist}

	tests := []struct {
		name       string
		failPath   string
		fail       error
		wantStatus int
		wantMsg    string
	}{
		{"TLS during probe", "auth/init", tlsErr, StatusSSLError, "TLS error"},
		{"TLS during login", "auth/login", tlsErr, StatusSSLError, "TLS error"},
		{"proxy during probe", "auth/init", proxyErr, 0, "while detecting API generation"},
		{"local I/O during login", "auth/login", pathErr, 0, "while logging in"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeServer(t)

			_, err := New(context.Background(), f.srv.URL,
				WithHTTPClient(failingOn(tt.failPath, tt.fail)), WithRetries(1))
			require.Error(t, err)

			var ce *ClientError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, KindTransportFatal, ce.Kind)
			assert.Equal(t, tt.wantStatus, ce.StatusCode)
			assert.Contains(t, ce.Message, tt.wantMsg)
		})
	}
}
