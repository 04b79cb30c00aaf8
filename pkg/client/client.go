package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// RetryForever disables the retry ceiling.
const RetryForever = 0

// supportedAPIs are the generations this client can talk to.
var supportedAPIs = map[string]bool{"v3": true, "v4": true}

// Client is an authenticated connection to an Assemblyline server. It is safe
// for concurrent use; session renewal is shared by all callers.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session
	generation Generation
	creds      Credentials
	renew      singleflight.Group

	maxRetries      int
	timeout         time.Duration
	debug           func(path string)
	logger          *slog.Logger
	silenceWarnings bool

	// transport settings, only used when no custom http.Client is given
	verify     bool
	caFile     string
	certs      []tls.Certificate
	certFile   string
	keyFile    string
	headers    map[string]string
	custom     *http.Client
	streamOpts []StreamOption

	pager *StreamPager
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithPassword authenticates with a username and password.
func WithPassword(user, password string) Option {
	return func(c *Client) {
		c.creds.User = user
		c.creds.Password = password
	}
}

// WithAPIKey authenticates with a username and API key. It takes precedence
// over WithPassword.
func WithAPIKey(user, apikey string) Option {
	return func(c *Client) {
		c.creds.User = user
		c.creds.APIKey = apikey
	}
}

// WithClientCertificate presents cert during the TLS handshake.
func WithClientCertificate(cert tls.Certificate) Option {
	return func(c *Client) {
		c.certs = append(c.certs, cert)
	}
}

// WithClientCertificateFile loads a PEM certificate and key pair at construction.
func WithClientCertificateFile(certFile, keyFile string) Option {
	return func(c *Client) {
		c.certFile = certFile
		c.keyFile = keyFile
	}
}

// WithVerify toggles server certificate verification. Default is true.
func WithVerify(verify bool) Option {
	return func(c *Client) {
		c.verify = verify
	}
}

// WithCAFile verifies the server against the PEM bundle at path.
func WithCAFile(path string) Option {
	return func(c *Client) {
		c.caFile = path
	}
}

// WithHeaders adds headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithRetries sets the retry ceiling. RetryForever (0) retries without limit.
func WithRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithTimeout sets the default per-request timeout. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithSilenceWarnings suppresses the warning logged when certificate
// verification is disabled.
func WithSilenceWarnings(silence bool) Option {
	return func(c *Client) {
		c.silenceWarnings = silence
	}
}

// WithDebug registers fn to receive every request path before it is sent.
func WithDebug(fn func(path string)) Option {
	return func(c *Client) {
		c.debug = fn
	}
}

// WithHTTPClient uses httpClient for transport. Its Jar is replaced by the
// session jar on a copy; TLS options of this package are ignored.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.custom = httpClient
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithStreamOptions tunes the pager behind Client.Stream.
func WithStreamOptions(opts ...StreamOption) Option {
	return func(c *Client) {
		c.streamOpts = append(c.streamOpts, opts...)
	}
}

// New connects to the server at serverURL, detects the API generation and
// logs in. The returned Client is authenticated.
func New(ctx context.Context, serverURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, invalidArgument("invalid server URL %q", serverURL)
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(serverURL, "/"),
		maxRetries: RetryForever,
		verify:     true,
		debug:      func(string) {},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	base := http.Header{}
	base.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		base.Set(k, v)
	}
	c.session = newSession(base)

	httpClient, err := c.buildHTTPClient()
	if err != nil {
		return nil, err
	}
	c.httpClient = httpClient
	c.pager = NewStreamPager(c.Search, c.streamOpts...)

	if err := c.handshake(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) buildHTTPClient() (*http.Client, error) {
	if c.custom != nil {
		hc := *c.custom
		hc.Jar = c.session.jar
		return &hc, nil
	}

	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if !c.verify {
		tlsCfg.InsecureSkipVerify = true
		if !c.silenceWarnings {
			c.logger.Warn("TLS certificate verification is disabled",
				slog.String("server", c.baseURL),
			)
		}
	}
	if c.caFile != "" {
		pem, err := os.ReadFile(c.caFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, invalidArgument("no certificate found in %s", c.caFile)
		}
		tlsCfg.RootCAs = pool
	}
	if c.certFile != "" {
		cert, err := tls.LoadX509KeyPair(c.certFile, c.keyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}
		c.certs = append(c.certs, cert)
	}
	tlsCfg.Certificates = c.certs

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg

	return &http.Client{
		Transport: transport,
		Jar:       c.session.jar,
	}, nil
}

// handshake fixes the generation, logs in and checks the advertised APIs.
func (c *Client) handshake(ctx context.Context) error {
	gen, key, err := c.probeGeneration(ctx)
	if err != nil {
		return connectError("detecting API generation", err)
	}
	c.generation = gen

	if err := c.authenticate(ctx, key); err != nil {
		return connectError("logging in", err)
	}

	// Anything but a list of strings counts as no supported API.
	var apis any
	if err := c.request(ctx, http.MethodGet, pathRoot, EnvelopeOutput(&apis)); err != nil {
		return fmt.Errorf("listing APIs: %w", err)
	}
	list, _ := apis.([]any)
	for _, a := range list {
		if s, ok := a.(string); ok && supportedAPIs[s] {
			c.logger.Debug("connected to assemblyline",
				slog.String("server", c.baseURL),
				slog.String("generation", gen.String()),
				slog.Duration("session_duration", c.session.sessionDuration()),
			)
			return nil
		}
	}
	return &ClientError{
		Kind:       KindProtocolUnsupported,
		StatusCode: 400,
		Message:    "Supported APIS (v3, v4) are not available",
	}
}

// connectError reports fatal transport failures of the handshake. Only TLS
// failures carry StatusSSLError; proxy and local I/O failures keep no status.
func connectError(step string, err error) error {
	if !errors.Is(err, ErrTransportFatal) {
		return fmt.Errorf("%s: %w", step, err)
	}
	if isTLSError(err) {
		return &ClientError{
			Kind:       KindTransportFatal,
			StatusCode: StatusSSLError,
			Message:    fmt.Sprintf("Client could not connect to the server due to the following TLS error: %v", err),
			Err:        err,
		}
	}
	return &ClientError{
		Kind:    KindTransportFatal,
		Message: fmt.Sprintf("Client could not connect to the server while %s: %v", step, err),
		Err:     err,
	}
}

// Generation returns the API generation detected at construction.
func (c *Client) Generation() Generation {
	return c.generation
}

// IsV4 reports whether the server speaks the current generation.
func (c *Client) IsV4() bool {
	return c.generation == GenerationCurrent
}

// SessionDuration is the session lifetime announced by the last login.
func (c *Client) SessionDuration() time.Duration {
	return c.session.sessionDuration()
}

// BaseURL returns the server URL without trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}
