package client

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Generation is the API generation spoken by a server.
type Generation int

const (
	GenerationLegacy Generation = iota
	GenerationCurrent
)

func (g Generation) String() string {
	if g == GenerationCurrent {
		return "v4"
	}
	return "v3"
}

// maxReauthPerRequest bounds how many times one request may renew the session.
const maxReauthPerRequest = 3

// Credentials identify the caller. An API key wins over a password.
type Credentials struct {
	User     string
	Password string
	APIKey   string
}

// loginPayload builds the login body. transform is applied to the secret.
func (cr Credentials) loginPayload(transform func(string) (string, error)) (map[string]string, error) {
	field, secret := "", ""
	switch {
	case cr.User != "" && cr.APIKey != "":
		field, secret = "apikey", cr.APIKey
	case cr.User != "" && cr.Password != "":
		field, secret = "password", cr.Password
	default:
		return map[string]string{}, nil
	}
	out, err := transform(secret)
	if err != nil {
		return nil, err
	}
	return map[string]string{"user": cr.User, field: out}, nil
}

// probeGeneration calls the legacy-only init endpoint. Success means a legacy
// server and may carry a public key; 404 means a current server.
func (c *Client) probeGeneration(ctx context.Context) (Generation, *rsa.PublicKey, error) {
	key, err := c.fetchPublicKey(ctx)
	if err == nil {
		return GenerationLegacy, key, nil
	}
	var ce *ClientError
	if errors.As(err, &ce) && ce.StatusCode == http.StatusNotFound {
		return GenerationCurrent, nil, nil
	}
	return GenerationLegacy, nil, err
}

func (c *Client) fetchPublicKey(ctx context.Context) (*rsa.PublicKey, error) {
	var raw json.RawMessage
	if err := c.request(ctx, http.MethodGet, pathLegacyInit, EnvelopeOutput(&raw), withoutReauth()); err != nil {
		return nil, err
	}
	var encoded string
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, fmt.Errorf("decoding public key: %w", err)
		}
	}
	if encoded == "" {
		return nil, nil
	}
	return ParsePublicKey([]byte(encoded))
}

// ParsePublicKey reads an RSA public key from PEM. PKIX, PKCS#1 and X.509
// certificate blocks are accepted.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("public key is not PEM encoded")
	}

	var pub any
	var err error
	switch block.Type {
	case "RSA PUBLIC KEY":
		pub, err = x509.ParsePKCS1PublicKey(block.Bytes)
	case "CERTIFICATE":
		var cert *x509.Certificate
		cert, err = x509.ParseCertificate(block.Bytes)
		if err == nil {
			pub = cert.PublicKey
		}
	default:
		pub, err = x509.ParsePKIXPublicKey(block.Bytes)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}

	key, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, not RSA", pub)
	}
	return key, nil
}

// encryptSecret returns base64(RSA-PKCS1v15(secret)).
func encryptSecret(key *rsa.PublicKey, secret string) (string, error) {
	ct, err := rsa.EncryptPKCS1v15(rand.Reader, key, []byte(secret))
	if err != nil {
		return "", fmt.Errorf("encrypting secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// loginLegacy logs in through the v3 endpoint, encrypting the secret when the
// server published a key.
func loginLegacy(ctx context.Context, c *Client, key *rsa.PublicKey) (*LoginResult, error) {
	payload, err := c.creds.loginPayload(func(secret string) (string, error) {
		if key == nil {
			return secret, nil
		}
		return encryptSecret(key, secret)
	})
	if err != nil {
		return nil, err
	}
	return c.login(ctx, pathLegacyLogin, payload)
}

// loginCurrent logs in through the v4 endpoint with a plain JSON body.
func loginCurrent(ctx context.Context, c *Client) (*LoginResult, error) {
	payload, err := c.creds.loginPayload(func(secret string) (string, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	return c.login(ctx, pathLogin, payload)
}

func (c *Client) login(ctx context.Context, path string, payload map[string]string) (*LoginResult, error) {
	var res LoginResult
	err := c.request(ctx, http.MethodGet, path, EnvelopeOutput(&res), WithJSON(payload), withoutReauth())
	if err != nil {
		return nil, err
	}
	c.session.setLogin(&res)
	return &res, nil
}

// authenticate runs the login flow of the fixed generation.
func (c *Client) authenticate(ctx context.Context, key *rsa.PublicKey) error {
	var err error
	if c.generation == GenerationCurrent {
		_, err = loginCurrent(ctx, c)
	} else {
		_, err = loginLegacy(ctx, c, key)
	}
	return err
}

// reauthenticate drops the current session and logs in again. Concurrent
// callers share one login.
func (c *Client) reauthenticate(ctx context.Context) error {
	_, err, shared := c.renew.Do("login", func() (any, error) {
		c.session.reset()

		var key *rsa.PublicKey
		if c.generation == GenerationLegacy {
			k, err := c.fetchPublicKey(ctx)
			if err != nil {
				return nil, fmt.Errorf("fetching public key: %w", err)
			}
			key = k
		}
		return nil, c.authenticate(ctx, key)
	})
	c.logger.Debug("session renewed",
		slog.Bool("shared", shared),
		slog.Any("error", err),
	)
	return err
}
