package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// sessionExpiredReasons are the 401 messages answered by a new login.
var sessionExpiredReasons = map[string]bool{
	"Session rejected":                    true,
	"Session not found":                   true,
	"Session expired":                     true,
	"Invalid source IP for this session":  true,
	"Invalid user agent for this session": true,
}

// maxBackoff caps the sleep between attempts.
const maxBackoff = 2 * time.Second

// backoff returns min(2s, 2^(attempt-7) s) for the given 1-based retry count.
func backoff(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt-7)) * float64(time.Second))
	return min(d, maxBackoff)
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeRetry
	outcomeReauth
)

// Get sends a GET and decodes api_response into out.
func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.request(ctx, http.MethodGet, path, EnvelopeOutput(out), opts...)
}

// Post sends a POST and decodes api_response into out.
func (c *Client) Post(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.request(ctx, http.MethodPost, path, EnvelopeOutput(out), opts...)
}

// Put sends a PUT and decodes api_response into out.
func (c *Client) Put(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.request(ctx, http.MethodPut, path, EnvelopeOutput(out), opts...)
}

// Delete sends a DELETE and decodes api_response into out.
func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.request(ctx, http.MethodDelete, path, EnvelopeOutput(out), opts...)
}

// Download sends a GET and hands the raw response to decode.
func (c *Client) Download(ctx context.Context, path string, decode Decoder, opts ...RequestOption) error {
	return c.request(ctx, http.MethodGet, path, decode, opts...)
}

// request is the single primitive behind every call. It retries transient
// failures with backoff, renews an expired session and classifies everything
// else as fatal.
func (c *Client) request(ctx context.Context, method, path string, decode Decoder, opts ...RequestOption) error {
	c.debug(path)

	cfg := newRequestConfig(opts)
	if cfg.timeout == 0 {
		cfg.timeout = c.timeout
	}
	if err := cfg.encodeStatic(); err != nil {
		return err
	}

	reqID := uuid.NewString()
	lastStatus := 0
	reauths := 0

	for attempt := 0; c.maxRetries < 1 || attempt <= c.maxRetries; {
		if attempt > 0 {
			if err := sleepCtx(ctx, backoff(attempt)); err != nil {
				return err
			}
		}

		start := time.Now()
		status, res, err := c.do(ctx, method, path, decode, cfg, attempt)
		c.logger.Debug("assemblyline request",
			slog.String("request_id", reqID),
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Int("attempt", attempt+1),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		if status != 0 {
			lastStatus = status
		}

		switch res {
		case outcomeDone:
			return err
		case outcomeReauth:
			reauths++
			if reauths > maxReauthPerRequest {
				return err
			}
			if rerr := c.reauthenticate(ctx); rerr != nil {
				return rerr
			}
			continue
		case outcomeRetry:
			c.logger.Debug("retrying assemblyline request",
				slog.String("request_id", reqID),
				slog.String("path", path),
				slog.Any("error", err),
			)
		}
		attempt++
	}

	return &ClientError{
		Kind:       KindRetryExhausted,
		StatusCode: lastStatus,
		Message:    "Max retry reached, could not perform the request.",
	}
}

// do runs one attempt. The returned error is final for outcomeDone and
// informative otherwise.
func (c *Client) do(ctx context.Context, method, path string, decode Decoder, cfg *requestConfig, attempt int) (int, outcome, error) {
	parent := ctx
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	body, contentType, err := cfg.body(attempt)
	if err != nil {
		return 0, outcomeDone, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return 0, outcomeDone, invalidArgument("building request: %v", err)
	}
	req.Header = c.session.header()
	for k, vs := range cfg.headers {
		req.Header[k] = vs
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		res, cerr := classifyTransportError(parent, err)
		return 0, res, cerr
	}
	defer resp.Body.Close()

	c.session.promoteXSRF(resp.Cookies())

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if decode == nil {
			return resp.StatusCode, outcomeDone, nil
		}
		return resp.StatusCode, outcomeDone, decode(resp)

	case resp.StatusCode == http.StatusUnauthorized:
		ce := decodeError(resp)
		if !cfg.noReauth && sessionExpiredReasons[ce.Message] {
			ce.Kind = KindSessionExpired
			return resp.StatusCode, outcomeReauth, ce
		}
		return resp.StatusCode, outcomeDone, ce

	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, outcomeRetry, &ClientError{
			Kind:       KindGatewayUnavailable,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}

	default:
		return resp.StatusCode, outcomeDone, decodeError(resp)
	}
}

// decodeError reads an error envelope. An undecodable body becomes the message.
func decodeError(resp *http.Response) *ClientError {
	data, _ := io.ReadAll(resp.Body)
	ce := &ClientError{Kind: KindServerRejected, StatusCode: resp.StatusCode}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		ce.Message = string(data)
		return ce
	}
	ce.Message = env.APIErrorMessage
	ce.APIVersion = env.APIServerVersion
	if len(env.APIResponse) > 0 && string(env.APIResponse) != "null" {
		ce.APIResponse = env.APIResponse
	}
	return ce
}

// classifyTransportError decides whether a failed round trip is retried.
func classifyTransportError(ctx context.Context, err error) (outcome, error) {
	if isTLSError(err) {
		return outcomeDone, &ClientError{Kind: KindTransportFatal, Message: err.Error(), Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "proxyconnect" {
		return outcomeDone, &ClientError{Kind: KindTransportFatal, Message: err.Error(), Err: err}
	}

	// The caller gave up; its own error wins over the transport one.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return outcomeDone, ctxErr
	}

	// Local I/O, such as an upload file that vanished, cannot heal by itself.
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return outcomeDone, &ClientError{Kind: KindTransportFatal, Message: err.Error(), Err: err}
	}

	// Dial failures, resets, aborted connections, EOF and per-attempt
	// timeouts are all worth another attempt.
	return outcomeRetry, &ClientError{Kind: KindTransportTransient, Message: err.Error(), Err: err}
}

func isTLSError(err error) bool {
	var (
		verifyErr  *tls.CertificateVerificationError
		recordErr  tls.RecordHeaderError
		alertErr   tls.AlertError
		unknownErr x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &unknownErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
