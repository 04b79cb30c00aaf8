package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

// StatusSSLError is the status reported when the TLS handshake with the
// server fails during construction.
const StatusSSLError = 495

// ErrorKind classifies a ClientError.
type ErrorKind int

const (
	// KindServerRejected is any non-retryable error status returned by the server.
	KindServerRejected ErrorKind = iota
	// KindTransportFatal is a TLS or proxy failure. It is never retried.
	KindTransportFatal
	// KindTransportTransient is a connection-level failure that is retried.
	KindTransportTransient
	// KindGatewayUnavailable is a 502, 503 or 504 answer. It is retried.
	KindGatewayUnavailable
	// KindSessionExpired is a 401 whose reason triggers a new login.
	KindSessionExpired
	// KindRetryExhausted means the retry ceiling was reached.
	KindRetryExhausted
	// KindProtocolUnsupported means the server advertises no known API generation.
	KindProtocolUnsupported
	// KindStreamOptionInvalid means a pagination option was passed to a stream search.
	KindStreamOptionInvalid
	// KindInvalidArgument is a caller mistake detected before any network call.
	KindInvalidArgument
)

var kindNames = map[ErrorKind]string{
	KindServerRejected:      "server_rejected",
	KindTransportFatal:      "transport_fatal",
	KindTransportTransient:  "transport_transient",
	KindGatewayUnavailable:  "gateway_unavailable",
	KindSessionExpired:      "session_expired",
	KindRetryExhausted:      "retry_exhausted",
	KindProtocolUnsupported: "protocol_unsupported",
	KindStreamOptionInvalid: "stream_option_invalid",
	KindInvalidArgument:     "invalid_argument",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinel errors matched by ClientError.Is.
var (
	ErrRetryExhausted      = errors.New("max retry reached")
	ErrProtocolUnsupported = errors.New("no supported API generation")
	ErrStreamOptionInvalid = errors.New("option not allowed in stream search")
	ErrTransportFatal      = errors.New("fatal transport error")
)

// ClientError is the single error type surfaced by the client. It carries the
// HTTP status and, when the server answered with an error envelope, the
// decoded message, server version and api_response payload.
type ClientError struct {
	Kind        ErrorKind
	StatusCode  int
	Message     string
	APIVersion  string
	APIResponse json.RawMessage
	Err         error
}

func (e *ClientError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("assemblyline client error (%s): %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("assemblyline API error %d: %s", e.StatusCode, e.Message)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel matching e.Kind.
func (e *ClientError) Is(target error) bool {
	switch target {
	case ErrRetryExhausted:
		return e.Kind == KindRetryExhausted
	case ErrProtocolUnsupported:
		return e.Kind == KindProtocolUnsupported
	case ErrStreamOptionInvalid:
		return e.Kind == KindStreamOptionInvalid
	case ErrTransportFatal:
		return e.Kind == KindTransportFatal
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not a
// ClientError.
func StatusCode(err error) int {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.StatusCode
	}
	return 0
}

func invalidArgument(format string, args ...any) *ClientError {
	return &ClientError{
		Kind:       KindInvalidArgument,
		StatusCode: 400,
		Message:    fmt.Sprintf(format, args...),
	}
}
