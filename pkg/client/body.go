package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// RequestOption configures a single call to one of the request primitives.
type RequestOption func(*requestConfig)

type formFile struct {
	field string
	name  string
	r     io.Reader
}

type formField struct {
	name  string
	value string
}

type requestConfig struct {
	jsonBody any
	hasJSON  bool
	rawBody  []byte
	fields   []formField
	files    []formFile
	headers  http.Header
	timeout  time.Duration

	// noReauth stops a 401 from starting a new login. Login requests set it.
	noReauth bool
}

func newRequestConfig(opts []RequestOption) *requestConfig {
	cfg := &requestConfig{headers: make(http.Header)}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithJSON sends v encoded as JSON as the request body.
func WithJSON(v any) RequestOption {
	return func(cfg *requestConfig) {
		cfg.jsonBody = v
		cfg.hasJSON = true
	}
}

// WithBody sends data verbatim as the request body.
func WithBody(data []byte) RequestOption {
	return func(cfg *requestConfig) {
		cfg.rawBody = data
	}
}

// WithFile attaches r as a multipart file part. When r is an io.Seeker it is
// rewound before every attempt so retried uploads send the same bytes.
// Readers that cannot seek are only safe with retries disabled.
func WithFile(field, name string, r io.Reader) RequestOption {
	return func(cfg *requestConfig) {
		cfg.files = append(cfg.files, formFile{field: field, name: name, r: r})
	}
}

// WithFormField adds a multipart form field. It only takes effect together
// with WithFile.
func WithFormField(name, value string) RequestOption {
	return func(cfg *requestConfig) {
		cfg.fields = append(cfg.fields, formField{name: name, value: value})
	}
}

// WithHeader sets a header on this call only.
func WithHeader(key, value string) RequestOption {
	return func(cfg *requestConfig) {
		cfg.headers.Set(key, value)
	}
}

// WithRequestTimeout overrides the client default timeout for this call.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(cfg *requestConfig) {
		cfg.timeout = d
	}
}

func withoutReauth() RequestOption {
	return func(cfg *requestConfig) {
		cfg.noReauth = true
	}
}

// encodeStatic prepares the parts of the body that do not change between
// attempts.
func (cfg *requestConfig) encodeStatic() error {
	if !cfg.hasJSON {
		return nil
	}
	data, err := json.Marshal(cfg.jsonBody)
	if err != nil {
		return invalidArgument("encoding request body: %v", err)
	}
	cfg.rawBody = data
	return nil
}

// body builds the request body for one attempt and returns its content type.
// An empty content type keeps the session default.
func (cfg *requestConfig) body(attempt int) (io.Reader, string, error) {
	if len(cfg.files) == 0 {
		if cfg.rawBody == nil {
			return nil, "", nil
		}
		return bytes.NewReader(cfg.rawBody), "", nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range cfg.fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("writing form field %s: %w", f.name, err)
		}
	}
	for _, f := range cfg.files {
		if s, ok := f.r.(io.Seeker); ok {
			if _, err := s.Seek(0, io.SeekStart); err != nil {
				return nil, "", fmt.Errorf("rewinding %s (attempt %d): %w", f.name, attempt+1, err)
			}
		}
		part, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			return nil, "", fmt.Errorf("creating form file %s: %w", f.name, err)
		}
		if _, err := io.Copy(part, f.r); err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", f.name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
