package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Decoder turns a successful response into a caller-facing value. It must
// consume what it needs from resp.Body; the client closes the body afterwards.
type Decoder func(resp *http.Response) error

// EnvelopeOutput decodes the api_response field of a JSON answer into out.
// A nil out discards the payload.
func EnvelopeOutput(out any) Decoder {
	return func(resp *http.Response) error {
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		if out == nil || len(env.APIResponse) == 0 {
			return nil
		}
		if err := json.Unmarshal(env.APIResponse, out); err != nil {
			return fmt.Errorf("decoding api_response: %w", err)
		}
		return nil
	}
}

// RawOutput stores the whole response body in dst.
func RawOutput(dst *[]byte) Decoder {
	return func(resp *http.Response) error {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		*dst = data
		return nil
	}
}

// StreamOutput copies the response body into w without buffering it.
func StreamOutput(w io.Writer) Decoder {
	return func(resp *http.Response) error {
		if _, err := io.Copy(w, resp.Body); err != nil {
			return fmt.Errorf("streaming response: %w", err)
		}
		return nil
	}
}

// FileOutput writes the response body to the file at path, truncating it.
func FileOutput(path string) Decoder {
	return func(resp *http.Response) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		if _, err := io.Copy(f, resp.Body); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return f.Close()
	}
}
