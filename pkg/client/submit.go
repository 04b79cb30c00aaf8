package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SubmitRequest describes what to analyze. Exactly one source is used, checked
// in the order File, Content, Path, URL, SHA256.
type SubmitRequest struct {
	// File is uploaded as is. It is rewound between attempts when it is an
	// io.Seeker.
	File io.Reader
	// Content is uploaded from memory.
	Content []byte
	// Path is a local file to upload.
	Path string
	// URL asks the service to fetch the file itself.
	URL string
	// SHA256 resubmits a file the service already holds.
	SHA256 string

	// FileName overrides the guessed name.
	FileName string
	Params   map[string]any
	Metadata map[string]any
}

type submitBody struct {
	Name     string         `json:"name"`
	URL      string         `json:"url,omitempty"`
	SHA256   string         `json:"sha256,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type namer interface {
	Name() string
}

// Submit sends a file, URL or hash for analysis and returns the new submission.
func (c *Client) Submit(ctx context.Context, sr *SubmitRequest) (*Submission, error) {
	if err := c.requireCurrent("submit"); err != nil {
		return nil, err
	}
	if sr == nil {
		sr = &SubmitRequest{}
	}

	body := submitBody{Params: sr.Params, Metadata: sr.Metadata}
	var upload io.Reader

	switch {
	case sr.File != nil:
		body.Name = sr.FileName
		if body.Name == "" {
			n, ok := sr.File.(namer)
			if !ok {
				return nil, invalidArgument("Could not guess the file name, please provide a file name")
			}
			body.Name = filepath.Base(n.Name())
		}
		upload = sr.File

	case len(sr.Content) > 0:
		body.Name = sr.FileName
		if body.Name == "" {
			sum := sha256.Sum256(sr.Content)
			body.Name = hex.EncodeToString(sum[:])
		}
		upload = bytes.NewReader(sr.Content)

	case sr.Path != "":
		f, err := os.Open(sr.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, invalidArgument("File does not exist %q", sr.Path)
			}
			return nil, err
		}
		defer f.Close()
		body.Name = sr.FileName
		if body.Name == "" {
			body.Name = filepath.Base(sr.Path)
		}
		upload = f

	case sr.URL != "":
		body.URL = sr.URL
		body.Name = sr.FileName
		if body.Name == "" {
			body.Name = urlFileName(sr.URL)
		}

	case sr.SHA256 != "":
		body.SHA256 = sr.SHA256
		body.Name = sr.FileName
		if body.Name == "" {
			body.Name = sr.SHA256
		}

	default:
		return nil, invalidArgument("You need to provide at least content, a path, a url or a sha256")
	}

	var sub Submission
	if upload == nil {
		if err := c.Post(ctx, APIPath("submit"), &sub, WithJSON(body)); err != nil {
			return nil, err
		}
		return &sub, nil
	}

	meta, err := json.Marshal(body)
	if err != nil {
		return nil, invalidArgument("encoding submission: %v", err)
	}
	err = c.Post(ctx, APIPath("submit"), &sub,
		WithFormField("json", string(meta)),
		WithFile("bin", body.Name, upload),
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// urlFileName is the last path segment of u without its query string.
func urlFileName(u string) string {
	u, _, _ = strings.Cut(u, "?")
	u = strings.TrimRight(u, "/")
	if i := strings.LastIndexByte(u, '/'); i >= 0 {
		return u[i+1:]
	}
	return u
}

func (c *Client) requireCurrent(op string) error {
	if c.generation != GenerationCurrent {
		return invalidArgument("%s requires a %s server, connected to %s", op, APIVersion, c.generation)
	}
	return nil
}
