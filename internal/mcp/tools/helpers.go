// Package tools contains MCP tool implementations for Assemblyline.
package tools

import (
	"encoding/json"
	"time"

	"github.com/usestring/assemblyline-mcp/pkg/client"
)

// MIME type constant.
const MimeJSON = "application/json"

// SubmissionView is the tool-facing form of a submission.
type SubmissionView struct {
	SID            string           `json:"sid"`
	State          string           `json:"state"`
	Classification string           `json:"classification,omitempty"`
	MaxScore       int              `json:"max_score"`
	FileCount      int              `json:"file_count"`
	ErrorCount     int              `json:"error_count"`
	Files          []SubmissionFile `json:"files,omitempty"`
	Params         map[string]any   `json:"params,omitempty"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
	Submitted      string           `json:"submitted,omitempty"`
	Completed      string           `json:"completed,omitempty"`
}

// SubmissionFile is a file attached to a submission.
type SubmissionFile struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size,omitempty"`
}

// ToSubmissionView converts a client submission for tool output.
func ToSubmissionView(s *client.Submission) SubmissionView {
	v := SubmissionView{
		SID:            s.SID,
		State:          s.State,
		Classification: s.Classification,
		MaxScore:       s.MaxScore,
		FileCount:      s.FileCount,
		ErrorCount:     s.ErrorCount,
		Params:         s.Params,
		Metadata:       s.Metadata,
		Submitted:      formatTime(s.Times.Submitted),
		Completed:      formatTime(s.Times.Completed),
	}
	for _, f := range s.Files {
		v.Files = append(v.Files, SubmissionFile{Name: f.Name, SHA256: f.SHA256, Size: f.Size})
	}
	return v
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ToAny decodes raw JSON into a generic value. Tool outputs use it in place
// of json.RawMessage, which the schema generator sees as a byte array.
func ToAny(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// clampLimit applies def when n is unset and caps the result at ceiling.
func clampLimit(n, def, ceiling int) int {
	if n <= 0 {
		n = def
	}
	if ceiling > 0 && n > ceiling {
		n = ceiling
	}
	return n
}
