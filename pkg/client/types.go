package client

import (
	"encoding/json"
	"time"
)

// Submission states reported by the service.
const (
	SubmissionStateSubmitted = "submitted"
	SubmissionStateCompleted = "completed"
)

// envelope wraps every JSON answer of the service.
type envelope struct {
	APIResponse      json.RawMessage `json:"api_response"`
	APIErrorMessage  string          `json:"api_error_message"`
	APIServerVersion string          `json:"api_server_version"`
	APIStatusCode    int             `json:"api_status_code"`
}

// LoginResult is the api_response of both login endpoints.
type LoginResult struct {
	Username        string   `json:"username"`
	Privileges      []string `json:"privileges,omitempty"`
	SessionDuration int      `json:"session_duration"`
}

// Submission is a submission record.
type Submission struct {
	SID            string           `json:"sid"`
	State          string           `json:"state"`
	Classification string           `json:"classification,omitempty"`
	MaxScore       int              `json:"max_score"`
	FileCount      int              `json:"file_count"`
	ErrorCount     int              `json:"error_count"`
	Files          []SubmissionFile `json:"files,omitempty"`
	Params         map[string]any   `json:"params,omitempty"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
	Times          SubmissionTimes  `json:"times"`
	Errors         []string         `json:"errors,omitempty"`
	Results        []string         `json:"results,omitempty"`
}

// Completed reports whether the submission reached its final state.
func (s *Submission) Completed() bool {
	return s.State == SubmissionStateCompleted
}

// SubmissionFile is a file attached to a submission.
type SubmissionFile struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size,omitempty"`
}

// SubmissionTimes holds the submission timeline.
type SubmissionTimes struct {
	Submitted *time.Time `json:"submitted,omitempty"`
	Completed *time.Time `json:"completed,omitempty"`
}

// SubmissionParams documents the analysis parameters accepted by the submit
// endpoint. Submit takes a free-form map so that server-specific parameters
// pass through; this type is the schema those maps are checked against.
type SubmissionParams struct {
	Classification   string            `json:"classification,omitempty" jsonschema:"description=Classification of the submission"`
	DeepScan         bool              `json:"deep_scan,omitempty" jsonschema:"description=Disable service result caching heuristics"`
	Description      string            `json:"description,omitempty" jsonschema:"maxLength=1024"`
	GenerateAlert    bool              `json:"generate_alert,omitempty"`
	IgnoreCache      bool              `json:"ignore_cache,omitempty"`
	IgnoreFiltering  bool              `json:"ignore_filtering,omitempty"`
	MaxExtracted     int               `json:"max_extracted,omitempty" jsonschema:"minimum=0"`
	MaxSupplementary int               `json:"max_supplementary,omitempty" jsonschema:"minimum=0"`
	Priority         int               `json:"priority,omitempty" jsonschema:"minimum=1,maximum=1500"`
	Profile          bool              `json:"profile,omitempty"`
	TTL              int               `json:"ttl,omitempty" jsonschema:"minimum=0"`
	Type             string            `json:"type,omitempty" jsonschema:"enum=USER,enum=INGEST,enum=EXTERNAL"`
	Services         *ServiceSelection `json:"services,omitempty"`
	ServiceSpec      map[string]any    `json:"service_spec,omitempty"`
}

// ServiceSelection picks the services a submission runs through.
type ServiceSelection struct {
	Selected []string `json:"selected,omitempty"`
	Excluded []string `json:"excluded,omitempty"`
	Rescan   []string `json:"rescan,omitempty"`
	Resubmit []string `json:"resubmit,omitempty"`
}

// FileInfo is the file record returned by the file info endpoint.
type FileInfo struct {
	SHA256         string  `json:"sha256"`
	SHA1           string  `json:"sha1"`
	MD5            string  `json:"md5"`
	Size           int64   `json:"size"`
	Type           string  `json:"type"`
	Magic          string  `json:"magic,omitempty"`
	MIME           string  `json:"mime,omitempty"`
	Entropy        float64 `json:"entropy,omitempty"`
	Classification string  `json:"classification,omitempty"`
	SeenCount      int     `json:"seen_count,omitempty"`
}

// User is the identity returned by the whoami endpoint.
type User struct {
	Username       string   `json:"username"`
	Name           string   `json:"name"`
	Email          string   `json:"email,omitempty"`
	Classification string   `json:"classification,omitempty"`
	Type           []string `json:"type,omitempty"`
	Roles          []string `json:"roles,omitempty"`
}
