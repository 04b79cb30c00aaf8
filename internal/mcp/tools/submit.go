package tools

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/assemblyline-mcp/pkg/client"
)

// SubmitInput is the input for al_submit.
type SubmitInput struct {
	URL          string         `json:"url,omitempty" jsonschema:"URL the service downloads and analyzes"`
	SHA256       string         `json:"sha256,omitempty" jsonschema:"SHA256 of a file the service already holds"`
	FileName     string         `json:"file_name,omitempty" jsonschema:"Name given to the file, guessed from the source when empty"`
	Params       map[string]any `json:"params,omitempty" jsonschema:"Submission parameters, see assemblyline://schema/submission-params"`
	Metadata     map[string]any `json:"metadata,omitempty" jsonschema:"Free form metadata attached to the submission"`
	Wait         bool           `json:"wait,omitempty" jsonschema:"Wait for the analysis to complete"`
	WaitTimeoutS int            `json:"wait_timeout_s,omitempty" jsonschema:"Max seconds to wait (default 300)"`
}

// SubmitOutput is the output for al_submit.
type SubmitOutput struct {
	Submission SubmissionView `json:"submission"`
	Completed  bool           `json:"completed"`
	Hint       string         `json:"hint,omitempty"`
}

const defaultWaitTimeout = 5 * time.Minute

// ToolSubmit sends a URL or known hash for analysis.
func ToolSubmit(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input SubmitInput) (*sdkmcp.CallToolResult, SubmitOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input SubmitInput) (*sdkmcp.CallToolResult, SubmitOutput, error) {
		if (input.URL == "") == (input.SHA256 == "") {
			return nil, SubmitOutput{}, ErrInvalidInput("exactly one of url or sha256 is required")
		}

		params := maps.Clone(input.Params)
		if params == nil {
			params = make(map[string]any)
		}
		if _, ok := params["description"]; !ok {
			params["description"] = defaultDescription(input)
		}
		if d.Validator != nil {
			if res := d.Validator.ValidateValue(params); !res.Valid {
				return nil, SubmitOutput{}, ErrInvalidInput("invalid params: " + strings.Join(res.Errors, "; "))
			}
		}

		sub, err := d.Client.Submit(ctx, &client.SubmitRequest{
			URL:      input.URL,
			SHA256:   input.SHA256,
			FileName: input.FileName,
			Params:   params,
			Metadata: input.Metadata,
		})
		if err != nil {
			return nil, SubmitOutput{}, WrapAssemblylineError(err)
		}

		if !input.Wait {
			return nil, SubmitOutput{
				Submission: ToSubmissionView(sub),
				Completed:  sub.Completed(),
				Hint:       "use al_submission_wait with this sid to wait for the results",
			}, nil
		}

		final, err := waitFor(ctx, d, sub.SID, secondsOr(input.WaitTimeoutS, defaultWaitTimeout))
		if err != nil {
			var coded *CodedError
			if errors.As(err, &coded) && coded.Code == ErrCodeTimeout {
				return nil, SubmitOutput{
					Submission: ToSubmissionView(sub),
					Hint:       "analysis still running: " + coded.Message,
				}, nil
			}
			return nil, SubmitOutput{}, err
		}
		return nil, SubmitOutput{Submission: ToSubmissionView(final), Completed: true}, nil
	}
}

// defaultDescription labels submissions made through the server. The random
// part keeps descriptions of repeated submissions apart.
func defaultDescription(input SubmitInput) string {
	source := input.URL
	if source == "" {
		source = input.SHA256
	}
	return fmt.Sprintf("[MCP] Inspection of %s (%s)", source, uuid.NewString())
}

func secondsOr(s int, def time.Duration) time.Duration {
	if s <= 0 {
		return def
	}
	return time.Duration(s) * time.Second
}

// waitFor polls sid until completion or timeout. Timeouts come back as a
// TIMEOUT coded error.
func waitFor(ctx context.Context, d *Deps, sid string, timeout time.Duration) (*client.Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sub, err := d.Fetcher.WaitForCompletion(ctx, sid, d.Config.PollInterval())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return nil, &CodedError{
				Code:    ErrCodeTimeout,
				Message: fmt.Sprintf("submission %s not completed after %s", sid, timeout),
				Cause:   err,
			}
		}
		return nil, WrapAssemblylineError(err)
	}
	return sub, nil
}
