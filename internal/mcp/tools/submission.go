package tools

import (
	"context"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/assemblyline-mcp/pkg/jsoncompact"
)

// maxBatchSIDs bounds al_submission_get batches.
const maxBatchSIDs = 50

// SubmissionGetInput is the input for al_submission_get.
type SubmissionGetInput struct {
	SID  string   `json:"sid,omitempty" jsonschema:"Submission ID"`
	SIDs []string `json:"sids,omitempty" jsonschema:"Several submission IDs fetched in parallel (max 50)"`
	Full bool     `json:"full,omitempty" jsonschema:"Return the full submission tree with results and errors (single sid only, high context cost)"`
	Raw  bool     `json:"raw,omitempty" jsonschema:"With full, skip trimming of long arrays and strings"`
}

// SubmissionGetOutput is the output for al_submission_get.
type SubmissionGetOutput struct {
	Submissions []SubmissionView   `json:"submissions,omitempty"`
	Missing     []string           `json:"missing,omitempty"`
	Full        any                `json:"full,omitempty"`
	Compacted   *jsoncompact.Stats `json:"compacted,omitempty"`
}

// SubmissionWaitInput is the input for al_submission_wait.
type SubmissionWaitInput struct {
	SID      string `json:"sid" jsonschema:"Submission ID"`
	TimeoutS int    `json:"timeout_s,omitempty" jsonschema:"Max seconds to wait (default 300)"`
}

// SubmissionWaitOutput is the output for al_submission_wait.
type SubmissionWaitOutput struct {
	Submission SubmissionView `json:"submission"`
	WaitedMs   int64          `json:"waited_ms"`
}

// ToolSubmissionGet retrieves one or more submissions.
func ToolSubmissionGet(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input SubmissionGetInput) (*sdkmcp.CallToolResult, SubmissionGetOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input SubmissionGetInput) (*sdkmcp.CallToolResult, SubmissionGetOutput, error) {
		sids := input.SIDs
		if input.SID != "" {
			sids = append([]string{input.SID}, sids...)
		}
		switch {
		case len(sids) == 0:
			return nil, SubmissionGetOutput{}, ErrInvalidInput("sid or sids is required")
		case len(sids) > maxBatchSIDs:
			return nil, SubmissionGetOutput{}, ErrInvalidInput("too many sids, max 50")
		case input.Full && len(sids) > 1:
			return nil, SubmissionGetOutput{}, ErrInvalidInput("full is only supported for a single sid")
		}

		if input.Full {
			raw, err := d.Client.SubmissionFull(ctx, sids[0])
			if err != nil {
				return nil, SubmissionGetOutput{}, WrapAssemblylineError(err)
			}
			full, err := ToAny(raw)
			if err != nil {
				return nil, SubmissionGetOutput{}, WrapAssemblylineError(err)
			}
			if input.Raw {
				return nil, SubmissionGetOutput{Full: full}, nil
			}
			compacted, stats := jsoncompact.Compact(full, jsoncompact.DefaultOptions())
			output := SubmissionGetOutput{Full: compacted}
			if stats.Changed() {
				output.Compacted = &stats
			}
			return nil, output, nil
		}

		if len(sids) == 1 {
			sub, err := d.FetchSubmission(ctx, sids[0])
			if err != nil {
				return nil, SubmissionGetOutput{}, WrapAssemblylineError(err)
			}
			return nil, SubmissionGetOutput{Submissions: []SubmissionView{ToSubmissionView(sub)}}, nil
		}

		subs, err := d.Fetcher.FetchMany(ctx, sids)
		if err != nil {
			return nil, SubmissionGetOutput{}, WrapAssemblylineError(err)
		}
		var output SubmissionGetOutput
		for i, sub := range subs {
			if sub == nil {
				output.Missing = append(output.Missing, sids[i])
				continue
			}
			output.Submissions = append(output.Submissions, ToSubmissionView(sub))
		}
		return nil, output, nil
	}
}

// ToolSubmissionWait blocks until a submission completes.
func ToolSubmissionWait(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input SubmissionWaitInput) (*sdkmcp.CallToolResult, SubmissionWaitOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input SubmissionWaitInput) (*sdkmcp.CallToolResult, SubmissionWaitOutput, error) {
		if input.SID == "" {
			return nil, SubmissionWaitOutput{}, ErrInvalidInput("sid is required")
		}

		start := time.Now()
		sub, err := waitFor(ctx, d, input.SID, secondsOr(input.TimeoutS, defaultWaitTimeout))
		if err != nil {
			return nil, SubmissionWaitOutput{}, err
		}
		return nil, SubmissionWaitOutput{
			Submission: ToSubmissionView(sub),
			WaitedMs:   time.Since(start).Milliseconds(),
		}, nil
	}
}
