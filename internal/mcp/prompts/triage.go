package prompts

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleTriageSubmission implements the submission triage workflow.
func HandleTriageSubmission(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		args := req.Params.Arguments

		sid := args["sid"]
		if sid == "" {
			return nil, fmt.Errorf("sid argument is required")
		}
		focus := args["focus"]

		var sb strings.Builder

		sb.WriteString("# Triage Assemblyline Submission\n\n")
		sb.WriteString("You are a malware analyst. Your goal is to explain what the submitted file does, ")
		sb.WriteString("how confident the verdict is, and which indicators a responder should act on.\n\n")

		sb.WriteString("## Target\n\n")
		fmt.Fprintf(&sb, "- Submission: `%s`\n", sid)
		if focus != "" {
			fmt.Fprintf(&sb, "- Focus: %s\n", focus)
		}
		sb.WriteString("\n")

		sb.WriteString("## Workflow Steps\n\n")
		sb.WriteString("1. **Wait for completion** -- `al_submission_wait(sid)`\n")
		sb.WriteString("   - On TIMEOUT, report that the analysis is still running and stop\n\n")
		sb.WriteString("2. **Read the summary** -- `max_score`, `files`, `error_count`\n")
		sb.WriteString("   - max_score >= 1000: malicious, >= 500: highly suspicious, >= 300: suspicious, below: informative\n")
		sb.WriteString("   - error_count > 0: some services failed, say so in the verdict\n\n")
		sb.WriteString("3. **Find what scored** -- stream the results of the submitted files\n")
		sb.WriteString("   - `al_search_stream(index: \"result\", query: \"sha256:<file sha256>\", expression: \"select(.result.score > 0) | {service: .response.service_name, score: .result.score}\")`\n\n")
		sb.WriteString("4. **Drill into the top services** -- `al_submission_get(sid, full: true)` only if step 3 is not enough\n\n")
		sb.WriteString("5. **Describe the file** -- `al_file_info(sha256)` for type, size and magic\n\n")

		sb.WriteString("## Output\n\n")
		sb.WriteString("- Verdict with score band and confidence\n")
		sb.WriteString("- Top scoring services and what they found\n")
		sb.WriteString("- Indicators (hashes, domains, IPs, URLs) as a list\n")
		sb.WriteString("- Gaps: failed services, missing results\n")
		if cfg.Server != "" {
			fmt.Fprintf(&sb, "- Link: %s/submission/%s\n", strings.TrimSuffix(cfg.Server, "/"), sid)
		}

		return &sdkmcp.GetPromptResult{
			Description: fmt.Sprintf("Triage workflow for submission %s", sid),
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}
