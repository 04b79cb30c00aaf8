package prompts

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleToolGuide serves the tool usage guide.
func HandleToolGuide(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		var sb strings.Builder

		sb.WriteString("# Assemblyline Tool Guide\n\n")
		if cfg.Server != "" {
			fmt.Fprintf(&sb, "Connected server: %s\n\n", cfg.Server)
		}

		// --- Search decision table ---
		sb.WriteString("## Search: Which Tool\n\n")
		sb.WriteString("| Goal | Tool | Example |\n")
		sb.WriteString("|------|------|--------|\n")
		sb.WriteString("| Look at a few records | `al_search` | `al_search(index: \"submission\", query: \"max_score:>=1000\", rows: 10)` |\n")
		sb.WriteString("| Count matches | `al_search` | `al_search(index: \"file\", query: \"type:executable/windows*\", rows: 1)` then read `total` |\n")
		sb.WriteString("| Extract one field from every match | `al_search_stream` | `al_search_stream(index: \"submission\", expression: \".sid\")` |\n")
		sb.WriteString("| Unique values across matches | `al_search_stream` | `al_search_stream(index: \"result\", expression: \".response.service_name\", deduplicate: true)` |\n")

		sb.WriteString("\n**Key rules**:\n")
		sb.WriteString("- Queries use Lucene syntax; an empty query matches everything\n")
		sb.WriteString("- `filters` are ANDed with the query\n")
		sb.WriteString("- `fields` trims records to the listed fields and saves context\n")
		sb.WriteString("- `al_search_stream` does not accept sort or paging options; results arrive in index order\n")
		fmt.Fprintf(&sb, "- `al_search_stream` returns at most %d values unless `limit` is set; check `truncated`\n", cfg.DefaultStreamLimit)

		// --- Submissions ---
		sb.WriteString("\n## Submissions\n")
		sb.WriteString("1. Submit: `al_submit(url: ...)` or `al_submit(sha256: ...)`; check params first with `al_validate_params`\n")
		sb.WriteString("2. Wait: `al_submission_wait(sid: ...)` or pass `wait: true` to `al_submit`\n")
		sb.WriteString("3. Read: `al_submission_get(sid: ...)` for the summary, `full: true` only when you need service results\n")
		sb.WriteString("   - full output trims long arrays and strings and reports it in `compacted`; pass `raw: true` for everything\n")

		// --- Context cost ---
		sb.WriteString("\n## Context Cost\n")
		sb.WriteString("- **Low**: `al_whoami`, `al_file_info`, `al_submission_get`, `al_search` with `fields`\n")
		sb.WriteString("- **Medium**: `al_search_stream` with a jq expression\n")
		sb.WriteString("- **High**: `al_submission_get(full: true)`, `assemblyline://submission/{sid}/full`\n")

		// --- JQ ---
		sb.WriteString("\n## JQ Quick Reference\n")
		sb.WriteString("- `.sid` - One field per record\n")
		sb.WriteString("- `{sid, max_score}` - Several fields as an object\n")
		sb.WriteString("- `select(.max_score >= 1000) | .sid` - Filter records\n")
		sb.WriteString("- `.files[].sha256` - Flatten nested arrays\n")

		return &sdkmcp.GetPromptResult{
			Description: "Guide for efficient Assemblyline tool usage",
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}
