package prompts

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all prompts with the MCP server.
func Register(srv *sdkmcp.Server, cfg *Config) {
	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "triage_submission",
		Description: "RECOMMENDED: Triage an Assemblyline submission: wait for it, read its score and files, and drill into the results that drive the verdict.",
		Arguments: []*sdkmcp.PromptArgument{
			{
				Name:        "sid",
				Description: "Submission ID to triage",
				Required:    true,
			},
			{
				Name:        "focus",
				Description: "What to look for (e.g. 'network indicators', 'persistence')",
				Required:    false,
			},
		},
	}, HandleTriageSubmission(cfg))

	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "tool_guide",
		Description: "Guide to the Assemblyline tools: which search tool to use, jq extraction and context-cost tips.",
	}, HandleToolGuide(cfg))
}
