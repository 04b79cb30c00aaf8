package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all tools with the MCP server.
func Register(srv *sdkmcp.Server, d *Deps) {
	AddTool(srv, &sdkmcp.Tool{
		Name:        "al_whoami",
		Description: "Show the Assemblyline user this server is logged in as, with the server URL, API generation and session duration",
	}, ToolWhoAmI(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "al_search",
		Description: "Search one Assemblyline index and return a single page of records. Indexes: alert, badlist, file, heuristic, result, safelist, signature, submission, workflow. Use `fields` to keep only the fields you need; use al_search_stream to walk more results than fit in one page.",
	}, ToolSearch(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "al_search_stream",
		Description: "Walk every record matching a query with deep paging and extract values with an optional jq expression. Returns {values, errors, scanned, raw_count, truncated}. Stops at `limit` values. Sorting and paging options are not available here; use al_search for those.",
	}, ToolStreamSearch(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "al_submit",
		Description: "Submit a URL or the SHA256 of a known file for analysis. Params are checked against assemblyline://schema/submission-params before sending. Set wait=true to block until the analysis completes.",
	}, ToolSubmit(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "al_validate_params",
		Description: "Check submission parameters against the submission params schema without submitting anything",
	}, ToolValidateParams(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "al_submission_get",
		Description: "Get submission summaries by sid (or several sids in parallel). Completed submissions are served from cache. Set full=true for the complete result tree of a single submission.",
	}, ToolSubmissionGet(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "al_submission_wait",
		Description: "Wait until a submission completes and return its summary. Returns a TIMEOUT error when the analysis is still running after timeout_s.",
	}, ToolSubmissionWait(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "al_file_info",
		Description: "Get the file record (hashes, size, type, magic, entropy) for a SHA256",
	}, ToolFileInfo(d))
}
