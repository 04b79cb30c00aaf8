package mcpsrv

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/assemblyline-mcp/internal/mcp/tools"
)

// AddTool registers a tool with the server after checking that the zero value
// of its output type passes the schema the SDK infers for it. Nil slices and
// json.RawMessage fields are the usual offenders.
//
// Panics if the check fails. Use this instead of [sdkmcp.AddTool].
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	tools.AddTool(srv, t, h)
}
