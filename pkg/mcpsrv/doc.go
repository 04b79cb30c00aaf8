// Package mcpsrv provides an extensible MCP server for Assemblyline.
//
// The server exposes the builtin Assemblyline tools (search, streaming search
// with jq extraction, submission, file info), resources and prompts. Callers
// extend it with their own tools, prompts and resources using functional
// options.
//
// # Basic Usage
//
// Connect with the configuration read from the environment (AL_SERVER,
// AL_USER, AL_APIKEY, ...):
//
//	server, err := mcpsrv.NewServer(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Close()
//	server.Run(ctx)
//
// Or pass a client built with [client.New].
//
// # Extension
//
// Add custom tools using MCP SDK types directly:
//
//	type HashInput struct {
//	    SHA256 string `json:"sha256"`
//	}
//
//	type HashOutput struct {
//	    Seen bool `json:"seen"`
//	}
//
//	server, err := mcpsrv.NewServer(ctx, nil,
//	    mcpsrv.WithDepsTool(&mcp.Tool{Name: "seen_before"},
//	        func(d *mcpsrv.Deps) func(context.Context, *mcp.CallToolRequest, HashInput) (*mcp.CallToolResult, HashOutput, error) {
//	            return func(ctx context.Context, req *mcp.CallToolRequest, in HashInput) (*mcp.CallToolResult, HashOutput, error) {
//	                _, err := d.Client.FileInfo(ctx, in.SHA256)
//	                return nil, HashOutput{Seen: err == nil}, nil
//	            }
//	        }),
//	)
//
// # Configuration
//
//	server, err := mcpsrv.NewServer(ctx, nil,
//	    mcpsrv.WithLogLevel("debug"),
//	    mcpsrv.WithLogFile("/var/log/assemblyline-mcp.log"),
//	)
package mcpsrv
