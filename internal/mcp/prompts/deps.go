// Package prompts contains MCP prompt implementations for Assemblyline.
package prompts

// Config holds configuration needed by prompts.
type Config struct {
	Server             string
	DefaultStreamLimit int
}
