package tools

import (
	"context"
	"encoding/hex"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/assemblyline-mcp/pkg/client"
)

// FileInfoInput is the input for al_file_info.
type FileInfoInput struct {
	SHA256 string `json:"sha256" jsonschema:"SHA256 of the file"`
}

// FileInfoOutput is the output for al_file_info.
type FileInfoOutput struct {
	File client.FileInfo `json:"file"`
}

// ToolFileInfo returns the file record for a hash.
func ToolFileInfo(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input FileInfoInput) (*sdkmcp.CallToolResult, FileInfoOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input FileInfoInput) (*sdkmcp.CallToolResult, FileInfoOutput, error) {
		if !isSHA256(input.SHA256) {
			return nil, FileInfoOutput{}, ErrInvalidInput("sha256 must be 64 hex characters")
		}

		info, err := d.Client.FileInfo(ctx, input.SHA256)
		if err != nil {
			return nil, FileInfoOutput{}, WrapAssemblylineError(err)
		}
		return nil, FileInfoOutput{File: *info}, nil
	}
}

func isSHA256(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
