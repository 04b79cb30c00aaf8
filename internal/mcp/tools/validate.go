package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// SubmissionParamsSchemaURI is the resource holding the submission params schema.
const SubmissionParamsSchemaURI = "assemblyline://schema/submission-params"

// ValidateParamsInput is the input for al_validate_params.
type ValidateParamsInput struct {
	Params map[string]any `json:"params" jsonschema:"Submission parameters to check"`
}

// ValidateParamsOutput is the output for al_validate_params.
type ValidateParamsOutput struct {
	Valid     bool     `json:"valid"`
	Errors    []string `json:"errors,omitempty"`
	SchemaURI string   `json:"schema_uri"`
}

// ToolValidateParams checks submission parameters without submitting.
func ToolValidateParams(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ValidateParamsInput) (*sdkmcp.CallToolResult, ValidateParamsOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ValidateParamsInput) (*sdkmcp.CallToolResult, ValidateParamsOutput, error) {
		if input.Params == nil {
			return nil, ValidateParamsOutput{}, ErrInvalidInput("params is required")
		}

		res := d.Validator.ValidateValue(input.Params)
		return nil, ValidateParamsOutput{
			Valid:     res.Valid,
			Errors:    res.Errors,
			SchemaURI: SubmissionParamsSchemaURI,
		}, nil
	}
}
