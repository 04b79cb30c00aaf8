package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/usestring/assemblyline-mcp/pkg/client"
)

var (
	paramsOnce   sync.Once
	paramsSchema *jsonschema.Schema
)

// SubmissionParams returns the JSON Schema of submission parameters, reflected
// from client.SubmissionParams. Unknown keys are allowed since servers accept
// site specific parameters.
func SubmissionParams() *jsonschema.Schema {
	paramsOnce.Do(func() {
		r := &jsonschema.Reflector{
			Anonymous:                 true,
			DoNotReference:            true,
			AllowAdditionalProperties: true,
		}
		paramsSchema = r.Reflect(&client.SubmissionParams{})
		paramsSchema.Title = "Assemblyline submission parameters"
	})
	return paramsSchema
}

// SubmissionParamsJSON returns the indented schema document.
func SubmissionParamsJSON() ([]byte, error) {
	data, err := json.MarshalIndent(SubmissionParams(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling submission params schema: %w", err)
	}
	return data, nil
}
