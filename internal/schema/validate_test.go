package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionParams_Schema(t *testing.T) {
	data, err := SubmissionParamsJSON()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "object", doc["type"])

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"deep_scan", "priority", "ttl", "services", "type"} {
		assert.Contains(t, props, key)
	}
	priority := props["priority"].(map[string]any)
	assert.Equal(t, float64(1500), priority["maximum"])
	assert.NotContains(t, doc, "required")
}

func TestParamsValidator_Valid(t *testing.T) {
	v, err := NewParamsValidator()
	require.NoError(t, err)

	res := v.Validate([]byte(`{
		"deep_scan": true,
		"priority": 500,
		"type": "USER",
		"services": {"selected": ["Extract", "PE"]},
		"site_specific": "kept"
	}`))
	assert.True(t, res.Valid, "errors: %v", res.Errors)
	assert.Empty(t, res.Errors)
}

func TestParamsValidator_Invalid(t *testing.T) {
	v, err := NewParamsValidator()
	require.NoError(t, err)

	tests := []struct {
		name string
		data string
		path string
	}{
		{"priority too high", `{"priority": 2000}`, "/priority"},
		{"wrong type", `{"deep_scan": "yes"}`, "/deep_scan"},
		{"unknown enum", `{"type": "BATCH"}`, "/type"},
		{"nested", `{"services": {"selected": "PE"}}`, "/services/selected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate([]byte(tt.data))
			assert.False(t, res.Valid)
			require.NotEmpty(t, res.Errors)
			assert.True(t, strings.HasPrefix(res.Errors[0], tt.path+": "), res.Errors[0])
		})
	}
}

func TestParamsValidator_ValueAndJSONErrors(t *testing.T) {
	v, err := NewParamsValidator()
	require.NoError(t, err)

	res := v.ValidateValue(map[string]any{"ttl": -1})
	assert.False(t, res.Valid)

	res = v.ValidateValue(struct {
		Priority int `json:"priority"`
	}{Priority: 100})
	assert.True(t, res.Valid, "errors: %v", res.Errors)

	res = v.Validate([]byte(`{not json`))
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], "invalid JSON")
}
