package tools

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckOutputSchema(t *testing.T) {
	type nilSlice struct {
		SIDs []string `json:"sids"`
	}
	type omitted struct {
		SIDs   []string       `json:"sids,omitempty"`
		Params map[string]any `json:"params,omitzero"`
	}
	type rawField struct {
		Full json.RawMessage `json:"full,omitempty"`
	}
	type rawSlice struct {
		Items []json.RawMessage `json:"items,omitempty"`
	}
	type nestedRaw struct {
		Page struct {
			Items []json.RawMessage `json:"items,omitempty"`
		} `json:"page"`
	}
	type ptrSlice struct {
		SIDs *[]string `json:"sids"`
	}

	tests := []struct {
		name      string
		check     func()
		wantPanic bool
	}{
		{"nil slice", func() { CheckOutputSchema[nilSlice]("t") }, true},
		{"omitempty and omitzero", func() { CheckOutputSchema[omitted]("t") }, false},
		{"raw message", func() { CheckOutputSchema[rawField]("t") }, true},
		{"raw message slice", func() { CheckOutputSchema[rawSlice]("t") }, true},
		{"nested raw message", func() { CheckOutputSchema[nestedRaw]("t") }, true},
		{"pointer to slice", func() { CheckOutputSchema[ptrSlice]("t") }, false},
		{"untyped", func() { CheckOutputSchema[any]("t") }, false},
		{"pointer output", func() { CheckOutputSchema[*SubmitOutput]("t") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantPanic {
				assert.Panics(t, tt.check)
			} else {
				assert.NotPanics(t, tt.check)
			}
		})
	}
}

func TestCheckOutputSchema_ToolOutputs(t *testing.T) {
	assert.NotPanics(t, func() {
		CheckOutputSchema[WhoAmIOutput]("al_whoami")
		CheckOutputSchema[SearchOutput]("al_search")
		CheckOutputSchema[StreamSearchOutput]("al_search_stream")
		CheckOutputSchema[SubmitOutput]("al_submit")
		CheckOutputSchema[SubmissionGetOutput]("al_submission_get")
		CheckOutputSchema[SubmissionWaitOutput]("al_submission_wait")
		CheckOutputSchema[FileInfoOutput]("al_file_info")
		CheckOutputSchema[ValidateParamsOutput]("al_validate_params")
	})
}

func TestFindRawMessageFields(t *testing.T) {
	type inner struct {
		Raw json.RawMessage
	}
	type outer struct {
		A inner
		B map[string]json.RawMessage
		C []*inner
	}
	paths := findRawMessageFields(reflect.TypeFor[outer](), nil, map[reflect.Type]bool{})
	assert.ElementsMatch(t, []string{"A.Raw", "B.[value]", "C.[].Raw"}, paths)
}
