// Package query projects streamed search records with jq expressions.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/usestring/assemblyline-mcp/pkg/client"
)

// Projection is a compiled jq expression applied to one record at a time.
type Projection struct {
	expr string
	code *gojq.Code
}

// Compile parses and compiles expression.
func Compile(expression string) (*Projection, error) {
	q, err := gojq.Parse(expression)
	if err != nil {
		var parseErr *gojq.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("invalid jq expression at position %d: %w", parseErr.Offset, err)
		}
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	return &Projection{expr: expression, code: code}, nil
}

// String returns the source expression.
func (p *Projection) String() string {
	return p.expr
}

// Apply runs the projection on rec. Null outputs are dropped. Runtime errors
// are returned as messages prefixed with label; they do not stop the run.
func (p *Projection) Apply(label string, rec json.RawMessage) ([]any, []string) {
	var input any
	if err := json.Unmarshal(rec, &input); err != nil {
		return nil, []string{fmt.Sprintf("%s: invalid JSON: %v", label, err)}
	}

	var values []any
	var errs []string
	iter := p.code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			errs = append(errs, formatJQError(label, err))
			continue
		}
		if v == nil {
			continue
		}
		values = append(values, v)
	}
	return values, errs
}

// Result is what Collect gathered from a stream.
type Result struct {
	Values    []any    `json:"values"`
	Errors    []string `json:"errors,omitempty"`
	Scanned   int      `json:"scanned"`   // records read from the stream
	RawCount  int      `json:"raw_count"` // values before deduplication
	Truncated bool     `json:"truncated,omitempty"`
}

// CollectOptions tune Collect.
type CollectOptions struct {
	Projection  *Projection // nil keeps records whole
	Limit       int         // stop after this many values, 0 = no limit
	Deduplicate bool
	// LabelField names the record field used in error labels, e.g. "sid".
	LabelField string
}

// Collect ranges over seq and gathers projected values. Reaching the limit
// stops the stream early. A stream error is returned along with everything
// gathered before it.
func Collect(seq client.StreamSeq, opts CollectOptions) (*Result, error) {
	res := &Result{Values: make([]any, 0)}
	seen := make(map[string]bool)
	seenErrors := make(map[string]bool)

	for rec, err := range seq {
		if err != nil {
			return res, err
		}
		label := recordLabel(rec, opts.LabelField, res.Scanned)
		res.Scanned++

		var values []any
		if opts.Projection == nil {
			var v any
			if err := json.Unmarshal(rec, &v); err != nil {
				res.addError(seenErrors, fmt.Sprintf("%s: invalid JSON: %v", label, err))
				continue
			}
			values = []any{v}
		} else {
			var errs []string
			values, errs = opts.Projection.Apply(label, rec)
			for _, e := range errs {
				res.addError(seenErrors, e)
			}
		}

		for _, v := range values {
			res.RawCount++
			if opts.Deduplicate {
				key := valueKey(v)
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			res.Values = append(res.Values, v)
			if opts.Limit > 0 && len(res.Values) >= opts.Limit {
				res.Truncated = true
				return res, nil
			}
		}
	}
	return res, nil
}

func (r *Result) addError(seen map[string]bool, msg string) {
	if seen[msg] {
		return
	}
	seen[msg] = true
	r.Errors = append(r.Errors, msg)
}

// recordLabel names a record for error messages: the value of field when
// present, its position otherwise.
func recordLabel(rec json.RawMessage, field string, idx int) string {
	if field != "" {
		var m map[string]json.RawMessage
		if json.Unmarshal(rec, &m) == nil {
			var s string
			if json.Unmarshal(m[field], &s) == nil && s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("record[%d]", idx)
}

// formatJQError creates a helpful error message for jq execution errors.
//
// Runtime errors such as "cannot iterate over: null" have no typed wrapper in
// gojq, so hints are picked by message text. They only decorate output.
func formatJQError(label string, err error) string {
	var haltErr *gojq.HaltError
	if errors.As(err, &haltErr) {
		if haltErr.Value() == nil {
			return fmt.Sprintf("%s: query halted", label)
		}
		return fmt.Sprintf("%s: query halted with: %v", label, haltErr.Value())
	}

	errStr := err.Error()

	var hint string
	switch {
	case strings.Contains(errStr, "cannot iterate over: null"):
		hint = " (the field may not exist in this record)"
	case strings.Contains(errStr, "cannot index") && strings.Contains(errStr, "with"):
		hint = " (field not found or wrong type)"
	case strings.Contains(errStr, "object") && strings.Contains(errStr, "cannot be iterated"):
		hint = " (expected array but got object, try removing '[]')"
	case strings.Contains(errStr, "array") && strings.Contains(errStr, "cannot be indexed"):
		hint = " (expected object but got array, try adding '[]')"
	}

	return fmt.Sprintf("%s: %s%s", label, errStr, hint)
}

// valueKey creates a string key for deduplication.
func valueKey(v any) string {
	switch val := v.(type) {
	case string:
		return "s:" + val
	case float64:
		return fmt.Sprintf("n:%v", val)
	case int:
		// gojq yields integral numbers as int
		return fmt.Sprintf("n:%d", val)
	case bool:
		return fmt.Sprintf("b:%v", val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("?:%v", val)
		}
		return "j:" + string(b)
	}
}
