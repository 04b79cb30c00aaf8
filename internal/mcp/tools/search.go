package tools

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/assemblyline-mcp/internal/query"
	"github.com/usestring/assemblyline-mcp/pkg/client"
)

// labelFields names the record field used to label per-record errors.
var labelFields = map[string]string{
	"alert":      "alert_id",
	"file":       "sha256",
	"heuristic":  "heur_id",
	"result":     "sha256",
	"signature":  "signature_id",
	"submission": "sid",
	"workflow":   "workflow_id",
}

// SearchInput is the input for al_search.
type SearchInput struct {
	Index   string   `json:"index" jsonschema:"Index to search: alert, badlist, file, heuristic, result, safelist, signature, submission or workflow"`
	Query   string   `json:"query,omitempty" jsonschema:"Lucene query, defaults to *"`
	Filters []string `json:"filters,omitempty" jsonschema:"Additional filter queries, all must match"`
	Fields  string   `json:"fields,omitempty" jsonschema:"Comma separated list of fields to return"`
	Rows    int      `json:"rows,omitempty" jsonschema:"Page size (default from server config)"`
	Offset  int      `json:"offset,omitempty" jsonschema:"Offset of the first record"`
	Sort    string   `json:"sort,omitempty" jsonschema:"Sort order, e.g. 'times.submitted desc'"`
}

// SearchOutput is the output for al_search.
type SearchOutput struct {
	Index  string `json:"index"`
	Total  int    `json:"total"`
	Offset int    `json:"offset"`
	Rows   int    `json:"rows"`
	Items  []any  `json:"items,omitempty"`
	Hint   string `json:"hint,omitempty"`
}

// StreamSearchInput is the input for al_search_stream.
type StreamSearchInput struct {
	Index       string   `json:"index" jsonschema:"Index to search: alert, badlist, file, heuristic, result, safelist, signature, submission or workflow"`
	Query       string   `json:"query,omitempty" jsonschema:"Lucene query, defaults to *"`
	Filters     []string `json:"filters,omitempty" jsonschema:"Additional filter queries, all must match"`
	Fields      string   `json:"fields,omitempty" jsonschema:"Comma separated list of fields to return"`
	Expression  string   `json:"expression,omitempty" jsonschema:"Optional jq expression applied to every record, e.g. '.sid' or 'select(.max_score > 500) | .sid'"`
	Limit       int      `json:"limit,omitempty" jsonschema:"Max values to return (default from server config)"`
	Deduplicate bool     `json:"deduplicate,omitempty" jsonschema:"Drop repeated values"`
}

// StreamSearchOutput is the output for al_search_stream.
type StreamSearchOutput struct {
	Values    []any    `json:"values,omitempty"`
	Errors    []string `json:"errors,omitempty"`
	Scanned   int      `json:"scanned"`
	RawCount  int      `json:"raw_count"`
	Truncated bool     `json:"truncated,omitempty"`
	Partial   bool     `json:"partial,omitempty"`
	Hint      string   `json:"hint,omitempty"`
}

// ToolSearch runs a single page search.
func ToolSearch(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input SearchInput) (*sdkmcp.CallToolResult, SearchOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input SearchInput) (*sdkmcp.CallToolResult, SearchOutput, error) {
		if !client.IsSearchable(input.Index) {
			return nil, SearchOutput{}, ErrInvalidInput(fmt.Sprintf("index %q is not searchable, use one of: %s", input.Index, strings.Join(client.Searchable, ", ")))
		}

		opts := &client.SearchOptions{
			Filters:   input.Filters,
			FieldList: input.Fields,
			Offset:    input.Offset,
			Rows:      clampLimit(input.Rows, d.Config.DefaultSearchLimit, d.Config.MaxStreamResults),
			Sort:      input.Sort,
		}
		page, err := d.Client.Search(ctx, input.Index, queryOrAll(input.Query), opts)
		if err != nil {
			return nil, SearchOutput{}, WrapAssemblylineError(err)
		}

		output := SearchOutput{
			Index:  input.Index,
			Total:  page.Total,
			Offset: page.Offset,
			Rows:   page.Rows,
		}
		for _, raw := range page.Items {
			v, err := ToAny(raw)
			if err != nil {
				return nil, SearchOutput{}, WrapAssemblylineError(fmt.Errorf("decoding search item: %w", err))
			}
			output.Items = append(output.Items, v)
		}
		if page.Total > page.Offset+len(page.Items) {
			output.Hint = fmt.Sprintf("%d more results: raise offset, or use al_search_stream with a jq expression to extract fields from all of them", page.Total-page.Offset-len(page.Items))
		}

		return nil, output, nil
	}
}

// ToolStreamSearch walks every matching record and extracts values with an
// optional jq expression.
func ToolStreamSearch(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input StreamSearchInput) (*sdkmcp.CallToolResult, StreamSearchOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input StreamSearchInput) (*sdkmcp.CallToolResult, StreamSearchOutput, error) {
		var projection *query.Projection
		if input.Expression != "" {
			p, err := query.Compile(input.Expression)
			if err != nil {
				return nil, StreamSearchOutput{}, ErrInvalidInput(err.Error())
			}
			projection = p
		}

		opts := &client.SearchOptions{Filters: input.Filters, FieldList: input.Fields}
		seq, err := d.Client.Stream(ctx, input.Index, queryOrAll(input.Query), opts)
		if err != nil {
			return nil, StreamSearchOutput{}, WrapAssemblylineError(err)
		}

		res, err := query.Collect(seq, query.CollectOptions{
			Projection:  projection,
			Limit:       clampLimit(input.Limit, d.Config.DefaultStreamLimit, d.Config.MaxStreamResults),
			Deduplicate: input.Deduplicate,
			LabelField:  labelFields[input.Index],
		})
		if err != nil && res.Scanned == 0 {
			return nil, StreamSearchOutput{}, WrapAssemblylineError(err)
		}

		output := StreamSearchOutput{
			Values:    res.Values,
			Errors:    res.Errors,
			Scanned:   res.Scanned,
			RawCount:  res.RawCount,
			Truncated: res.Truncated,
		}
		if err != nil {
			output.Partial = true
			output.Errors = append(output.Errors, fmt.Sprintf("stream stopped after %d records: %v", res.Scanned, err))
		}
		switch {
		case output.Truncated:
			output.Hint = "limit reached: narrow the query or filters, or raise limit"
		case len(output.Values) == 0 && res.Scanned > 0:
			output.Hint = "records matched but the expression produced no values, check field names with al_search first"
		}

		return nil, output, nil
	}
}

func queryOrAll(q string) string {
	if strings.TrimSpace(q) == "" {
		return "*"
	}
	return q
}
