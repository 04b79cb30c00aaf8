package client

import (
	"context"
	"encoding/json"
	"slices"
)

// Searchable lists the indexes accepted by the search endpoints.
var Searchable = []string{
	"alert",
	"badlist",
	"file",
	"heuristic",
	"result",
	"safelist",
	"signature",
	"submission",
	"workflow",
}

// IsSearchable reports whether index can be searched.
func IsSearchable(index string) bool {
	return slices.Contains(Searchable, index)
}

// SearchOptions are the optional parameters of a search. Zero values are not sent.
type SearchOptions struct {
	Filters      []string `json:"filters,omitempty"`
	FieldList    string   `json:"fl,omitempty"`
	Offset       int      `json:"offset,omitempty"`
	Rows         int      `json:"rows,omitempty"`
	Sort         string   `json:"sort,omitempty"`
	Timeout      int      `json:"timeout,omitempty"`
	DeepPagingID string   `json:"deep_paging_id,omitempty"`
	TrackTotal   int      `json:"track_total_hits,omitempty"`
}

// SearchPage is one page of search results.
type SearchPage struct {
	Items            []json.RawMessage `json:"items"`
	Offset           int               `json:"offset"`
	Rows             int               `json:"rows"`
	Total            int               `json:"total"`
	NextDeepPagingID string            `json:"next_deep_paging_id,omitempty"`
}

type searchBody struct {
	Query string `json:"query"`
	*SearchOptions
}

// Search runs query against index and returns a single page.
func (c *Client) Search(ctx context.Context, index, query string, opts *SearchOptions) (*SearchPage, error) {
	if !IsSearchable(index) {
		return nil, notSearchable(index)
	}
	if err := c.requireCurrent("search"); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &SearchOptions{}
	}

	var page SearchPage
	body := searchBody{Query: query, SearchOptions: opts}
	if err := c.Post(ctx, APIPath("search", index), &page, WithJSON(body)); err != nil {
		return nil, err
	}
	return &page, nil
}

// Stream iterates over every record matching query. See StreamPager.Stream.
func (c *Client) Stream(ctx context.Context, index, query string, opts *SearchOptions) (StreamSeq, error) {
	return c.pager.Stream(ctx, index, query, opts)
}

func notSearchable(index string) *ClientError {
	return invalidArgument("Index %s is not searchable", index)
}
