// Package jsoncompact shrinks decoded JSON trees, such as full Assemblyline
// submissions, so they fit in a model context. Long arrays keep their head
// and a marker, long strings keep a prefix.
package jsoncompact

import (
	"fmt"
	"unicode/utf8"
)

// Options controls how much of a tree survives compaction.
type Options struct {
	MaxArrayItems int // keep N items per array (0 = no limit)
	MaxStringLen  int // keep N bytes per string, cut on a rune boundary (0 = no limit)
	MaxDepth      int // replace subtrees deeper than N with a marker (0 = unlimited)
}

// Defaults sized for full submission trees, where result sections and
// file trees dominate.
const (
	DefaultMaxArrayItems = 10
	DefaultMaxStringLen  = 2000
)

// DefaultOptions returns the settings used for full submission output.
func DefaultOptions() Options {
	return Options{
		MaxArrayItems: DefaultMaxArrayItems,
		MaxStringLen:  DefaultMaxStringLen,
	}
}

// Stats counts what compaction removed.
type Stats struct {
	ArraysTrimmed    int `json:"arrays_trimmed"`
	ItemsDropped     int `json:"items_dropped"`
	StringsTruncated int `json:"strings_truncated"`
	SubtreesElided   int `json:"subtrees_elided"`
}

// Changed reports whether anything was removed.
func (s Stats) Changed() bool {
	return s.ArraysTrimmed+s.StringsTruncated+s.SubtreesElided > 0
}

// Compact returns a compacted copy of v, a value as produced by
// encoding/json into an any. The input is not modified.
func Compact(v any, opts Options) (any, Stats) {
	c := compactor{opts: opts}
	return c.walk(v, 0), c.stats
}

type compactor struct {
	opts  Options
	stats Stats
}

func (c *compactor) walk(v any, depth int) any {
	if c.opts.MaxDepth > 0 && depth >= c.opts.MaxDepth {
		switch v.(type) {
		case []any, map[string]any:
			c.stats.SubtreesElided++
			return "[max depth]"
		}
	}

	switch val := v.(type) {
	case []any:
		return c.array(val, depth)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = c.walk(item, depth+1)
		}
		return out
	case string:
		return c.str(val)
	default:
		return v
	}
}

func (c *compactor) array(arr []any, depth int) []any {
	keep := len(arr)
	if c.opts.MaxArrayItems > 0 && keep > c.opts.MaxArrayItems {
		keep = c.opts.MaxArrayItems
	}

	out := make([]any, 0, keep+1)
	for _, item := range arr[:keep] {
		out = append(out, c.walk(item, depth+1))
	}
	if dropped := len(arr) - keep; dropped > 0 {
		c.stats.ArraysTrimmed++
		c.stats.ItemsDropped += dropped
		out = append(out, fmt.Sprintf("... (%d more items)", dropped))
	}
	return out
}

func (c *compactor) str(s string) string {
	if c.opts.MaxStringLen <= 0 || len(s) <= c.opts.MaxStringLen {
		return s
	}
	cut := c.opts.MaxStringLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	c.stats.StringsTruncated++
	return s[:cut] + fmt.Sprintf("... (%d more bytes)", len(s)-cut)
}
