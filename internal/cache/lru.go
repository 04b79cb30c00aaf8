// Package cache provides caching utilities for the MCP server.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/usestring/assemblyline-mcp/pkg/client"
)

// SubmissionCache provides thread-safe LRU caching of finished submissions.
// A completed submission no longer changes, so a hit never needs revalidation.
type SubmissionCache struct {
	cache *lru.Cache[string, *client.Submission]
}

// NewSubmissionCache creates a new LRU cache with the specified maximum number of items.
func NewSubmissionCache(maxItems int) (*SubmissionCache, error) {
	c, err := lru.New[string, *client.Submission](maxItems)
	if err != nil {
		return nil, err
	}
	return &SubmissionCache{cache: c}, nil
}

// Get retrieves a submission from the cache by its SID.
func (c *SubmissionCache) Get(sid string) (*client.Submission, bool) {
	return c.cache.Get(sid)
}

// Put caches sub if it is completed and reports whether it was stored.
func (c *SubmissionCache) Put(sub *client.Submission) bool {
	if sub == nil || sub.SID == "" || !sub.Completed() {
		return false
	}
	c.cache.Add(sub.SID, sub)
	return true
}

// Len returns the current number of items in the cache.
func (c *SubmissionCache) Len() int {
	return c.cache.Len()
}
