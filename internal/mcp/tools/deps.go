package tools

import (
	"context"

	"github.com/usestring/assemblyline-mcp/internal/cache"
	"github.com/usestring/assemblyline-mcp/internal/config"
	"github.com/usestring/assemblyline-mcp/internal/schema"
	"github.com/usestring/assemblyline-mcp/internal/submissionfetch"
	"github.com/usestring/assemblyline-mcp/pkg/client"
)

// Deps contains all dependencies needed by tool handlers.
type Deps struct {
	Client    *client.Client
	Config    *config.Config
	Cache     *cache.SubmissionCache
	Fetcher   *submissionfetch.Fetcher
	Validator *schema.Validator
}

// FetchSubmission retrieves a submission by SID, checking the cache first.
func (d *Deps) FetchSubmission(ctx context.Context, sid string) (*client.Submission, error) {
	return d.Fetcher.Fetch(ctx, sid)
}
