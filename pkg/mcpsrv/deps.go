package mcpsrv

import (
	"github.com/usestring/assemblyline-mcp/internal/cache"
	"github.com/usestring/assemblyline-mcp/internal/config"
	"github.com/usestring/assemblyline-mcp/internal/schema"
	"github.com/usestring/assemblyline-mcp/internal/submissionfetch"
	"github.com/usestring/assemblyline-mcp/pkg/client"
)

// Deps contains all dependencies available to custom tools.
// This gives custom tools access to the same infrastructure as builtin tools.
type Deps struct {
	Client    *client.Client
	Config    *config.Config
	Cache     *cache.SubmissionCache
	Fetcher   *submissionfetch.Fetcher
	Validator *schema.Validator
}
