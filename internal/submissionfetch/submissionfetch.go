// Package submissionfetch retrieves submissions through the submission cache.
package submissionfetch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/usestring/assemblyline-mcp/internal/cache"
	"github.com/usestring/assemblyline-mcp/pkg/client"
)

// DefaultPollInterval is used when WaitForCompletion gets a non-positive interval.
const DefaultPollInterval = 2 * time.Second

// API is the part of the client the fetcher needs.
type API interface {
	Submission(ctx context.Context, sid string) (*client.Submission, error)
	SubmissionIsCompleted(ctx context.Context, sid string) (bool, error)
}

// Fetcher serves submissions from the cache when possible and deduplicates
// concurrent fetches of the same SID.
type Fetcher struct {
	api     API
	cache   *cache.SubmissionCache
	workers int
	group   singleflight.Group
}

// New creates a Fetcher. workers bounds FetchMany concurrency.
func New(api API, sc *cache.SubmissionCache, workers int) *Fetcher {
	if workers <= 0 {
		workers = 1
	}
	return &Fetcher{api: api, cache: sc, workers: workers}
}

// Fetch retrieves a submission by SID, checking the cache first. Completed
// submissions are cached after a fetch.
func (f *Fetcher) Fetch(ctx context.Context, sid string) (*client.Submission, error) {
	if f.cache != nil {
		if cached, ok := f.cache.Get(sid); ok {
			return cached, nil
		}
	}

	v, err, _ := f.group.Do(sid, func() (any, error) {
		sub, err := f.api.Submission(ctx, sid)
		if err != nil {
			return nil, err
		}
		if f.cache != nil {
			f.cache.Put(sub)
		}
		return sub, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*client.Submission), nil
}

// FetchMany fetches sids using a worker pool. The result is index-aligned
// with sids; a submission that failed to load is left nil.
func (f *Fetcher) FetchMany(ctx context.Context, sids []string) ([]*client.Submission, error) {
	subs := make([]*client.Submission, len(sids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for i, sid := range sids {
		g.Go(func() error {
			sub, err := f.Fetch(ctx, sid)
			if err != nil {
				// one missing submission does not fail the batch
				slog.Debug("failed to fetch submission",
					slog.String("sid", sid),
					slog.String("error", err.Error()),
				)
				return nil
			}
			subs[i] = sub
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return subs, nil
}

// WaitForCompletion polls until sid is completed, then returns the final
// submission. It gives up when ctx is done.
func (f *Fetcher) WaitForCompletion(ctx context.Context, sid string, interval time.Duration) (*client.Submission, error) {
	if cached, ok := f.cachedCompleted(sid); ok {
		return cached, nil
	}

	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := f.api.SubmissionIsCompleted(ctx, sid)
		if err != nil {
			return nil, err
		}
		if done {
			return f.Fetch(ctx, sid)
		}

		slog.Debug("waiting for submission",
			slog.String("sid", sid),
			slog.Duration("interval", interval),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (f *Fetcher) cachedCompleted(sid string) (*client.Submission, bool) {
	if f.cache == nil {
		return nil, false
	}
	return f.cache.Get(sid)
}
