package submissionfetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/assemblyline-mcp/internal/cache"
	"github.com/usestring/assemblyline-mcp/pkg/client"
)

type fakeAPI struct {
	mu         sync.Mutex
	subs       map[string]*client.Submission
	fetches    atomic.Int32
	checks     atomic.Int32
	completeAt int32
	fetchDelay time.Duration
}

func (a *fakeAPI) Submission(ctx context.Context, sid string) (*client.Submission, error) {
	a.fetches.Add(1)
	if a.fetchDelay > 0 {
		time.Sleep(a.fetchDelay)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	sub, ok := a.subs[sid]
	if !ok {
		return nil, &client.ClientError{StatusCode: 404, Message: "Submission not found"}
	}
	cp := *sub
	return &cp, nil
}

func (a *fakeAPI) SubmissionIsCompleted(ctx context.Context, sid string) (bool, error) {
	n := a.checks.Add(1)
	if n < a.completeAt {
		return false, nil
	}
	a.mu.Lock()
	a.subs[sid].State = client.SubmissionStateCompleted
	a.mu.Unlock()
	return true, nil
}

func newTestCache(t *testing.T) *cache.SubmissionCache {
	t.Helper()
	c, err := cache.NewSubmissionCache(16)
	require.NoError(t, err)
	return c
}

func completed(sid string) *client.Submission {
	return &client.Submission{SID: sid, State: client.SubmissionStateCompleted}
}

func TestFetch_CacheHit(t *testing.T) {
	sc := newTestCache(t)
	sc.Put(completed("s1"))

	// API is nil -- should never be called on cache hit
	f := New(nil, sc, 2)
	got, err := f.Fetch(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SID)
}

func TestFetch_CachesOnlyCompleted(t *testing.T) {
	api := &fakeAPI{subs: map[string]*client.Submission{
		"done":    completed("done"),
		"running": {SID: "running", State: client.SubmissionStateSubmitted},
	}}
	f := New(api, newTestCache(t), 2)
	ctx := context.Background()

	for range 3 {
		_, err := f.Fetch(ctx, "done")
		require.NoError(t, err)
		_, err = f.Fetch(ctx, "running")
		require.NoError(t, err)
	}
	// one fetch for the completed submission, three for the running one
	assert.Equal(t, int32(4), api.fetches.Load())
}

func TestFetch_Deduplicates(t *testing.T) {
	api := &fakeAPI{
		subs:       map[string]*client.Submission{"s1": {SID: "s1"}},
		fetchDelay: 50 * time.Millisecond,
	}
	f := New(api, nil, 4)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.Fetch(context.Background(), "s1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Less(t, api.fetches.Load(), int32(8))
}

func TestFetchMany_SkipsFailures(t *testing.T) {
	api := &fakeAPI{subs: map[string]*client.Submission{
		"a": completed("a"),
		"c": completed("c"),
	}}
	f := New(api, newTestCache(t), 2)

	subs, err := f.FetchMany(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, "a", subs[0].SID)
	assert.Nil(t, subs[1])
	assert.Equal(t, "c", subs[2].SID)
}

func TestWaitForCompletion(t *testing.T) {
	api := &fakeAPI{
		subs:       map[string]*client.Submission{"s1": {SID: "s1", State: client.SubmissionStateSubmitted}},
		completeAt: 3,
	}
	sc := newTestCache(t)
	f := New(api, sc, 1)

	sub, err := f.WaitForCompletion(context.Background(), "s1", 5*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, sub.Completed())
	assert.Equal(t, int32(3), api.checks.Load())

	// second wait is served from the cache
	_, err = f.WaitForCompletion(context.Background(), "s1", 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int32(3), api.checks.Load())
	assert.Equal(t, 1, sc.Len())
}

func TestWaitForCompletion_NonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		api := &fakeAPI{
			subs:       map[string]*client.Submission{"s1": {SID: "s1"}},
			completeAt: 1,
		}
		f := New(api, nil, 1)

		var sub *client.Submission
		var err error
		require.NotPanics(t, func() {
			sub, err = f.WaitForCompletion(context.Background(), "s1", interval)
		})
		require.NoError(t, err)
		assert.True(t, sub.Completed())
	}
}

func TestWaitForCompletion_ContextDone(t *testing.T) {
	api := &fakeAPI{
		subs:       map[string]*client.Submission{"s1": {SID: "s1"}},
		completeAt: 1 << 30,
	}
	f := New(api, nil, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := f.WaitForCompletion(ctx, "s1", 5*time.Millisecond)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
