package client

import (
	"context"
	"encoding/json"
	"iter"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultStreamPageSize is the number of rows requested per page.
	DefaultStreamPageSize = 100
	// DefaultStreamMaxBuffered is the buffer size above which the producer pauses.
	DefaultStreamMaxBuffered = 100

	startCursor = "*"
)

// StreamSeq yields records in server order. A non-nil error is always the
// last pair.
type StreamSeq = iter.Seq2[json.RawMessage, error]

// SearchFunc fetches one page of results. Client.Search satisfies it.
type SearchFunc func(ctx context.Context, index, query string, opts *SearchOptions) (*SearchPage, error)

// StreamPager turns deep-paging search into a single lazy sequence. Pages are
// fetched by a background goroutine that stays at most one page ahead of the
// high-water mark.
type StreamPager struct {
	search      SearchFunc
	pageSize    int
	maxBuffered int
}

// StreamOption configures a StreamPager.
type StreamOption func(*StreamPager)

// WithPageSize sets the rows requested per page.
func WithPageSize(n int) StreamOption {
	return func(p *StreamPager) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// WithMaxBuffered sets the high-water mark of the record buffer.
func WithMaxBuffered(n int) StreamOption {
	return func(p *StreamPager) {
		if n > 0 {
			p.maxBuffered = n
		}
	}
}

// NewStreamPager creates a pager over search.
func NewStreamPager(search SearchFunc, opts ...StreamOption) *StreamPager {
	p := &StreamPager{
		search:      search,
		pageSize:    DefaultStreamPageSize,
		maxBuffered: DefaultStreamMaxBuffered,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stream validates the request and returns a sequence over every matching
// record. Nothing is fetched until the sequence is ranged over; each range
// starts from the first page again. Breaking out of the range stops the
// background fetch.
func (p *StreamPager) Stream(ctx context.Context, index, query string, opts *SearchOptions) (StreamSeq, error) {
	if !IsSearchable(index) {
		return nil, notSearchable(index)
	}
	var base SearchOptions
	if opts != nil {
		if opts.Rows != 0 || opts.Sort != "" || opts.DeepPagingID != "" {
			return nil, &ClientError{
				Kind:       KindStreamOptionInvalid,
				StatusCode: 400,
				Message:    "The following parameters cannot be used with stream search: deep_paging_id, rows, sort",
			}
		}
		base = *opts
		base.Filters = append([]string(nil), opts.Filters...)
	}

	return func(yield func(json.RawMessage, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		st := newStreamState()
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return p.fill(gctx, st, index, query, base)
		})
		defer func() {
			cancel()
			_ = g.Wait()
		}()

		for {
			item, ok, done := st.pop()
			if ok {
				if !yield(item, nil) {
					return
				}
				continue
			}
			if done {
				if err := g.Wait(); err != nil {
					yield(nil, err)
				}
				return
			}
			select {
			case <-st.produced:
			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			}
		}
	}, nil
}

// fill is the producer. It pages through the results until a short page.
func (p *StreamPager) fill(ctx context.Context, st *streamState, index, query string, base SearchOptions) error {
	defer st.finish()

	cursor := startCursor
	for {
		for st.len() > p.maxBuffered {
			select {
			case <-st.consumed:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		opts := base
		opts.Rows = p.pageSize
		opts.DeepPagingID = cursor
		page, err := p.search(ctx, index, query, &opts)
		if err != nil {
			return err
		}

		cursor = page.NextDeepPagingID
		if cursor == "" {
			cursor = startCursor
		}
		st.push(page.Items)

		if len(page.Items) < p.pageSize {
			return nil
		}
	}
}

// streamState is the buffer shared by one producer and one consumer.
type streamState struct {
	mu    sync.Mutex
	items []json.RawMessage
	done  bool

	produced chan struct{}
	consumed chan struct{}
}

func newStreamState() *streamState {
	return &streamState{
		produced: make(chan struct{}, 1),
		consumed: make(chan struct{}, 1),
	}
}

func (s *streamState) push(items []json.RawMessage) {
	s.mu.Lock()
	s.items = append(s.items, items...)
	s.mu.Unlock()
	notify(s.produced)
}

// pop returns the oldest record. done is true once the buffer is empty and
// the producer has finished.
func (s *streamState) pop() (item json.RawMessage, ok, done bool) {
	s.mu.Lock()
	if len(s.items) == 0 {
		done = s.done
		s.mu.Unlock()
		return nil, false, done
	}
	item = s.items[0]
	s.items[0] = nil
	s.items = s.items[1:]
	s.mu.Unlock()
	notify(s.consumed)
	return item, true, false
}

func (s *streamState) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *streamState) finish() {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
	notify(s.produced)
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
