package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedSearch serves total records {"n": i} with deep paging cursors.
type pagedSearch struct {
	total int
	calls atomic.Int32
	fail  func(call int) error
}

func (s *pagedSearch) search(ctx context.Context, index, query string, opts *SearchOptions) (*SearchPage, error) {
	call := int(s.calls.Add(1))
	if s.fail != nil {
		if err := s.fail(call); err != nil {
			return nil, err
		}
	}

	offset := 0
	if opts.DeepPagingID != "*" {
		offset, _ = strconv.Atoi(opts.DeepPagingID)
	}
	end := min(offset+opts.Rows, s.total)

	page := &SearchPage{Offset: offset, Rows: opts.Rows, Total: s.total}
	for i := offset; i < end; i++ {
		page.Items = append(page.Items, json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)))
	}
	page.NextDeepPagingID = strconv.Itoa(end)
	return page, nil
}

func collect(t *testing.T, seq StreamSeq) ([]int, error) {
	t.Helper()
	var got []int
	for rec, err := range seq {
		if err != nil {
			return got, err
		}
		var v struct{ N int }
		require.NoError(t, json.Unmarshal(rec, &v))
		got = append(got, v.N)
	}
	return got, nil
}

func seqN(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestStream_OrderAndCount(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		pageSize  int
		wantCalls int
	}{
		{"partial last page", 17, 5, 4},
		{"exact multiple", 10, 5, 3},
		{"single short page", 3, 5, 1},
		{"empty", 0, 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &pagedSearch{total: tt.total}
			p := NewStreamPager(s.search, WithPageSize(tt.pageSize))

			seq, err := p.Stream(context.Background(), "submission", "*", nil)
			require.NoError(t, err)

			var got []int
			for rec, err := range seq {
				require.NoError(t, err)
				var v struct{ N int }
				require.NoError(t, json.Unmarshal(rec, &v))
				got = append(got, v.N)
				time.Sleep(time.Millisecond)
			}
			if tt.total == 0 {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, seqN(tt.total), got)
			}
			assert.Equal(t, tt.wantCalls, int(s.calls.Load()))
		})
	}
}

func TestStream_PassesCursorAndFilters(t *testing.T) {
	var cursors []string
	var filters [][]string
	search := func(ctx context.Context, index, query string, opts *SearchOptions) (*SearchPage, error) {
		cursors = append(cursors, opts.DeepPagingID)
		filters = append(filters, opts.Filters)
		assert.Equal(t, "file", index)
		assert.Equal(t, "type:executable", query)
		assert.Equal(t, 2, opts.Rows)
		if len(cursors) == 1 {
			return &SearchPage{
				Items:            []json.RawMessage{json.RawMessage(`1`), json.RawMessage(`2`)},
				NextDeepPagingID: "abc",
			}, nil
		}
		// No cursor returned: falls back to the start cursor.
		if len(cursors) == 2 {
			return &SearchPage{Items: []json.RawMessage{json.RawMessage(`3`), json.RawMessage(`4`)}}, nil
		}
		return &SearchPage{}, nil
	}
	p := NewStreamPager(search, WithPageSize(2))

	seq, err := p.Stream(context.Background(), "file", "type:executable", &SearchOptions{Filters: []string{"size:>10"}})
	require.NoError(t, err)
	var n int
	for _, err := range seq {
		require.NoError(t, err)
		n++
	}

	assert.Equal(t, 4, n)
	assert.Equal(t, []string{"*", "abc", "*"}, cursors)
	for _, f := range filters {
		assert.Equal(t, []string{"size:>10"}, f)
	}
}

func TestStream_Backpressure(t *testing.T) {
	s := &pagedSearch{total: 10_000}
	p := NewStreamPager(s.search, WithPageSize(5), WithMaxBuffered(5))

	seq, err := p.Stream(context.Background(), "result", "*", nil)
	require.NoError(t, err)

	for _, err := range seq {
		require.NoError(t, err)
		// The producer fills past the mark once, then waits for the consumer.
		require.Eventually(t, func() bool { return s.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
		time.Sleep(50 * time.Millisecond)
		assert.LessOrEqual(t, int(s.calls.Load()), 3)
		break
	}
}

func TestStream_DisallowedOptions(t *testing.T) {
	for name, opts := range map[string]*SearchOptions{
		"rows":           {Rows: 10},
		"sort":           {Sort: "times.submitted desc"},
		"deep_paging_id": {DeepPagingID: "*"},
	} {
		t.Run(name, func(t *testing.T) {
			s := &pagedSearch{total: 10}
			p := NewStreamPager(s.search)

			seq, err := p.Stream(context.Background(), "alert", "*", opts)
			require.Error(t, err)
			assert.Nil(t, seq)
			assert.ErrorIs(t, err, ErrStreamOptionInvalid)
			assert.Equal(t, 400, StatusCode(err))
			assert.Contains(t, err.Error(), "deep_paging_id, rows, sort")
			assert.Zero(t, s.calls.Load())
		})
	}
}

func TestStream_InvalidIndex(t *testing.T) {
	s := &pagedSearch{total: 10}
	p := NewStreamPager(s.search)

	_, err := p.Stream(context.Background(), "users", "*", nil)
	require.Error(t, err)
	assert.Equal(t, 400, StatusCode(err))
	assert.Contains(t, err.Error(), "Index users is not searchable")
	assert.Zero(t, s.calls.Load())
}

func TestStream_BreakCancelsProducer(t *testing.T) {
	var calls atomic.Int32
	var cancelled atomic.Bool
	search := func(ctx context.Context, index, query string, opts *SearchOptions) (*SearchPage, error) {
		if calls.Add(1) == 1 {
			items := make([]json.RawMessage, opts.Rows)
			for i := range items {
				items[i] = json.RawMessage(`{}`)
			}
			return &SearchPage{Items: items, NextDeepPagingID: "next"}, nil
		}
		<-ctx.Done()
		cancelled.Store(true)
		return nil, ctx.Err()
	}
	p := NewStreamPager(search, WithPageSize(3))

	seq, err := p.Stream(context.Background(), "signature", "*", nil)
	require.NoError(t, err)
	for _, err := range seq {
		require.NoError(t, err)
		break
	}

	// The range only returns once the producer has stopped.
	assert.True(t, cancelled.Load())
	assert.Equal(t, int32(2), calls.Load())
}

func TestStream_ErrorIsLast(t *testing.T) {
	boom := errors.New("boom")
	s := &pagedSearch{total: 100, fail: func(call int) error {
		if call == 3 {
			return boom
		}
		return nil
	}}
	p := NewStreamPager(s.search, WithPageSize(4))

	seq, err := p.Stream(context.Background(), "workflow", "*", nil)
	require.NoError(t, err)

	got, err := collect(t, seq)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, seqN(8), got)
}

func TestStream_ContextCancelled(t *testing.T) {
	s := &pagedSearch{total: 1_000}
	p := NewStreamPager(s.search, WithPageSize(2), WithMaxBuffered(2))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seq, err := p.Stream(ctx, "badlist", "*", nil)
	require.NoError(t, err)

	var lastErr error
	n := 0
	for _, err := range seq {
		if err != nil {
			lastErr = err
			break
		}
		n++
		if n == 3 {
			cancel()
		}
	}
	assert.ErrorIs(t, lastErr, context.Canceled)
}

func TestStream_Restartable(t *testing.T) {
	s := &pagedSearch{total: 7}
	p := NewStreamPager(s.search, WithPageSize(3))

	seq, err := p.Stream(context.Background(), "heuristic", "*", nil)
	require.NoError(t, err)

	first, err := collect(t, seq)
	require.NoError(t, err)
	second, err := collect(t, seq)
	require.NoError(t, err)

	assert.Equal(t, seqN(7), first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(6), s.calls.Load())
}

func TestClientStream_EndToEnd(t *testing.T) {
	f := newFakeServer(t)
	const total = 7
	f.handle("/api/v4/search/submission/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "max_score:>=500", body["query"])

		offset := 0
		if id := body["deep_paging_id"].(string); id != "*" {
			offset, _ = strconv.Atoi(id)
		}
		rows := int(body["rows"].(float64))
		end := min(offset+rows, total)
		items := []map[string]any{}
		for i := offset; i < end; i++ {
			items = append(items, map[string]any{"sid": fmt.Sprintf("s%d", i)})
		}
		writeEnvelope(w, http.StatusOK, map[string]any{
			"items":               items,
			"offset":              offset,
			"rows":                rows,
			"total":               total,
			"next_deep_paging_id": strconv.Itoa(end),
		}, "")
	})
	c := newTestClient(t, f, WithStreamOptions(WithPageSize(3)))

	seq, err := c.Stream(context.Background(), "submission", "max_score:>=500", nil)
	require.NoError(t, err)

	var sids []string
	for rec, err := range seq {
		require.NoError(t, err)
		var s struct{ SID string }
		require.NoError(t, json.Unmarshal(rec, &s))
		sids = append(sids, s.SID)
	}
	assert.Equal(t, []string{"s0", "s1", "s2", "s3", "s4", "s5", "s6"}, sids)
	assert.Equal(t, 3, f.count("/api/v4/search/submission/"))
}

func TestSearch_SinglePage(t *testing.T) {
	f := newFakeServer(t)
	f.handle("/api/v4/search/file/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sha256:abc", body["query"])
		assert.Equal(t, float64(25), body["rows"])
		assert.Equal(t, "sha256,size", body["fl"])
		assert.NotContains(t, body, "sort")
		writeEnvelope(w, http.StatusOK, map[string]any{
			"items": []map[string]any{{"sha256": "abc"}},
			"total": 1,
		}, "")
	})
	c := newTestClient(t, f)

	page, err := c.Search(context.Background(), "file", "sha256:abc", &SearchOptions{Rows: 25, FieldList: "sha256,size"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.JSONEq(t, `{"sha256":"abc"}`, string(page.Items[0]))

	_, err = c.Search(context.Background(), "nope", "*", nil)
	assert.Equal(t, 400, StatusCode(err))
}
