package preview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrsandeep/cne-console/internal/models"
)

// fakePages serves rows in pages and records every request.
type fakePages struct {
	mu    sync.Mutex
	rows  []models.PreviewRow
	total int // reported total; defaults to len(rows)
	calls []int
	fail  error
	gate  chan struct{}
}

func (f *fakePages) GetPreview(ctx context.Context, jobID string, page, size int) (*models.PreviewPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, page)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail != nil {
		return nil, f.fail
	}

	total := f.total
	if total == 0 {
		total = len(f.rows)
	}
	start := min((page-1)*size, len(f.rows))
	end := min(start+size, len(f.rows))
	return &models.PreviewPage{JobID: jobID, Page: page, Size: size, Total: total, Rows: f.rows[start:end]}, nil
}

func (f *fakePages) Calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

func makeRows(n int) []models.PreviewRow {
	rows := make([]models.PreviewRow, n)
	for i := range rows {
		rows[i] = models.PreviewRow{District: "0101", Body: "AM", ListType: "2", Order: i + 1, Candidate: fmt.Sprintf("Candidato %d", i+1)}
	}
	return rows
}

func TestAggregator_Collect(t *testing.T) {
	t.Run("fetches until total is reached", func(t *testing.T) {
		f := &fakePages{rows: makeRows(1200)}
		rows, err := NewAggregator(f, 500, 0).Collect(context.Background(), "job-1")
		require.NoError(t, err)

		assert.Len(t, rows, 1200)
		assert.Equal(t, []int{1, 2, 3}, f.Calls())
		assert.Equal(t, 1, rows[0].Order)
		assert.Equal(t, 1200, rows[1199].Order, "server order is preserved")
	})

	t.Run("stops on an empty page", func(t *testing.T) {
		f := &fakePages{rows: makeRows(40), total: 100}
		rows, err := NewAggregator(f, 50, 0).Collect(context.Background(), "job-1")
		require.NoError(t, err)

		assert.Len(t, rows, 40)
		assert.Equal(t, []int{1, 2}, f.Calls())
	})

	t.Run("empty job needs a single request", func(t *testing.T) {
		f := &fakePages{}
		rows, err := NewAggregator(f, 500, 0).Collect(context.Background(), "job-1")
		require.NoError(t, err)

		assert.NotNil(t, rows)
		assert.Empty(t, rows)
		assert.Equal(t, []int{1}, f.Calls())
	})

	t.Run("gives up after max pages", func(t *testing.T) {
		f := &fakePages{rows: makeRows(30), total: 1000}
		_, err := NewAggregator(f, 10, 2).Collect(context.Background(), "job-1")

		assert.ErrorIs(t, err, ErrNoProgress)
		assert.Equal(t, []int{1, 2}, f.Calls())
	})

	t.Run("propagates fetch errors", func(t *testing.T) {
		boom := errors.New("backend down")
		f := &fakePages{rows: makeRows(10), fail: boom}
		rows, err := NewAggregator(f, 500, 0).Collect(context.Background(), "job-1")

		assert.ErrorIs(t, err, boom)
		assert.Nil(t, rows)
	})

	t.Run("cancelled context returns no rows", func(t *testing.T) {
		f := &fakePages{rows: makeRows(10), gate: make(chan struct{})}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		rows, err := NewAggregator(f, 500, 0).Collect(ctx, "job-1")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, rows)
	})
}

func TestSession(t *testing.T) {
	t.Run("load and wait", func(t *testing.T) {
		f := &fakePages{rows: makeRows(120)}
		s := NewSession(NewAggregator(f, 50, 0))
		s.Load("job-1")

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		snap, err := s.Wait(ctx)
		require.NoError(t, err)

		assert.Equal(t, "job-1", snap.JobID)
		assert.False(t, snap.Loading)
		assert.NoError(t, snap.Err)
		assert.Len(t, snap.Rows, 120)
	})

	t.Run("wait without load returns at once", func(t *testing.T) {
		s := NewSession(NewAggregator(&fakePages{}, 50, 0))
		snap, err := s.Wait(context.Background())
		require.NoError(t, err)
		assert.Empty(t, snap.JobID)
	})

	t.Run("a newer load supersedes a running one", func(t *testing.T) {
		slow := &fakePages{rows: makeRows(5), gate: make(chan struct{})}
		fast := &fakePages{rows: makeRows(3)}
		s := NewSession(NewAggregator(routedPages{"old": slow, "new": fast}, 50, 0))

		s.Load("old")
		require.Eventually(t, func() bool { return len(slow.Calls()) == 1 }, time.Second, 5*time.Millisecond)
		s.Load("new")

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		snap, err := s.Wait(ctx)
		require.NoError(t, err)

		assert.Equal(t, "new", snap.JobID)
		assert.Len(t, snap.Rows, 3)
		assert.NoError(t, snap.Err, "the cancelled load must not leak its error")
	})

	t.Run("close discards the running load", func(t *testing.T) {
		slow := &fakePages{rows: makeRows(5), gate: make(chan struct{})}
		s := NewSession(NewAggregator(slow, 50, 0))
		s.Load("job-1")
		require.Eventually(t, func() bool { return len(slow.Calls()) == 1 }, time.Second, 5*time.Millisecond)

		s.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		snap, err := s.Wait(ctx)
		require.NoError(t, err)
		assert.False(t, snap.Loading)
		assert.Nil(t, snap.Rows)
		assert.ErrorIs(t, snap.Err, context.Canceled)
	})
}

// routedPages dispatches by job id.
type routedPages map[string]*fakePages

func (r routedPages) GetPreview(ctx context.Context, jobID string, page, size int) (*models.PreviewPage, error) {
	return r[jobID].GetPreview(ctx, jobID, page, size)
}
