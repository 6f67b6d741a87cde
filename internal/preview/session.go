package preview

import (
	"context"
	"sync"

	"github.com/vrsandeep/cne-console/internal/models"
)

// Snapshot is the state of a Session at one point in time.
type Snapshot struct {
	JobID   string
	Rows    []models.PreviewRow
	Loading bool
	Err     error
}

// Session holds one aggregated row set. A new Load supersedes the previous
// one: its request is cancelled and its result is never stored.
type Session struct {
	agg *Aggregator

	mu         sync.Mutex
	generation uint64
	jobID      string
	rows       []models.PreviewRow
	loading    bool
	err        error
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewSession(agg *Aggregator) *Session {
	return &Session{agg: agg}
}

// Load starts collecting the rows of jobID in the background.
func (s *Session) Load(jobID string) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.jobID = jobID
	s.rows = nil
	s.err = nil
	s.loading = true
	s.mu.Unlock()

	go func() {
		defer close(done)
		rows, err := s.agg.Collect(ctx, jobID)

		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.generation {
			return
		}
		s.rows = rows
		s.err = err
		s.loading = false
		cancel()
		s.cancel = nil
	}()
}

// Wait blocks until the latest load has finished, following any Load that
// supersedes it while waiting.
func (s *Session) Wait(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.Lock()
		done, gen := s.done, s.generation
		s.mu.Unlock()
		if done == nil {
			return s.Snapshot(), nil
		}

		select {
		case <-done:
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		}

		s.mu.Lock()
		current := gen == s.generation
		s.mu.Unlock()
		if current {
			return s.Snapshot(), nil
		}
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{JobID: s.jobID, Rows: s.rows, Loading: s.loading, Err: s.err}
}

// Close cancels any running load and discards its result. Waiters of an
// unfinished load see context.Canceled.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	if s.loading {
		s.err = context.Canceled
		s.loading = false
	}
}
