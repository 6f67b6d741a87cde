// Package jobs keeps the console's list of tracked backend jobs and their
// latest known status, refreshing every tracked job on a fixed interval.
package jobs

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"golang.org/x/sync/errgroup"

	"github.com/vrsandeep/cne-console/internal/logger"
	"github.com/vrsandeep/cne-console/internal/models"
)

const (
	DefaultRefreshInterval = 5 * time.Second
	DefaultMaxParallel     = 8
)

// StatusFetcher fetches the server-side status of a job.
type StatusFetcher interface {
	GetJob(ctx context.Context, jobID string) (*models.JobStatus, error)
}

type TrackerOptions struct {
	Interval    time.Duration
	MaxParallel int
	Logger      *slog.Logger
	// OnChange is called outside the tracker lock after every record change.
	OnChange func(models.JobEvent)
}

// Tracker owns the tracked job ids and a volatile cache of their records.
//
// Every change to the id list starts a new generation: the previous timer is
// stopped, a cycle runs immediately and then on every interval. Refreshes
// carry the generation they were started in and drop their result if it is
// no longer current or the job was untracked meanwhile.
type Tracker struct {
	fetcher  StatusFetcher
	settings SettingsStore
	opts     TrackerOptions
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	ids        []string
	records    map[string]*models.JobRecord
	inFlight   map[string]uint64 // id -> generation of the running refresh
	generation uint64
	scheduler  *gocron.Scheduler
	started    bool
	closed     bool
	view       *trackerView
}

// NewTracker creates a tracker with the ids persisted in settings. No
// request is made until Start.
func NewTracker(fetcher StatusFetcher, settings SettingsStore, opts TrackerOptions) *Tracker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultRefreshInterval
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultMaxParallel
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		fetcher:  fetcher,
		settings: settings,
		opts:     opts,
		logger:   opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
		ids:      loadTrackedIDs(settings, opts.Logger),
		records:  make(map[string]*models.JobRecord),
		inFlight: make(map[string]uint64),
	}
}

// Start begins refreshing the tracked jobs.
func (t *Tracker) Start() {
	t.mu.Lock()
	if t.started || t.closed {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	t.logger.Info("Job tracker started", "tracked", len(t.IDs()), "interval", t.opts.Interval)
	t.restart()
}

// Close stops the timer, cancels in-flight requests and waits for them to
// finish. No record changes after Close returns.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.generation++
	s := t.scheduler
	t.scheduler = nil
	t.mu.Unlock()

	stopScheduler(s)
	t.cancel()
	t.wg.Wait()
}

// Add tracks id, placing it first. It reports false if id was already
// tracked or is empty.
func (t *Tracker) Add(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	t.mu.Lock()
	if t.closed || slices.Contains(t.ids, id) {
		t.mu.Unlock()
		return false
	}
	t.ids = append([]string{id}, t.ids...)
	saveTrackedIDs(t.settings, t.ids, t.logger)
	t.invalidate()
	t.mu.Unlock()

	t.logger.Info("Tracking job", "job_id", id)
	t.restart()
	return true
}

// Remove untracks id and discards its record. A refresh still running for
// it completes but its result is dropped.
func (t *Tracker) Remove(id string) bool {
	t.mu.Lock()
	idx := slices.Index(t.ids, id)
	if t.closed || idx < 0 {
		t.mu.Unlock()
		return false
	}
	t.ids = slices.Delete(slices.Clone(t.ids), idx, idx+1)
	delete(t.records, id)
	saveTrackedIDs(t.settings, t.ids, t.logger)
	t.invalidate()
	t.mu.Unlock()

	t.logger.Info("Stopped tracking job", "job_id", id)
	t.emit(models.JobEvent{Type: models.EventJobRemoved, JobID: id})
	t.restart()
	return true
}

// Refresh fetches one tracked job now, outside the regular cycle. It
// reports false if the job is not tracked or the tracker is not running.
func (t *Tracker) Refresh(id string) bool {
	t.mu.Lock()
	if !t.started || t.closed || !slices.Contains(t.ids, id) {
		t.mu.Unlock()
		return false
	}
	gen := t.generation
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		t.refresh(gen, id)
	}()
	return true
}

// IDs returns the tracked ids, newest first.
func (t *Tracker) IDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.ids)
}

// Tracks reports whether id is tracked.
func (t *Tracker) Tracks(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Contains(t.ids, id)
}

// Record returns a copy of the cached record for id.
func (t *Tracker) Record(id string) (models.JobRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	if !ok {
		return models.JobRecord{}, false
	}
	return *rec, true
}

// restart begins a new generation for the current id list.
func (t *Tracker) restart() {
	t.mu.Lock()
	if !t.started || t.closed {
		t.mu.Unlock()
		return
	}
	t.generation++
	gen := t.generation
	old := t.scheduler
	t.scheduler = nil

	if len(t.ids) == 0 {
		t.records = make(map[string]*models.JobRecord)
		t.invalidate()
		t.mu.Unlock()
		stopScheduler(old)
		return
	}

	s, err := newRefreshScheduler(t.opts.Interval, func() { t.runCycle(gen) })
	if err != nil {
		t.logger.Error("Could not schedule job refresh", "error", err)
	}
	t.scheduler = s
	t.mu.Unlock()

	stopScheduler(old)
	t.runCycle(gen)
}

// runCycle refreshes every tracked job concurrently. It returns at once;
// the fan-out runs in its own goroutine.
func (t *Tracker) runCycle(gen uint64) {
	t.mu.Lock()
	if gen != t.generation || t.closed {
		t.mu.Unlock()
		return
	}
	ids := slices.Clone(t.ids)
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		var g errgroup.Group
		g.SetLimit(t.opts.MaxParallel)
		for _, id := range ids {
			g.Go(func() error {
				t.refresh(gen, id)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

func (t *Tracker) refresh(gen uint64, id string) {
	t.mu.Lock()
	if !t.currentLocked(gen, id) {
		t.mu.Unlock()
		return
	}
	if owner, busy := t.inFlight[id]; busy && owner == gen {
		t.mu.Unlock()
		t.logger.Debug("Previous refresh still running, skipping tick", "job_id", id)
		return
	}
	t.inFlight[id] = gen

	rec, ok := t.records[id]
	if !ok {
		now := time.Now().UTC().Format(time.RFC3339)
		rec = &models.JobRecord{JobStatus: models.JobStatus{
			JobID:      id,
			State:      models.StateQueued,
			CreatedAt:  now,
			UpdatedAt:  now,
			InputFiles: []string{},
		}}
	} else {
		copied := *rec
		rec = &copied
	}
	rec.Loading = true
	t.records[id] = rec
	t.invalidate()
	started := *rec
	t.mu.Unlock()
	t.emit(models.JobEvent{Type: models.EventJobUpdated, JobID: id, Record: &started})

	status, err := t.fetcher.GetJob(t.ctx, id)

	t.mu.Lock()
	if t.inFlight[id] == gen {
		delete(t.inFlight, id)
	}
	if !t.currentLocked(gen, id) {
		t.mu.Unlock()
		return
	}

	var next models.JobRecord
	if err != nil {
		// Keep whatever is known, the queued placeholder included, and
		// annotate it. Only a job with no record at all becomes failed.
		if prev, ok := t.records[id]; ok {
			next = *prev
		} else {
			next = models.JobRecord{JobStatus: models.JobStatus{JobID: id, State: models.StateFailed, InputFiles: []string{}}}
		}
		next.Err = err.Error()
		t.logger.Debug("Job refresh failed", "job_id", id, "error", err)
	} else {
		next = models.JobRecord{JobStatus: *status}
		if next.JobID == "" {
			next.JobID = id
		}
		if next.InputFiles == nil {
			next.InputFiles = []string{}
		}
	}
	next.Loading = false
	next.LastChecked = time.Now()
	t.records[id] = &next
	t.invalidate()
	t.mu.Unlock()

	t.emit(models.JobEvent{Type: models.EventJobUpdated, JobID: id, Record: &next})
}

// currentLocked reports whether a refresh started in gen may still write id.
func (t *Tracker) currentLocked(gen uint64, id string) bool {
	return gen == t.generation && !t.closed && slices.Contains(t.ids, id)
}

func (t *Tracker) emit(ev models.JobEvent) {
	if t.opts.OnChange != nil {
		t.opts.OnChange(ev)
	}
}
