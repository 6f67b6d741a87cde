package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/cne-console/internal/jobs"
	"github.com/vrsandeep/cne-console/internal/models"
	"github.com/vrsandeep/cne-console/internal/store"
	"github.com/vrsandeep/cne-console/internal/testutil"
)

// fakeFetcher serves scripted statuses. Jobs listed in gates block until
// their gate is closed or the context ends.
type fakeFetcher struct {
	mu       sync.Mutex
	statuses map[string]models.JobStatus
	errs     map[string]error
	gates    map[string]chan struct{}
	calls    map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		statuses: make(map[string]models.JobStatus),
		errs:     make(map[string]error),
		gates:    make(map[string]chan struct{}),
		calls:    make(map[string]int),
	}
}

func (f *fakeFetcher) set(id string, state models.JobState, createdAt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = models.JobStatus{JobID: id, State: state, CreatedAt: createdAt, UpdatedAt: createdAt, InputFiles: []string{id + ".pdf"}}
	delete(f.errs, id)
}

func (f *fakeFetcher) fail(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[id] = err
}

func (f *fakeFetcher) gate(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[id] = ch
	return ch
}

func (f *fakeFetcher) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeFetcher) GetJob(ctx context.Context, id string) (*models.JobStatus, error) {
	f.mu.Lock()
	f.calls[id]++
	gate := f.gates[id]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	status, ok := f.statuses[id]
	if !ok {
		return nil, errors.New("Not Found: Job not found")
	}
	return &status, nil
}

// memSettings is an in-memory SettingsStore.
type memSettings struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

func newMemSettings(initial map[string]string) *memSettings {
	if initial == nil {
		initial = map[string]string{}
	}
	return &memSettings{values: initial}
}

func (m *memSettings) GetSetting(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memSettings) SetSetting(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.writes++
	return nil
}

func (m *memSettings) get(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}

func newTracker(t *testing.T, f jobs.StatusFetcher, s jobs.SettingsStore, interval time.Duration) *jobs.Tracker {
	t.Helper()
	tr := jobs.NewTracker(f, s, jobs.TrackerOptions{Interval: interval})
	t.Cleanup(tr.Close)
	return tr
}

func TestTracker_PersistedIDs(t *testing.T) {
	t.Run("round trip through sqlite", func(t *testing.T) {
		st := store.New(testutil.SetupTestDB(t))
		require.NoError(t, st.SetSetting(jobs.TrackedJobsKey, `["a","b"]`))

		tr := newTracker(t, newFakeFetcher(), st, time.Hour)
		assert.Equal(t, []string{"a", "b"}, tr.IDs())

		tr.Add("c")
		raw, _, err := st.GetSetting(jobs.TrackedJobsKey)
		require.NoError(t, err)
		assert.JSONEq(t, `["c","a","b"]`, raw)

		reloaded := newTracker(t, newFakeFetcher(), st, time.Hour)
		assert.Equal(t, []string{"c", "a", "b"}, reloaded.IDs())
		_, ok := reloaded.Record("c")
		assert.False(t, ok, "records are never restored from storage")
	})

	t.Run("malformed storage is empty", func(t *testing.T) {
		for _, raw := range []string{`{not json`, `{"a":1}`, `"a"`, `null`} {
			tr := newTracker(t, newFakeFetcher(), newMemSettings(map[string]string{jobs.TrackedJobsKey: raw}), time.Hour)
			assert.Empty(t, tr.IDs(), raw)
		}
	})

	t.Run("non strings and duplicates are dropped", func(t *testing.T) {
		s := newMemSettings(map[string]string{jobs.TrackedJobsKey: `["a",1,null,"b","a",""]`})
		tr := newTracker(t, newFakeFetcher(), s, time.Hour)
		assert.Equal(t, []string{"a", "b"}, tr.IDs())
	})
}

func TestTracker_AddRemove(t *testing.T) {
	s := newMemSettings(nil)
	tr := newTracker(t, newFakeFetcher(), s, time.Hour)

	assert.True(t, tr.Add("a"))
	assert.True(t, tr.Add("b"))
	assert.False(t, tr.Add("a"), "already tracked")
	assert.False(t, tr.Add("  "), "empty id")
	assert.True(t, tr.Add("c"))
	assert.Equal(t, []string{"c", "b", "a"}, tr.IDs())

	assert.True(t, tr.Remove("b"))
	assert.False(t, tr.Remove("b"))
	assert.True(t, tr.Add("b"))
	assert.Equal(t, []string{"b", "c", "a"}, tr.IDs())
	assert.JSONEq(t, `["b","c","a"]`, s.get(jobs.TrackedJobsKey))

	seen := map[string]bool{}
	for _, id := range tr.IDs() {
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}
}

func TestTracker_FirstCycleRunsImmediately(t *testing.T) {
	f := newFakeFetcher()
	f.set("a", models.StateProcessing, "2025-09-01T10:00:00")
	tr := newTracker(t, f, newMemSettings(nil), time.Hour)
	tr.Start()

	tr.Add("a")
	require.Eventually(t, func() bool {
		rec, ok := tr.Record("a")
		return ok && !rec.Loading && rec.State == models.StateProcessing
	}, time.Second, 5*time.Millisecond)

	rec, _ := tr.Record("a")
	assert.Empty(t, rec.Err)
	assert.False(t, rec.LastChecked.IsZero())
	assert.Equal(t, []string{"a.pdf"}, rec.InputFiles)
}

func TestTracker_RefreshesOnInterval(t *testing.T) {
	f := newFakeFetcher()
	f.set("a", models.StateQueued, "2025-09-01T10:00:00")
	tr := newTracker(t, f, newMemSettings(map[string]string{jobs.TrackedJobsKey: `["a"]`}), 20*time.Millisecond)
	tr.Start()

	require.Eventually(t, func() bool { return f.callCount("a") >= 3 }, 2*time.Second, 5*time.Millisecond)

	f.set("a", models.StateReady, "2025-09-01T10:00:00")
	require.Eventually(t, func() bool {
		rec, _ := tr.Record("a")
		return rec.State == models.StateReady
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTracker_FailureKeepsLastGoodRecord(t *testing.T) {
	f := newFakeFetcher()
	f.set("a", models.StateReady, "2025-09-01T10:00:00")
	tr := newTracker(t, f, newMemSettings(nil), time.Hour)
	tr.Start()
	tr.Add("a")
	require.Eventually(t, func() bool {
		rec, _ := tr.Record("a")
		return rec.State == models.StateReady && !rec.Loading
	}, time.Second, 5*time.Millisecond)

	f.fail("a", errors.New("Service Unavailable"))
	require.True(t, tr.Refresh("a"))
	require.Eventually(t, func() bool {
		rec, _ := tr.Record("a")
		return rec.Err != "" && !rec.Loading
	}, time.Second, 5*time.Millisecond)

	rec, _ := tr.Record("a")
	assert.Equal(t, models.StateReady, rec.State)
	assert.Equal(t, "Service Unavailable", rec.Err)
	assert.Equal(t, "2025-09-01T10:00:00", rec.CreatedAt)

	f.set("a", models.StateApproved, "2025-09-01T10:00:00")
	require.True(t, tr.Refresh("a"))
	require.Eventually(t, func() bool {
		rec, _ := tr.Record("a")
		return rec.State == models.StateApproved && rec.Err == ""
	}, time.Second, 5*time.Millisecond)
}

func TestTracker_FirstFailureKeepsQueuedPlaceholder(t *testing.T) {
	f := newFakeFetcher()
	f.set("a", models.StateProcessing, "2025-09-01T10:00:00")
	f.fail("a", errors.New("Service Unavailable"))
	tr := newTracker(t, f, newMemSettings(map[string]string{jobs.TrackedJobsKey: `["a"]`}), time.Hour)
	tr.Start()

	require.Eventually(t, func() bool {
		rec, ok := tr.Record("a")
		return ok && !rec.Loading && rec.Err != ""
	}, time.Second, 5*time.Millisecond)

	rec, _ := tr.Record("a")
	assert.Equal(t, "a", rec.JobID)
	assert.Equal(t, models.StateQueued, rec.State, "a failed fetch says nothing about the job")
	assert.Equal(t, "Service Unavailable", rec.Err)
	for _, g := range tr.Grouped() {
		switch g.State {
		case models.StateQueued:
			assert.Equal(t, 1, g.Count)
		default:
			assert.Zero(t, g.Count, "group %s", g.State)
		}
	}

	f.set("a", models.StateProcessing, "2025-09-01T10:00:00")
	require.True(t, tr.Refresh("a"))
	require.Eventually(t, func() bool {
		rec, _ := tr.Record("a")
		return rec.State == models.StateProcessing && rec.Err == ""
	}, time.Second, 5*time.Millisecond)
}

func TestTracker_UnknownJobStaysAnnotatedPlaceholder(t *testing.T) {
	f := newFakeFetcher()
	tr := newTracker(t, f, newMemSettings(nil), time.Hour)
	tr.Start()
	tr.Add("ghost")

	require.Eventually(t, func() bool {
		rec, ok := tr.Record("ghost")
		return ok && !rec.Loading && rec.Err != ""
	}, time.Second, 5*time.Millisecond)

	rec, _ := tr.Record("ghost")
	assert.Equal(t, models.StateQueued, rec.State)
	assert.Equal(t, "ghost", rec.JobID)
	assert.Equal(t, "Not Found: Job not found", rec.Err)
}

func TestTracker_RemoveDuringRefreshDoesNotResurrect(t *testing.T) {
	f := newFakeFetcher()
	f.set("a", models.StateReady, "2025-09-01T10:00:00")
	gate := f.gate("a")

	var mu sync.Mutex
	var events []models.JobEvent
	tr := jobs.NewTracker(f, newMemSettings(nil), jobs.TrackerOptions{
		Interval: time.Hour,
		OnChange: func(ev models.JobEvent) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		},
	})
	tr.Start()
	tr.Add("a")
	require.Eventually(t, func() bool { return f.callCount("a") == 1 }, time.Second, 5*time.Millisecond)

	require.True(t, tr.Remove("a"))
	close(gate)
	// Close waits for every refresh goroutine, including the released one.
	tr.Close()

	_, ok := tr.Record("a")
	assert.False(t, ok)
	assert.Empty(t, tr.Sorted())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, events)
	assert.Equal(t, models.EventJobRemoved, events[len(events)-1].Type, "no update after removal")
}

func TestTracker_RemoveOneOfTwoDuringRefresh(t *testing.T) {
	f := newFakeFetcher()
	f.set("a", models.StateReady, "2025-09-01T10:00:00")
	f.set("b", models.StateProcessing, "2025-09-01T11:00:00")
	gate := f.gate("a")
	tr := newTracker(t, f, newMemSettings(map[string]string{jobs.TrackedJobsKey: `["a","b"]`}), 20*time.Millisecond)
	tr.Start()

	require.Eventually(t, func() bool { return f.callCount("a") == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		rec, ok := tr.Record("b")
		return ok && !rec.Loading && rec.State == models.StateProcessing
	}, time.Second, 5*time.Millisecond)

	require.True(t, tr.Remove("a"))
	close(gate)

	before := f.callCount("b")
	require.Eventually(t, func() bool { return f.callCount("b") >= before+2 }, time.Second, 5*time.Millisecond)

	_, ok := tr.Record("a")
	assert.False(t, ok, "the released fetch must not write a removed job")
	assert.Equal(t, []string{"b"}, tr.IDs())
	sorted := tr.Sorted()
	require.Len(t, sorted, 1)
	assert.Equal(t, "b", sorted[0].JobID)
	assert.Equal(t, 1, f.callCount("a"), "removed jobs are not fetched again")
}

func TestTracker_SkipsTickWhileRefreshInFlight(t *testing.T) {
	f := newFakeFetcher()
	f.set("slow", models.StateProcessing, "2025-09-01T10:00:00")
	gate := f.gate("slow")
	tr := newTracker(t, f, newMemSettings(map[string]string{jobs.TrackedJobsKey: `["slow"]`}), 10*time.Millisecond)
	tr.Start()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, f.callCount("slow"))

	rec, ok := tr.Record("slow")
	require.True(t, ok)
	assert.True(t, rec.Loading)
	assert.Equal(t, models.StateQueued, rec.State, "placeholder until the first answer")

	close(gate)
	require.Eventually(t, func() bool { return f.callCount("slow") > 1 }, time.Second, 5*time.Millisecond)
}

func TestTracker_CloseStopsRefreshing(t *testing.T) {
	f := newFakeFetcher()
	f.set("a", models.StateQueued, "2025-09-01T10:00:00")
	tr := jobs.NewTracker(f, newMemSettings(map[string]string{jobs.TrackedJobsKey: `["a"]`}), jobs.TrackerOptions{Interval: 10 * time.Millisecond})
	tr.Start()
	require.Eventually(t, func() bool { return f.callCount("a") >= 2 }, time.Second, 5*time.Millisecond)

	tr.Close()
	calls := f.callCount("a")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, f.callCount("a"))
	assert.False(t, tr.Add("b"))
	assert.False(t, tr.Refresh("a"))
}

func TestTracker_RemovingLastJobClearsRecords(t *testing.T) {
	f := newFakeFetcher()
	f.set("a", models.StateReady, "2025-09-01T10:00:00")
	tr := newTracker(t, f, newMemSettings(nil), 10*time.Millisecond)
	tr.Start()
	tr.Add("a")
	require.Eventually(t, func() bool { return len(tr.Sorted()) == 1 }, time.Second, 5*time.Millisecond)

	tr.Remove("a")
	time.Sleep(20 * time.Millisecond)
	calls := f.callCount("a")
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, tr.Sorted())
	assert.Equal(t, calls, f.callCount("a"), "no timer once the list is empty")
}

func TestTracker_SortedAndGrouped(t *testing.T) {
	f := newFakeFetcher()
	f.set("old", models.StateApproved, "2025-08-01T09:00:00")
	f.set("new", models.StateProcessing, "2025-09-02T09:00:00+01:00")
	f.set("mid", models.StateReady, "2025-09-01T12:00:00Z")
	f.set("mid2", models.StateReady, "2025-09-01T12:00:00Z")
	tr := newTracker(t, f, newMemSettings(map[string]string{jobs.TrackedJobsKey: `["mid2","old","mid","new"]`}), time.Hour)
	tr.Start()

	require.Eventually(t, func() bool {
		for _, rec := range tr.Sorted() {
			if rec.Loading {
				return false
			}
		}
		return len(tr.Sorted()) == 4
	}, time.Second, 5*time.Millisecond)

	var order []string
	for _, rec := range tr.Sorted() {
		order = append(order, rec.JobID)
	}
	assert.Equal(t, []string{"new", "mid2", "mid", "old"}, order)

	groups := tr.Grouped()
	require.Len(t, groups, 5)
	assert.Equal(t, models.StateProcessing, groups[0].State)
	assert.Equal(t, "A processar", groups[0].Label)
	assert.Equal(t, 1, groups[0].Count)
	assert.Equal(t, models.StateReady, groups[1].State)
	assert.Equal(t, 2, groups[1].Count)
	assert.Equal(t, models.StateApproved, groups[2].State)
	assert.Equal(t, 1, groups[2].Count)
	assert.Equal(t, models.StateQueued, groups[3].State)
	assert.Equal(t, 0, groups[3].Count)
	assert.Equal(t, models.StateFailed, groups[4].State)
}

func TestTracker_SortedSkipsIDsWithoutRecord(t *testing.T) {
	tr := newTracker(t, newFakeFetcher(), newMemSettings(map[string]string{jobs.TrackedJobsKey: `["a","b"]`}), time.Hour)
	assert.Len(t, tr.IDs(), 2)
	assert.Empty(t, tr.Sorted(), "not started, so nothing fetched yet")
}
