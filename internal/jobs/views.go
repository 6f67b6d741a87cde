package jobs

import (
	"slices"

	"github.com/vrsandeep/cne-console/internal/models"
)

// trackerView is the memoized derived state, rebuilt lazily after any change
// to the id list or the record cache.
type trackerView struct {
	sorted []models.JobRecord
	groups []models.StateCount
}

// invalidate drops the memoized view. Callers hold t.mu.
func (t *Tracker) invalidate() {
	t.view = nil
}

func (t *Tracker) viewLocked() *trackerView {
	if t.view != nil {
		return t.view
	}

	sorted := make([]models.JobRecord, 0, len(t.ids))
	for _, id := range t.ids {
		if rec, ok := t.records[id]; ok {
			sorted = append(sorted, *rec)
		}
	}
	// Stable, so jobs created at the same instant keep newest-tracked-first order.
	slices.SortStableFunc(sorted, func(a, b models.JobRecord) int {
		return models.ParseTimestamp(b.CreatedAt).Compare(models.ParseTimestamp(a.CreatedAt))
	})

	counts := make(map[models.JobState]int, len(models.GroupOrder))
	for _, rec := range sorted {
		counts[rec.State]++
	}
	groups := make([]models.StateCount, 0, len(models.GroupOrder))
	for _, state := range models.GroupOrder {
		groups = append(groups, models.StateCount{State: state, Label: state.Label(), Count: counts[state]})
	}

	t.view = &trackerView{sorted: sorted, groups: groups}
	return t.view
}

// Sorted returns the tracked jobs that have a record, newest created first.
func (t *Tracker) Sorted() []models.JobRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.viewLocked().sorted)
}

// Grouped returns how many tracked jobs are in each state, in display order.
func (t *Tracker) Grouped() []models.StateCount {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.viewLocked().groups)
}
