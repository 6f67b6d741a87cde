package jobs

import (
	"encoding/json"
	"log/slog"
)

// TrackedJobsKey is the settings key holding the tracked job ids as a JSON array.
const TrackedJobsKey = "cne-jobs"

// SettingsStore is the durable key/value storage for the tracked id list.
type SettingsStore interface {
	GetSetting(key string) (string, bool, error)
	SetSetting(key, value string) error
}

// loadTrackedIDs reads the persisted list. Missing, unreadable or malformed
// storage yields an empty list; non-string entries and repeats are dropped.
func loadTrackedIDs(s SettingsStore, log *slog.Logger) []string {
	raw, found, err := s.GetSetting(TrackedJobsKey)
	if err != nil {
		log.Warn("Could not read tracked jobs, starting empty", "error", err)
		return nil
	}
	if !found || raw == "" {
		return nil
	}

	var parsed []any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log.Warn("Tracked jobs storage is corrupt, starting empty", "error", err)
		return nil
	}

	ids := make([]string, 0, len(parsed))
	seen := make(map[string]bool, len(parsed))
	for _, v := range parsed {
		id, ok := v.(string)
		if !ok || id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func saveTrackedIDs(s SettingsStore, ids []string, log *slog.Logger) {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		log.Warn("Could not encode tracked jobs", "error", err)
		return
	}
	if err := s.SetSetting(TrackedJobsKey, string(raw)); err != nil {
		log.Warn("Could not persist tracked jobs", "error", err)
	}
}
