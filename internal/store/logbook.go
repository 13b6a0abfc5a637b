package store

import (
	"fmt"
	"time"

	"github.com/gusuihan4-tech/kaluli/internal/model"
)

// LogBook is the meal-log collection for one user namespace. Entries are
// kept in insertion (chronological) order; all indices are chronological.
// Callers displaying newest-first must translate a displayed index i back
// with len-1-i before calling DeleteAt.
type LogBook struct {
	s  *Store
	ns string
}

// Logs returns the log book for the given username ("" for the bare
// namespace).
func (s *Store) Logs(username string) *LogBook {
	return &LogBook{s: s, ns: LogsNamespace(username)}
}

// Namespace returns the storage key this book writes to.
func (b *LogBook) Namespace() string {
	return b.ns
}

// ListAll returns every entry in insertion order.
func (b *LogBook) ListAll() ([]model.LogEntry, error) {
	var entries []model.LogEntry
	if err := b.s.readJSON(b.ns, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Append adds one entry to the end of the collection.
func (b *LogBook) Append(e model.LogEntry) error {
	l := b.s.Lock(b.ns)
	l.Lock()
	defer l.Unlock()

	entries, err := b.ListAll()
	if err != nil {
		return err
	}
	entries = append(entries, e)
	return b.s.writeJSON(b.ns, entries)
}

// DeleteAt removes the entry at the given chronological index.
func (b *LogBook) DeleteAt(i int) error {
	l := b.s.Lock(b.ns)
	l.Lock()
	defer l.Unlock()

	entries, err := b.ListAll()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(entries) {
		return fmt.Errorf("index %d out of range (have %d entries)", i, len(entries))
	}
	entries = append(entries[:i], entries[i+1:]...)
	return b.s.writeJSON(b.ns, entries)
}

// ReplaceAll overwrites the whole collection. Used by cloud pull, which is
// last-writer-wins at collection granularity.
func (b *LogBook) ReplaceAll(entries []model.LogEntry) error {
	l := b.s.Lock(b.ns)
	l.Lock()
	defer l.Unlock()
	return b.s.writeJSON(b.ns, entries)
}

// ComputeStats summarizes the log relative to now. "Today" is the half-open
// interval [local midnight, local midnight + 24h). TodayMeals counts
// distinct meal types logged today, so two breakfasts count once.
func (b *LogBook) ComputeStats(now time.Time) (model.Stats, error) {
	entries, err := b.ListAll()
	if err != nil {
		return model.Stats{}, err
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := midnight.UnixMilli()
	end := midnight.Add(24 * time.Hour).UnixMilli()

	stats := model.Stats{TotalCount: len(entries)}
	kinds := make(map[model.MealType]struct{})
	for _, e := range entries {
		if e.Timestamp < start || e.Timestamp >= end {
			continue
		}
		stats.TodayTotal += e.Total
		kinds[e.Meal] = struct{}{}
	}
	stats.TodayMeals = len(kinds)
	return stats, nil
}
