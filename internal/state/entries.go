package state

import (
	"math"

	"github.com/sadopc/rollday/internal/catalog"
	"github.com/sadopc/rollday/internal/dates"
)

const (
	maxMinutes = 999
	maxKm      = 999
)

// Upsert is the only write path for an entry. fn receives a copy of the
// current entry at date (nil when there is none) and returns the candidate.
// The candidate's Date is forced to date, UpdatedAt to the clock's now, and
// Minutes/Km are clamped to [0, 999]. st itself is never modified.
func Upsert(st AppState, date string, clock dates.Clock, fn func(prev *DailyEntry) DailyEntry) AppState {
	var prev *DailyEntry
	if e, ok := st.EntriesByDate[date]; ok {
		c := e.clone()
		prev = &c
	}

	next := fn(prev).clone()
	next.Date = date
	next.UpdatedAt = clock.Now().UnixMilli()
	if next.source != SourceRoll {
		// Anything not built by NewRollEntry is stored as manual.
		next.source = SourceManual
		next.roll = 0
	}
	next.Minutes = clampMinutes(next.Minutes)
	next.Km = clampKm(next.Km)

	entries := make(map[string]DailyEntry, len(st.EntriesByDate)+1)
	for d, e := range st.EntriesByDate {
		entries[d] = e
	}
	entries[date] = next
	return AppState{Version: Version, EntriesByDate: entries}
}

// Remove returns st without an entry at date.
func Remove(st AppState, date string) AppState {
	if _, ok := st.EntriesByDate[date]; !ok {
		return st
	}
	entries := make(map[string]DailyEntry, len(st.EntriesByDate))
	for d, e := range st.EntriesByDate {
		if d != date {
			entries[d] = e
		}
	}
	return AppState{Version: Version, EntriesByDate: entries}
}

// RollFor replaces the entry at date with a fresh roll record.
func RollFor(st AppState, date string, roll int, clock dates.Clock) AppState {
	a := catalog.ForRoll(roll)
	return Upsert(st, date, clock, func(*DailyEntry) DailyEntry {
		return NewRollEntry(roll, a.ID)
	})
}

// ManualFor replaces the entry at date with a fresh manual record.
func ManualFor(st AppState, date, activityID string, clock dates.Clock) AppState {
	return Upsert(st, date, clock, func(*DailyEntry) DailyEntry {
		return NewManualEntry(activityID)
	})
}

// Update edits the existing entry at date. It is a no-op when the day has
// no entry yet.
func Update(st AppState, date string, clock dates.Clock, fn func(e *DailyEntry)) AppState {
	if _, ok := st.EntriesByDate[date]; !ok {
		return st
	}
	return Upsert(st, date, clock, func(prev *DailyEntry) DailyEntry {
		e := *prev
		fn(&e)
		return e
	})
}

// AddMinutes adds delta to the day's minutes.
func AddMinutes(st AppState, date string, delta int, clock dates.Clock) AppState {
	return Update(st, date, clock, func(e *DailyEntry) {
		m := e.MinutesOr(0) + delta
		e.Minutes = &m
	})
}

func clampMinutes(v *int) *int {
	if v == nil {
		return nil
	}
	m := min(max(*v, 0), maxMinutes)
	return &m
}

func clampKm(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) {
		return nil
	}
	k := math.Min(math.Max(*v, 0), maxKm)
	return &k
}

// ChangeManualActivity points a manual entry at a different activity and
// keeps everything else. Any other day gets a fresh manual record.
func ChangeManualActivity(st AppState, date, activityID string, clock dates.Clock) AppState {
	if e, ok := st.EntriesByDate[date]; ok && e.source == SourceManual {
		return Update(st, date, clock, func(e *DailyEntry) { e.ActivityID = activityID })
	}
	return ManualFor(st, date, activityID, clock)
}
