package state

import (
	"encoding/json"
	"sort"

	"github.com/sadopc/rollday/internal/catalog"
)

// Version is the only schema version rollday reads or writes.
const Version = 1

// Source records how the day's activity was chosen.
type Source string

const (
	SourceRoll   Source = "roll"
	SourceManual Source = "manual"
)

// DailyEntry is one day's record. The source and roll number are only set
// through NewRollEntry and NewManualEntry, so a roll number can never sit
// on a manual entry.
type DailyEntry struct {
	Date       string
	ActivityID string
	Done       bool
	Minutes    *int
	Km         *float64
	Note       string
	UpdatedAt  int64 // ms since epoch, stamped by Upsert

	source Source
	roll   int
}

// NewRollEntry starts a clean entry picked by the die. The roll is clamped
// into the die's range.
func NewRollEntry(roll int, activityID string) DailyEntry {
	if roll < 1 {
		roll = 1
	}
	if roll > catalog.Sides {
		roll = catalog.Sides
	}
	return DailyEntry{ActivityID: activityID, source: SourceRoll, roll: roll}
}

// NewManualEntry starts a clean entry for a hand-picked activity.
func NewManualEntry(activityID string) DailyEntry {
	return DailyEntry{ActivityID: activityID, source: SourceManual}
}

func (e DailyEntry) Source() Source { return e.source }

// Roll returns the die result for roll entries.
func (e DailyEntry) Roll() (int, bool) {
	if e.source != SourceRoll {
		return 0, false
	}
	return e.roll, true
}

// MinutesOr returns the recorded minutes or def when none were recorded.
func (e DailyEntry) MinutesOr(def int) int {
	if e.Minutes == nil {
		return def
	}
	return *e.Minutes
}

func (e DailyEntry) KmOr(def float64) float64 {
	if e.Km == nil {
		return def
	}
	return *e.Km
}

func (e DailyEntry) clone() DailyEntry {
	if e.Minutes != nil {
		m := *e.Minutes
		e.Minutes = &m
	}
	if e.Km != nil {
		k := *e.Km
		e.Km = &k
	}
	return e
}

type entryJSON struct {
	Date       string   `json:"date"`
	Roll       *int     `json:"roll,omitempty"`
	ActivityID string   `json:"activityId"`
	Source     Source   `json:"source"`
	Done       bool     `json:"done"`
	Minutes    *int     `json:"minutes,omitempty"`
	Km         *float64 `json:"km,omitempty"`
	Note       string   `json:"note,omitempty"`
	UpdatedAt  int64    `json:"updatedAt"`
}

func (e DailyEntry) MarshalJSON() ([]byte, error) {
	w := entryJSON{
		Date:       e.Date,
		ActivityID: e.ActivityID,
		Source:     e.source,
		Done:       e.Done,
		Minutes:    e.Minutes,
		Km:         e.Km,
		Note:       e.Note,
		UpdatedAt:  e.UpdatedAt,
	}
	if r, ok := e.Roll(); ok {
		w.Roll = &r
	}
	return json.Marshal(w)
}

// AppState is the whole persisted document.
type AppState struct {
	Version       int                   `json:"version"`
	EntriesByDate map[string]DailyEntry `json:"entriesByDate"`
}

// Empty returns the first-run state.
func Empty() AppState {
	return AppState{Version: Version, EntriesByDate: map[string]DailyEntry{}}
}

func (s AppState) Entry(date string) (DailyEntry, bool) {
	e, ok := s.EntriesByDate[date]
	return e, ok
}

func (s AppState) Len() int { return len(s.EntriesByDate) }

// Dates returns every entry key in ascending order.
func (s AppState) Dates() []string {
	out := make([]string, 0, len(s.EntriesByDate))
	for d := range s.EntriesByDate {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
