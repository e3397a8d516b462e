// Package stats derives read-only views from the entry map: the current
// streak and the monthly rollup.
package stats

import (
	"sort"
	"strings"

	"github.com/sadopc/rollday/internal/dates"
	"github.com/sadopc/rollday/internal/state"
)

// Streak counts consecutive done days ending at and including today. A
// missing or unfinished entry for today means no streak.
func Streak(entries map[string]state.DailyEntry, today string) int {
	n := 0
	cursor := today
	for {
		e, ok := entries[cursor]
		if !ok || !e.Done {
			return n
		}
		n++
		prev, err := dates.AddDays(cursor, -1)
		if err != nil {
			return n
		}
		cursor = prev
	}
}

// ActivityStats is one row of the per-activity breakdown.
type ActivityStats struct {
	ActivityID string
	Count      int
	Minutes    int
	Km         float64
}

// MonthSummary aggregates every entry dated inside one month.
type MonthSummary struct {
	Month        string
	DaysInMonth  int
	Entries      []state.DailyEntry // ascending by date
	EntryCount   int
	DoneCount    int
	TotalMinutes int
	TotalKm      float64
	ByActivity   []ActivityStats // most frequent first
}

// Month builds the summary for a YYYY-MM month. Minutes and km are summed
// whether or not the day was marked done.
func Month(entries map[string]state.DailyEntry, month string) (MonthSummary, error) {
	days, err := dates.DaysInMonth(month)
	if err != nil {
		return MonthSummary{}, err
	}

	sum := MonthSummary{Month: month, DaysInMonth: days}
	prefix := month + "-"
	acc := make(map[string]*ActivityStats)
	for _, e := range entries {
		if !strings.HasPrefix(e.Date, prefix) {
			continue
		}
		sum.Entries = append(sum.Entries, e)
		sum.EntryCount++
		if e.Done {
			sum.DoneCount++
		}
		sum.TotalMinutes += e.MinutesOr(0)
		sum.TotalKm += e.KmOr(0)

		a, ok := acc[e.ActivityID]
		if !ok {
			a = &ActivityStats{ActivityID: e.ActivityID}
			acc[e.ActivityID] = a
		}
		a.Count++
		a.Minutes += e.MinutesOr(0)
		a.Km += e.KmOr(0)
	}

	sort.Slice(sum.Entries, func(i, j int) bool { return sum.Entries[i].Date < sum.Entries[j].Date })

	for _, a := range acc {
		sum.ByActivity = append(sum.ByActivity, *a)
	}
	sort.Slice(sum.ByActivity, func(i, j int) bool {
		if sum.ByActivity[i].Count != sum.ByActivity[j].Count {
			return sum.ByActivity[i].Count > sum.ByActivity[j].Count
		}
		return sum.ByActivity[i].ActivityID < sum.ByActivity[j].ActivityID
	})
	return sum, nil
}

// MinutesByDay returns the minutes logged on each day of the summary's
// month, indexed from day 1 at position 0.
func (m MonthSummary) MinutesByDay() []int {
	out := make([]int, m.DaysInMonth)
	for _, e := range m.Entries {
		day, err := dates.Parse(e.Date)
		if err != nil || day.Day() > len(out) {
			continue
		}
		out[day.Day()-1] += e.MinutesOr(0)
	}
	return out
}

// CountFor returns how many entries in the month used activityID.
func (m MonthSummary) CountFor(activityID string) int {
	for _, a := range m.ByActivity {
		if a.ActivityID == activityID {
			return a.Count
		}
	}
	return 0
}
