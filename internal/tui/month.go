package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/rollday/internal/catalog"
	"github.com/sadopc/rollday/internal/dates"
	"github.com/sadopc/rollday/internal/logging"
	"github.com/sadopc/rollday/internal/state"
	"github.com/sadopc/rollday/internal/stats"
)

type monthModel struct {
	width  int
	height int

	st      state.AppState
	today   string
	month   string // YYYY-MM on screen
	summary stats.MonthSummary

	chart barchart.Model
}

func newMonthModel(today string) monthModel {
	return monthModel{
		st:    state.Empty(),
		today: today,
		month: dates.MonthOf(today),
		chart: barchart.New(60, 12),
	}
}

func (r *monthModel) setSize(w, h int) {
	r.width = w
	r.height = h
	r.buildChart()
}

func (r *monthModel) setState(st state.AppState, today string) {
	r.st = st
	r.today = today
	if r.month == "" {
		r.month = dates.MonthOf(today)
	}
	r.recompute()
}

func (r *monthModel) recompute() {
	sum, err := stats.Month(r.st.EntriesByDate, r.month)
	if err != nil {
		r.month = dates.MonthOf(r.today)
		sum, _ = stats.Month(r.st.EntriesByDate, r.month)
	}
	r.summary = sum
	r.buildChart()
}

func (r monthModel) update(msg tea.Msg) (monthModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.shift(-1)
		case key.Matches(msg, keys.Right):
			if r.month < dates.MonthOf(r.today) {
				r.shift(1)
			}
		}
	}
	return r, nil
}

func (r *monthModel) shift(n int) {
	next, err := dates.AddMonths(r.month, n)
	if err != nil {
		return
	}
	r.month = next
	r.recompute()
}

func (r *monthModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if r.height > 36 {
		chartHeight = 14
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	done := make(map[int]bool)
	for _, e := range r.summary.Entries {
		if t, err := dates.Parse(e.Date); err == nil && e.Done {
			done[t.Day()] = true
		}
	}

	var bars []barchart.BarData
	for i, mins := range r.summary.MinutesByDay() {
		day := i + 1
		style := lipgloss.NewStyle().Foreground(colorSubtle)
		if done[day] {
			style = lipgloss.NewStyle().Foreground(colorPrimary)
		}
		bars = append(bars, barchart.BarData{
			Label:  fmt.Sprintf("%02d", day),
			Values: []barchart.BarValue{{Name: "minutes", Value: float64(mins), Style: style}},
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r monthModel) view() string {
	w := r.width - 4
	s := r.summary

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Month"), "  ", highlightStyle.Render(r.monthLabel()),
	)

	totals := fmt.Sprintf("  Done %s   Logged %s   Minutes %s   Distance %s",
		successStyle.Render(fmt.Sprintf("%d/%d days", s.DoneCount, s.DaysInMonth)),
		highlightStyle.Render(fmt.Sprintf("%d", s.EntryCount)),
		highlightStyle.Render(formatMinutes(s.TotalMinutes)),
		highlightStyle.Render(formatKm(s.TotalKm)),
	)

	nav := mutedStyle.Render("  ←/→: previous/next month  o: export")

	sections := []string{header, "", totals, "", r.chart.View(), "", r.renderBreakdown(w)}
	if len(s.Entries) > 0 {
		sections = append(sections, "", r.renderLog(w))
	}
	sections = append(sections, "", nav)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (r monthModel) monthLabel() string {
	first, _, err := dates.MonthRange(r.month)
	if err != nil {
		return r.month
	}
	return first.Format("January 2006")
}

func (r monthModel) renderBreakdown(w int) string {
	if len(r.summary.ByActivity) == 0 {
		return mutedStyle.Render("  No entries this month")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-34s %6s %10s %10s", "Activity", "Days", "Minutes", "Km")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", max(0, min(w-6, 64)))))

	for _, a := range r.summary.ByActivity {
		rows = append(rows, fmt.Sprintf("  %-34s %6d %10d %10s",
			catalog.Name(a.ActivityID), a.Count, a.Minutes, fmt.Sprintf("%.1f", a.Km),
		))
	}
	return strings.Join(rows, "\n")
}

const logNoteWidth = 40

// renderLog lists every entry of the month, one row per day.
func (r monthModel) renderLog(w int) string {
	rows := []string{
		titleStyle.Render("Log"),
		mutedStyle.Render(fmt.Sprintf("  %-10s %4s  %-22s %-4s %5s %6s  %s",
			"Date", "Roll", "Activity", "Done", "Min", "Km", "Note")),
		mutedStyle.Render("  " + strings.Repeat("─", max(0, min(w-6, 90)))),
	}
	for _, e := range r.summary.Entries {
		rows = append(rows, logRow(e))
	}
	return strings.Join(rows, "\n")
}

func logRow(e state.DailyEntry) string {
	roll := "-"
	if n, ok := e.Roll(); ok {
		roll = strconv.Itoa(n)
	}
	done := "no"
	if e.Done {
		done = "yes"
	}
	mins := ""
	if e.Minutes != nil {
		mins = strconv.Itoa(*e.Minutes)
	}
	km := ""
	if e.Km != nil {
		km = strconv.FormatFloat(*e.Km, 'f', -1, 64)
	}
	return fmt.Sprintf("  %-10s %4s  %-22s %-4s %5s %6s  %s",
		e.Date, roll, logging.Truncate(catalog.Name(e.ActivityID), 19), done, mins, km,
		logging.Truncate(e.Note, logNoteWidth),
	)
}
