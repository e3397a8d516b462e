package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/rollday/internal/catalog"
	"github.com/sadopc/rollday/internal/dates"
	"github.com/sadopc/rollday/internal/state"
	"github.com/sadopc/rollday/internal/stats"
)

// activitiesModel browses the catalog and can set today's activity.
type activitiesModel struct {
	clock  dates.Clock
	width  int
	height int

	activities []catalog.Activity
	cursor     int

	date  string
	entry *state.DailyEntry
	month stats.MonthSummary
}

func newActivitiesModel(clock dates.Clock) activitiesModel {
	return activitiesModel{
		clock:      clock,
		activities: catalog.All(),
	}
}

func (p *activitiesModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

func (p *activitiesModel) setState(st state.AppState, date string) {
	p.date = date
	p.entry = nil
	if e, ok := st.Entry(date); ok {
		p.entry = &e
	}
	if sum, err := stats.Month(st.EntriesByDate, dates.MonthOf(date)); err == nil {
		p.month = sum
	}
}

func (p activitiesModel) update(msg tea.Msg) (activitiesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
		case key.Matches(msg, keys.Down):
			if p.cursor < len(p.activities)-1 {
				p.cursor++
			}
		case key.Matches(msg, keys.Enter):
			if len(p.activities) > 0 {
				return p, p.pickCmd(p.activities[p.cursor])
			}
		}
	}
	return p, nil
}

func (p activitiesModel) pickCmd(a catalog.Activity) tea.Cmd {
	if p.entry != nil && p.entry.ActivityID == a.ID && p.entry.Source() == state.SourceManual {
		return status(a.Name + " is already today's activity")
	}
	date, clock := p.date, p.clock
	cmd := edit("Picked "+a.Name, func(st state.AppState) state.AppState {
		return state.ChangeManualActivity(st, date, a.ID, clock)
	})
	if p.entry != nil && p.entry.Source() == state.SourceRoll {
		return confirm(fmt.Sprintf("Replace today's roll with %s? Today's data is reset.", a.Name), cmd)
	}
	return cmd
}

func (p activitiesModel) view() string {
	w := p.width - 4
	title := titleStyle.Render("Activities")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	header := mutedStyle.Render(fmt.Sprintf("  %-4s %-34s %s", "Die", "Activity", "This month"))
	rows = append(rows, header)

	for i, a := range p.activities {
		cursor := "  "
		style := normalItemStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		marker := " "
		if p.entry != nil && p.entry.ActivityID == a.ID {
			marker = successStyle.Render("●")
		}
		count := ""
		if n := p.month.CountFor(a.ID); n > 0 {
			count = fmt.Sprintf("%d×", n)
		}
		row := style.Render(fmt.Sprintf("%s%-4d %-34s %s", cursor, i+1, a.Name, count))
		rows = append(rows, row+" "+marker)
	}

	if p.cursor < len(p.activities) {
		rows = append(rows, "")
		rows = append(rows, subtitleStyle.Width(max(w-6, 10)).Render(p.activities[p.cursor].Description))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: do this today  ↑/↓: move"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
