package tui

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/rollday/internal/catalog"
	"github.com/sadopc/rollday/internal/dates"
	"github.com/sadopc/rollday/internal/state"
	"github.com/sadopc/rollday/internal/stats"
)

type todayModel struct {
	clock  dates.Clock
	roll   func() int
	width  int
	height int

	date   string
	entry  *state.DailyEntry // nil until the day has an entry
	streak int

	quickAddMinutes int
	timerMinutes    int
	timer           timerModel

	formActive bool
	form       *huh.Form
	formType   string // "manual", "edit"

	// Form field pointers (survive value copies)
	formActivity *string
	formMinutes  *string
	formKm       *string
	formNote     *string
	formDone     *bool
}

// openManualFormMsg opens the activity picker once a confirm is accepted.
type openManualFormMsg struct{}

func newTodayModel(clock dates.Clock, roll func() int) todayModel {
	activity, minutes, km, note, done := "", "", "", "", false
	return todayModel{
		clock:           clock,
		roll:            roll,
		date:            dates.Today(clock),
		quickAddMinutes: 5,
		timerMinutes:    10,
		timer:           newTimerModel(clock),
		formActivity:    &activity,
		formMinutes:     &minutes,
		formKm:          &km,
		formNote:        &note,
		formDone:        &done,
	}
}

func (d *todayModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d *todayModel) setState(st state.AppState, date string) {
	d.date = date
	d.entry = nil
	if e, ok := st.Entry(date); ok {
		d.entry = &e
	}
	d.streak = stats.Streak(st.EntriesByDate, date)
}

func (d *todayModel) setPreferences(quickAddMinutes, timerMinutes int) {
	d.quickAddMinutes = quickAddMinutes
	d.timerMinutes = timerMinutes
}

func (d todayModel) isRunning() bool { return d.timer.running() }
func (d todayModel) isPaused() bool  { return d.timer.paused() }
func (d todayModel) remaining() time.Duration {
	return d.timer.currentRemaining()
}

func (d todayModel) update(msg tea.Msg) (todayModel, tea.Cmd) {
	if d.formActive && d.form != nil {
		return d.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tickMsg:
		if d.timer.tick() {
			return d, status("Time's up! \a")
		}
		return d, nil

	case openManualFormMsg:
		return d.showManualForm()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Roll):
			return d, d.rollCmd()

		case key.Matches(msg, keys.Manual):
			if d.entry != nil && d.entry.Source() == state.SourceRoll {
				return d, confirm(
					"This replaces today's activity and data. Continue?",
					func() tea.Msg { return openManualFormMsg{} },
				)
			}
			return d.showManualForm()

		case key.Matches(msg, keys.Done):
			if d.entry == nil {
				return d, statusErr("Roll or pick an activity first")
			}
			text := "Marked done. Nice work!"
			if d.entry.Done {
				text = "Marked not done"
			}
			date, clock := d.date, d.clock
			return d, edit(text, func(st state.AppState) state.AppState {
				return state.Update(st, date, clock, func(e *state.DailyEntry) { e.Done = !e.Done })
			})

		case key.Matches(msg, keys.Edit):
			if d.entry == nil {
				return d, statusErr("Roll or pick an activity first")
			}
			return d.showEditForm()

		case key.Matches(msg, keys.QuickAdd):
			if d.entry == nil {
				return d, statusErr("Roll or pick an activity first")
			}
			date, clock, n := d.date, d.clock, d.quickAddMinutes
			return d, edit(fmt.Sprintf("+%d min", n), func(st state.AppState) state.AppState {
				return state.AddMinutes(st, date, n, clock)
			})

		case key.Matches(msg, keys.Clear):
			if d.entry == nil {
				return d, nil
			}
			date := d.date
			return d, confirm(
				"Clear today's entry? Its minutes, km and note are lost.",
				edit("Cleared today", func(st state.AppState) state.AppState {
					return state.Remove(st, date)
				}),
			)

		case key.Matches(msg, keys.Timer):
			if !d.timer.running() {
				d.timer.start(time.Duration(d.timerMinutes) * time.Minute)
				return d, status(fmt.Sprintf("Timer started: %d min", d.timerMinutes))
			}
			d.timer.toggle()
			return d, nil

		case key.Matches(msg, keys.StopTimer):
			if !d.timer.running() && !d.timer.finished() {
				return d, nil
			}
			d.timer.stop()
			return d, status("Timer stopped")
		}
	}
	return d, nil
}

// rollCmd draws a number now and records it, asking first when the day
// already has an entry.
func (d todayModel) rollCmd() tea.Cmd {
	date, clock := d.date, d.clock
	n := d.roll()
	a := catalog.ForRoll(n)
	cmd := edit(fmt.Sprintf("Rolled %d: %s", n, a.Name), func(st state.AppState) state.AppState {
		return state.RollFor(st, date, n, clock)
	})
	if d.entry != nil {
		return confirm("Replace today's activity and data with a new roll?", cmd)
	}
	return cmd
}

func (d todayModel) showManualForm() (todayModel, tea.Cmd) {
	all := catalog.All()
	*d.formActivity = all[0].ID
	if d.entry != nil {
		if _, ok := catalog.ByID(d.entry.ActivityID); ok {
			*d.formActivity = d.entry.ActivityID
		}
	}
	d.formType = "manual"

	options := make([]huh.Option[string], len(all))
	for i, a := range all {
		options[i] = huh.NewOption(fmt.Sprintf("%2d. %s", i+1, a.Name), a.ID)
	}

	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("What did you do today?").
				Options(options...).
				Height(12).
				Value(d.formActivity),
		),
	).WithShowHelp(true).WithShowErrors(true)

	d.formActive = true
	return d, d.form.Init()
}

func (d todayModel) showEditForm() (todayModel, tea.Cmd) {
	e := d.entry
	*d.formMinutes = ""
	if e.Minutes != nil {
		*d.formMinutes = strconv.Itoa(*e.Minutes)
	}
	*d.formKm = ""
	if e.Km != nil {
		*d.formKm = strconv.FormatFloat(*e.Km, 'f', -1, 64)
	}
	*d.formNote = e.Note
	*d.formDone = e.Done
	d.formType = "edit"

	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title("Done?").Affirmative("Yes").Negative("No").Value(d.formDone),
			huh.NewInput().Title("Minutes (0-999)").Value(d.formMinutes).Validate(validateMinutes),
			huh.NewInput().Title("Kilometres (0-999)").Value(d.formKm).Validate(validateKm),
			huh.NewText().Title("Note").Lines(3).Value(d.formNote),
		),
	).WithShowHelp(true).WithShowErrors(true)

	d.formActive = true
	return d, d.form.Init()
}

func (d todayModel) updateForm(msg tea.Msg) (todayModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			d.formActive = false
			d.form = nil
			return d, nil
		}
	}

	form, cmd := d.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		d.form = f
	}

	if d.form.State == huh.StateCompleted {
		d.formActive = false
		d.form = nil
		switch d.formType {
		case "manual":
			return d, d.manualCmd(*d.formActivity)
		case "edit":
			return d, d.saveEditCmd()
		}
	}

	return d, cmd
}

func (d todayModel) manualCmd(activityID string) tea.Cmd {
	date, clock := d.date, d.clock
	return edit("Picked "+catalog.Name(activityID), func(st state.AppState) state.AppState {
		return state.ChangeManualActivity(st, date, activityID, clock)
	})
}

func (d todayModel) saveEditCmd() tea.Cmd {
	date, clock := d.date, d.clock
	minutes := parseMinutes(*d.formMinutes)
	km := parseKm(*d.formKm)
	note := strings.TrimSpace(*d.formNote)
	done := *d.formDone
	return edit("Saved today's entry", func(st state.AppState) state.AppState {
		return state.Update(st, date, clock, func(e *state.DailyEntry) {
			e.Done = done
			e.Minutes = minutes
			e.Km = km
			e.Note = note
		})
	})
}

func validateMinutes(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err != nil || n < 0 {
		return errors.New("enter whole minutes, or leave empty")
	}
	return nil
}

func parseMinutes(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

func validateKm(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if parseKm(s) == nil {
		return errors.New("enter a distance like 1.5, or leave empty")
	}
	return nil
}

// parseKm accepts a decimal comma as well as a point.
func parseKm(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) {
		return nil
	}
	return &v
}

func (d todayModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}

	w := d.width - 4

	if d.formActive && d.form != nil {
		title := titleStyle.Render("Pick an activity")
		if d.formType == "edit" {
			title = titleStyle.Render("Edit " + d.date)
		}
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", d.form.View()),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		d.renderActivityPanel(w),
		d.renderEntryPanel(w),
		d.renderTimerPanel(w),
	)
}

func (d todayModel) renderActivityPanel(w int) string {
	header := fmt.Sprintf("%s  %s", titleStyle.Render("Today"), mutedStyle.Render(d.date))
	streak := accentStyle.Render(fmt.Sprintf("Streak: %d day%s", d.streak, plural(d.streak)))

	if d.entry == nil {
		content := lipgloss.JoinVertical(lipgloss.Center,
			header,
			"",
			dieStyle.Render(" ? "),
			"",
			mutedStyle.Render("Press r to roll the die or m to pick an activity"),
			streak,
		)
		return panelStyle.Width(w).Render(content)
	}

	face := "✎"
	origin := "picked by hand"
	if n, ok := d.entry.Roll(); ok {
		face = strconv.Itoa(n)
		origin = fmt.Sprintf("rolled a %d", n)
	}

	name := catalog.Name(d.entry.ActivityID)
	desc := ""
	if a, ok := catalog.ByID(d.entry.ActivityID); ok {
		desc = a.Description
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		header,
		"",
		dieStyle.Render(fmt.Sprintf("%3s", face)),
		"",
		highlightStyle.Bold(true).Render(name),
		subtitleStyle.Width(w-6).Align(lipgloss.Center).Render(desc),
		mutedStyle.Render(origin),
		streak,
	)
	return activePanelStyle.Width(w).Render(content)
}

func (d todayModel) renderEntryPanel(w int) string {
	if d.entry == nil {
		return ""
	}
	e := d.entry

	done := mutedStyle.Render("○  not done yet")
	if e.Done {
		done = successStyle.Render("✓  done")
	}

	minutes := mutedStyle.Render("-")
	if e.Minutes != nil {
		minutes = formatMinutes(*e.Minutes)
	}
	km := mutedStyle.Render("-")
	if e.Km != nil {
		km = formatKm(*e.Km)
	}

	rows := []string{
		titleStyle.Render("Log"),
		"  " + done,
		fmt.Sprintf("  %-10s %s", "Minutes", minutes),
		fmt.Sprintf("  %-10s %s", "Distance", km),
	}
	if e.Note != "" {
		rows = append(rows, fmt.Sprintf("  %-10s %s", "Note", e.Note))
	}
	if e.Done {
		rows = append(rows, "", successStyle.Render("  You did something for your health today. Well done!"))
	}
	rows = append(rows, "", mutedStyle.Render(fmt.Sprintf("  space: done  e: edit  +: add %d min  d: clear", d.quickAddMinutes)))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d todayModel) renderTimerPanel(w int) string {
	var display, indicator string

	switch {
	case d.timer.paused():
		display = timerPausedStyle.Width(w - 6).Render(formatClock(d.timer.currentRemaining()))
		indicator = warningStyle.Render("⏸  PAUSED")
	case d.timer.running():
		display = timerRunningStyle.Width(w - 6).Render(formatClock(d.timer.currentRemaining()))
		indicator = successStyle.Render("●  RUNNING")
	case d.timer.finished():
		display = timerStyle.Width(w - 6).Render("00:00")
		indicator = accentStyle.Bold(true).Render("Time's up!")
	default:
		display = timerStyle.Width(w - 6).Render(formatClock(time.Duration(d.timerMinutes) * time.Minute))
		indicator = mutedStyle.Render(fmt.Sprintf("Press t for a %d minute timer", d.timerMinutes))
	}

	content := lipgloss.JoinVertical(lipgloss.Center, display, indicator)
	if d.timer.running() {
		return activePanelStyle.Width(w).Render(content)
	}
	return panelStyle.Width(w).Render(content)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
