package tui

import (
	"fmt"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/rollday/internal/state"
)

// viewState represents the currently active view.
type viewState int

const (
	viewToday viewState = iota
	viewActivities
	viewMonth
	viewSettings
)

var viewNames = []string{"Today", "Activities", "Month", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

// editMsg asks the App to apply a change to the state it owns and persist
// the result. apply always receives the App's current state.
type editMsg struct {
	apply  func(state.AppState) state.AppState
	status string
}

// confirmRequestMsg asks the App to show a yes/no prompt; onYes runs only
// when the user accepts.
type confirmRequestMsg struct {
	prompt string
	onYes  tea.Cmd
}

type exportDoneMsg struct {
	path string
}

type importLoadedMsg struct {
	path   string
	state  state.AppState
	report state.Report
}

type settingsSavedMsg struct{}

// --- Commands ---

func edit(status string, apply func(state.AppState) state.AppState) tea.Cmd {
	return func() tea.Msg { return editMsg{apply: apply, status: status} }
}

func confirm(prompt string, onYes tea.Cmd) tea.Cmd {
	return func() tea.Msg { return confirmRequestMsg{prompt: prompt, onYes: onYes} }
}

func status(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}

func statusErr(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isError: true} }
}

// --- Helpers ---

// formatClock renders a countdown as MM:SS.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}

func formatMinutes(mins int) string {
	if mins < 60 {
		return fmt.Sprintf("%d min", mins)
	}
	return fmt.Sprintf("%dh %02dm", mins/60, mins%60)
}

func formatKm(km float64) string {
	return strconv.FormatFloat(km, 'f', -1, 64) + " km"
}
