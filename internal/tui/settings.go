package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/rollday/internal/store"
)

type settingsModel struct {
	store  *store.Store
	width  int
	height int

	settings   []store.Setting
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	timerMinutes    *string
	quickAddMinutes *string
	exportDir       *string
}

func newSettingsModel(s *store.Store) settingsModel {
	tm, qa, ed := "", "", ""
	return settingsModel{
		store:           s,
		timerMinutes:    &tm,
		quickAddMinutes: &qa,
		exportDir:       &ed,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

func (s settingsModel) refresh() tea.Cmd {
	if s.store == nil {
		return nil
	}
	return func() tea.Msg {
		settings, _ := s.store.GetAllSettings()
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.timerMinutes = s.getVal(store.SettingTimerMinutes, "10")
	*s.quickAddMinutes = s.getVal(store.SettingQuickAddMinutes, "5")
	*s.exportDir = s.getVal(store.SettingExportDir, "")

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Timer length (min)").Value(s.timerMinutes).Validate(validatePositive(180)),
			huh.NewInput().Title("Quick add (min)").Value(s.quickAddMinutes).Validate(validatePositive(999)),
		).Title("Today"),
		huh.NewGroup(
			huh.NewInput().Title("Export folder").
				Description("Leave empty to use the configured default").
				Value(s.exportDir),
		).Title("Export"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		if err := s.saveSettings(); err != nil {
			return s, statusErr(fmt.Sprintf("Settings not saved: %v", err))
		}
		return s, tea.Batch(s.refresh(), func() tea.Msg { return settingsSavedMsg{} })
	}

	return s, cmd
}

func (s settingsModel) saveSettings() error {
	values := []store.Setting{
		{Key: store.SettingTimerMinutes, Value: strings.TrimSpace(*s.timerMinutes)},
		{Key: store.SettingQuickAddMinutes, Value: strings.TrimSpace(*s.quickAddMinutes)},
		{Key: store.SettingExportDir, Value: strings.TrimSpace(*s.exportDir)},
	}
	for _, v := range values {
		if err := s.store.SetSetting(v.Key, v.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s settingsModel) getVal(k, fallback string) string {
	v, err := s.store.GetSetting(k)
	if err != nil {
		return fallback
	}
	return v
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		formView := s.form.View()
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", formView),
		)
	}

	title := titleStyle.Render("Settings")
	hint := mutedStyle.Render("Press enter to edit settings")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for _, setting := range s.settings {
		label := lipgloss.NewStyle().Width(24).Render(settingLabel(setting.Key))
		value := highlightStyle.Render(formatSettingValue(setting.Key, setting.Value))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}

	rows = append(rows, "")
	rows = append(rows, hint)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func settingLabel(k string) string {
	switch k {
	case store.SettingTimerMinutes:
		return "Timer length"
	case store.SettingQuickAddMinutes:
		return "Quick add"
	case store.SettingExportDir:
		return "Export folder"
	}
	return k
}

func formatSettingValue(k, v string) string {
	switch k {
	case store.SettingTimerMinutes, store.SettingQuickAddMinutes:
		if mins, err := strconv.Atoi(v); err == nil {
			return fmt.Sprintf("%d min", mins)
		}
	case store.SettingExportDir:
		if v == "" {
			return "(default)"
		}
	}
	return v
}

func validatePositive(limit int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < 1 || n > limit {
			return fmt.Errorf("enter a whole number from 1 to %d", limit)
		}
		return nil
	}
}
