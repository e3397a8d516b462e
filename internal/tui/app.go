package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/sadopc/rollday/internal/catalog"
	"github.com/sadopc/rollday/internal/dates"
	"github.com/sadopc/rollday/internal/export"
	"github.com/sadopc/rollday/internal/logging"
	"github.com/sadopc/rollday/internal/state"
	"github.com/sadopc/rollday/internal/stats"
	"github.com/sadopc/rollday/internal/store"
)

// Options wires the App to everything it does not own. State is the
// document already loaded through Gateway.
type Options struct {
	Store     *store.Store
	Gateway   *store.Gateway
	Clock     dates.Clock
	Roll      func() int
	Logger    *log.Logger
	ExportDir string
	State     state.AppState
	Report    state.Report
}

// App is the root Bubble Tea model and the single owner of the AppState.
type App struct {
	store     *store.Store
	gateway   *store.Gateway
	clock     dates.Clock
	logger    *log.Logger
	exportDir string

	st   state.AppState
	date string

	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	confirming    bool
	confirmForm   *huh.Form
	confirmPrompt string
	confirmYes    *bool
	pendingYes    tea.Cmd

	importing  bool
	importForm *huh.Form
	importPath *string

	today      todayModel
	activities activitiesModel
	month      monthModel
	settings   settingsModel

	help          help.Model
	status        string
	statusIsError bool
}

func NewApp(opts Options) App {
	if opts.Clock == nil {
		opts.Clock = dates.SystemClock{}
	}
	if opts.Roll == nil {
		opts.Roll = catalog.Roll
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Gateway == nil && opts.Store != nil {
		opts.Gateway = store.NewGateway(opts.Store, opts.Clock, opts.Logger)
	}
	if opts.State.EntriesByDate == nil {
		opts.State = state.Empty()
	}

	h := help.New()
	h.ShowAll = false

	date := dates.Today(opts.Clock)
	a := App{
		store:      opts.Store,
		gateway:    opts.Gateway,
		clock:      opts.Clock,
		logger:     opts.Logger.WithPrefix("tui"),
		exportDir:  opts.ExportDir,
		st:         opts.State,
		date:       date,
		activeView: viewToday,
		today:      newTodayModel(opts.Clock, opts.Roll),
		activities: newActivitiesModel(opts.Clock),
		month:      newMonthModel(date),
		settings:   newSettingsModel(opts.Store),
		help:       h,
	}
	a.syncState()
	a.loadPreferences()

	if n := len(opts.Report.Dropped); n > 0 {
		a.status = fmt.Sprintf("Skipped %d damaged entr%s while loading", n, pluralY(n))
		a.statusIsError = true
	}
	return a
}

func (a App) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.today.setSize(a.width, contentHeight)
		a.activities.setSize(a.width, contentHeight)
		a.month.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.confirming {
			return a.updateConfirm(msg)
		}
		if a.importing {
			return a.updateImport(msg)
		}
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Import):
			return a.openImport()
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewToday
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewActivities
			return a, nil
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewMonth
			return a, nil
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}

	case tickMsg:
		cmds = append(cmds, tickCmd())
		if d := dates.Today(a.clock); d != a.date {
			a.date = d
			a.syncState()
		}
		// The countdown runs whichever tab is on screen.
		var cmd tea.Cmd
		a.today, cmd = a.today.update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case statusMsg:
		a.status = msg.text
		a.statusIsError = msg.isError
		return a, nil

	case editMsg:
		return a.applyEdit(msg)

	case confirmRequestMsg:
		return a.openConfirm(msg)

	case settingsSavedMsg:
		a.loadPreferences()
		a.status = "Settings saved"
		a.statusIsError = false
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusIsError = false
		a.exportPicking = false
		return a, nil

	case importLoadedMsg:
		return a.confirmImport(msg)

	case openManualFormMsg:
		a.activeView = viewToday
		var cmd tea.Cmd
		a.today, cmd = a.today.update(msg)
		return a, cmd
	}

	// Overlays own the non-key traffic (cursor blinks, field messages) too.
	if a.confirming {
		return a.updateConfirm(msg)
	}
	if a.importing {
		return a.updateImport(msg)
	}
	return a.updateActiveView(msg)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewToday:
		a.today, cmd = a.today.update(msg)
	case viewActivities:
		a.activities, cmd = a.activities.update(msg)
	case viewMonth:
		a.month, cmd = a.month.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewToday:
		return a.today.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	if a.activeView == viewSettings {
		return a.settings.refresh()
	}
	return nil
}

// syncState pushes the current state to every view that renders it.
func (a *App) syncState() {
	a.today.setState(a.st, a.date)
	a.activities.setState(a.st, a.date)
	a.month.setState(a.st, a.date)
}

func (a *App) loadPreferences() {
	if a.store == nil {
		return
	}
	a.today.setPreferences(
		a.store.GetIntSetting(store.SettingQuickAddMinutes, 5),
		a.store.GetIntSetting(store.SettingTimerMinutes, 10),
	)
}

// applyEdit is the only place the App's state changes. The new state is
// kept even when saving fails; the next successful save catches up.
func (a App) applyEdit(msg editMsg) (tea.Model, tea.Cmd) {
	a.st = msg.apply(a.st)
	a.syncState()

	if a.gateway != nil {
		if err := a.gateway.Save(a.st); err != nil {
			a.status = "Could not save: " + logging.Truncate(err.Error(), 60)
			a.statusIsError = true
			return a, nil
		}
	}
	if msg.status != "" {
		a.status = msg.status
		a.statusIsError = false
	}
	return a, nil
}

// --- Confirm overlay ---

func (a App) openConfirm(msg confirmRequestMsg) (tea.Model, tea.Cmd) {
	yes := false
	a.confirmYes = &yes
	a.confirmPrompt = msg.prompt
	a.pendingYes = msg.onYes
	a.confirmForm = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(msg.prompt).
				Affirmative("Yes").
				Negative("No").
				Value(a.confirmYes),
		),
	).WithShowHelp(false)
	a.confirming = true
	return a, a.confirmForm.Init()
}

func (a App) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		return a.resolveConfirm(false)
	}

	form, cmd := a.confirmForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.confirmForm = f
	}

	switch a.confirmForm.State {
	case huh.StateCompleted:
		return a.resolveConfirm(*a.confirmYes)
	case huh.StateAborted:
		return a.resolveConfirm(false)
	}
	return a, cmd
}

// resolveConfirm closes the prompt and runs the pending command on yes.
func (a App) resolveConfirm(yes bool) (tea.Model, tea.Cmd) {
	cmd := a.pendingYes
	a.confirming = false
	a.confirmForm = nil
	a.pendingYes = nil
	if !yes {
		a.status = "Cancelled"
		a.statusIsError = false
		return a, nil
	}
	return a, cmd
}

// --- Import ---

func (a App) openImport() (tea.Model, tea.Cmd) {
	path := filepath.Join(a.exportDirectory(), export.DefaultFileName)
	a.importPath = &path
	a.importForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Import from file").
				Description("Entries are checked before anything is replaced").
				Value(a.importPath).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("enter a file path")
					}
					return nil
				}),
		),
	).WithShowHelp(true).WithShowErrors(true)
	a.importing = true
	return a, a.importForm.Init()
}

func (a App) updateImport(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		a.importing = false
		a.importForm = nil
		return a, nil
	}

	form, cmd := a.importForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.importForm = f
	}

	switch a.importForm.State {
	case huh.StateCompleted:
		a.importing = false
		a.importForm = nil
		return a, a.loadImport(strings.TrimSpace(*a.importPath))
	case huh.StateAborted:
		a.importing = false
		a.importForm = nil
		return a, nil
	}
	return a, cmd
}

func (a App) loadImport(path string) tea.Cmd {
	clock, logger := a.clock, a.logger
	return func() tea.Msg {
		st, rep, err := export.FromJSONFile(path, clock.Now())
		if err != nil {
			logger.Warn("import rejected", "path", path, "err", err)
			return statusMsg{text: "Import failed: " + logging.Truncate(err.Error(), 80), isError: true}
		}
		for _, date := range rep.Dropped {
			logger.Warn("import skipped entry", "path", path, "date", date)
		}
		return importLoadedMsg{path: path, state: st, report: rep}
	}
}

func (a App) confirmImport(msg importLoadedMsg) (tea.Model, tea.Cmd) {
	prompt := fmt.Sprintf("Replace all %d entries with %d from %s?",
		a.st.Len(), msg.state.Len(), filepath.Base(msg.path))
	if n := len(msg.report.Dropped); n > 0 {
		prompt += fmt.Sprintf(" %d invalid entr%s will be skipped.", n, pluralY(n))
	}

	imported := msg.state
	text := fmt.Sprintf("Imported %d entries", imported.Len())
	a.logger.Info("import ready", "path", msg.path, "entries", imported.Len(), "dropped", len(msg.report.Dropped))
	return a.openConfirm(confirmRequestMsg{
		prompt: prompt,
		onYes: edit(text, func(state.AppState) state.AppState {
			return imported
		}),
	})
}

// --- Export ---

var exportFormats = []string{"JSON document (all entries)", "CSV (month on screen)"}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	st, month, dir, logger := a.st, a.month.month, a.exportDirectory(), a.logger
	return func() tea.Msg {
		var path string
		if format == 0 {
			path = filepath.Join(dir, export.DefaultFileName)
			if err := export.ToJSON(st, path); err != nil {
				logger.Error("export failed", "path", path, "err", err)
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		} else {
			sum, err := stats.Month(st.EntriesByDate, month)
			if err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
			path = filepath.Join(dir, fmt.Sprintf("rollday-%s.csv", month))
			if err := export.ToCSV(sum.Entries, path); err != nil {
				logger.Error("export failed", "path", path, "err", err)
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		}
		logger.Info("exported", "path", path)
		return exportDoneMsg{path: path}
	}
}

// exportDirectory prefers the Settings tab, then the configured folder,
// then the home directory.
func (a App) exportDirectory() string {
	if a.store != nil {
		if v, err := a.store.GetSetting(store.SettingExportDir); err == nil && v != "" {
			return v
		}
	}
	if a.exportDir != "" {
		return a.exportDir
	}
	home, _ := os.UserHomeDir()
	return home
}

// --- Rendering ---

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewToday:
		content = a.today.view()
	case viewActivities:
		content = a.activities.view()
	case viewMonth:
		content = a.month.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	switch {
	case a.confirming:
		content = a.renderOverlay("Please confirm", a.confirmForm.View())
	case a.importing:
		content = a.renderOverlay("Import", a.importForm.View())
	case a.exportPicking:
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("rollday")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusIsError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	timerInfo := ""
	if a.today.isRunning() {
		timerInfo = successStyle.Render(" ● " + formatClock(a.today.remaining()))
		if a.today.isPaused() {
			timerInfo = warningStyle.Render(" ⏸ " + formatClock(a.today.remaining()))
		}
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderOverlay(title, body string) string {
	w := a.width - 4
	return activePanelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", body),
	)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, mutedStyle.Render("  to "+a.exportDirectory()))
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
