// Package cli wires configuration, logging and storage together and
// dispatches rollday's subcommands.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/sadopc/rollday/internal/catalog"
	"github.com/sadopc/rollday/internal/config"
	"github.com/sadopc/rollday/internal/dates"
	"github.com/sadopc/rollday/internal/export"
	"github.com/sadopc/rollday/internal/logging"
	"github.com/sadopc/rollday/internal/state"
	"github.com/sadopc/rollday/internal/stats"
	"github.com/sadopc/rollday/internal/store"
	"github.com/sadopc/rollday/internal/tui"
)

const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Runner carries everything a command touches outside the process, so tests
// can swap the terminal, clock and environment.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Clock  dates.Clock

	// ConfigDir overrides config.Dir().
	ConfigDir string

	// Confirm asks a yes/no question; it defaults to a huh prompt.
	Confirm func(prompt string) (bool, error)

	// Program runs the full-screen app; it defaults to a Bubble Tea program
	// on the alternate screen.
	Program func(m tea.Model) error
}

// Run is the process entry point. It loads ./.env before anything reads the
// environment.
func Run(args []string) int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitFailure
	}
	r := Runner{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Getenv: os.Getenv,
		Clock:  dates.SystemClock{},
	}
	return r.Run(args)
}

// Run dispatches args (without the program name).
func (r Runner) Run(args []string) int {
	r = r.withDefaults()

	cmd := "tui"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "tui":
		return r.runTUI()
	case "export":
		return r.runExport(args)
	case "import":
		return r.runImport(args)
	case "summary":
		return r.runSummary(args)
	case "quarantine":
		return r.runQuarantine(args)
	case "help", "-h", "--help":
		r.printUsage(r.Stdout)
		return ExitSuccess
	default:
		fmt.Fprintf(r.Stderr, "Unknown command: %s\n", cmd)
		r.printUsage(r.Stderr)
		return ExitUsage
	}
}

func (r Runner) withDefaults() Runner {
	if r.Stdout == nil {
		r.Stdout = io.Discard
	}
	if r.Stderr == nil {
		r.Stderr = io.Discard
	}
	if r.Getenv == nil {
		r.Getenv = func(string) string { return "" }
	}
	if r.Clock == nil {
		r.Clock = dates.SystemClock{}
	}
	if r.Confirm == nil {
		r.Confirm = confirmPrompt
	}
	if r.Program == nil {
		r.Program = func(m tea.Model) error {
			_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		}
	}
	return r
}

func (r Runner) printUsage(w io.Writer) {
	fmt.Fprintln(w, `rollday - roll the dice on today's activity

Usage: rollday [command] [options]

Commands:
  tui                          Full-screen tracker (default)
  export [-o file] [-format json|csv] [-month YYYY-MM]
                               Write the document or one month as CSV
  import [-y] <file>           Replace all entries with an exported document
  summary [-month YYYY-MM]     Print the month's totals and the streak
  quarantine [-n N] [-dump ID [-o file]]
                               List or dump documents that failed to load

Environment:
  ROLLDAY_DB                   Database path
  ROLLDAY_LOG_FILE             Log file ("-" for stderr)
  ROLLDAY_LOG_LEVEL            debug, info, warn or error
  ROLLDAY_EXPORT_DIR           Default folder for exports`)
}

// session is the opened runtime: config, logger, store and gateway.
type session struct {
	cfg     config.Config
	logger  *log.Logger
	logs    io.Closer
	store   *store.Store
	gateway *store.Gateway
}

func (r Runner) open() (*session, error) {
	dir := r.ConfigDir
	if dir == "" {
		d, err := config.Dir()
		if err != nil {
			return nil, fmt.Errorf("config dir: %w", err)
		}
		dir = d
	}

	cfg, err := config.Load(dir, r.Getenv)
	if err != nil {
		return nil, err
	}

	logger, logs, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	s, err := store.New(cfg.DBPath)
	if err != nil {
		logs.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	logger.Debug("opened store", "db", cfg.DBPath)

	return &session{
		cfg:     cfg,
		logger:  logger,
		logs:    logs,
		store:   s,
		gateway: store.NewGateway(s, r.Clock, logger),
	}, nil
}

func (s *session) Close() {
	s.store.Close()
	s.logs.Close()
}

func (r Runner) fail(err error) int {
	fmt.Fprintf(r.Stderr, "error: %v\n", err)
	return ExitFailure
}

// newFlags returns a flag set that reports errors instead of exiting.
func (r Runner) newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(r.Stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess, false
		}
		return ExitUsage, false
	}
	return 0, true
}

// --- tui ---

func (r Runner) runTUI() int {
	sess, err := r.open()
	if err != nil {
		return r.fail(err)
	}
	defer sess.Close()

	st, rep := sess.gateway.Load()
	app := tui.NewApp(tui.Options{
		Store:     sess.store,
		Gateway:   sess.gateway,
		Clock:     r.Clock,
		Roll:      catalog.Roll,
		Logger:    sess.logger,
		ExportDir: sess.cfg.ExportDir,
		State:     st,
		Report:    rep,
	})

	sess.logger.Info("starting tui", "entries", st.Len())
	if err := r.Program(app); err != nil {
		return r.fail(err)
	}
	return ExitSuccess
}

// --- export ---

func (r Runner) runExport(args []string) int {
	fs := r.newFlags("export")
	out := fs.String("o", "", `output file ("-" for stdout)`)
	format := fs.String("format", "json", "json or csv")
	month := fs.String("month", "", "month to export as CSV (YYYY-MM, default current)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	*format = strings.ToLower(*format)
	if *format != "json" && *format != "csv" {
		fmt.Fprintf(r.Stderr, "unknown format %q (want json or csv)\n", *format)
		return ExitUsage
	}
	if *month == "" {
		*month = dates.MonthOf(dates.Today(r.Clock))
	}
	if _, err := dates.DaysInMonth(*month); err != nil {
		fmt.Fprintf(r.Stderr, "invalid -month: %v\n", err)
		return ExitUsage
	}

	sess, err := r.open()
	if err != nil {
		return r.fail(err)
	}
	defer sess.Close()

	st, _ := sess.gateway.Load()

	if *format == "json" {
		return r.exportJSON(sess, st, *out)
	}
	return r.exportCSV(sess, st, *month, *out)
}

func (r Runner) exportJSON(sess *session, st state.AppState, out string) int {
	if out == "-" {
		data, err := export.EncodeDocument(st)
		if err != nil {
			return r.fail(err)
		}
		r.Stdout.Write(append(data, '\n'))
		return ExitSuccess
	}
	if out == "" {
		out = filepath.Join(sess.cfg.ExportDir, export.DefaultFileName)
	}
	if err := export.ToJSON(st, out); err != nil {
		return r.fail(err)
	}
	sess.logger.Info("exported", "path", out, "entries", st.Len())
	fmt.Fprintf(r.Stdout, "Exported %d entries to %s\n", st.Len(), out)
	return ExitSuccess
}

func (r Runner) exportCSV(sess *session, st state.AppState, month, out string) int {
	sum, err := stats.Month(st.EntriesByDate, month)
	if err != nil {
		return r.fail(err)
	}
	if out == "-" {
		if err := export.WriteCSV(r.Stdout, sum.Entries); err != nil {
			return r.fail(err)
		}
		return ExitSuccess
	}
	if out == "" {
		out = filepath.Join(sess.cfg.ExportDir, fmt.Sprintf("rollday-%s.csv", month))
	}
	if err := export.ToCSV(sum.Entries, out); err != nil {
		return r.fail(err)
	}
	sess.logger.Info("exported", "path", out, "month", month, "entries", sum.EntryCount)
	fmt.Fprintf(r.Stdout, "Exported %d entries for %s to %s\n", sum.EntryCount, month, out)
	return ExitSuccess
}

// --- import ---

func (r Runner) runImport(args []string) int {
	fs := r.newFlags("import")
	yes := fs.Bool("y", false, "replace without asking")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(r.Stderr, "usage: rollday import [-y] <file>")
		return ExitUsage
	}
	path := fs.Arg(0)

	incoming, rep, err := export.FromJSONFile(path, r.Clock.Now())
	if err != nil {
		return r.fail(err)
	}

	fmt.Fprintf(r.Stdout, "Read %d entries from %s\n", incoming.Len(), path)
	if len(rep.Dropped) > 0 {
		fmt.Fprintf(r.Stdout, "Skipping %d invalid entries: %s\n",
			len(rep.Dropped), strings.Join(rep.Dropped, ", "))
	}
	if len(rep.Migrated) > 0 {
		fmt.Fprintf(r.Stdout, "Upgraded %d older entries\n", len(rep.Migrated))
	}

	sess, err := r.open()
	if err != nil {
		return r.fail(err)
	}
	defer sess.Close()

	current, _ := sess.gateway.Load()
	if !*yes {
		ok, err := r.Confirm(fmt.Sprintf("Replace all %d entries with %d imported?", current.Len(), incoming.Len()))
		if err != nil {
			return r.fail(err)
		}
		if !ok {
			fmt.Fprintln(r.Stdout, "Import cancelled")
			return ExitSuccess
		}
	}

	if err := sess.gateway.Save(incoming); err != nil {
		return r.fail(err)
	}
	for _, date := range rep.Dropped {
		sess.logger.Warn("import skipped entry", "path", path, "date", date)
	}
	sess.logger.Info("imported", "path", path, "entries", incoming.Len(), "replaced", current.Len())
	fmt.Fprintf(r.Stdout, "Imported %d entries\n", incoming.Len())
	return ExitSuccess
}

func confirmPrompt(prompt string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// --- quarantine ---

func (r Runner) runQuarantine(args []string) int {
	fs := r.newFlags("quarantine")
	limit := fs.Int("n", 20, "rows to list (0 for all)")
	dump := fs.Int64("dump", 0, "write the body of the quarantined document with this ID")
	out := fs.String("o", "-", `output file for -dump ("-" for stdout)`)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *limit < 0 || *dump < 0 || fs.NArg() != 0 {
		fmt.Fprintln(r.Stderr, "usage: rollday quarantine [-n N] [-dump ID [-o file]]")
		return ExitUsage
	}

	sess, err := r.open()
	if err != nil {
		return r.fail(err)
	}
	defer sess.Close()

	if *dump > 0 {
		return r.dumpQuarantined(sess, *dump, *out)
	}

	docs, err := sess.store.ListQuarantined(*limit)
	if err != nil {
		return r.fail(err)
	}
	if len(docs) == 0 {
		fmt.Fprintln(r.Stdout, "No quarantined documents")
		return ExitSuccess
	}

	fmt.Fprintln(r.Stdout, headingStyle.Render("Quarantined documents"))
	for _, q := range docs {
		fmt.Fprintf(r.Stdout, "%4d  %s  %-12s %7d bytes  %s\n",
			q.ID, q.CreatedAt.Local().Format("2006-01-02 15:04"), q.Key, len(q.Body), q.Reason)
	}
	fmt.Fprintln(r.Stdout, "Dump one with -dump ID -o file, repair it, then run rollday import file")
	return ExitSuccess
}

func (r Runner) dumpQuarantined(sess *session, id int64, out string) int {
	q, err := sess.store.GetQuarantined(id)
	if err != nil {
		return r.fail(err)
	}
	if q == nil {
		return r.fail(fmt.Errorf("no quarantined document %d", id))
	}

	if out == "-" {
		body := q.Body
		if !strings.HasSuffix(string(body), "\n") {
			body = append(body, '\n')
		}
		r.Stdout.Write(body)
		return ExitSuccess
	}
	if err := os.WriteFile(out, q.Body, 0o644); err != nil {
		return r.fail(fmt.Errorf("write %s: %w", out, err))
	}
	sess.logger.Info("dumped quarantined document", "id", id, "path", out)
	fmt.Fprintf(r.Stdout, "Wrote quarantined document %d to %s\n", id, out)
	return ExitSuccess
}

// --- summary ---

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	labelStyle   = lipgloss.NewStyle().Width(14).Foreground(lipgloss.Color("#9CA3AF"))
	valueStyle   = lipgloss.NewStyle().Bold(true)
	nameStyle    = lipgloss.NewStyle().Width(28)
)

func (r Runner) runSummary(args []string) int {
	fs := r.newFlags("summary")
	month := fs.String("month", "", "month to summarize (YYYY-MM, default current)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	today := dates.Today(r.Clock)
	if *month == "" {
		*month = dates.MonthOf(today)
	}

	sess, err := r.open()
	if err != nil {
		return r.fail(err)
	}
	defer sess.Close()

	st, _ := sess.gateway.Load()
	sum, err := stats.Month(st.EntriesByDate, *month)
	if err != nil {
		fmt.Fprintf(r.Stderr, "invalid -month: %v\n", err)
		return ExitUsage
	}

	fmt.Fprintln(r.Stdout, renderSummary(sum, stats.Streak(st.EntriesByDate, today)))
	return ExitSuccess
}

func renderSummary(sum stats.MonthSummary, streak int) string {
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
	}

	rows := []string{
		headingStyle.Render(monthTitle(sum.Month)),
		row("Days logged", fmt.Sprintf("%d / %d", sum.EntryCount, sum.DaysInMonth)),
		row("Done", fmt.Sprintf("%d", sum.DoneCount)),
		row("Minutes", fmt.Sprintf("%d", sum.TotalMinutes)),
		row("Distance", fmt.Sprintf("%g km", sum.TotalKm)),
		row("Streak", fmt.Sprintf("%d day%s", streak, plural(streak))),
	}

	if len(sum.ByActivity) > 0 {
		rows = append(rows, "", headingStyle.Render("Activities"))
		for _, a := range sum.ByActivity {
			line := nameStyle.Render(catalog.Name(a.ActivityID)) + fmt.Sprintf("%3dx", a.Count)
			if a.Minutes > 0 {
				line += fmt.Sprintf("  %d min", a.Minutes)
			}
			rows = append(rows, line)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func monthTitle(month string) string {
	first, _, err := dates.MonthRange(month)
	if err != nil {
		return month
	}
	return first.Format("January 2006")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
