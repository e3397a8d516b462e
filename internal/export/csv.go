package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sadopc/rollday/internal/catalog"
	"github.com/sadopc/rollday/internal/state"
)

var csvHeader = []string{"Date", "Activity", "Source", "Roll", "Done", "Minutes", "Duration", "Km", "Note"}

func ToCSV(entries []state.DailyEntry, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	return WriteCSV(f, entries)
}

// WriteCSV writes one row per entry, in the order given.
func WriteCSV(out io.Writer, entries []state.DailyEntry) error {
	w := csv.NewWriter(out)

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, e := range entries {
		roll := ""
		if r, ok := e.Roll(); ok {
			roll = strconv.Itoa(r)
		}
		minutes, dur := "", ""
		if e.Minutes != nil {
			minutes = strconv.Itoa(*e.Minutes)
			dur = formatMinutes(*e.Minutes)
		}
		km := ""
		if e.Km != nil {
			km = strconv.FormatFloat(*e.Km, 'f', -1, 64)
		}

		row := []string{
			e.Date,
			catalog.Name(e.ActivityID),
			string(e.Source()),
			roll,
			strconv.FormatBool(e.Done),
			minutes,
			dur,
			km,
			e.Note,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatMinutes(mins int) string {
	return fmt.Sprintf("%d:%02d", mins/60, mins%60)
}
