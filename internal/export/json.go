package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/rollday/internal/state"
)

// DefaultFileName is the name suggested for a document export.
const DefaultFileName = "rollday-export.json"

// FormatError is returned when an import cannot be used. The live state is
// never touched when it is returned.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("import %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("import: %v", e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// EncodeDocument renders st as the portable, pretty-printed document.
func EncodeDocument(st state.AppState) ([]byte, error) {
	if st.EntriesByDate == nil {
		st = state.Empty()
	}
	st.Version = state.Version
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return data, nil
}

// DecodeDocument parses an imported document with the same migrate and
// validate pass used on load. Entries that fail are dropped and listed in
// the report; a document that is unusable as a whole is a *FormatError.
func DecodeDocument(data []byte, now time.Time) (state.AppState, state.Report, error) {
	st, rep, err := state.ParseDocument(data, now)
	if err != nil {
		return state.AppState{}, state.Report{}, &FormatError{Err: err}
	}
	return st, rep, nil
}

func ToJSON(st state.AppState, path string) error {
	data, err := EncodeDocument(st)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

// FromJSONFile reads and decodes a document written by ToJSON.
func FromJSONFile(path string, now time.Time) (state.AppState, state.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return state.AppState{}, state.Report{}, &FormatError{Path: path, Err: err}
	}
	st, rep, err := DecodeDocument(data, now)
	if fe, ok := err.(*FormatError); ok {
		fe.Path = path
	}
	return st, rep, err
}
