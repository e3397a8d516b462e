package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sadopc/rollday/internal/dates"
	"github.com/sadopc/rollday/internal/state"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testNow = time.Date(2024, time.June, 3, 8, 0, 0, 0, time.UTC)

func newTestGateway(t *testing.T, blobs BlobStore) (*Gateway, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewGateway(blobs, dates.FixedClock(testNow), log.New(&buf)), &buf
}

// memBlobs is an in-memory BlobStore that can be told to fail.
type memBlobs struct {
	docs     map[string][]byte
	readErr  error
	writeErr error
	writes   int
}

func newMemBlobs() *memBlobs { return &memBlobs{docs: map[string][]byte{}} }

func (m *memBlobs) ReadDocument(key string) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.docs[key], nil
}

func (m *memBlobs) WriteDocument(key string, body []byte) error {
	m.writes++
	if m.writeErr != nil {
		return m.writeErr
	}
	m.docs[key] = append([]byte(nil), body...)
	return nil
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/rollday.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.WriteDocument(DocumentKey, []byte(`{"version":1}`)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen: data survives and migration does not run again.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	body, err := s2.ReadDocument(DocumentKey)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `{"version":1}` {
		t.Fatalf("body = %q after reopen", body)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Documents
// ============================================================

func TestReadDocumentMissing(t *testing.T) {
	s := newTestStore(t)
	body, err := s.ReadDocument("nope")
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		t.Fatalf("expected nil body, got %q", body)
	}
}

func TestWriteAndReadDocument(t *testing.T) {
	s := newTestStore(t)
	if err := s.WriteDocument("k", []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteDocument("k", []byte("two")); err != nil {
		t.Fatal(err)
	}
	body, err := s.ReadDocument("k")
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "two" {
		t.Fatalf("body = %q, want %q", body, "two")
	}
}

func TestQuarantine(t *testing.T) {
	s := newTestStore(t)
	s.Quarantine("k", []byte("first"), "unparsable")
	s.Quarantine("k", []byte("second"), "unsupported version 2")

	all, err := s.ListQuarantined(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 quarantined, got %d", len(all))
	}
	if string(all[0].Body) != "second" || all[0].Reason != "unsupported version 2" {
		t.Fatalf("expected newest first, got %+v", all[0])
	}

	one, _ := s.ListQuarantined(1)
	if len(one) != 1 {
		t.Fatalf("limit ignored: got %d", len(one))
	}
}

func TestQuarantineSkipsRepeatedBody(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 3; i++ {
		if err := s.Quarantine("k", []byte("same"), "unparsable"); err != nil {
			t.Fatal(err)
		}
	}
	// Another key with the same body is still kept.
	s.Quarantine("other", []byte("same"), "unparsable")

	all, _ := s.ListQuarantined(0)
	if len(all) != 2 {
		t.Fatalf("expected 2 quarantined, got %d", len(all))
	}

	// A changed body is kept, and going back to the old one is kept again.
	s.Quarantine("k", []byte("changed"), "unparsable")
	s.Quarantine("k", []byte("same"), "unparsable")
	all, _ = s.ListQuarantined(0)
	if len(all) != 4 {
		t.Fatalf("expected 4 quarantined, got %d", len(all))
	}
}

func TestGetQuarantined(t *testing.T) {
	s := newTestStore(t)
	q, err := s.GetQuarantined(1)
	if err != nil || q != nil {
		t.Fatalf("missing row = %v, %v", q, err)
	}

	s.Quarantine("k", []byte("body"), "unparsable")
	all, _ := s.ListQuarantined(0)
	q, err = s.GetQuarantined(all[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if q.Key != "k" || string(q.Body) != "body" || q.Reason != "unparsable" {
		t.Fatalf("unexpected row: %+v", q)
	}
	if q.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsDefaults(t *testing.T) {
	s := newTestStore(t)

	defaults := map[string]string{
		SettingTimerMinutes:    "10",
		SettingQuickAddMinutes: "5",
		SettingExportDir:       "",
	}

	for k, expected := range defaults {
		val, err := s.GetSetting(k)
		if err != nil {
			t.Fatalf("GetSetting(%q): %v", k, err)
		}
		if val != expected {
			t.Fatalf("GetSetting(%q) = %q, want %q", k, val, expected)
		}
	}
}

func TestSetSettingOverwrite(t *testing.T) {
	s := newTestStore(t)

	s.SetSetting(SettingTimerMinutes, "15")
	s.SetSetting(SettingTimerMinutes, "20")
	val, _ := s.GetSetting(SettingTimerMinutes)
	if val != "20" {
		t.Fatalf("expected 20, got %s", val)
	}
}

func TestGetSettingNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSetting("nonexistent")
	if err == nil {
		t.Fatal("expected error for missing setting")
	}
}

func TestGetAllSettings(t *testing.T) {
	s := newTestStore(t)
	all, err := s.GetAllSettings()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 default settings, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Key >= all[i].Key {
			t.Fatalf("settings not sorted: %s >= %s", all[i-1].Key, all[i].Key)
		}
	}
}

func TestGetIntSetting(t *testing.T) {
	s := newTestStore(t)

	if got := s.GetIntSetting(SettingTimerMinutes, 1); got != 10 {
		t.Fatalf("timer_minutes = %d, want 10", got)
	}
	if got := s.GetIntSetting("missing", 7); got != 7 {
		t.Fatalf("missing key = %d, want 7", got)
	}
	s.SetSetting(SettingQuickAddMinutes, "abc")
	if got := s.GetIntSetting(SettingQuickAddMinutes, 5); got != 5 {
		t.Fatalf("non-numeric = %d, want 5", got)
	}
	s.SetSetting(SettingQuickAddMinutes, "-3")
	if got := s.GetIntSetting(SettingQuickAddMinutes, 5); got != 5 {
		t.Fatalf("negative = %d, want 5", got)
	}
}

// ============================================================
// Gateway
// ============================================================

func TestGatewayLoadEmptyStore(t *testing.T) {
	g, _ := newTestGateway(t, newTestStore(t))
	st, rep := g.Load()
	if st.Version != state.Version || st.Len() != 0 {
		t.Fatalf("expected empty state, got %+v", st)
	}
	if len(rep.Dropped) != 0 || len(rep.Migrated) != 0 {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestGatewaySaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	g, _ := newTestGateway(t, s)
	clock := dates.FixedClock(testNow)

	st := state.RollFor(state.Empty(), "2024-06-03", 7, clock)
	st = state.Update(st, "2024-06-03", clock, func(e *state.DailyEntry) {
		m := 25
		e.Minutes = &m
		e.Note = "felt good"
	})
	st = state.ManualFor(st, "2024-06-02", "stairs", clock)
	if err := g.Save(st); err != nil {
		t.Fatal(err)
	}

	got, rep := g.Load()
	if len(rep.Dropped) != 0 || rep.NeedsRewrite() {
		t.Fatalf("unexpected report %+v", rep)
	}
	if got.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", got.Len())
	}
	e, _ := got.Entry("2024-06-03")
	if r, ok := e.Roll(); !ok || r != 7 {
		t.Fatalf("roll = %d, %v", r, ok)
	}
	if e.MinutesOr(0) != 25 || e.Note != "felt good" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.UpdatedAt != testNow.UnixMilli() {
		t.Fatalf("updatedAt = %d, want %d", e.UpdatedAt, testNow.UnixMilli())
	}
}

func TestGatewayLoadWrongVersion(t *testing.T) {
	s := newTestStore(t)
	s.WriteDocument(DocumentKey, []byte(`{"version":2,"entriesByDate":{}}`))
	g, buf := newTestGateway(t, s)

	st, _ := g.Load()
	if st.Len() != 0 || st.Version != state.Version {
		t.Fatalf("expected empty state, got %+v", st)
	}
	if !strings.Contains(buf.String(), "corrupt document") {
		t.Fatalf("expected warning in log, got %q", buf.String())
	}

	q, _ := s.ListQuarantined(0)
	if len(q) != 1 || !strings.Contains(string(q[0].Body), `"version":2`) {
		t.Fatalf("expected the bad document to be quarantined, got %+v", q)
	}
}

func TestGatewayLoadQuarantinesOnce(t *testing.T) {
	s := newTestStore(t)
	s.WriteDocument(DocumentKey, []byte("{not json"))
	g, _ := newTestGateway(t, s)

	for i := 0; i < 3; i++ {
		if st, _ := g.Load(); st.Len() != 0 {
			t.Fatalf("load %d: expected empty state, got %d entries", i, st.Len())
		}
	}

	q, _ := s.ListQuarantined(0)
	if len(q) != 1 {
		t.Fatalf("expected 1 quarantined row after 3 loads, got %d", len(q))
	}
}

func TestGatewayLoadUnparsable(t *testing.T) {
	blobs := newMemBlobs()
	blobs.docs[DocumentKey] = []byte("{not json")
	g, _ := newTestGateway(t, blobs)

	st, _ := g.Load()
	if st.Len() != 0 {
		t.Fatalf("expected empty state, got %d entries", st.Len())
	}
	if blobs.writes != 0 {
		t.Fatalf("load of corrupt document should not write, wrote %d", blobs.writes)
	}
}

func TestGatewayLoadDropsCorruptEntry(t *testing.T) {
	blobs := newMemBlobs()
	blobs.docs[DocumentKey] = []byte(`{"version":1,"entriesByDate":{
		"2024-06-01":{"date":"2024-06-01","activityId":"stairs","source":"manual","done":true,"updatedAt":1},
		"2024-06-02":{"date":"2024-06-02","activityId":"stairs","source":"manual","done":"yes","updatedAt":1}
	}}`)
	g, buf := newTestGateway(t, blobs)

	st, rep := g.Load()
	if st.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", st.Len())
	}
	if _, ok := st.Entry("2024-06-01"); !ok {
		t.Fatal("valid entry missing")
	}
	if len(rep.Dropped) != 1 || rep.Dropped[0] != "2024-06-02" {
		t.Fatalf("dropped = %v", rep.Dropped)
	}
	if !strings.Contains(buf.String(), "2024-06-02") {
		t.Fatalf("expected dropped key in log, got %q", buf.String())
	}
	if blobs.writes != 0 {
		t.Fatalf("dropping alone should not rewrite, wrote %d", blobs.writes)
	}
}

func TestGatewayLoadMigratesAndPersists(t *testing.T) {
	blobs := newMemBlobs()
	blobs.docs[DocumentKey] = []byte(`{"version":1,"entriesByDate":{
		"2024-06-01":{"date":"2024-06-01","roll":3,"activityId":"physio","done":true},
		"2024-06-02":{"date":"2024-06-02","activityId":"stairs","done":false,"updatedAt":5}
	}}`)
	g, _ := newTestGateway(t, blobs)

	st, rep := g.Load()
	if len(rep.Migrated) != 2 {
		t.Fatalf("migrated = %v", rep.Migrated)
	}
	rolled, _ := st.Entry("2024-06-01")
	if rolled.Source() != state.SourceRoll || rolled.UpdatedAt != testNow.UnixMilli() {
		t.Fatalf("unexpected migrated roll entry %+v", rolled)
	}
	manual, _ := st.Entry("2024-06-02")
	if manual.Source() != state.SourceManual || manual.UpdatedAt != 5 {
		t.Fatalf("unexpected migrated manual entry %+v", manual)
	}

	if blobs.writes != 1 {
		t.Fatalf("expected one write-back, got %d", blobs.writes)
	}
	var doc map[string]any
	if err := json.Unmarshal(blobs.docs[DocumentKey], &doc); err != nil {
		t.Fatal(err)
	}
	entry := doc["entriesByDate"].(map[string]any)["2024-06-01"].(map[string]any)
	if entry["source"] != "roll" {
		t.Fatalf("persisted source = %v", entry["source"])
	}

	// A second load finds nothing to migrate.
	_, rep = g.Load()
	if rep.NeedsRewrite() {
		t.Fatalf("second load still migrating: %v", rep.Migrated)
	}
	if blobs.writes != 1 {
		t.Fatalf("expected no further writes, got %d", blobs.writes)
	}
}

func TestGatewayReadFailure(t *testing.T) {
	blobs := newMemBlobs()
	blobs.readErr = errors.New("disk gone")
	g, buf := newTestGateway(t, blobs)

	st, _ := g.Load()
	if st.Len() != 0 {
		t.Fatalf("expected empty state, got %d entries", st.Len())
	}
	if !strings.Contains(buf.String(), "disk gone") {
		t.Fatalf("expected read error in log, got %q", buf.String())
	}
}

func TestGatewaySaveFailure(t *testing.T) {
	blobs := newMemBlobs()
	blobs.writeErr = errors.New("quota exceeded")
	g, buf := newTestGateway(t, blobs)

	st := state.ManualFor(state.Empty(), "2024-06-03", "stairs", dates.FixedClock(testNow))
	err := g.Save(st)
	if err == nil {
		t.Fatal("expected save error")
	}
	if !errors.Is(err, blobs.writeErr) {
		t.Fatalf("expected wrapped write error, got %v", err)
	}
	if !strings.Contains(buf.String(), "write failed") {
		t.Fatalf("expected error in log, got %q", buf.String())
	}
	if st.Len() != 1 {
		t.Fatal("in-memory state must be untouched")
	}
}

func TestGatewayMigrationWithWriteFailure(t *testing.T) {
	blobs := newMemBlobs()
	blobs.docs[DocumentKey] = []byte(`{"version":1,"entriesByDate":{
		"2024-06-01":{"date":"2024-06-01","activityId":"physio","source":"manual","done":true}
	}}`)
	blobs.writeErr = errors.New("read-only")
	g, _ := newTestGateway(t, blobs)

	st, rep := g.Load()
	if st.Len() != 1 || !rep.NeedsRewrite() {
		t.Fatalf("expected migrated state despite failed write-back: %+v %+v", st, rep)
	}
}

func TestGatewaySaveZeroState(t *testing.T) {
	blobs := newMemBlobs()
	g, _ := newTestGateway(t, blobs)
	if err := g.Save(state.AppState{}); err != nil {
		t.Fatal(err)
	}
	want := `{"version":1,"entriesByDate":{}}`
	if got := string(blobs.docs[DocumentKey]); got != want {
		t.Fatalf("body = %s, want %s", got, want)
	}
}
