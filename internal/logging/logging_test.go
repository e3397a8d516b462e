package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "rollday.log")
	logger, closer, err := New(path, "debug")
	if err != nil {
		t.Fatal(err)
	}
	logger.WithPrefix("store").Debug("saved", "entries", 3)
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	for _, want := range []string{"store", "saved", "entries=3"} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line %q missing %q", line, want)
		}
	}
}

func TestNewRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollday.log")
	logger, closer, err := New(path, "warn")
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	closer.Close()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden") {
		t.Fatalf("info line written at warn level: %q", data)
	}
	if !strings.Contains(string(data), "shown") {
		t.Fatalf("warn line missing: %q", data)
	}
}

func TestNewEmptyPathDiscards(t *testing.T) {
	logger, closer, err := New("", "info")
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("nowhere")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"", log.InfoLevel},
		{"debug", log.DebugLevel},
		{" WARN ", log.WarnLevel},
		{"error", log.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, _, err := New("", "loud"); err == nil {
		t.Fatal("New should reject unknown level")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("line one\nline two", 8); got != "line one..." {
		t.Fatalf("got %q", got)
	}
}
