package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cocotape/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLevelSelection(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		verbose   bool
		wantDebug bool
		wantInfo  bool
	}{
		{"default warn", false, false, false, false},
		{"verbose", false, true, false, true},
		{"debug", true, false, true, true},
		{"debug wins", true, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, closeFn, err := New(&buf, config.LoggingConfig{Level: "warn"}, tt.debug, tt.verbose)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer closeFn()

			logger.Debug("dbg")
			logger.Info("inf")
			logger.Warn("wrn")

			out := buf.String()
			if strings.Contains(out, "msg=dbg") != tt.wantDebug {
				t.Errorf("debug output: expected %v in %q", tt.wantDebug, out)
			}
			if strings.Contains(out, "msg=inf") != tt.wantInfo {
				t.Errorf("info output: expected %v in %q", tt.wantInfo, out)
			}
			if !strings.Contains(out, "msg=wrn") {
				t.Errorf("Expected warning in %q", out)
			}
		})
	}
}

func TestFileHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cocotape.log")

	var buf bytes.Buffer
	logger, closeFn, err := New(&buf, config.LoggingConfig{Level: "info", File: path}, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("decoded program", "lines", 3)
	if err := closeFn(); err != nil {
		t.Fatalf("failed to close log file: %v", err)
	}

	if !strings.Contains(buf.String(), "decoded program") {
		t.Errorf("Expected text output, got %q", buf.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log file is not JSON: %v (%q)", err, data)
	}
	if entry["msg"] != "decoded program" {
		t.Errorf("Expected msg 'decoded program', got %v", entry["msg"])
	}
	if entry["lines"] != float64(3) {
		t.Errorf("Expected lines 3, got %v", entry["lines"])
	}
	if run, _ := entry["run"].(string); len(run) != 36 {
		t.Errorf("Expected a run ID, got %v", entry["run"])
	}
	if strings.Contains(buf.String(), "run=") {
		t.Errorf("run ID should only go to the file, got %q", buf.String())
	}
}

func TestBadLevel(t *testing.T) {
	if _, _, err := New(&bytes.Buffer{}, config.LoggingConfig{Level: "loud"}, false, false); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
