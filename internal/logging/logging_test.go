package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type forwarded struct {
	level  string
	msg    string
	extras map[string]interface{}
}

type fakeReporter struct {
	got []forwarded
}

func (f *fakeReporter) MessageWithExtras(level string, msg string, extras map[string]interface{}) {
	f.got = append(f.got, forwarded{level: level, msg: msg, extras: extras})
}

func TestNew_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "timebank.log")
	logger, closeLog, err := New(Options{Path: path, Level: slog.LevelInfo})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("refreshed", "op", "refresh-user", "user_id", 42)
	if err := closeLog(); err != nil {
		t.Fatalf("close returned error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1:\n%s", len(lines), raw)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if rec["msg"] != "refreshed" || rec["level"] != "INFO" || rec["op"] != "refresh-user" || rec["user_id"] != float64(42) {
		t.Fatalf("record = %v", rec)
	}
}

func TestNew_RequiresPath(t *testing.T) {
	if _, _, err := New(Options{}); err == nil {
		t.Fatalf("New accepted empty path")
	}
}

func TestForwarder_SendsOnlyErrors(t *testing.T) {
	var buf bytes.Buffer
	sink := &fakeReporter{}
	logger := slog.New(NewForwarder(NewHandler(&buf, slog.LevelInfo), sink))

	logger.Info("fine")
	logger.Warn("almost")
	logger.Error("server error", "op", "complete-session", "session_id", int64(7), "error", errors.New("boom"))

	if len(sink.got) != 1 {
		t.Fatalf("forwarded %d records, want 1", len(sink.got))
	}
	want := forwarded{
		level:  "error",
		msg:    "server error",
		extras: map[string]interface{}{"op": "complete-session", "session_id": int64(7), "error": "boom"},
	}
	if diff := cmp.Diff(want, sink.got[0], cmp.AllowUnexported(forwarded{})); diff != "" {
		t.Fatalf("forwarded (-want +got):\n%s", diff)
	}
	if n := strings.Count(buf.String(), "\n"); n != 3 {
		t.Fatalf("file handler wrote %d lines, want 3", n)
	}
}

func TestForwarder_KeepsAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	sink := &fakeReporter{}
	logger := slog.New(NewForwarder(NewHandler(&buf, slog.LevelError), sink)).
		With("component", "coordinator").
		WithGroup("req").
		With("id", "abc")

	logger.Error("failed", slog.Group("check", slog.Int64("user_id", 42)), "status", 500)

	if len(sink.got) != 1 {
		t.Fatalf("forwarded %d records, want 1", len(sink.got))
	}
	want := map[string]interface{}{
		"component":         "coordinator",
		"req.id":            "abc",
		"req.check.user_id": int64(42),
		"req.status":        int64(500),
	}
	if diff := cmp.Diff(want, sink.got[0].extras); diff != "" {
		t.Fatalf("extras (-want +got):\n%s", diff)
	}
}
