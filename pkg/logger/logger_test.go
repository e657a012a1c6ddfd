package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil after initialization")
	}
}

// Basic logging test (slog-backed; no Sugar)
func TestLoggerBasic(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil")
	}

	ctx := context.Background()
	logger.Info(ctx, "test message", String("k", "v"), Int64("post_id", 42))
}

func TestLoggerNamed(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	namedLogger := Named("test")
	if namedLogger == nil {
		t.Fatal("named logger is nil")
	}

	ctx := context.Background()
	namedLogger.Info(ctx, "test message")
}

func TestLoggerFanout(t *testing.T) {
	var console, file bytes.Buffer
	if err := SetLevelString("info"); err != nil {
		t.Fatalf("set level: %v", err)
	}

	l := New(&console, &file)
	l.Warn(context.Background(), "geocode skipped", String("query", "100 Main St"), Error(errors.New("timeout")))

	if !strings.Contains(console.String(), "geocode skipped") {
		t.Errorf("console output missing message: %q", console.String())
	}

	var line map[string]any
	if err := json.Unmarshal(file.Bytes(), &line); err != nil {
		t.Fatalf("file output is not JSON: %v (%q)", err, file.String())
	}
	if line["msg"] != "geocode skipped" {
		t.Errorf("expected msg field, got %v", line["msg"])
	}
	if line["query"] != "100 Main St" {
		t.Errorf("expected query field, got %v", line["query"])
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var console bytes.Buffer
	if err := SetLevelString("warn"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	defer func() { _ = SetLevelString("info") }()

	l := New(&console, nil)
	l.Info(context.Background(), "hidden")
	l.Error(context.Background(), "shown")

	if strings.Contains(console.String(), "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(console.String(), "shown") {
		t.Error("error message should pass warn level")
	}
}

func TestInitWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventdex.log")
	if err := InitWithFile(path); err != nil {
		t.Fatalf("init with file: %v", err)
	}
	Get().Info(context.Background(), "written to file")
	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), "written to file") {
		t.Errorf("log file missing message: %q", string(b))
	}
}

func TestSetLevelStringRejectsUnknown(t *testing.T) {
	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
	_ = SetLevelString("info")
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info(context.Background(), "discarded")
	if l.Named("x") == nil {
		t.Error("named nop logger is nil")
	}
}
