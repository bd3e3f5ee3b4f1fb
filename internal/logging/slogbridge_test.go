package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSlogBridgeWritesThroughSink(t *testing.T) {
	dir := t.TempDir()
	prevWD, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(prevWD)

	sink := NewSink(8)
	defer sink.Close()

	fileLogger := NewFileLogger(sink, "bridge_test.log", LevelDebug)
	sl := NewSlogLogger(fileLogger)
	sl.Info("hello", "vfd", 101)

	sink.Close()

	data, err := os.ReadFile(filepath.Join(dir, "log", "bridge_test.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(data))
	if !strings.Contains(line, "[INFO]hello vfd=101") {
		t.Fatalf("unexpected line: %q", line)
	}
}

func TestSlogBridgeRespectsLevelThreshold(t *testing.T) {
	dir := t.TempDir()
	prevWD, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(prevWD)

	sink := NewSink(8)
	fileLogger := NewFileLogger(sink, "bridge_warn.log", LevelWarning)
	sl := NewSlogLogger(fileLogger)
	sl.Debug("should be dropped")
	sl.Info("should also be dropped")
	sl.Warn("should land")
	sink.Close()

	_ = time.Millisecond
	data, err := os.ReadFile(filepath.Join(dir, "log", "bridge_warn.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	s := string(data)
	if strings.Contains(s, "dropped") {
		t.Fatalf("expected debug/info suppressed, got %q", s)
	}
	if !strings.Contains(s, "should land") {
		t.Fatalf("expected warn line present, got %q", s)
	}
}
