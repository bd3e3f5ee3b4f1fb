package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSink_WritesFormattedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.log")

	s := NewSink(4)
	defer s.Close()
	s.Send(path, "[2026-07-29 10:00:00.000000][INFO]hello")

	waitForFile(t, path)
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), "hello") {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestLogger_LevelThresholdFiltersMessages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filtered.log")
	s := NewSink(4)
	defer s.Close()
	l := &Logger{path: path, level: LevelWarning, sink: s}

	l.Debug("should not appear")
	l.Error("should appear")

	waitForFile(t, path)
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(body), "should not appear") {
		t.Fatalf("debug message leaked past Warning threshold: %s", body)
	}
	if !strings.Contains(string(body), "should appear") {
		t.Fatalf("error message missing: %s", body)
	}
}

func TestRollingFile_RollsOnSizeThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "size.log")
	f := newRollingFile(path)
	f.maxSize = 10
	defer f.close()

	if err := f.write("0123456789ABCDEF"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.write("next"); err != nil {
		t.Fatalf("write: %v", err)
	}

	matches, _ := filepath.Glob(path + ".*")
	if len(matches) == 0 {
		t.Fatalf("expected a rolled file alongside %s, found none", path)
	}
}

func TestRollingFile_ParsesLastLineTimestampOnReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reopen.log")
	yesterday := time.Now().AddDate(0, 0, -1).Format(timeLayout)
	if err := os.WriteFile(path, []byte("["+yesterday+"][INFO]old\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	f := newRollingFile(path)
	if err := f.write("[x][INFO]new"); err != nil {
		t.Fatalf("write: %v", err)
	}
	defer f.close()

	matches, _ := filepath.Glob(path + ".*")
	if len(matches) == 0 {
		t.Fatalf("expected roll because last line belonged to a prior day")
	}
}

func waitForFile(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s to be written", path)
}
