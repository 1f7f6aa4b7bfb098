package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

const testDebounce = 100 * time.Millisecond

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func startWatcher(t *testing.T, dir string, onChange func(context.Context) error) *Watcher {
	t.Helper()
	w := New(dir, onChange, WithDebounce(testDebounce))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, dir, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	for _, name := range []string{"2021-01-04-001.json", "2021-01-04-002.json", "2021-01-04-003.json"} {
		if err := writeFile(filepath.Join(dir, name), "{}"); err != nil {
			t.Fatal(err)
		}
	}
	if !waitFor(t, func() bool { return calls.Load() >= 1 }) {
		t.Fatal("callback never ran")
	}
	time.Sleep(3 * testDebounce)
	if got := calls.Load(); got != 1 {
		t.Errorf("callback ran %d times for one burst, want 1", got)
	}
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, dir, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	if err := writeFile(filepath.Join(dir, "notes.txt"), "x"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, ".2021-01-04-001.json-123"), "{}"); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(4 * testDebounce)
	if got := calls.Load(); got != 0 {
		t.Errorf("callback ran %d times for unrelated files, want 0", got)
	}
}

func TestWatcher_RemoveTriggersAndErrorsDoNotStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2021-01-04-001.json")
	if err := writeFile(path, "{}"); err != nil {
		t.Fatal(err)
	}
	var calls atomic.Int32
	startWatcher(t, dir, func(context.Context) error {
		calls.Add(1)
		return errors.New("parse failed")
	})

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return calls.Load() == 1 }) {
		t.Fatal("remove did not trigger the callback")
	}
	if err := writeFile(path, "{}"); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return calls.Load() == 2 }) {
		t.Fatalf("watcher stopped after a failed callback; calls = %d", calls.Load())
	}
}

func TestWatcher_StartCreatesMissingDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "raw", "pages")
	startWatcher(t, root, nil)
	if _, err := os.Stat(root); err != nil {
		t.Errorf("directory should exist after Start: %v", err)
	}
}

func TestWatcher_RunReturnsOnCancel(t *testing.T) {
	w := New(t.TempDir(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcher_Relevant(t *testing.T) {
	w := New("/data/raw", nil)
	tests := []struct {
		path string
		want bool
	}{
		{"/data/raw/2021-01-04-001.json", true},
		{"/data/raw/2021-01-04-001.JSON", true},
		{"/data/raw/.2021-01-04-001.json-42", false},
		{"/data/raw/readme.md", false},
		{"/data/raw/sub/2021-01-04-001.json", false},
		{"/data/other/2021-01-04-001.json", false},
	}
	for _, tt := range tests {
		if got := w.relevant(tt.path); got != tt.want {
			t.Errorf("relevant(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.json", []string{".json"}, true},
		{"/a/b.JSON", []string{"json"}, true},
		{"/a/b.md", []string{".json"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}
