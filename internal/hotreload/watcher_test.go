package hotreload

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWatcher(t *testing.T) {
	w, err := NewWatcher(nil)
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer w.Stop()

	if w.IsWatching() {
		t.Error("Watcher should not be watching initially")
	}
	if len(w.Paths()) != 0 {
		t.Error("Watcher should start with no paths")
	}
}

func TestWatcher_AddRemove(t *testing.T) {
	w, err := NewWatcher(nil)
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer w.Stop()

	path := writeConfig(t, "config.yaml", "greeting: {}")

	if err := w.Add(path); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if err := w.Add(path); err != nil {
		t.Fatalf("Add() twice should be a no-op, got %v", err)
	}
	if paths := w.Paths(); len(paths) != 1 || paths[0] != path {
		t.Fatalf("Paths() = %v, want [%s]", paths, path)
	}

	if err := w.Remove(path); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if len(w.Paths()) != 0 {
		t.Error("Path still watched after Remove()")
	}
	if err := w.Remove(path); err == nil {
		t.Error("Expected error removing an unwatched path")
	}
}

func TestWatcher_Add_NonExistentPath(t *testing.T) {
	w, err := NewWatcher(nil)
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer w.Stop()

	if err := w.Add(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Expected an error when adding a non-existent path")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	w, err := NewWatcher(nil)
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}

	w.Start()
	w.Start()
	if !w.IsWatching() {
		t.Fatal("Watcher should be watching after Start()")
	}

	w.Stop()
	if w.IsWatching() {
		t.Fatal("Watcher should not be watching after Stop()")
	}
	if _, ok := <-w.Events(); ok {
		t.Error("Events channel should be closed after Stop()")
	}
	w.Stop()
}

func TestWatcher_EventFlow(t *testing.T) {
	w, err := NewWatcher(nil)
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer w.Stop()

	path := writeConfig(t, "config.yaml", "a: 1")
	sibling := filepath.Join(filepath.Dir(path), "other.yaml")

	if err := w.Add(path); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	w.Start()

	// Changes to unwatched files in the same directory are ignored.
	if err := os.WriteFile(sibling, []byte("b: 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("a: 2"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case event := <-w.Events():
		if event.Path != path {
			t.Errorf("Event path = %s, want %s", event.Path, path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for file event")
	}
}

func TestWatcher_RenameReplace(t *testing.T) {
	w, err := NewWatcher(nil)
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer w.Stop()

	path := writeConfig(t, "config.yaml", "a: 1")
	if err := w.Add(path); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	w.Start()

	tmp := filepath.Join(filepath.Dir(path), "config.yaml.new")
	if err := os.WriteFile(tmp, []byte("a: 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case event := <-w.Events():
		if event.Path != path {
			t.Errorf("Event path = %s, want %s", event.Path, path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for rename event")
	}
}

func TestShouldSkipEvent(t *testing.T) {
	tests := []struct {
		path string
		skip bool
	}{
		{"/etc/go-hello/config.yaml", false},
		{"/etc/go-hello/config.json", false},
		{"/etc/go-hello/config.yaml.tmp", true},
		{"/etc/go-hello/.config.yaml.swp", true},
		{"/etc/go-hello/config.yaml.swp", true},
		{"/etc/go-hello/.hidden", true},
		{"/etc/go-hello/~lock", true},
		{"/etc/go-hello/config.yaml~", true},
	}

	for _, tt := range tests {
		if got := shouldSkipEvent(tt.path); got != tt.skip {
			t.Errorf("shouldSkipEvent(%q) = %v, want %v", tt.path, got, tt.skip)
		}
	}
}
