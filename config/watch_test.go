package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitUpdate(t *testing.T, w *Watcher, match func(Config) bool) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-w.Updates:
			if match(cfg) {
				return
			}
		case err := <-w.Errors:
			t.Logf("watcher error: %v", err)
		case <-timeout:
			t.Fatal("timed out waiting for a configuration update")
		}
	}
}

func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	if err := os.WriteFile(path, []byte("workers: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	// other files in the directory are ignored
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("workers: 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("workers: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitUpdate(t, w, func(cfg Config) bool {
		if cfg.Workers == 9 {
			t.Fatal("received the configuration of another file")
		}
		return cfg.Workers == 3
	})
}

func TestWatcher_InvalidFileReportsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte("workers: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("workers: -4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-w.Errors:
		if err == nil {
			t.Error("received a nil error")
		}
	case cfg := <-w.Updates:
		t.Errorf("received update %+v for an invalid file", cfg)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for an error")
	}
}

func TestWatcher_CloseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, ok := <-w.Updates; ok {
		t.Error("Updates is still open after Close")
	}
}
