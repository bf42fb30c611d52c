package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewRejectsMissingRoot(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("missing root should error")
	}
}

func TestNewRejectsFileRoot(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(f); err == nil {
		t.Error("file root should error")
	}
}

func TestRelevant(t *testing.T) {
	w, err := New(t.TempDir(), WithExtensions([]string{".py", ".js"}))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"allowed extension", filepath.Join(w.root, "a.py"), true},
		{"case-insensitive extension", filepath.Join(w.root, "b.PY"), true},
		{"filtered extension", filepath.Join(w.root, "c.txt"), false},
		{"hidden file", filepath.Join(w.root, ".hidden.py"), false},
		{"outside root", "/elsewhere/d.py", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, got := w.relevant(tt.path); got != tt.want {
				t.Errorf("relevant(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestSkipDir(t *testing.T) {
	w, err := New(t.TempDir(), WithExclude([]string{"node_modules"}))
	if err != nil {
		t.Fatal(err)
	}

	if !w.skipDir(filepath.Join(w.root, ".git")) {
		t.Error("hidden directory should be skipped")
	}
	if !w.skipDir(filepath.Join(w.root, "node_modules")) {
		t.Error("excluded directory should be skipped")
	}
	if w.skipDir(filepath.Join(w.root, "src")) {
		t.Error("plain directory should not be skipped")
	}
}

func TestRunDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, WithDebounce(100*time.Millisecond), WithExtensions([]string{".py"}))
	if err != nil {
		t.Fatal(err)
	}

	batches := make(chan []string, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(ctx context.Context, paths []string) {
			batches <- paths
		})
	}()

	// Give the watch loop time to register the tree.
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "a.py"), []byte("x = 1"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.py"), []byte("y = 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("z"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-batches:
		if len(paths) != 2 || paths[0] != "a.py" || paths[1] != "b.py" {
			t.Errorf("batch = %v, want [a.py b.py]", paths)
		}
	case <-ctx.Done():
		t.Fatal("no batch before timeout")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}
