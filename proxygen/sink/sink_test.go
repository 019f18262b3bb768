package sink

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/broady/proxykit"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "cache layout", path: "github.com/acme/graph/GraphInterface.ObjectProxy.go"},
		{name: "single file", path: "proxy.go"},
		{name: "dots in segment", path: "a/b..c.go"},
		{name: "empty", path: "", wantErr: "empty"},
		{name: "absolute", path: "/tmp/proxy.go", wantErr: "absolute paths not allowed"},
		{name: "drive letter", path: "C:/proxy.go", wantErr: "absolute paths not allowed"},
		{name: "traversal", path: "a/../../proxy.go", wantErr: "path traversal not allowed"},
		{name: "leading traversal", path: "../proxy.go", wantErr: "path traversal not allowed"},
		{name: "current dir", path: "./proxy.go", wantErr: "not clean"},
		{name: "double slash", path: "a//proxy.go", wantErr: "not clean"},
		{name: "trailing slash", path: "a/", wantErr: "not clean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidatePath(%q) unexpected error: %v", tt.path, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidatePath(%q) error = %v, want containing %q", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestMemorySink(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySink()

	content := []byte("package proxies\n")
	if err := s.WriteFile(ctx, "a/b.go", content); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	content[0] = 'X'

	got, err := s.ReadFile(ctx, "a/b.go")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "package proxies\n" {
		t.Errorf("stored content was modified through the caller's slice: %q", got)
	}

	if err := s.WriteFile(ctx, "empty.go", nil); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if got, err := s.ReadFile(ctx, "empty.go"); err != nil || len(got) != 0 {
		t.Errorf("ReadFile(empty) = %q, %v", got, err)
	}

	if _, err := s.ReadFile(ctx, "missing.go"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
	if s.Get("missing.go") != nil {
		t.Error("expected nil for missing file")
	}
	if len(s.Files()) != 2 {
		t.Errorf("expected 2 files, got %d", len(s.Files()))
	}

	if err := s.WriteFile(ctx, "../escape.go", content); err == nil {
		t.Error("expected invalid path error")
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.WriteFile(canceled, "c.go", content); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFilesystemSink(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewFilesystemSink(root)

	path := "github.com/acme/graph/GraphInterface.ObjectProxy.go"
	if err := s.WriteFile(ctx, path, []byte("v1")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := s.WriteFile(ctx, path, []byte("v2")); err != nil {
		t.Fatalf("WriteFile() overwrite error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("expected v2, got %q", got)
	}

	got, err = s.ReadFile(ctx, path)
	if err != nil || string(got) != "v2" {
		t.Errorf("sink ReadFile() = %q, %v", got, err)
	}

	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(path)))
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("expected mode 0644, got %v", info.Mode().Perm())
	}
}

func TestFilesystemSink_NoOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewFilesystemSink(t.TempDir())
	s.Overwrite = false

	if err := s.WriteFile(ctx, "a.go", []byte("first")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	err := s.WriteFile(ctx, "a.go", []byte("second"))
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected already exists error, got %v", err)
	}

	got, _ := s.ReadFile(ctx, "a.go")
	if string(got) != "first" {
		t.Errorf("expected first, got %q", got)
	}
}

func TestFilesystemSink_Resolve(t *testing.T) {
	root := t.TempDir()
	s := NewFilesystemSink(root)

	got, err := s.Resolve("a/b.go")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	absRoot, _ := filepath.Abs(root)
	if want := filepath.Join(absRoot, "a", "b.go"); got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}

	if _, err := s.Resolve("../b.go"); err == nil {
		t.Error("expected error for path outside root")
	}
}

func TestFilesystemSink_EnsureDir(t *testing.T) {
	root := t.TempDir()
	s := NewFilesystemSink(root)

	dir := filepath.Join(root, "a", "b")
	if err := s.EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	if err := s.EnsureDir(dir); err != nil {
		t.Errorf("EnsureDir() on existing directory error = %v", err)
	}

	blocker := filepath.Join(root, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	err := s.EnsureDir(filepath.Join(blocker, "sub"))
	if !errors.Is(err, proxykit.ErrDirectoryCreation) {
		t.Errorf("expected ErrDirectoryCreation, got %v", err)
	}

	err = s.WriteFile(context.Background(), "file/sub/proxy.go", []byte("x"))
	if !errors.Is(err, proxykit.ErrDirectoryCreation) {
		t.Errorf("expected ErrDirectoryCreation from WriteFile, got %v", err)
	}
}

func TestFilesystemSink_Concurrent(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewFilesystemSink(root)

	const numGoroutines = 50
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	// Every goroutine writes the same file, like processes generating the same proxy.
	want := strings.Repeat("package proxies\n", 512)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			if err := s.WriteFile(ctx, "dir/Same.ObjectProxy.go", []byte(want)); err != nil {
				t.Errorf("WriteFile() error = %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := os.ReadFile(filepath.Join(root, "dir", "Same.ObjectProxy.go"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != want {
		t.Error("concurrent writes interleaved")
	}

	entries, err := os.ReadDir(filepath.Join(root, "dir"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".proxygen-") {
			t.Errorf("found temp file after concurrent writes: %s", entry.Name())
		}
	}
}

func TestFilesystemSink_Canceled(t *testing.T) {
	root := t.TempDir()
	s := NewFilesystemSink(root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.WriteFile(ctx, "a.go", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "a.go")); !os.IsNotExist(err) {
		t.Error("expected no file after canceled write")
	}
}
