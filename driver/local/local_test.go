package local

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gobeaver/docstore"
)

func newAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}
	return a
}

func TestNew(t *testing.T) {
	t.Run("creates missing root", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "a", "b")
		a, err := New(root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.DocumentRoot() != root {
			t.Errorf("DocumentRoot() = %s, want %s", a.DocumentRoot(), root)
		}
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			t.Errorf("expected root directory to exist, err = %v", err)
		}
	})

	t.Run("empty root uses documents directory", func(t *testing.T) {
		docs := filepath.Join(t.TempDir(), "docs")
		t.Setenv("XDG_DOCUMENTS_DIR", docs)

		a, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.DocumentRoot() != docs {
			t.Errorf("DocumentRoot() = %s, want %s", a.DocumentRoot(), docs)
		}
	})
}

func TestDocumentDir(t *testing.T) {
	t.Run("falls back to home", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("XDG_DOCUMENTS_DIR", "")
		t.Setenv("HOME", home)

		dir, err := DocumentDir()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := filepath.Join(home, "Documents"); dir != want {
			t.Errorf("DocumentDir() = %s, want %s", dir, want)
		}
	})
}

func TestWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("writes and replaces file", func(t *testing.T) {
		a := newAdapter(t)
		path := filepath.Join(a.DocumentRoot(), "test.txt")

		if err := a.Write(ctx, path, strings.NewReader("first")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := a.Write(ctx, path, strings.NewReader("second")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := a.ReadAll(ctx, path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "second" {
			t.Errorf("content = %q, want %q", data, "second")
		}
	})

	t.Run("leaves no temporary files", func(t *testing.T) {
		a := newAdapter(t)

		for i := 0; i < 3; i++ {
			if err := a.Write(ctx, "note.txt", strings.NewReader("x")); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		entries, err := os.ReadDir(a.DocumentRoot())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 1 || entries[0].Name() != "note.txt" {
			var names []string
			for _, e := range entries {
				names = append(names, e.Name())
			}
			t.Errorf("directory contains %v, want [note.txt]", names)
		}
	})

	t.Run("does not create parent directories", func(t *testing.T) {
		a := newAdapter(t)

		err := a.Write(ctx, "missing/test.txt", strings.NewReader("x"))
		if !docstore.IsNotExist(err) {
			t.Fatalf("expected not-exist error, got: %v", err)
		}
	})

	t.Run("refuses to replace a directory", func(t *testing.T) {
		a := newAdapter(t)
		if err := a.CreateDir(ctx, "dir"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		err := a.Write(ctx, "dir", strings.NewReader("x"))
		if err == nil {
			t.Fatal("expected error writing over a directory")
		}
	})

	t.Run("applies visibility", func(t *testing.T) {
		a := newAdapter(t)

		if err := a.Write(ctx, "public.txt", strings.NewReader("x"), docstore.WithVisibility(docstore.Public)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := a.Write(ctx, "private.txt", strings.NewReader("x")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		checkMode := func(name string, want os.FileMode) {
			info, err := os.Stat(filepath.Join(a.DocumentRoot(), name))
			if err != nil {
				t.Fatalf("stat %s: %v", name, err)
			}
			if got := info.Mode().Perm(); got != want {
				t.Errorf("%s mode = %o, want %o", name, got, want)
			}
		}
		checkMode("public.txt", 0644)
		checkMode("private.txt", 0600)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		a := newAdapter(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := a.Write(ctx, "test.txt", strings.NewReader("x")); err != context.Canceled {
			t.Errorf("expected context.Canceled, got: %v", err)
		}
	})
}

func TestReadAll(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		a := newAdapter(t)

		_, err := a.ReadAll(ctx, "nope.txt")
		if !docstore.IsNotExist(err) {
			t.Errorf("expected not-exist error, got: %v", err)
		}
	})
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	if err := a.CreateDir(ctx, "dir"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Write(ctx, "dir/file.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		path     string
		wantFile bool
		wantDir  bool
	}{
		{path: "dir/file.txt", wantFile: true},
		{path: "dir", wantDir: true},
		{path: "missing"},
		{path: "dir/file.txt/child"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			gotFile, err := a.FileExists(ctx, tt.path)
			if err != nil {
				t.Fatalf("FileExists error: %v", err)
			}
			gotDir, err := a.DirExists(ctx, tt.path)
			if err != nil {
				t.Fatalf("DirExists error: %v", err)
			}
			if gotFile != tt.wantFile || gotDir != tt.wantDir {
				t.Errorf("file=%v dir=%v, want file=%v dir=%v", gotFile, gotDir, tt.wantFile, tt.wantDir)
			}
		})
	}
}

func TestCreateDir(t *testing.T) {
	ctx := context.Background()

	t.Run("is idempotent", func(t *testing.T) {
		a := newAdapter(t)

		for i := 0; i < 2; i++ {
			if err := a.CreateDir(ctx, "Folder/SubFolder"); err != nil {
				t.Fatalf("attempt %d: unexpected error: %v", i, err)
			}
		}
	})

	t.Run("fails when a file is in the way", func(t *testing.T) {
		a := newAdapter(t)
		if err := a.Write(ctx, "blocker", strings.NewReader("x")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := a.CreateDir(ctx, "blocker/child"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes file", func(t *testing.T) {
		a := newAdapter(t)
		if err := a.Write(ctx, "test.txt", strings.NewReader("x")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := a.Delete(ctx, "test.txt"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if exists, _ := a.FileExists(ctx, "test.txt"); exists {
			t.Error("expected file to be gone")
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		a := newAdapter(t)

		if err := a.Delete(ctx, "test.txt"); !docstore.IsNotExist(err) {
			t.Errorf("expected not-exist error, got: %v", err)
		}
	})

	t.Run("refuses directories", func(t *testing.T) {
		a := newAdapter(t)
		if err := a.CreateDir(ctx, "dir"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := a.Delete(ctx, "dir"); err == nil {
			t.Error("expected error deleting a directory")
		}
	})
}

func TestChecksum(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)
	content := []byte("hello world")

	if err := a.Write(ctx, "hello.txt", bytes.NewReader(content)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := a.Checksum(ctx, "hello.txt", docstore.ChecksumSHA256)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := docstore.CalculateChecksum(bytes.NewReader(content), docstore.ChecksumSHA256)
	if got != want {
		t.Errorf("checksum = %s, want %s", got, want)
	}

	if _, err := a.Checksum(ctx, "missing.txt", docstore.ChecksumSHA256); !docstore.IsNotExist(err) {
		t.Errorf("expected not-exist error, got: %v", err)
	}
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newAdapter(t)
	if err := a.CreateDir(ctx, "notes"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token, err := a.Watch(ctx, "notes/*.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !token.ActiveChangeCallbacks() {
		t.Error("expected active callbacks")
	}

	fired := make(chan struct{})
	token.RegisterChangeCallback(func() { close(fired) })

	if err := a.Write(ctx, "notes/a.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Write(ctx, "notes/a.json", strings.NewReader("{}")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
	if !token.HasChanged() {
		t.Error("expected token to report a change")
	}
}

func TestWatchNewDirectories(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		prepare []string
		write   string
	}{
		{
			name:    "missing base",
			pattern: "notes/*.json",
			write:   "notes/a.json",
		},
		{
			name:    "missing base with globstar",
			pattern: "notes/**/*.json",
			write:   "notes/a/b/c.json",
		},
		{
			name:    "subdirectory created after watch",
			pattern: "notes/**/*.json",
			prepare: []string{"notes"},
			write:   "notes/a/b.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			a := newAdapter(t)
			for _, dir := range tt.prepare {
				if err := a.CreateDir(ctx, dir); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}

			token, err := a.Watch(ctx, tt.pattern)
			if err != nil {
				t.Fatalf("Watch() error = %v", err)
			}
			fired := make(chan struct{})
			token.RegisterChangeCallback(func() { close(fired) })

			if err := a.CreateDir(ctx, filepath.Dir(tt.write)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := a.Write(ctx, tt.write, strings.NewReader("{}")); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			select {
			case <-fired:
			case <-time.After(5 * time.Second):
				t.Fatalf("timed out waiting for %s", tt.write)
			}
		})
	}
}

func TestWatchTreeCovers(t *testing.T) {
	tests := []struct {
		name string
		deep bool
		dir  string
		want bool
	}{
		{name: "ancestor", dir: "/docs", want: true},
		{name: "base", dir: "/docs/notes", want: true},
		{name: "below shallow base", dir: "/docs/notes/a", want: false},
		{name: "below deep base", deep: true, dir: "/docs/notes/a/b", want: true},
		{name: "sibling", deep: true, dir: "/docs/other", want: false},
		{name: "shared prefix", deep: true, dir: "/docs/notes2", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := &watchTree{base: filepath.FromSlash("/docs/notes"), deep: tt.deep}
			if got := tree.covers(filepath.FromSlash(tt.dir)); got != tt.want {
				t.Errorf("covers(%s) = %v, want %v", tt.dir, got, tt.want)
			}
		})
	}
}

func TestWatchBase(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{pattern: "/docs/notes/*.json", want: "/docs/notes"},
		{pattern: "/docs/**/*.json", want: "/docs"},
		{pattern: "/docs/notes/a.json", want: "/docs/notes"},
		{pattern: "/*.json", want: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			if got := watchBase(tt.pattern); got != tt.want {
				t.Errorf("watchBase(%q) = %q, want %q", tt.pattern, got, tt.want)
			}
		})
	}
}
