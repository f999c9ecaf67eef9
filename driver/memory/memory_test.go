package memory

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gobeaver/docstore"
)

func TestNew(t *testing.T) {
	t.Run("creates adapter with default config", func(t *testing.T) {
		a := New()
		if a.DocumentRoot() != DefaultRoot {
			t.Errorf("DocumentRoot() = %s, want %s", a.DocumentRoot(), DefaultRoot)
		}
		if a.maxSize != 0 {
			t.Errorf("expected maxSize=0, got %d", a.maxSize)
		}
	})

	t.Run("creates adapter with root and max size", func(t *testing.T) {
		a := New(Config{Root: "var/app/", MaxSize: 1024})
		if a.DocumentRoot() != "/var/app" {
			t.Errorf("DocumentRoot() = %s, want /var/app", a.DocumentRoot())
		}
		if a.maxSize != 1024 {
			t.Errorf("expected maxSize=1024, got %d", a.maxSize)
		}
	})

	t.Run("root chain exists as directories", func(t *testing.T) {
		a := New(Config{Root: "/var/app"})
		for _, dir := range []string{"/", "/var", "/var/app"} {
			if ok, _ := a.DirExists(context.Background(), dir); !ok {
				t.Errorf("expected %s to exist", dir)
			}
		}
	})
}

func TestWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("writes file successfully", func(t *testing.T) {
		a := New()
		content := "hello world"

		if err := a.Write(ctx, "/documents/test.txt", strings.NewReader(content)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		exists, err := a.FileExists(ctx, "test.txt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !exists {
			t.Error("expected file to exist")
		}
		if a.Size() != int64(len(content)) {
			t.Errorf("expected size=%d, got %d", len(content), a.Size())
		}
	})

	t.Run("replaces existing file and tracks size", func(t *testing.T) {
		a := New()

		_ = a.Write(ctx, "test.txt", strings.NewReader("a long first version"))
		if err := a.Write(ctx, "test.txt", strings.NewReader("short")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Size() != 5 {
			t.Errorf("expected size=5, got %d", a.Size())
		}
		if a.FileCount() != 1 {
			t.Errorf("expected 1 file, got %d", a.FileCount())
		}
	})

	t.Run("requires parent directory", func(t *testing.T) {
		a := New()

		err := a.Write(ctx, "Folder/test.txt", strings.NewReader("x"))
		if !docstore.IsNotExist(err) {
			t.Fatalf("expected not-exist error, got: %v", err)
		}
	})

	t.Run("file as parent is not a directory", func(t *testing.T) {
		a := New()
		_ = a.Write(ctx, "file", strings.NewReader("x"))

		err := a.Write(ctx, "file/child", strings.NewReader("x"))
		if err == nil || !strings.Contains(err.Error(), docstore.ErrNotDir.Error()) {
			t.Fatalf("expected not-a-directory error, got: %v", err)
		}
	})

	t.Run("respects max size limit", func(t *testing.T) {
		a := New(Config{MaxSize: 10})

		err := a.Write(ctx, "large.txt", strings.NewReader("this is too large"))
		if !errors.Is(err, docstore.ErrQuotaExceeded) {
			t.Fatalf("expected quota error, got: %v", err)
		}
	})

	t.Run("detects content type", func(t *testing.T) {
		a := New()
		_ = a.Write(ctx, "a.txt", strings.NewReader("plain text"))
		_ = a.Write(ctx, "b.bin", strings.NewReader("x"), docstore.WithContentType("application/x-custom"))

		if ct, _ := a.ContentType("a.txt"); !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("content type = %s, want text/plain", ct)
		}
		if ct, _ := a.ContentType("b.bin"); ct != "application/x-custom" {
			t.Errorf("content type = %s, want application/x-custom", ct)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		a := New()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := a.Write(ctx, "test.txt", strings.NewReader("x")); err != context.Canceled {
			t.Errorf("expected context.Canceled, got: %v", err)
		}
	})
}

func TestReadAll(t *testing.T) {
	ctx := context.Background()

	t.Run("returns a copy", func(t *testing.T) {
		a := New()
		_ = a.Write(ctx, "test.txt", strings.NewReader("abc"))

		data, err := a.ReadAll(ctx, "test.txt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data[0] = 'z'

		again, _ := a.ReadAll(ctx, "test.txt")
		if string(again) != "abc" {
			t.Errorf("stored content changed to %q", again)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		a := New()

		if _, err := a.ReadAll(ctx, "missing.txt"); !docstore.IsNotExist(err) {
			t.Errorf("expected not-exist error, got: %v", err)
		}
	})
}

func TestCreateDir(t *testing.T) {
	ctx := context.Background()

	t.Run("creates all ancestors", func(t *testing.T) {
		a := New()
		if err := a.CreateDir(ctx, "Folder/SubFolder"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, dir := range []string{"Folder", "Folder/SubFolder"} {
			if ok, _ := a.DirExists(ctx, dir); !ok {
				t.Errorf("expected %s to exist", dir)
			}
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		a := New()
		for i := 0; i < 2; i++ {
			if err := a.CreateDir(ctx, "Folder"); err != nil {
				t.Fatalf("attempt %d: unexpected error: %v", i, err)
			}
		}
	})

	t.Run("fails through a file", func(t *testing.T) {
		a := New()
		_ = a.Write(ctx, "file", strings.NewReader("x"))

		if err := a.CreateDir(ctx, "file/dir"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes file and frees space", func(t *testing.T) {
		a := New()
		_ = a.Write(ctx, "test.txt", strings.NewReader("abc"))

		if err := a.Delete(ctx, "test.txt"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Size() != 0 {
			t.Errorf("expected size=0, got %d", a.Size())
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		a := New()
		if err := a.Delete(ctx, "test.txt"); !docstore.IsNotExist(err) {
			t.Errorf("expected not-exist error, got: %v", err)
		}
	})
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	a := New()
	_ = a.CreateDir(ctx, "Folder")
	_ = a.Write(ctx, "Folder/a.txt", strings.NewReader("abc"))

	a.Clear()

	if a.FileCount() != 0 || a.Size() != 0 {
		t.Errorf("expected empty adapter, got %d files / %d bytes", a.FileCount(), a.Size())
	}
	if ok, _ := a.DirExists(ctx, "Folder"); ok {
		t.Error("expected Folder to be removed")
	}
	if ok, _ := a.DirExists(ctx, a.DocumentRoot()); !ok {
		t.Error("expected root to survive")
	}
}

func TestChecksum(t *testing.T) {
	ctx := context.Background()
	a := New()
	_ = a.Write(ctx, "hello.txt", strings.NewReader("hello world"))

	got, err := a.Checksum(ctx, "hello.txt", docstore.ChecksumXXHash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := docstore.CalculateChecksum(bytes.NewReader([]byte("hello world")), docstore.ChecksumXXHash)
	if got != want {
		t.Errorf("checksum = %s, want %s", got, want)
	}
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("fires on matching write", func(t *testing.T) {
		a := New()
		_ = a.CreateDir(ctx, "notes/2024")

		token, err := a.Watch(ctx, "notes/**/*.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_ = a.Write(ctx, "notes/2024/a.txt", strings.NewReader("x"))
		if token.HasChanged() {
			t.Fatal("token fired for non-matching file")
		}

		calls := 0
		token.RegisterChangeCallback(func() { calls++ })

		_ = a.Write(ctx, "notes/2024/a.json", strings.NewReader("{}"))
		if !token.HasChanged() {
			t.Fatal("expected token to fire")
		}
		_ = a.Write(ctx, "notes/2024/b.json", strings.NewReader("{}"))
		if calls != 1 {
			t.Errorf("callback invoked %d times, want 1", calls)
		}
	})

	t.Run("fires on delete", func(t *testing.T) {
		a := New()
		_ = a.Write(ctx, "a.json", strings.NewReader("{}"))

		token, err := a.Watch(ctx, "*.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = a.Delete(ctx, "a.json")
		if !token.HasChanged() {
			t.Error("expected token to fire on delete")
		}
	})

	t.Run("rejects invalid pattern", func(t *testing.T) {
		a := New()
		if _, err := a.Watch(ctx, "[unclosed"); err == nil {
			t.Error("expected error for invalid pattern")
		}
	})
}
