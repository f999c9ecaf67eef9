package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gobwas/glob"
	"github.com/google/uuid"

	"github.com/gobeaver/docstore"
)

const (
	dirPerm     os.FileMode = 0755
	privatePerm os.FileMode = 0600
	publicPerm  os.FileMode = 0644

	tempSuffix = ".tmp"
)

// Adapter provides a local filesystem implementation of docstore.FileSystem.
//
// Absolute paths are used as given. Relative paths are taken relative to
// the adapter's root.
type Adapter struct {
	root string
}

// New creates a new local filesystem adapter rooted at root, creating the
// directory if needed. An empty root selects DocumentDir.
func New(root string) (*Adapter, error) {
	if root == "" {
		dir, err := DocumentDir()
		if err != nil {
			return nil, err
		}
		root = dir
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(absRoot, dirPerm); err != nil {
		return nil, err
	}

	return &Adapter{
		root: absRoot,
	}, nil
}

// DocumentDir returns the current user's documents directory:
// $XDG_DOCUMENTS_DIR when set, otherwise $HOME/Documents.
func DocumentDir() (string, error) {
	if dir := os.Getenv("XDG_DOCUMENTS_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate documents directory: %w", err)
	}
	return filepath.Join(home, "Documents"), nil
}

// DocumentRoot implements docstore.FileSystem
func (a *Adapter) DocumentRoot() string {
	return a.root
}

func (a *Adapter) fullPath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(a.root, filepath.FromSlash(path))
}

// mapError translates os errors into docstore sentinels.
func mapError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return docstore.ErrNotExist
	case errors.Is(err, fs.ErrPermission):
		return docstore.ErrPermission
	case errors.Is(err, syscall.ENOTDIR):
		return docstore.ErrNotDir
	case errors.Is(err, syscall.ENOSPC):
		return fmt.Errorf("no space left on device: %w", err)
	default:
		return err
	}
}

// Write implements docstore.FileWriter. The content goes to a temporary
// file next to the target, which is synced and then renamed over it.
func (a *Adapter) Write(ctx context.Context, path string, content io.Reader, options ...docstore.Option) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Continue
	}

	fullPath := a.fullPath(path)

	if info, err := os.Stat(fullPath); err == nil && info.IsDir() {
		return &docstore.PathError{Op: "write", Path: path, Err: docstore.ErrIsDir}
	}

	opts := docstore.ApplyOptions(options...)
	perm := privatePerm
	if opts.Visibility == docstore.Public {
		perm = publicPerm
	}

	if err := writeAtomic(fullPath, content, perm); err != nil {
		return &docstore.PathError{Op: "write", Path: path, Err: mapError(err)}
	}

	return nil
}

// writeAtomic replaces target with the content of r in a single rename.
func writeAtomic(target string, r io.Reader, perm os.FileMode) (err error) {
	dir, base := filepath.Split(target)
	tmpPath := filepath.Join(dir, "."+base+"."+uuid.NewString()+tempSuffix)

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// OpenFile applies the umask; set the mode explicitly.
	if err = os.Chmod(tmpPath, perm); err != nil {
		return err
	}

	return os.Rename(tmpPath, target)
}

// ReadAll implements docstore.FileReader
func (a *Adapter) ReadAll(ctx context.Context, path string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		// Continue
	}

	data, err := os.ReadFile(a.fullPath(path))
	if err != nil {
		return nil, &docstore.PathError{Op: "read", Path: path, Err: mapError(err)}
	}

	return data, nil
}

// Delete implements docstore.FileWriter
func (a *Adapter) Delete(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Continue
	}

	fullPath := a.fullPath(path)

	info, err := os.Stat(fullPath)
	if err != nil {
		return &docstore.PathError{Op: "delete", Path: path, Err: mapError(err)}
	}
	if info.IsDir() {
		return &docstore.PathError{Op: "delete", Path: path, Err: docstore.ErrIsDir}
	}

	if err := os.Remove(fullPath); err != nil {
		return &docstore.PathError{Op: "delete", Path: path, Err: mapError(err)}
	}

	return nil
}

// FileExists implements docstore.FileReader
func (a *Adapter) FileExists(ctx context.Context, path string) (bool, error) {
	return a.exists(ctx, "fileexists", path, false)
}

// DirExists implements docstore.FileReader
func (a *Adapter) DirExists(ctx context.Context, path string) (bool, error) {
	return a.exists(ctx, "direxists", path, true)
}

func (a *Adapter) exists(ctx context.Context, op, path string, wantDir bool) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
		// Continue
	}

	info, err := os.Stat(a.fullPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return false, nil
		}
		return false, &docstore.PathError{Op: op, Path: path, Err: mapError(err)}
	}

	return info.IsDir() == wantDir, nil
}

// CreateDir implements docstore.FileWriter. MkdirAll treats an existing
// directory as success, including one created concurrently.
func (a *Adapter) CreateDir(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Continue
	}

	if err := os.MkdirAll(a.fullPath(path), dirPerm); err != nil {
		return &docstore.PathError{Op: "createdir", Path: path, Err: mapError(err)}
	}

	return nil
}

// Checksum implements docstore.CanChecksum for local files.
func (a *Adapter) Checksum(ctx context.Context, path string, algorithm docstore.ChecksumAlgorithm) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	file, err := os.Open(a.fullPath(path))
	if err != nil {
		return "", &docstore.PathError{Op: "checksum", Path: path, Err: mapError(err)}
	}
	defer file.Close()

	checksum, err := docstore.CalculateChecksum(file, algorithm)
	if err != nil {
		return "", &docstore.PathError{Op: "checksum", Path: path, Err: err}
	}

	return checksum, nil
}

// Watch implements docstore.CanWatch using fsnotify. The token fires on the
// first matching event and the underlying watcher is then released.
//
// Directories the pattern can match in are registered as they appear, so a
// pattern may name folders that do not exist yet. Until they do, the nearest
// existing ancestor is watched instead.
func (a *Adapter) Watch(ctx context.Context, pattern string) (docstore.ChangeToken, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if !strings.HasPrefix(pattern, "/") && !filepath.IsAbs(pattern) {
		pattern = filepath.ToSlash(filepath.Join(a.root, pattern))
	}

	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, &docstore.PathError{Op: "watch", Path: pattern, Err: err}
	}

	base := watchBase(pattern)
	rest := strings.TrimPrefix(strings.TrimPrefix(pattern, base), "/")

	watcher, err := newFSWatcher()
	if err != nil {
		return nil, &docstore.PathError{Op: "watch", Path: pattern, Err: err}
	}

	tree := &watchTree{
		watcher: watcher,
		base:    filepath.FromSlash(base),
		deep:    strings.Contains(rest, "/") || strings.Contains(rest, "**"),
		match: func(name string) bool {
			return matcher.Match(filepath.ToSlash(name))
		},
	}

	anchor := nearestDir(tree.base)
	if err := watcher.Add(anchor); err != nil {
		watcher.Close()
		return nil, &docstore.PathError{Op: "watch", Path: pattern, Err: mapError(err)}
	}
	tree.add(anchor)

	token := docstore.NewCallbackChangeToken()

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events():
				if !ok {
					return
				}
				if tree.match(event.Name) {
					token.SignalChange()
					return
				}
				// Files can land in a new directory before it is
				// registered, so add reports those too.
				if event.created() && tree.covers(event.Name) && isDir(event.Name) && tree.add(event.Name) {
					token.SignalChange()
					return
				}
			case _, ok := <-watcher.Errors():
				if !ok {
					return
				}
			}
		}
	}()

	return token, nil
}

// nearestDir returns dir, or its closest ancestor that exists as a directory.
func nearestDir(dir string) string {
	for {
		if isDir(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// watchBase returns the deepest directory of pattern that contains no glob
// metacharacters. A pattern without metacharacters names a file, so its
// parent directory is watched.
func watchBase(pattern string) string {
	idx := strings.IndexAny(pattern, "*?[{")
	if idx < 0 {
		return filepath.ToSlash(filepath.Dir(filepath.FromSlash(pattern)))
	}
	dir := pattern[:idx]
	if slash := strings.LastIndex(dir, "/"); slash > 0 {
		return dir[:slash]
	}
	return "/"
}

// isTempName reports whether name is an in-flight atomic write.
func isTempName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, tempSuffix)
}

// Ensure Adapter implements interfaces
var (
	_ docstore.FileSystem  = (*Adapter)(nil)
	_ docstore.CanChecksum = (*Adapter)(nil)
	_ docstore.CanWatch    = (*Adapter)(nil)
)
