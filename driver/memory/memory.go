package memory

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/gobeaver/docstore"
)

// DefaultRoot is the document root used when Config.Root is empty.
const DefaultRoot = "/documents"

// memoryFile represents a file stored in memory
type memoryFile struct {
	content     []byte
	contentType string
	modTime     time.Time
	visibility  docstore.Visibility
}

// watchEntry represents a single watch subscription
type watchEntry struct {
	matcher glob.Glob
	token   *docstore.CallbackChangeToken
}

// Adapter provides an in-memory implementation of docstore.FileSystem.
// Useful for testing and for ephemeral stores.
type Adapter struct {
	root string

	mu      sync.RWMutex
	files   map[string]*memoryFile
	dirs    map[string]time.Time
	maxSize int64 // Maximum total storage size (0 = unlimited)
	size    int64 // Current total size

	watchMu sync.RWMutex
	watches []*watchEntry
}

// Config holds configuration for the memory adapter
type Config struct {
	// Root is the absolute document root (default: DefaultRoot)
	Root string

	// MaxSize is the maximum total storage size in bytes (0 = unlimited)
	MaxSize int64
}

// New creates a new in-memory filesystem adapter
func New(cfg ...Config) *Adapter {
	var c Config
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if c.Root == "" {
		c.Root = DefaultRoot
	}

	a := &Adapter{
		root:    path.Clean("/" + c.Root),
		files:   make(map[string]*memoryFile),
		dirs:    make(map[string]time.Time),
		maxSize: c.MaxSize,
	}

	now := time.Now()
	for dir := a.root; ; dir = path.Dir(dir) {
		a.dirs[dir] = now
		if dir == "/" {
			break
		}
	}

	return a
}

// DocumentRoot implements docstore.FileSystem
func (a *Adapter) DocumentRoot() string {
	return a.root
}

// normalizePath cleans p and anchors relative paths at the root.
func (a *Adapter) normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = a.root + "/" + p
	}
	return path.Clean(p)
}

// Write implements docstore.FileWriter. Content is buffered before the lock
// is taken, so the swap into the map is atomic.
func (a *Adapter) Write(ctx context.Context, p string, content io.Reader, options ...docstore.Option) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p = a.normalizePath(p)

	data, err := io.ReadAll(content)
	if err != nil {
		return &docstore.PathError{Op: "write", Path: p, Err: err}
	}

	opts := docstore.ApplyOptions(options...)

	a.mu.Lock()

	if _, isDir := a.dirs[p]; isDir {
		a.mu.Unlock()
		return &docstore.PathError{Op: "write", Path: p, Err: docstore.ErrIsDir}
	}

	parent := path.Dir(p)
	if _, ok := a.dirs[parent]; !ok {
		a.mu.Unlock()
		if a.hasFile(parent) {
			return &docstore.PathError{Op: "write", Path: p, Err: docstore.ErrNotDir}
		}
		return &docstore.PathError{Op: "write", Path: p, Err: docstore.ErrNotExist}
	}

	newSize := a.size + int64(len(data))
	if existing, exists := a.files[p]; exists {
		newSize -= int64(len(existing.content))
	}
	if a.maxSize > 0 && newSize > a.maxSize {
		a.mu.Unlock()
		return &docstore.PathError{Op: "write", Path: p, Err: docstore.ErrQuotaExceeded}
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	a.files[p] = &memoryFile{
		content:     data,
		contentType: contentType,
		modTime:     time.Now(),
		visibility:  opts.Visibility,
	}
	a.size = newSize
	a.mu.Unlock()

	a.notifyWatchers(p)
	return nil
}

// hasFile reports whether p is a file; it takes the read lock itself.
func (a *Adapter) hasFile(p string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.files[p]
	return ok
}

// ReadAll implements docstore.FileReader. The returned slice is a copy.
func (a *Adapter) ReadAll(ctx context.Context, p string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p = a.normalizePath(p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	file, exists := a.files[p]
	if !exists {
		if _, isDir := a.dirs[p]; isDir {
			return nil, &docstore.PathError{Op: "read", Path: p, Err: docstore.ErrIsDir}
		}
		return nil, &docstore.PathError{Op: "read", Path: p, Err: docstore.ErrNotExist}
	}

	return bytes.Clone(file.content), nil
}

// Delete implements docstore.FileWriter
func (a *Adapter) Delete(ctx context.Context, p string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p = a.normalizePath(p)

	a.mu.Lock()
	file, exists := a.files[p]
	if !exists {
		_, isDir := a.dirs[p]
		a.mu.Unlock()
		if isDir {
			return &docstore.PathError{Op: "delete", Path: p, Err: docstore.ErrIsDir}
		}
		return &docstore.PathError{Op: "delete", Path: p, Err: docstore.ErrNotExist}
	}
	a.size -= int64(len(file.content))
	delete(a.files, p)
	a.mu.Unlock()

	a.notifyWatchers(p)
	return nil
}

// FileExists implements docstore.FileReader
func (a *Adapter) FileExists(ctx context.Context, p string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	p = a.normalizePath(p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	_, exists := a.files[p]
	return exists, nil
}

// DirExists implements docstore.FileReader
func (a *Adapter) DirExists(ctx context.Context, p string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	p = a.normalizePath(p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	_, exists := a.dirs[p]
	return exists, nil
}

// CreateDir implements docstore.FileWriter. Existing directories along the
// way are left untouched.
func (a *Adapter) CreateDir(ctx context.Context, p string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p = a.normalizePath(p)

	a.mu.Lock()
	defer a.mu.Unlock()

	var missing []string
	for dir := p; ; dir = path.Dir(dir) {
		if _, isFile := a.files[dir]; isFile {
			return &docstore.PathError{Op: "createdir", Path: p, Err: docstore.ErrNotDir}
		}
		if _, ok := a.dirs[dir]; ok {
			break
		}
		missing = append(missing, dir)
		if dir == "/" {
			break
		}
	}

	now := time.Now()
	for _, dir := range missing {
		a.dirs[dir] = now
	}

	return nil
}

// Clear removes all files and every directory outside the root chain.
func (a *Adapter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.files = make(map[string]*memoryFile)
	for dir := range a.dirs {
		if dir == "/" || dir == a.root || strings.HasPrefix(a.root, dir+"/") {
			continue
		}
		delete(a.dirs, dir)
	}
	a.size = 0
}

// Size returns the total bytes stored
func (a *Adapter) Size() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.size
}

// FileCount returns the number of files stored
func (a *Adapter) FileCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.files)
}

// ContentType returns the stored content type of the file at p.
func (a *Adapter) ContentType(p string) (string, bool) {
	p = a.normalizePath(p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	file, ok := a.files[p]
	if !ok {
		return "", false
	}
	return file.contentType, true
}

// Checksum implements docstore.CanChecksum
func (a *Adapter) Checksum(ctx context.Context, p string, algorithm docstore.ChecksumAlgorithm) (string, error) {
	data, err := a.ReadAll(ctx, p)
	if err != nil {
		return "", err
	}

	sum, err := docstore.CalculateChecksum(bytes.NewReader(data), algorithm)
	if err != nil {
		return "", &docstore.PathError{Op: "checksum", Path: p, Err: err}
	}
	return sum, nil
}

// Watch implements docstore.CanWatch. Watchers are signalled synchronously
// from Write and Delete.
func (a *Adapter) Watch(ctx context.Context, pattern string) (docstore.ChangeToken, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if !strings.HasPrefix(pattern, "/") {
		pattern = a.root + "/" + pattern
	}

	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, &docstore.PathError{Op: "watch", Path: pattern, Err: err}
	}

	token := docstore.NewCallbackChangeToken()

	a.watchMu.Lock()
	a.watches = append(a.watches, &watchEntry{
		matcher: matcher,
		token:   token,
	})
	a.watchMu.Unlock()

	go func() {
		<-ctx.Done()
		a.removeWatch(token)
	}()

	return token, nil
}

// notifyWatchers signals all watchers whose filter matches the given path
func (a *Adapter) notifyWatchers(p string) {
	a.watchMu.RLock()
	var matched []*docstore.CallbackChangeToken
	for _, entry := range a.watches {
		if entry.matcher.Match(p) {
			matched = append(matched, entry.token)
		}
	}
	a.watchMu.RUnlock()

	for _, token := range matched {
		token.SignalChange()
	}
}

// removeWatch removes a watch entry by token
func (a *Adapter) removeWatch(token *docstore.CallbackChangeToken) {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()

	for i, entry := range a.watches {
		if entry.token == token {
			a.watches[i] = a.watches[len(a.watches)-1]
			a.watches = a.watches[:len(a.watches)-1]
			return
		}
	}
}

// Ensure Adapter implements interfaces
var (
	_ docstore.FileSystem  = (*Adapter)(nil)
	_ docstore.CanChecksum = (*Adapter)(nil)
	_ docstore.CanWatch    = (*Adapter)(nil)
)
