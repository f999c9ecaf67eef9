package docstore

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"time"
)

// ============================================================================
// Cache Interface
// ============================================================================

// Cache defines the interface for cache backends.
//
// Implementations should be thread-safe.
type Cache interface {
	// Get retrieves a value from the cache.
	Get(key string) (any, bool)

	// Set stores a value with the given TTL. A TTL of 0 means no expiration.
	Set(key string, value any, ttl time.Duration)

	// Delete removes a value from the cache.
	Delete(key string)

	// Clear removes all values from the cache.
	Clear()
}

// CacheStatistics contains cache performance counters.
type CacheStatistics struct {
	Hits    int64
	Misses  int64
	Size    int64
	HitRate float64
}

// ============================================================================
// In-Memory Cache Implementation
// ============================================================================

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

func (e cacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache is an in-process Cache with TTL-based expiration.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	hits    int64
	misses  int64
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
	}
}

// Get retrieves a value from the cache. Expired entries are dropped.
func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if ok && entry.expired(time.Now()) {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.value, true
}

// Set stores a value in the cache.
func (c *MemoryCache) Set(key string, value any, ttl time.Duration) {
	entry := cacheEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes all values from the cache.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Stats returns cache statistics.
func (c *MemoryCache) Stats() CacheStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStatistics{
		Hits:   c.hits,
		Misses: c.misses,
		Size:   int64(len(c.entries)),
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

var _ Cache = (*MemoryCache)(nil)

// ============================================================================
// CachingFileSystem Decorator
// ============================================================================

// CachingFileSystem remembers existence checks and created directories.
//
// Saving many documents into the same folder resolves the same parent
// directory over and over; once a CreateDir has succeeded, later calls for
// that directory or any of its ancestors are answered from the cache until
// the entry expires. Writes and deletes made through the decorator keep the
// cache consistent. Changes made behind its back are seen after the TTL.
//
// Example:
//
//	fs, _ := local.New("")
//	cached := docstore.NewCachingFileSystem(fs, docstore.NewMemoryCache(),
//	    docstore.WithCacheTTL(time.Minute),
//	)
//	store, _ := docstore.NewStore(cached)
type CachingFileSystem struct {
	fs    FileSystem
	cache Cache
	opts  CacheOptions
}

// CacheOptions configures the CachingFileSystem behavior.
type CacheOptions struct {
	// TTL is the time-to-live for cache entries.
	// Default: 5 minutes
	TTL time.Duration

	// KeyPrefix is prepended to all cache keys.
	// Default: "docstore:"
	KeyPrefix string

	// OnCacheHit is called when a cache hit occurs.
	OnCacheHit func(op, path string)

	// OnCacheMiss is called when a cache miss occurs.
	OnCacheMiss func(op, path string)
}

// CacheOption is a functional option for configuring CachingFileSystem.
type CacheOption func(*CacheOptions)

// WithCacheTTL sets the TTL for cache entries.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(o *CacheOptions) {
		o.TTL = ttl
	}
}

// WithCacheKeyPrefix sets the prefix for cache keys.
func WithCacheKeyPrefix(prefix string) CacheOption {
	return func(o *CacheOptions) {
		o.KeyPrefix = prefix
	}
}

// WithCacheHitCallback sets a callback for cache hits.
func WithCacheHitCallback(callback func(op, path string)) CacheOption {
	return func(o *CacheOptions) {
		o.OnCacheHit = callback
	}
}

// WithCacheMissCallback sets a callback for cache misses.
func WithCacheMissCallback(callback func(op, path string)) CacheOption {
	return func(o *CacheOptions) {
		o.OnCacheMiss = callback
	}
}

// NewCachingFileSystem wraps fs. A nil cache selects a new MemoryCache.
func NewCachingFileSystem(fs FileSystem, cache Cache, opts ...CacheOption) *CachingFileSystem {
	options := CacheOptions{
		TTL:       5 * time.Minute,
		KeyPrefix: "docstore:",
	}
	for _, opt := range opts {
		opt(&options)
	}
	if cache == nil {
		cache = NewMemoryCache()
	}

	return &CachingFileSystem{
		fs:    fs,
		cache: cache,
		opts:  options,
	}
}

// Unwrap returns the underlying FileSystem.
func (c *CachingFileSystem) Unwrap() FileSystem {
	return c.fs
}

// Cache returns the underlying Cache.
func (c *CachingFileSystem) Cache() Cache {
	return c.cache
}

func (c *CachingFileSystem) cacheKey(op, path string) string {
	return c.opts.KeyPrefix + op + ":" + filepath.Clean(path)
}

func (c *CachingFileSystem) lookup(op, path string) (bool, bool) {
	if cached, ok := c.cache.Get(c.cacheKey(op, path)); ok {
		if c.opts.OnCacheHit != nil {
			c.opts.OnCacheHit(op, path)
		}
		return cached.(bool), true
	}
	if c.opts.OnCacheMiss != nil {
		c.opts.OnCacheMiss(op, path)
	}
	return false, false
}

func (c *CachingFileSystem) remember(op, path string, value bool) {
	c.cache.Set(c.cacheKey(op, path), value, c.opts.TTL)
}

// rememberDirs marks path and every ancestor as an existing directory.
func (c *CachingFileSystem) rememberDirs(path string) {
	for dir := filepath.Clean(path); ; dir = filepath.Dir(dir) {
		c.remember("direxists", dir, true)
		c.remember("fileexists", dir, false)
		if parent := filepath.Dir(dir); parent == dir {
			return
		}
	}
}

func (c *CachingFileSystem) DocumentRoot() string {
	return c.fs.DocumentRoot()
}

// ReadAll is never cached: only metadata is.
func (c *CachingFileSystem) ReadAll(ctx context.Context, path string) ([]byte, error) {
	return c.fs.ReadAll(ctx, path)
}

// FileExists checks if a file exists, using cache when available.
func (c *CachingFileSystem) FileExists(ctx context.Context, path string) (bool, error) {
	if exists, ok := c.lookup("fileexists", path); ok {
		return exists, nil
	}

	exists, err := c.fs.FileExists(ctx, path)
	if err != nil {
		return false, err
	}
	c.remember("fileexists", path, exists)
	return exists, nil
}

// DirExists checks if a directory exists, using cache when available.
func (c *CachingFileSystem) DirExists(ctx context.Context, path string) (bool, error) {
	if exists, ok := c.lookup("direxists", path); ok {
		return exists, nil
	}

	exists, err := c.fs.DirExists(ctx, path)
	if err != nil {
		return false, err
	}
	c.remember("direxists", path, exists)
	return exists, nil
}

// Write writes through and records the file as existing.
func (c *CachingFileSystem) Write(ctx context.Context, path string, content io.Reader, options ...Option) error {
	if err := c.fs.Write(ctx, path, content, options...); err != nil {
		c.cache.Delete(c.cacheKey("fileexists", path))
		return err
	}
	c.remember("fileexists", path, true)
	c.remember("direxists", path, false)
	return nil
}

// Delete deletes through and records the file as gone.
func (c *CachingFileSystem) Delete(ctx context.Context, path string) error {
	if err := c.fs.Delete(ctx, path); err != nil {
		c.cache.Delete(c.cacheKey("fileexists", path))
		return err
	}
	c.remember("fileexists", path, false)
	return nil
}

// CreateDir skips the underlying call when path is known to exist.
func (c *CachingFileSystem) CreateDir(ctx context.Context, path string) error {
	if exists, ok := c.lookup("direxists", path); ok && exists {
		return nil
	}
	if err := c.fs.CreateDir(ctx, path); err != nil {
		return err
	}
	c.rememberDirs(path)
	return nil
}

// Checksum delegates to the underlying filesystem if supported.
func (c *CachingFileSystem) Checksum(ctx context.Context, path string, algorithm ChecksumAlgorithm) (string, error) {
	if cs, ok := c.fs.(CanChecksum); ok {
		return cs.Checksum(ctx, path, algorithm)
	}
	return checksumByReading(ctx, c.fs, path, algorithm)
}

// Watch delegates to the underlying filesystem. The returned token fires
// once, like any ChangeToken, but the cache keeps watching pattern until ctx
// is done and drops everything on each change, since the change may have
// come from outside this decorator.
func (c *CachingFileSystem) Watch(ctx context.Context, pattern string) (ChangeToken, error) {
	watcher, ok := c.fs.(CanWatch)
	if !ok {
		return nil, &PathError{Op: "watch", Path: pattern, Err: ErrNotSupported}
	}

	token, err := watcher.Watch(ctx, pattern)
	if err != nil {
		return nil, err
	}
	c.clearOnChange(ctx, watcher, pattern, token)
	return token, nil
}

// clearOnChange clears the cache when token fires and re-arms the watch on a
// fresh token.
func (c *CachingFileSystem) clearOnChange(ctx context.Context, watcher CanWatch, pattern string, token ChangeToken) {
	token.RegisterChangeCallback(func() {
		c.cache.Clear()
		if ctx.Err() != nil {
			return
		}
		next, err := watcher.Watch(ctx, pattern)
		if err != nil {
			return
		}
		c.clearOnChange(ctx, watcher, pattern, next)
	})
}

var (
	_ FileSystem  = (*CachingFileSystem)(nil)
	_ CanChecksum = (*CachingFileSystem)(nil)
	_ CanWatch    = (*CachingFileSystem)(nil)
)
