package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/gobeaver/docstore/codec"
)

// Store saves and loads typed values at paths relative to a document root.
//
// Every operation resolves its path, then makes exactly one call to the
// underlying FileSystem. Store holds no locks: concurrent saves to the same
// path race, the last writer wins, and no reader ever sees a partial file.
type Store struct {
	fs       FileSystem
	resolver *Resolver
	logger   *zap.Logger
	json     codec.Codec
	archive  codec.Codec
	writeOpt []Option
}

// StoreOptions configures a Store.
type StoreOptions struct {
	// Root overrides FileSystem.DocumentRoot. Useful for tests.
	Root string

	// Logger receives diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger

	// JSONCodec encodes SaveJSON/LoadJSON values. Default: codec.JSON.
	JSONCodec codec.Codec

	// ArchiveCodec encodes SaveObject/LoadObject values. Default: codec.Gob.
	ArchiveCodec codec.Codec

	// LenientDirectories logs and ignores failures to create intermediate
	// directories instead of failing the save.
	LenientDirectories bool

	// WriteOptions are passed to every FileSystem.Write call.
	WriteOptions []Option

	// Registerer receives the collectors when New enables metrics.
	// Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// StoreOption is a functional option for configuring a Store.
type StoreOption func(*StoreOptions)

// WithRoot sets the document root instead of asking the FileSystem.
func WithRoot(root string) StoreOption {
	return func(o *StoreOptions) {
		o.Root = root
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(o *StoreOptions) {
		o.Logger = logger
	}
}

// WithJSONCodec replaces the JSON codec.
func WithJSONCodec(c codec.Codec) StoreOption {
	return func(o *StoreOptions) {
		o.JSONCodec = c
	}
}

// WithArchiveCodec replaces the codec used for SaveObject and LoadObject.
func WithArchiveCodec(c codec.Codec) StoreOption {
	return func(o *StoreOptions) {
		o.ArchiveCodec = c
	}
}

// WithLenientDirectories makes saves proceed when intermediate directories
// cannot be created. The write that follows will usually fail on its own.
func WithLenientDirectories() StoreOption {
	return func(o *StoreOptions) {
		o.LenientDirectories = true
	}
}

// WithWriteOptions sets options applied to every write.
func WithWriteOptions(opts ...Option) StoreOption {
	return func(o *StoreOptions) {
		o.WriteOptions = append(o.WriteOptions, opts...)
	}
}

// WithRegisterer sets where New registers its metrics.
func WithRegisterer(reg prometheus.Registerer) StoreOption {
	return func(o *StoreOptions) {
		o.Registerer = reg
	}
}

// NewStore creates a Store on top of fs. The document root is read once,
// here, and stays fixed for the lifetime of the Store.
func NewStore(fs FileSystem, opts ...StoreOption) (*Store, error) {
	if fs == nil {
		return nil, errors.New("file system is required")
	}

	options := StoreOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	root := options.Root
	if root == "" {
		root = fs.DocumentRoot()
	}
	if root == "" {
		return nil, errors.New("document root is required")
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.JSONCodec == nil {
		options.JSONCodec = codec.JSON
	}
	if options.ArchiveCodec == nil {
		options.ArchiveCodec = codec.Gob
	}

	resolver := NewResolver(fs, root, logger)
	resolver.lenient = options.LenientDirectories

	return &Store{
		fs:       fs,
		resolver: resolver,
		logger:   logger,
		json:     options.JSONCodec,
		archive:  options.ArchiveCodec,
		writeOpt: options.WriteOptions,
	}, nil
}

// Root returns the document root.
func (s *Store) Root() string {
	return s.resolver.Root()
}

// Resolve returns the absolute path for path without creating anything.
func (s *Store) Resolve(path string) string {
	return s.resolver.Join(path)
}

// FileSystem returns the underlying file system.
func (s *Store) FileSystem() FileSystem {
	return s.fs
}

// ============================================================================
// Saving
// ============================================================================

// SaveBytes writes data to path, creating missing parent directories.
func (s *Store) SaveBytes(ctx context.Context, data []byte, path string) error {
	target, err := s.resolver.Resolve(ctx, path, true)
	if err != nil {
		return err
	}

	if err := s.fs.Write(ctx, target, bytes.NewReader(data), s.writeOpt...); err != nil {
		s.logger.Debug("save failed", zap.String("path", path), zap.Error(err))
		return err
	}
	return nil
}

// SaveText writes text to path as UTF-8.
func (s *Store) SaveText(ctx context.Context, text string, path string) error {
	return s.SaveBytes(ctx, []byte(text), path)
}

// SaveJSON encodes v as JSON and writes it to path. Nothing is written if
// encoding fails.
func (s *Store) SaveJSON(ctx context.Context, v any, path string) error {
	return s.SaveDocument(ctx, s.json, v, path)
}

// SaveObject archives v with the Store's archive codec and writes it to path.
func (s *Store) SaveObject(ctx context.Context, v any, path string) error {
	return s.SaveDocument(ctx, s.archive, v, path)
}

// SaveDocument encodes v with c and writes the result to path.
func (s *Store) SaveDocument(ctx context.Context, c codec.Codec, v any, path string) error {
	data, err := c.Marshal(v)
	if err != nil {
		return &PathError{
			Op:   "save",
			Path: path,
			Err:  fmt.Errorf("%w as %s: %w", ErrEncode, c.Name(), err),
		}
	}
	return s.SaveBytes(ctx, data, path)
}

// ============================================================================
// Loading
// ============================================================================

// loadStatus classifies the outcome of a load.
type loadStatus int

const (
	loadFound loadStatus = iota
	loadMissing
	loadUnreadable
	loadUndecodable
)

func (st loadStatus) String() string {
	switch st {
	case loadFound:
		return "found"
	case loadMissing:
		return "missing"
	case loadUnreadable:
		return "unreadable"
	case loadUndecodable:
		return "undecodable"
	default:
		return "unknown"
	}
}

// loadResult keeps the cause of an absent load. Public methods collapse
// every non-found status into "absent".
type loadResult struct {
	status loadStatus
	data   []byte
	err    error
}

func (r loadResult) ok() bool {
	return r.status == loadFound
}

// read fetches the raw bytes at path. Loads never create directories.
func (s *Store) read(ctx context.Context, path string) loadResult {
	target := s.resolver.Join(path)

	data, err := s.fs.ReadAll(ctx, target)
	switch {
	case err == nil:
		return loadResult{status: loadFound, data: data}
	case IsNotExist(err):
		return loadResult{status: loadMissing, err: err}
	default:
		return loadResult{status: loadUnreadable, err: err}
	}
}

func (s *Store) decode(ctx context.Context, c codec.Codec, path string, v any) loadResult {
	res := s.read(ctx, path)
	if !res.ok() {
		return res
	}
	if err := c.Unmarshal(res.data, v); err != nil {
		return loadResult{status: loadUndecodable, err: err}
	}
	return res
}

func (s *Store) report(path string, res loadResult) {
	if res.ok() || res.status == loadMissing {
		return
	}
	s.logger.Debug("load returned nothing",
		zap.String("path", path),
		zap.Stringer("status", res.status),
		zap.Error(res.err),
	)
}

// LoadBytes returns the content of path, or false if it cannot be read.
func (s *Store) LoadBytes(ctx context.Context, path string) ([]byte, bool) {
	res := s.read(ctx, path)
	s.report(path, res)
	if !res.ok() {
		return nil, false
	}
	return res.data, true
}

// LoadText returns the content of path as a string, or false if it cannot
// be read or is not valid UTF-8.
func (s *Store) LoadText(ctx context.Context, path string) (string, bool) {
	res := s.read(ctx, path)
	if res.ok() && !utf8.Valid(res.data) {
		res = loadResult{status: loadUndecodable, err: errors.New("invalid UTF-8")}
	}
	s.report(path, res)
	if !res.ok() {
		return "", false
	}
	return string(res.data), true
}

// LoadJSON decodes the JSON document at path into a generic structure
// (map[string]any, []any, string, float64, bool or nil). It returns false
// if the file is missing or malformed.
func (s *Store) LoadJSON(ctx context.Context, path string) (any, bool) {
	var v any
	if !s.LoadDocument(ctx, s.json, path, &v) {
		return nil, false
	}
	return v, true
}

// LoadObject decodes the archive at path into v. It returns false if the
// file is missing or cannot be decoded; v may then be partially filled.
func (s *Store) LoadObject(ctx context.Context, path string, v any) bool {
	return s.LoadDocument(ctx, s.archive, path, v)
}

// LoadDocument decodes the file at path into v with c.
func (s *Store) LoadDocument(ctx context.Context, c codec.Codec, path string, v any) bool {
	res := s.decode(ctx, c, path, v)
	s.report(path, res)
	return res.ok()
}

// LoadAs decodes the file at path into a new T.
//
//	cfg, ok := docstore.LoadAs[Settings](ctx, store, codec.YAML, "settings.yaml")
func LoadAs[T any](ctx context.Context, s *Store, c codec.Codec, path string) (T, bool) {
	var v T
	if !s.LoadDocument(ctx, c, path, &v) {
		var zero T
		return zero, false
	}
	return v, true
}

// ============================================================================
// Helpers
// ============================================================================

// Exists reports whether a file exists at path. Errors read as false.
func (s *Store) Exists(ctx context.Context, path string) bool {
	exists, err := s.fs.FileExists(ctx, s.resolver.Join(path))
	if err != nil {
		s.logger.Debug("exists check failed", zap.String("path", path), zap.Error(err))
		return false
	}
	return exists
}

// Remove deletes the file at path. Removing a missing file is an error
// for which IsNotExist reports true.
func (s *Store) Remove(ctx context.Context, path string) error {
	return s.fs.Delete(ctx, s.resolver.Join(path))
}

// Checksum returns the hex-encoded checksum of the file at path, using the
// driver's native support when available.
func (s *Store) Checksum(ctx context.Context, path string, algorithm ChecksumAlgorithm) (string, error) {
	target := s.resolver.Join(path)
	if cs, ok := s.fs.(CanChecksum); ok {
		return cs.Checksum(ctx, target, algorithm)
	}
	return checksumByReading(ctx, s.fs, target, algorithm)
}

// Watch returns a token that fires when a file matching pattern changes.
// The pattern is relative to the root, e.g. "notes/**/*.json".
func (s *Store) Watch(ctx context.Context, pattern string) (ChangeToken, error) {
	w, ok := s.fs.(CanWatch)
	if !ok {
		return nil, &PathError{Op: "watch", Path: pattern, Err: ErrNotSupported}
	}
	return w.Watch(ctx, filepath.ToSlash(s.resolver.Join(pattern)))
}
