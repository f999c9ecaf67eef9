package docstore

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gobeaver/beaver-kit/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gobeaver/docstore/codec"
)

// Builder provides a way to create Store instances with custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// New creates a new Store using the builder's prefix
func (b *Builder) New(opts ...StoreOption) (*Store, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// New creates a Store from cfg. The driver named by cfg.Driver must have been
// registered, usually by importing its package. Options passed here are
// applied after the ones derived from cfg and take precedence.
func New(cfg *Config, opts ...StoreOption) (*Store, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	fs, err := CreateDriver(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	options := StoreOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if cfg.MetricsEnabled {
		reg := options.Registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		metrics, err := NewMetrics(reg)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		fs = NewInstrumentedFileSystem(fs, metrics)
	}

	if cfg.CacheEnabled {
		fs = NewCachingFileSystem(fs, NewMemoryCache(),
			WithCacheTTL(time.Duration(cfg.CacheTTLSeconds)*time.Second),
		)
	}

	// Read-only sits outermost so rejected writes never reach the metrics.
	if cfg.ReadOnly {
		fs = NewReadOnlyFileSystem(fs)
	}

	archive, err := archiveCodec(cfg)
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		if logger, err = newLogger(cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	derived := []StoreOption{
		WithLogger(logger),
		WithArchiveCodec(archive),
		WithWriteOptions(WithVisibility(defaultVisibility(cfg))),
	}
	if cfg.LenientDirectories {
		derived = append(derived, WithLenientDirectories())
	}

	store, err := NewStore(fs, append(derived, opts...)...)
	if err != nil {
		return nil, err
	}

	logger.Debug("document store ready",
		zap.String("driver", cfg.Driver),
		zap.String("root", store.Root()),
		zap.String("archive", archive.Name()),
		zap.Bool("read_only", cfg.ReadOnly),
	)

	return store, nil
}

// NewFromEnv creates a Store from environment variables (convenience constructor)
func NewFromEnv(opts ...StoreOption) (*Store, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// validateConfig checks configuration validity
func validateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if cfg.Driver == "" {
		return errors.New("driver is required")
	}
	if !slices.Contains(Drivers(), cfg.Driver) {
		return fmt.Errorf("unknown driver: %s", cfg.Driver)
	}

	switch Visibility(cfg.DefaultVisibility) {
	case "", Private, Public:
	default:
		return fmt.Errorf("unknown visibility: %s", cfg.DefaultVisibility)
	}

	if cfg.MemoryMaxSize < 0 {
		return errors.New("memory max size must not be negative")
	}
	if cfg.CacheEnabled && cfg.CacheTTLSeconds < 0 {
		return errors.New("cache TTL must not be negative")
	}

	if cfg.LogLevel != "" {
		if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
			return err
		}
	}

	return nil
}

// archiveCodec returns the codec named by cfg.ArchiveFormat, compressed if
// requested.
func archiveCodec(cfg *Config) (codec.Codec, error) {
	name := cfg.ArchiveFormat
	if name == "" {
		name = codec.Gob.Name()
	}
	c, err := codec.ByName(name)
	if err != nil {
		return nil, fmt.Errorf("invalid archive format: %w", err)
	}
	if cfg.ArchiveCompression {
		c = codec.Zstd(c)
	}
	return c, nil
}

// defaultVisibility returns the configured visibility, Private if unset.
func defaultVisibility(cfg *Config) Visibility {
	if cfg.DefaultVisibility == "" {
		return Private
	}
	return Visibility(cfg.DefaultVisibility)
}

// newLogger builds a production zap logger at the given level.
func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zcfg.Build()
}
