package docstore

import (
	"github.com/gobeaver/beaver-kit/config"
)

type Config struct {
	// Driver to use (local, memory)
	Driver string `env:"DOCSTORE_DRIVER,default:local"`

	// Local driver configuration. An empty base path selects the user's
	// documents directory.
	LocalBasePath string `env:"DOCSTORE_LOCAL_BASE_PATH"`

	// Memory driver configuration
	MemoryRoot    string `env:"DOCSTORE_MEMORY_ROOT,default:/documents"`
	MemoryMaxSize int64  `env:"DOCSTORE_MEMORY_MAX_SIZE,default:0"`

	// Default write options
	DefaultVisibility string `env:"DOCSTORE_DEFAULT_VISIBILITY,default:private"`

	// Archive codec for SaveObject/LoadObject (gob, cbor)
	ArchiveFormat      string `env:"DOCSTORE_ARCHIVE_FORMAT,default:gob"`
	ArchiveCompression bool   `env:"DOCSTORE_ARCHIVE_COMPRESSION,default:false"`

	// LenientDirectories ignores failures to create intermediate directories
	LenientDirectories bool `env:"DOCSTORE_LENIENT_DIRECTORIES,default:false"`

	// Decorators
	ReadOnly        bool `env:"DOCSTORE_READ_ONLY,default:false"`
	MetricsEnabled  bool `env:"DOCSTORE_METRICS_ENABLED,default:false"`
	CacheEnabled    bool `env:"DOCSTORE_CACHE_ENABLED,default:false"`
	CacheTTLSeconds int  `env:"DOCSTORE_CACHE_TTL_SECONDS,default:300"`

	// Logging level (debug, info, warn, error)
	LogLevel string `env:"DOCSTORE_LOG_LEVEL,default:info"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
