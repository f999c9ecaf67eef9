package memory

import "github.com/gobeaver/docstore"

func init() {
	docstore.RegisterDriver("memory", func(cfg *docstore.Config) (docstore.FileSystem, error) {
		return New(Config{Root: cfg.MemoryRoot, MaxSize: cfg.MemoryMaxSize}), nil
	})
}
