package local

import "github.com/gobeaver/docstore"

func init() {
	docstore.RegisterDriver("local", func(cfg *docstore.Config) (docstore.FileSystem, error) {
		return New(cfg.LocalBasePath)
	})
}
