package docstore

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// Resolver turns caller-supplied relative paths into absolute paths under a
// fixed root, creating intermediate directories on request.
//
// Paths containing ".." are cleaned by the join but not rejected, so a
// resolved path can land outside the root. Resolver is not a sandbox.
type Resolver struct {
	fs      FileSystem
	root    string
	lenient bool
	logger  *zap.Logger
}

// NewResolver returns a Resolver rooted at root. The root is cleaned once
// and never changes afterwards.
func NewResolver(fs FileSystem, root string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		fs:     fs,
		root:   filepath.Clean(root),
		logger: logger,
	}
}

// Root returns the directory every path is resolved against.
func (r *Resolver) Root() string {
	return r.root
}

// Join maps path onto the root without touching the file system. An empty
// path, or one equal to the root, yields the root itself.
func (r *Resolver) Join(path string) string {
	if path == "" || path == r.root {
		return r.root
	}
	return filepath.Join(r.root, filepath.FromSlash(path))
}

// Resolve returns the absolute path for path. When createIntermediateDirectories
// is set and the parent of the result is not the root, the parent and all
// its missing ancestors are created first.
//
// A directory creation failure is returned as a *PathError wrapping
// ErrCreateDir, unless the Resolver is lenient, in which case it is logged
// and the resolved path is returned anyway.
func (r *Resolver) Resolve(ctx context.Context, path string, createIntermediateDirectories bool) (string, error) {
	if path == r.root {
		return path, nil
	}

	resolved := r.Join(path)
	if !createIntermediateDirectories || resolved == r.root {
		return resolved, nil
	}

	parent := filepath.Dir(resolved)
	if parent == r.root {
		return resolved, nil
	}

	if err := r.fs.CreateDir(ctx, parent); err != nil {
		if r.lenient {
			r.logger.Warn("failed to create intermediate directories",
				zap.String("path", path),
				zap.String("dir", parent),
				zap.Error(err),
			)
			return resolved, nil
		}
		return "", &PathError{
			Op:   "resolve",
			Path: path,
			Err:  fmt.Errorf("%w: %w", ErrCreateDir, err),
		}
	}

	return resolved, nil
}
