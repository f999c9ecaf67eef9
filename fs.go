package docstore

import (
	"context"
	"io"
)

// ============================================================================
// Platform File Service (Interface Segregation)
// ============================================================================

// FileReader provides read-only access to the platform file service.
type FileReader interface {
	// ReadAll reads the entire file into memory.
	ReadAll(ctx context.Context, path string) ([]byte, error)

	// FileExists reports whether a regular file exists at path.
	FileExists(ctx context.Context, path string) (bool, error)

	// DirExists reports whether a directory exists at path.
	DirExists(ctx context.Context, path string) (bool, error)
}

// FileWriter provides write operations on the platform file service.
type FileWriter interface {
	// Write replaces the file at path with the content of r.
	// Readers observe either the previous content or the complete new content.
	// The parent directory must already exist.
	Write(ctx context.Context, path string, r io.Reader, opts ...Option) error

	// Delete removes a file. Deleting a missing file is an error.
	Delete(ctx context.Context, path string) error

	// CreateDir creates a directory and any missing parents.
	// An existing directory is not an error.
	CreateDir(ctx context.Context, path string) error
}

// FileSystem is the full capability set a Store needs from the platform.
type FileSystem interface {
	FileReader
	FileWriter

	// DocumentRoot returns the absolute directory the platform designates
	// for user documents. A Store queries it once, at construction.
	DocumentRoot() string
}

// ============================================================================
// Optional Capability Interfaces
// ============================================================================
// Use a type assertion to check whether a driver supports a capability:
//
//	if cs, ok := fs.(CanChecksum); ok {
//	    sum, err := cs.Checksum(ctx, path, ChecksumSHA256)
//	}

// ChecksumAlgorithm represents a supported checksum algorithm
type ChecksumAlgorithm string

const (
	// ChecksumMD5 is the MD5 hash algorithm (128-bit, fast but not cryptographically secure)
	ChecksumMD5 ChecksumAlgorithm = "md5"
	// ChecksumSHA1 is the SHA-1 hash algorithm (160-bit, legacy)
	ChecksumSHA1 ChecksumAlgorithm = "sha1"
	// ChecksumSHA256 is the SHA-256 hash algorithm (256-bit, recommended)
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	// ChecksumCRC32 is the CRC32 checksum (32-bit, for integrity only)
	ChecksumCRC32 ChecksumAlgorithm = "crc32"
	// ChecksumXXHash is the xxHash algorithm (64-bit, extremely fast)
	ChecksumXXHash ChecksumAlgorithm = "xxhash"
)

// CanChecksum indicates the driver can hash a file without handing its
// content to the caller.
type CanChecksum interface {
	// Checksum returns the hex-encoded checksum of the file at path.
	Checksum(ctx context.Context, path string, algorithm ChecksumAlgorithm) (string, error)
}

// ChangeToken signals that a watched file changed.
//
// Consumers either poll HasChanged or register a callback. A token is
// single-use: once HasChanged returns true it stays true.
type ChangeToken interface {
	HasChanged() bool

	// ActiveChangeCallbacks reports whether registered callbacks are invoked
	// proactively. If false, poll HasChanged instead.
	ActiveChangeCallbacks() bool

	// RegisterChangeCallback registers a callback invoked on change and
	// returns a function that unregisters it.
	RegisterChangeCallback(callback func()) (unregister func())
}

// CanWatch indicates the driver supports change notifications.
type CanWatch interface {
	// Watch returns a token that fires when a file matching pattern is
	// created, modified or deleted. Patterns are globs over absolute,
	// slash-separated paths; "**" crosses directory boundaries.
	Watch(ctx context.Context, pattern string) (ChangeToken, error)
}
