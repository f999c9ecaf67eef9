// Package docstore saves and loads application documents below a single
// document root.
//
// Callers name files with paths relative to the root, such as
// "Folder/SubFolder/notes.json". A [Store] resolves them to absolute paths,
// creates missing parent directories on save, and writes through a
// [FileSystem] driver. Every write is atomic: a reader sees the old content
// or the new content, never a mix.
//
// # Drivers
//
// Two drivers ship with the module. Importing a driver package registers it
// with [New]:
//
//   - Local filesystem (github.com/gobeaver/docstore/driver/local)
//   - In-memory (github.com/gobeaver/docstore/driver/memory)
//
// The local driver defaults to the user's documents directory.
//
// # Basic Usage
//
//	import "github.com/gobeaver/docstore/driver/local"
//
//	fs, err := local.New("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store, err := docstore.NewStore(fs)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//
//	// Save and load text
//	err = store.SaveText(ctx, "Hello, World!", "notes/hello.txt")
//	text, ok := store.LoadText(ctx, "notes/hello.txt")
//
//	// JSON documents load as generic maps and slices
//	err = store.SaveJSON(ctx, map[string]any{"key": "value"}, "Folder/test.json")
//	doc, ok := store.LoadJSON(ctx, "Folder/test.json")
//
//	// Archived objects decode into a typed value
//	err = store.SaveObject(ctx, settings, "settings.bin")
//	var loaded Settings
//	ok = store.LoadObject(ctx, "settings.bin", &loaded)
//
// Loads never return an error. A missing, unreadable or undecodable file
// reads as (zero, false); the cause is logged at debug level.
//
// # Codecs
//
// JSON and archive encodings are pluggable through the codec package.
// [WithArchiveCodec] swaps gob for CBOR, and [Store.SaveDocument] with
// [LoadAs] cover YAML and TOML:
//
//	store.SaveDocument(ctx, codec.YAML, cfg, "config.yaml")
//	cfg, ok := docstore.LoadAs[Config](ctx, store, codec.YAML, "config.yaml")
//
// # Decorators
//
//	// Reject every save and remove
//	ro := docstore.NewReadOnlyFileSystem(fs)
//
//	// Prometheus counters and latency histograms
//	metrics, _ := docstore.NewMetrics(prometheus.DefaultRegisterer)
//	inst := docstore.NewInstrumentedFileSystem(fs, metrics)
//
// # Error Handling
//
//	err := store.Remove(ctx, "missing.txt")
//	if docstore.IsNotExist(err) {
//	    // Nothing to remove
//	}
//
//	var pathErr *docstore.PathError
//	if errors.As(err, &pathErr) {
//	    fmt.Printf("Operation: %s, Path: %s\n", pathErr.Op, pathErr.Path)
//	}
//
// # Configuration
//
// [New] builds a Store from a [Config], which can be loaded from environment
// variables with the BEAVER_ prefix:
//
//	store, err := docstore.NewFromEnv()
//
//	// BEAVER_DOCSTORE_DRIVER=memory
//	// BEAVER_DOCSTORE_ARCHIVE_FORMAT=cbor
//	// BEAVER_DOCSTORE_LOG_LEVEL=debug
package docstore
