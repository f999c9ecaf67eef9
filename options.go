package docstore

// Option configures a single Write call
type Option func(*Options)

// Options contains the settings drivers honour when writing a file
type Options struct {
	// ContentType specifies the MIME type of the file
	ContentType string

	// Visibility defines who may read the file on disk
	Visibility Visibility
}

// Visibility represents file visibility
type Visibility string

const (
	// Private means only the owning user can read the file (0600)
	Private Visibility = "private"

	// Public means every local user can read the file (0644)
	Public Visibility = "public"
)

// WithContentType sets the content type of the file
func WithContentType(contentType string) Option {
	return func(o *Options) {
		o.ContentType = contentType
	}
}

// WithVisibility sets the file visibility
func WithVisibility(visibility Visibility) Option {
	return func(o *Options) {
		o.Visibility = visibility
	}
}

// ApplyOptions folds opts into a fresh Options value.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
