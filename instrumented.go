package docstore

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for file system operations.
type Metrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	BytesIn    prometheus.Counter
	BytesOut   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered. Calling NewMetrics again with the same reg
// returns the collectors registered the first time.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docstore_operations_total",
				Help: "Total number of file system operations",
			},
			[]string{"op", "status"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docstore_operation_duration_seconds",
				Help:    "File system operation duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"op"},
		),
		BytesIn: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docstore_read_bytes_total",
				Help: "Total bytes read",
			},
		),
		BytesOut: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docstore_written_bytes_total",
				Help: "Total bytes written",
			},
		),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	if m.Operations, err = register(reg, m.Operations); err != nil {
		return nil, err
	}
	if m.Duration, err = register(reg, m.Duration); err != nil {
		return nil, err
	}
	if m.BytesIn, err = register(reg, m.BytesIn); err != nil {
		return nil, err
	}
	if m.BytesOut, err = register(reg, m.BytesOut); err != nil {
		return nil, err
	}

	return m, nil
}

// register adds c to reg. If an identical collector is already registered,
// that one is returned instead so stores sharing a registry share counters.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

// operationStatus buckets an error into a low-cardinality label.
func operationStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsNotExist(err):
		return "not_found"
	case IsPermission(err), IsReadOnlyError(err):
		return "denied"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// InstrumentedFileSystem records every call to the wrapped FileSystem.
type InstrumentedFileSystem struct {
	fs      FileSystem
	metrics *Metrics
}

// NewInstrumentedFileSystem wraps fs so that every operation updates m.
func NewInstrumentedFileSystem(fs FileSystem, m *Metrics) *InstrumentedFileSystem {
	return &InstrumentedFileSystem{fs: fs, metrics: m}
}

// Unwrap returns the underlying FileSystem.
func (i *InstrumentedFileSystem) Unwrap() FileSystem {
	return i.fs
}

func (i *InstrumentedFileSystem) observe(op string, start time.Time, err error) {
	i.metrics.Operations.WithLabelValues(op, operationStatus(err)).Inc()
	i.metrics.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (i *InstrumentedFileSystem) DocumentRoot() string {
	return i.fs.DocumentRoot()
}

func (i *InstrumentedFileSystem) ReadAll(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	data, err := i.fs.ReadAll(ctx, path)
	i.observe("read", start, err)
	if err == nil {
		i.metrics.BytesIn.Add(float64(len(data)))
	}
	return data, err
}

func (i *InstrumentedFileSystem) FileExists(ctx context.Context, path string) (bool, error) {
	start := time.Now()
	ok, err := i.fs.FileExists(ctx, path)
	i.observe("file_exists", start, err)
	return ok, err
}

func (i *InstrumentedFileSystem) DirExists(ctx context.Context, path string) (bool, error) {
	start := time.Now()
	ok, err := i.fs.DirExists(ctx, path)
	i.observe("dir_exists", start, err)
	return ok, err
}

func (i *InstrumentedFileSystem) Write(ctx context.Context, path string, content io.Reader, options ...Option) error {
	start := time.Now()
	cr := &countingReader{r: content}
	err := i.fs.Write(ctx, path, cr, options...)
	i.observe("write", start, err)
	if err == nil {
		i.metrics.BytesOut.Add(float64(cr.n))
	}
	return err
}

func (i *InstrumentedFileSystem) Delete(ctx context.Context, path string) error {
	start := time.Now()
	err := i.fs.Delete(ctx, path)
	i.observe("delete", start, err)
	return err
}

func (i *InstrumentedFileSystem) CreateDir(ctx context.Context, path string) error {
	start := time.Now()
	err := i.fs.CreateDir(ctx, path)
	i.observe("create_dir", start, err)
	return err
}

func (i *InstrumentedFileSystem) Checksum(ctx context.Context, path string, algorithm ChecksumAlgorithm) (string, error) {
	start := time.Now()
	var (
		sum string
		err error
	)
	if cs, ok := i.fs.(CanChecksum); ok {
		sum, err = cs.Checksum(ctx, path, algorithm)
	} else {
		sum, err = checksumByReading(ctx, i.fs, path, algorithm)
	}
	i.observe("checksum", start, err)
	return sum, err
}

func (i *InstrumentedFileSystem) Watch(ctx context.Context, pattern string) (ChangeToken, error) {
	start := time.Now()
	var (
		token ChangeToken
		err   error
	)
	if watcher, ok := i.fs.(CanWatch); ok {
		token, err = watcher.Watch(ctx, pattern)
	} else {
		err = &PathError{Op: "watch", Path: pattern, Err: ErrNotSupported}
	}
	i.observe("watch", start, err)
	return token, err
}

// countingReader counts bytes as the driver consumes them.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var (
	_ FileSystem  = (*InstrumentedFileSystem)(nil)
	_ CanChecksum = (*InstrumentedFileSystem)(nil)
	_ CanWatch    = (*InstrumentedFileSystem)(nil)
)
