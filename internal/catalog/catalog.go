// Package catalog runs create, read, update and delete operations against an
// archive: the relational store, the directory tree and the per-measurement
// HDF5 files.
//
// Writers are serialized by a process-wide mutex. Every multi-step write
// runs the filesystem step inside the database transaction and undoes it if
// the transaction does not commit, so the store and the directory tree never
// disagree about which records exist.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/specatalog/internal/archive"
	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/metrics"
	"github.com/roach88/specatalog/internal/registry"
	"github.com/roach88/specatalog/internal/schema"
	"github.com/roach88/specatalog/internal/shape"
	"github.com/roach88/specatalog/internal/store"
)

// DefaultMaxAttempts bounds ID allocation retries after a key conflict.
const DefaultMaxAttempts = 3

// IDGenerator names trash entries and operations.
// Implemented by UUIDv7Generator (production) and
// testutil.SequenceGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDs.
type UUIDv7Generator struct{}

// Generate implements IDGenerator.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Catalog is the entry point for all archive operations.
type Catalog struct {
	store   *store.Store
	layout  *archive.Layout
	allowed schema.AllowedValues
	shapes  *shape.Factory
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
	ids     IDGenerator

	maxAttempts int

	// mu serializes writers: allocation, directory changes, HDF5 writes.
	mu sync.Mutex
}

type options struct {
	logger      *slog.Logger
	metrics     metrics.Recorder
	now         func() time.Time
	ids         IDGenerator
	allowed     schema.AllowedValues
	maxAttempts int
}

// Option configures a Catalog.
type Option func(*options)

// WithLogger sets the logger shared by the catalog, store and layout.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the operation recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(o *options) {
		o.metrics = r
	}
}

// WithClock replaces time.Now for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		o.ids = g
	}
}

// WithAllowedValues replaces the allowed-values file of the archive.
func WithAllowedValues(a schema.AllowedValues) Option {
	return func(o *options) {
		o.allowed = a
	}
}

// WithMaxAttempts sets the allocation attempt bound.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		o.maxAttempts = n
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:      slog.Default(),
		metrics:     metrics.Nop{},
		now:         time.Now,
		ids:         UUIDv7Generator{},
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxAttempts < 1 {
		o.maxAttempts = 1
	}
	return o
}

// Init creates the archive skeleton at baseDir: the data and molecules
// directories, the allowed-values file and the database. Existing parts are
// kept, so Init is safe to run on an initialized archive.
func Init(baseDir string, opts ...Option) error {
	o := buildOptions(opts)
	layout, err := archive.New(baseDir, archive.WithLogger(o.logger))
	if err != nil {
		return err
	}
	if err := layout.Init(); err != nil {
		return fmt.Errorf("init archive: %w", err)
	}

	wrote, err := registry.WriteDefault(layout.AllowedValuesPath())
	if err != nil {
		return fmt.Errorf("init archive: %w", err)
	}
	if wrote {
		o.logger.Info("allowed values file created", "path", layout.AllowedValuesPath())
	}

	st, err := store.Open(layout.DatabasePath(), store.WithLogger(o.logger))
	if err != nil {
		return fmt.Errorf("init archive: %w", err)
	}
	if err := st.Close(); err != nil {
		return fmt.Errorf("init archive: %w", err)
	}

	o.logger.Info("archive initialized", "base_dir", layout.BaseDir)
	return nil
}

// Open opens an initialized archive.
func Open(baseDir string, opts ...Option) (*Catalog, error) {
	o := buildOptions(opts)

	layout, err := archive.New(baseDir,
		archive.WithLogger(o.logger),
		archive.WithIDGenerator(o.ids.Generate),
	)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(layout.BaseDir); err != nil || !info.IsDir() {
		return nil, catalogerr.Configuration("", "archive %s does not exist; run `specatalog init`", layout.BaseDir)
	}

	allowed := o.allowed
	if allowed == nil {
		reg, err := registry.Open(layout.AllowedValuesPath(), o.logger)
		if err != nil {
			return nil, err
		}
		allowed = reg
	}

	shapes := shape.NewFactory()
	if err := shapes.Warm(); err != nil {
		return nil, err
	}

	st, err := store.Open(layout.DatabasePath(), store.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	return &Catalog{
		store:       st,
		layout:      layout,
		allowed:     allowed,
		shapes:      shapes,
		logger:      o.logger,
		metrics:     o.metrics,
		now:         o.now,
		ids:         o.ids,
		maxAttempts: o.maxAttempts,
	}, nil
}

// Close closes the store.
func (c *Catalog) Close() error {
	return c.store.Close()
}

// Layout returns the archive layout.
func (c *Catalog) Layout() *archive.Layout {
	return c.layout
}

// Shapes returns the derived filter, ordering and update shapes of e.
func (c *Catalog) Shapes(e *schema.Entity) (*shape.Shapes, error) {
	return c.shapes.For(e)
}

// ReloadAllowedValues re-reads the allowed-values file.
func (c *Catalog) ReloadAllowedValues() error {
	reg, ok := c.allowed.(*registry.Registry)
	if !ok {
		return errors.New("reload allowed values: catalog uses a fixed table")
	}
	return reg.Reload()
}

// MeasurementPath returns the existing directory of a measurement.
func (c *Catalog) MeasurementPath(id int64) (string, error) {
	return c.layout.MeasurementPath(id)
}

// begin starts an operation: it returns a logger tagged with the operation
// and a function that records the outcome.
func (c *Catalog) begin(ctx context.Context, op string) (*slog.Logger, func(*error)) {
	start := time.Now()
	log := c.logger.With("op", op, "op_id", c.ids.Generate())
	return log, func(errp *error) {
		c.metrics.Observe(ctx, op, *errp, time.Since(start))
	}
}

// timestamp returns the current time as stored in created_at/updated_at.
func (c *Catalog) timestamp() time.Time {
	return c.now().UTC()
}
