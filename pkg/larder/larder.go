// Package larder provides the public API for opening file-backed document
// collections while keeping implementation details internal.
//
// Example:
//
//	coll, err := larder.Open("data/records.json",
//	    larder.WithLogger(logger),
//	    larder.WithLockOptions(types.LockOptions{Timeout: 5 * time.Second}),
//	)
//	if err != nil {
//	    return err
//	}
//	defer coll.Close()
//
//	res, err := coll.InsertOne(ctx, types.Document{"title": "Blue Train"})
package larder

import (
	"io/fs"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mesh-intelligence/larder/internal/collection"
	"github.com/mesh-intelligence/larder/internal/metrics"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// Version is the library and CLI version.
const Version = "0.3.0"

// Option configures Open.
type Option func(*types.Options)

// WithLockOptions sets the cross-process lock parameters. Zero fields keep
// their defaults.
func WithLockOptions(l types.LockOptions) Option {
	return func(o *types.Options) { o.Lock = l }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *types.Options) { o.Logger = logger }
}

// WithObserver sets a custom measurement sink.
func WithObserver(obs types.Observer) Option {
	return func(o *types.Options) { o.Observer = obs }
}

// WithMetrics registers Prometheus metrics for the collection with reg.
// Collections sharing a registry must share one observer; use
// NewMetrics and WithObserver for that.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *types.Options) { o.Observer = metrics.New(reg) }
}

// NewMetrics registers the collection metrics with reg and returns an
// observer that can be shared by many collections.
func NewMetrics(reg prometheus.Registerer) types.Observer {
	return metrics.New(reg)
}

// WithWatch enables change watching so reads observe writes made by other
// processes without an explicit Reload.
func WithWatch() Option {
	return func(o *types.Options) { o.WatchChanges = true }
}

// WithOnChange enables change watching and calls fn for each change to the
// collection file.
func WithOnChange(fn func()) Option {
	return func(o *types.Options) {
		o.WatchChanges = true
		o.OnChange = fn
	}
}

// WithFileMode sets the permissions used when the collection file is
// created.
func WithFileMode(mode fs.FileMode) Option {
	return func(o *types.Options) { o.FileMode = mode }
}

// Open returns the collection stored in the JSON file at path.
func Open(path string, opts ...Option) (types.Collection, error) {
	var o types.Options
	for _, opt := range opts {
		opt(&o)
	}
	return OpenWithOptions(path, o)
}

// OpenWithOptions is Open for callers that build types.Options directly,
// such as from a configuration file.
func OpenWithOptions(path string, o types.Options) (types.Collection, error) {
	c, err := collection.Open(path, o)
	if err != nil {
		return nil, err
	}
	return c, nil
}
