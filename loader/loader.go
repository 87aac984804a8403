// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

// Package loader orchestrates dataset retrieval: registry lookup, cache
// staleness, drift validation against the cached revision, retry budget
// and bounded-concurrency batch loading.
package loader

import (
	"context"
	"sync"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"econuy.io/econuy/dataset"
	"econuy.io/econuy/internal/sync2"
)

var (
	// Error is the default loader errs class.
	Error = errs.Class("loader")

	// ErrUnknownDataset is returned for names absent from the registry.
	ErrUnknownDataset = errs.Class("unknown dataset")

	// ErrCycle is returned when retrieval functions load each other in a
	// loop. A cycle is a registry configuration bug, not a runtime
	// condition to retry.
	ErrCycle = errs.Class("dependency cycle")

	mon = monkit.Package()
)

// Config holds the loader parameters.
type Config struct {
	DataDir   string        `help:"directory for cached datasets, defaults to the user cache dir" default:""`
	Workers   int           `help:"maximum concurrent dataset retrievals" default:"4"`
	Staleness time.Duration `help:"cache age after which an update check runs" default:"24h"`
}

// Options adjusts a single load. The zero value is the normal path.
type Options struct {
	// SkipCache bypasses the cache entirely: always retrieve, never
	// persist.
	SkipCache bool
	// ForceOverwrite retrieves and replaces the cached revision without
	// drift validation.
	ForceOverwrite bool
	// SkipUpdate returns the cached revision regardless of age.
	SkipUpdate bool
}

// Loader loads datasets by name, serving them from the cache when fresh
// and revalidating against the source when stale. It satisfies
// transform.Provider, so conversions can pull reference series through
// the same path.
type Loader struct {
	log       *zap.Logger
	registry  Registry
	cache     *Cache
	retry     RetryPolicy
	staleness time.Duration
	workers   int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Loader.
func New(log *zap.Logger, registry Registry, cache *Cache, retry RetryPolicy, config Config) *Loader {
	staleness := config.Staleness
	if staleness <= 0 {
		staleness = 24 * time.Hour
	}
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	return &Loader{
		log:       log,
		registry:  registry,
		cache:     cache,
		retry:     retry,
		staleness: staleness,
		workers:   workers,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Registry returns the loader's registry.
func (ld *Loader) Registry() Registry { return ld.registry }

// Load loads a dataset with default options.
func (ld *Loader) Load(ctx context.Context, name string) (*dataset.Dataset, error) {
	return ld.LoadWith(ctx, name, Options{})
}

// LoadWith loads one dataset. A cached revision younger than the
// staleness threshold is returned as-is. A stale one triggers a
// retrieval; the fresh revision replaces the cache only when drift
// validation accepts it, otherwise the old cache entry is kept and the
// fresh data returned unpersisted. Loads of the same name are mutually
// exclusive, so concurrent callers never retrieve twice.
func (ld *Loader) LoadWith(ctx context.Context, name string, opts Options) (_ *dataset.Dataset, err error) {
	defer mon.Task()(&ctx)(&err)

	descriptor, ok := ld.registry.Get(name)
	if !ok {
		return nil, ErrUnknownDataset.New("%q", name)
	}

	path := loadPath(ctx)
	for _, ancestor := range path {
		if ancestor == name {
			return nil, ErrCycle.New("%q requested again while loading %v", name, path)
		}
	}

	// The cycle check above runs before taking the lock: a recursive
	// load of the same name would otherwise deadlock instead of failing.
	unlock := ld.lock(name)
	defer unlock()

	var cached *dataset.Dataset
	if !opts.SkipCache {
		cached, err = ld.cache.Read(name)
		if err != nil {
			return nil, err
		}
	}
	if cached != nil && !opts.ForceOverwrite {
		age := time.Since(cached.Metadata().CreatedAt())
		if opts.SkipUpdate || age < ld.staleness {
			ld.log.Debug("serving cached dataset",
				zap.String("name", name), zap.Duration("age", age))
			return cached, nil
		}
	}

	// The path slice is copied so sibling loads sharing the parent
	// context never append into the same backing array.
	extended := append(append(make([]string, 0, len(path)+1), path...), name)
	fresh, err := ld.retrieve(context.WithValue(ctx, loadPathKey{}, extended), descriptor)
	if err != nil {
		return nil, Error.New("retrieving %q: %w", name, err)
	}

	if opts.SkipCache {
		return fresh, nil
	}
	if cached != nil && !opts.ForceOverwrite {
		if err := ValidateRevision(cached, fresh); err != nil {
			ld.log.Warn("retrieved dataset drifted from cached revision, keeping cache",
				zap.String("name", name), zap.Error(err))
			return fresh, nil
		}
	}
	if err := ld.cache.Write(fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

func (ld *Loader) retrieve(ctx context.Context, descriptor Descriptor) (*dataset.Dataset, error) {
	var fresh *dataset.Dataset
	err := ld.retry.Run(ctx, func(ctx context.Context) error {
		var err error
		fresh, err = descriptor.Retrieve(ctx, ld)
		return err
	})
	return fresh, err
}

// lock acquires the per-name mutex and returns its release function.
func (ld *Loader) lock(name string) func() {
	ld.mu.Lock()
	named, ok := ld.locks[name]
	if !ok {
		named = new(sync.Mutex)
		ld.locks[name] = named
	}
	ld.mu.Unlock()

	named.Lock()
	return named.Unlock
}

type loadPathKey struct{}

func loadPath(ctx context.Context) []string {
	path, _ := ctx.Value(loadPathKey{}).([]string)
	return path
}

// Progress is invoked once per finished dataset during a batch load,
// with the error that load produced, if any.
type Progress func(name string, err error)

// LoadAll loads several datasets concurrently with a bounded worker
// pool. Failed loads are logged and excluded from the result; the batch
// itself only fails when the context is canceled.
func (ld *Loader) LoadAll(ctx context.Context, names []string, opts Options, progress Progress) (_ map[string]*dataset.Dataset, err error) {
	defer mon.Task()(&ctx)(&err)

	workers := ld.workers
	if len(names) < workers {
		workers = len(names)
	}
	if workers < 1 {
		workers = 1
	}
	limiter := sync2.NewLimiter(workers)

	var mu sync.Mutex
	results := make(map[string]*dataset.Dataset, len(names))
	for _, name := range names {
		name := name
		started := limiter.Go(ctx, func() {
			d, err := ld.LoadWith(ctx, name, opts)
			mu.Lock()
			if err != nil {
				ld.log.Error("dataset load failed",
					zap.String("name", name), zap.Error(err))
			} else {
				results[name] = d
			}
			mu.Unlock()
			if progress != nil {
				progress(name, err)
			}
		})
		if !started {
			break
		}
	}
	limiter.Wait()

	if err := ctx.Err(); err != nil {
		return results, Error.Wrap(err)
	}
	return results, nil
}
