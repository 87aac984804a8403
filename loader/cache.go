// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package loader

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"econuy.io/econuy/dataset"
)

// DataDirEnv overrides the cache directory when set.
const DataDirEnv = "ECONUY_DATA_DIR"

// Cache persists datasets as a file pair per name: {name}.csv for the
// data and {name}_metadata.json for the metadata, including the creation
// timestamp used for staleness checks.
type Cache struct {
	log *zap.Logger
	dir string
}

// NewCache opens a cache rooted at dir. An empty dir falls back to the
// ECONUY_DATA_DIR environment variable, then to a per-user cache
// directory. The directory is created with owner-only permissions.
func NewCache(log *zap.Logger, dir string) (*Cache, error) {
	if dir == "" {
		dir = os.Getenv(DataDirEnv)
	}
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, Error.Wrap(err)
		}
		dir = filepath.Join(base, "econuy")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, Error.Wrap(err)
	}
	return &Cache{log: log, dir: dir}, nil
}

// Dir returns the resolved cache directory.
func (cache *Cache) Dir() string { return cache.dir }

func (cache *Cache) paths(name string) (dataPath, metaPath string) {
	return filepath.Join(cache.dir, name+".csv"),
		filepath.Join(cache.dir, name+"_metadata.json")
}

// Read returns the cached dataset for a name, or nil when either file of
// the pair is absent. A present but unparsable pair is an error, not a
// miss: silent refetching would hide corruption.
func (cache *Cache) Read(name string) (*dataset.Dataset, error) {
	dataPath, metaPath := cache.paths(name)

	dataFile, err := os.Open(dataPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer func() { _ = dataFile.Close() }()

	metaFile, err := os.Open(metaPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer func() { _ = metaFile.Close() }()

	data, err := dataset.ReadCSV(dataFile)
	if err != nil {
		return nil, Error.New("cache entry %q: %w", name, err)
	}
	meta, err := dataset.ReadMetadataJSON(metaFile)
	if err != nil {
		return nil, Error.New("cache entry %q: %w", name, err)
	}
	return dataset.New(name, data, meta)
}

// Write persists a dataset under its name, replacing any previous pair.
// Both files are written to temporary names first so a crash never
// leaves a half-written entry behind.
func (cache *Cache) Write(d *dataset.Dataset) error {
	dataPath, metaPath := cache.paths(d.Name())

	if err := writeAtomic(dataPath, func(f *os.File) error {
		return d.Data().WriteCSV(f)
	}); err != nil {
		return Error.Wrap(err)
	}
	if err := writeAtomic(metaPath, func(f *os.File) error {
		return d.Metadata().WriteJSON(f)
	}); err != nil {
		return Error.Wrap(err)
	}

	cache.log.Debug("cached dataset",
		zap.String("name", d.Name()), zap.String("dir", cache.dir))
	return nil
}

func writeAtomic(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
