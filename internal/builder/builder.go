// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package builder orchestrates one build: resolving the output/tmp
// endpoints, creating or awakening Metadata, and driving the work and
// clip thread pools that insert files into the Registry. Grounded on
// cmd/cc-backend/main.go's goroutine/WaitGroup/signal wiring and the
// metric store's Init/background-worker pattern, generalised into
// internal/workpool.
package builder

import (
	"context"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/zhan520/entwine/internal/chunk"
	"github.com/zhan520/entwine/internal/clip"
	"github.com/zhan520/entwine/internal/config"
	"github.com/zhan520/entwine/internal/entwineerr"
	"github.com/zhan520/entwine/internal/executor"
	"github.com/zhan520/entwine/internal/hierarchy"
	"github.com/zhan520/entwine/internal/metadata"
	"github.com/zhan520/entwine/internal/metrics"
	"github.com/zhan520/entwine/internal/pool"
	"github.com/zhan520/entwine/internal/registry"
	"github.com/zhan520/entwine/internal/schema"
	"github.com/zhan520/entwine/internal/spatial"
	"github.com/zhan520/entwine/internal/storage"
	"github.com/zhan520/entwine/internal/workpool"
	"github.com/zhan520/entwine/pkg/log"
)

// Builder drives one index build end to end.
type Builder struct {
	cfg      config.Config
	Metadata *metadata.Metadata
	Manifest *metadata.Manifest
	Hier     *hierarchy.Hierarchy
	Registry *registry.Registry

	endpoint storage.Endpoint
	tmpDir   string
	codec    storage.ChunkCodec
	pool     *pool.Pool
	executor executor.Executor

	workPool *workpool.Pool
	clipPool *workpool.Pool

	inserted int64
}

// New resolves output/tmp endpoints and either awakens an existing index
// at cfg.Output or initialises a fresh one, depending on whether an
// entwine.json is already present there and cfg.Force.
func New(ctx context.Context, cfg config.Config, exec executor.Executor) (*Builder, error) {
	endpoint, err := resolveEndpoint(ctx, cfg.Output)
	if err != nil {
		return nil, entwineerr.New(entwineerr.ConfigError, cfg.Output, err)
	}

	tmpDir := cfg.Tmp
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, entwineerr.New(entwineerr.ConfigError, tmpDir, err)
	}

	sch := schema.Default
	codec := storage.NewCodec(string(cfg.DataStorage), sch)

	exists := false
	if !cfg.Force {
		metaName := "entwine.json"
		if cfg.Subset != nil {
			metaName = "entwine-" + strconv.FormatUint(cfg.Subset.Id, 10) + ".json"
		}
		ok, err := endpoint.Exists(ctx, metaName)
		if err == nil && ok {
			exists = true
		}
	}

	b := &Builder{
		cfg:      cfg,
		endpoint: endpoint,
		tmpDir:   tmpDir,
		codec:    codec,
		pool:     pool.New(sch.PointSize()),
		executor: exec,
		workPool: workpool.New(int(cfg.Threads.Work)),
		clipPool: workpool.New(int(cfg.Threads.Clip)),
	}

	if exists {
		if err := b.awaken(ctx); err != nil {
			return nil, err
		}
		log.Infof("awakened existing index at %s", cfg.Output)
		return b, nil
	}

	b.Hier = hierarchy.New()
	nativeBounds, err := previewBounds(ctx, exec, cfg.Input)
	if err != nil {
		return nil, err
	}
	b.Metadata = metadata.New(nativeBounds, cfg, sch)
	b.Manifest = metadata.NewManifest(cfg.Input)

	chunkCfg := chunk.Config{Splits: uint32(cfg.Splits), OverflowDepth: cfg.OverflowDepth, OverflowRatio: cfg.OverflowRatio}
	b.Registry = registry.New(b.Metadata.ScaledCubic, chunkCfg, b.Hier, endpoint, codec)
	b.Registry.SetNamer(chunkNamer(b.Metadata, codec))

	log.Infof("initialised new index at %s (%d input files)", cfg.Output, len(cfg.Input))
	return b, nil
}

// chunkNamer names a chunk file through Metadata.ChunkFilename, at the
// shared depth implied by this build's subset (0 for a whole, non-subset
// build, meaning no depth gets a subset postfix).
func chunkNamer(m *metadata.Metadata, codec storage.ChunkCodec) func(spatial.Key) string {
	var sharedDepth uint32
	if m.Subset != nil {
		sharedDepth = spatial.SharedDepth(m.Subset.Of)
	}
	return func(key spatial.Key) string {
		return m.ChunkFilename(key, sharedDepth, codec.Extension())
	}
}

func previewBounds(ctx context.Context, exec executor.Executor, inputs []string) (spatial.Bounds, error) {
	var bounds spatial.Bounds
	first := true
	for _, path := range inputs {
		p, err := exec.Preview(ctx, path)
		if err != nil {
			return spatial.Bounds{}, entwineerr.New(entwineerr.DecodeError, path, err)
		}
		if first {
			bounds = p.Bounds
			first = false
			continue
		}
		bounds = bounds.Grow(p.Bounds.Min).Grow(p.Bounds.Max)
	}
	return bounds, nil
}

func resolveEndpoint(ctx context.Context, output string) (storage.Endpoint, error) {
	if len(output) >= 5 && output[:5] == "s3://" {
		rest := output[5:]
		bucket := rest
		prefix := ""
		for i, c := range rest {
			if c == '/' {
				bucket = rest[:i]
				prefix = rest[i+1:]
				break
			}
		}
		return storage.NewS3Endpoint(ctx, storage.S3Config{Bucket: bucket, Prefix: prefix})
	}
	return storage.NewLocalEndpoint(output)
}

// Go repeatedly asks the manifest for the next outstanding file and
// submits an insert task to the work pool, until every file has left the
// Outstanding state or max files have been submitted (max <= 0 means no
// limit).
func (b *Builder) Go(ctx context.Context, max int) {
	submitted := 0
	for {
		if max > 0 && submitted >= max {
			break
		}
		idx, info, ok := b.Manifest.Next()
		if !ok {
			break
		}
		b.Manifest.Claim(idx)
		submitted++

		origin := uint64(idx)
		path := info.Path
		b.workPool.Submit(func() {
			b.insertFile(ctx, origin, idx, path)
		})
	}
}

func (b *Builder) insertFile(ctx context.Context, origin uint64, idx int, path string) {
	local, err := fetchToLocal(ctx, path, b.tmpDir, b.endpoint)
	if err != nil {
		b.Manifest.Complete(idx, metadata.Error, 0, 0, 0, err.Error())
		metrics.FilesErrored.Inc()
		return
	}

	if b.Metadata.SRS() == "" && !b.cfg.TrustHeaders {
		prev, err := b.executor.Preview(ctx, local)
		if err == nil {
			b.Metadata.SetSRS(prev.SRS)
		}
	}

	clipper := clip.NewClipper(origin, b.Registry.Residency(), b.cfg.SleepCount)
	defer clipper.Close()

	var insertedCount, outOfBounds, foreignSubset uint64
	batchErr := b.executor.Decode(ctx, local, b.pool, 0, func(cells []*pool.Cell) error {
		for _, cell := range cells {
			if !b.Metadata.ScaledCubic.Contains(cell.Point) {
				outOfBounds++
				metrics.PointsOutOfBounds.Inc()
				continue
			}
			if b.cfg.Subset != nil && b.cfg.Subset.Of > 1 {
				owner := spatial.SubsetOwner(b.Metadata.ScaledCubic, cell.Point, b.cfg.Subset.Of)
				if owner != b.cfg.Subset.Id {
					// Not this subset's volume: every other subset build
					// over the same input owns it instead. Dropping it
					// here, rather than inserting it everywhere, is what
					// makes Registry.Merge's concatenation duplication-free.
					foreignSubset++
					continue
				}
			}
			if err := b.Registry.AddPoint(cell, clipper); err != nil {
				return err
			}
			insertedCount++
			atomic.AddInt64(&b.inserted, 1)
			metrics.PointsInserted.Inc()
			clipper.Tick()
		}
		return nil
	})

	if batchErr != nil {
		b.Manifest.Complete(idx, metadata.Error, insertedCount, outOfBounds, foreignSubset, batchErr.Error())
		metrics.FilesErrored.Inc()
		return
	}
	b.Manifest.Complete(idx, metadata.Inserted, insertedCount, outOfBounds, foreignSubset, "")
	metrics.FilesInserted.Inc()
}

// Save cycles both thread pools to quiescence, then saves hierarchy,
// registry and metadata in that order.
func (b *Builder) Save(ctx context.Context) error {
	b.workPool.Cycle()
	b.clipPool.Cycle()

	if err := b.saveHierarchy(ctx); err != nil {
		return err
	}
	if err := b.Registry.Save(ctx); err != nil {
		return err
	}
	if err := b.saveChunkIndex(ctx); err != nil {
		return err
	}
	return b.saveMetadata(ctx)
}

