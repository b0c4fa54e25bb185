// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package merger drives the sequential subset-reconciliation algorithm:
// awaken subset 0's build, then repeatedly fetch a batch of sibling
// subset builds in parallel and fold each into the running build in
// order, until every subset has been merged. Grounded on
// original_source/entwine/tree/merger.{hpp,cpp}.
package merger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/zhan520/entwine/internal/builder"
	"github.com/zhan520/entwine/internal/config"
	"github.com/zhan520/entwine/internal/entwineerr"
	"github.com/zhan520/entwine/internal/executor"
	"github.com/zhan520/entwine/pkg/log"
)

// Merger reconciles every subset of a partitioned build into subset 0's
// tree, one batch of siblings at a time.
type Merger struct {
	cfg     config.Config
	exec    executor.Executor
	primary *builder.Builder

	of        uint64
	nextID    uint64
	batchSize int
}

// New awakens the subset 0 build at cfg.Output and prepares to merge the
// remaining 1..of-1 subsets into it. cfg.Output must already hold a
// persisted subset-0 build (see Builder.awaken).
func New(ctx context.Context, cfg config.Config, exec executor.Executor) (*Merger, error) {
	if cfg.Subset == nil {
		return nil, entwineerr.New(entwineerr.MergeError, cfg.Output, fmt.Errorf("config has no subset block, nothing to merge"))
	}
	cfg.Subset = &config.Subset{Id: 0, Of: cfg.Subset.Of}
	cfg.Force = false

	primary, err := builder.New(ctx, cfg, exec)
	if err != nil {
		return nil, err
	}
	if primary.Metadata.Subset == nil {
		return nil, entwineerr.New(entwineerr.MergeError, cfg.Output, fmt.Errorf("path is already whole, no merge needed"))
	}

	of := primary.Metadata.Subset.Of
	batch := int(cfg.Threads.Work)
	if batch < 1 {
		batch = 1
	}
	log.Subsetf(0, of, "awakened primary, %d siblings to fold in", of-1)

	return &Merger{
		cfg:       cfg,
		exec:      exec,
		primary:   primary,
		of:        of,
		nextID:    1,
		batchSize: batch,
	}, nil
}

// siblingConfig derives the config for one sibling subset build: same
// output root and thread/storage settings as base, but addressing subset
// id instead of base's own.
func siblingConfig(base config.Config, id uint64) config.Config {
	cfg := base
	cfg.Subset = &config.Subset{Id: id, Of: base.Subset.Of}
	return cfg
}

// Go runs the merge loop to completion: fetch up to batchSize sibling
// builds concurrently, fold each into the primary build in increasing
// subset-id order, and repeat until every subset has been merged, then
// saves the reconciled whole.
func (m *Merger) Go(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err == nil {
		_, jobErr := scheduler.NewJob(
			gocron.DurationJob(5*time.Second),
			gocron.NewTask(func() {
				log.Subsetf(m.nextID, m.of, "merging into primary")
			}),
		)
		if jobErr == nil {
			scheduler.Start()
			defer scheduler.Shutdown()
		}
	}

	for m.nextID < m.of {
		n := m.batchSize
		if remaining := int(m.of - m.nextID); n > remaining {
			n = remaining
		}

		batch := make([]*builder.Builder, n)
		errs := make([]error, n)
		done := make(chan int, n)

		for i := 0; i < n; i++ {
			id := m.nextID + uint64(i)
			go func(idx int, id uint64) {
				cfg := siblingConfig(m.cfg, id)
				b, err := builder.New(ctx, cfg, m.exec)
				batch[idx] = b
				errs[idx] = err
				done <- idx
			}(i, id)
		}
		for i := 0; i < n; i++ {
			<-done
		}

		for i := 0; i < n; i++ {
			if errs[i] != nil {
				return entwineerr.New(entwineerr.MergeError, strconv.FormatUint(m.nextID+uint64(i), 10), errs[i])
			}
			if err := m.primary.Merge(batch[i]); err != nil {
				return err
			}
		}

		m.nextID += uint64(n)
	}

	m.primary.Metadata.Subset = nil
	return m.primary.Save(ctx)
}
