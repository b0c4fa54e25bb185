// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package clip implements chunk residency: ref-counted in-memory chunks
// that are faulted in on first reference and persisted-then-evicted once
// no Clipper still needs them. Grounded on the metric store's retention
// sweep (decide what's still needed, free the rest) and its sync.Once
// singleton-init idiom for "at most one resident copy".
package clip

import (
	"sync"

	"github.com/zhan520/entwine/internal/chunk"
	"github.com/zhan520/entwine/internal/spatial"
)

// Loader materialises a chunk that isn't resident yet, either by
// deserializing it from storage or, for a never-before-seen key,
// constructing a fresh one.
type Loader func(key spatial.Key) (*chunk.Chunk, error)

// Saver persists a chunk that is about to be evicted.
type Saver func(key spatial.Key, c *chunk.Chunk) error

type entry struct {
	mu      sync.Mutex
	chunk   *chunk.Chunk
	refs    int
	loading chan struct{} // closed once loading completes; nil once resident
}

// Residency is the single source of truth for which chunks are currently
// in memory. Concurrent Acquire calls for the same key serialize on that
// key's entry so at most one load ever happens, and losers observe the
// winner's result instead of duplicating I/O.
type Residency struct {
	load Loader
	save Saver

	mu      sync.Mutex
	entries map[spatial.Key]*entry
}

// NewResidency creates a residency tracker backed by load/save.
func NewResidency(load Loader, save Saver) *Residency {
	return &Residency{load: load, save: save, entries: make(map[spatial.Key]*entry)}
}

// Acquire returns the resident chunk for key, loading it if necessary, and
// increments its ref count. Callers must pair this with exactly one
// Release (directly, or via a Clipper's clip cycle).
func (r *Residency) Acquire(key spatial.Key) (*chunk.Chunk, error) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{loading: make(chan struct{})}
		r.entries[key] = e
		r.mu.Unlock()

		c, err := r.load(key)
		e.mu.Lock()
		e.chunk = c
		e.refs = 1
		loadErr := err
		close(e.loading)
		e.loading = nil
		e.mu.Unlock()
		return c, loadErr
	}
	r.mu.Unlock()

	e.mu.Lock()
	loading := e.loading
	e.mu.Unlock()
	if loading != nil {
		<-loading
	}

	e.mu.Lock()
	e.refs++
	c := e.chunk
	e.mu.Unlock()
	return c, nil
}

// Release decrements key's ref count. When it reaches zero the chunk is
// persisted via Saver and removed from residency; a later Acquire will
// re-deserialize it.
func (r *Residency) Release(key spatial.Key) error {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	e.mu.Lock()
	e.refs--
	shouldEvict := e.refs <= 0
	c := e.chunk
	e.mu.Unlock()

	if !shouldEvict {
		return nil
	}

	if err := r.save(key, c); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
	return nil
}

// Resident reports whether key currently has a chunk in memory, and
// returns it.
func (r *Residency) Resident(key spatial.Key) (*chunk.Chunk, bool) {
	r.mu.Lock()
	e, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chunk, e.chunk != nil
}

// All returns every chunk currently resident, for a full-tree save/purge.
func (r *Residency) All() map[spatial.Key]*chunk.Chunk {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[spatial.Key]*chunk.Chunk, len(r.entries))
	for k, e := range r.entries {
		e.mu.Lock()
		if e.chunk != nil {
			out[k] = e.chunk
		}
		e.mu.Unlock()
	}
	return out
}
