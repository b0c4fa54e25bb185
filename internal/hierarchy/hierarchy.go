// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hierarchy is the second tree: a per-node point counter,
// persisted independently of the chunk tree in prefix-grouped JSON blocks.
// Grounded on the metric store's CheckpointFile (a hierarchical JSON tree
// mirroring the Level tree), generalised from a time-series snapshot to a
// point counter.
package hierarchy

import (
	"sync"

	"github.com/zhan520/entwine/internal/spatial"
)

// Hierarchy counts, per touched node, the points stored directly at that
// node; a node's count does not include the points stored at its
// descendants.
type Hierarchy struct {
	mu     sync.RWMutex
	counts map[spatial.Key]uint64
}

// New creates an empty hierarchy.
func New() *Hierarchy {
	return &Hierarchy{counts: make(map[spatial.Key]uint64)}
}

// Increment adds one to key's count, creating the node lazily on first
// touch.
func (h *Hierarchy) Increment(key spatial.Key) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[key]++
}

// IncrementBy adds n to key's count in one step, used to flush a chunk's
// deferred overflow count at save time rather than one Increment per cell.
func (h *Hierarchy) IncrementBy(key spatial.Key, n uint64) {
	if n == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[key] += n
}

// Count returns the point count stored at key (0 if never touched).
func (h *Hierarchy) Count(key spatial.Key) uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.counts[key]
}

// Merge adds other's per-key counts into h.
func (h *Hierarchy) Merge(other *Hierarchy) {
	other.mu.RLock()
	defer other.mu.RUnlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	for k, v := range other.counts {
		h.counts[k] += v
	}
}

// Snapshot returns a copy of every counted node, for persistence.
func (h *Hierarchy) Snapshot() map[spatial.Key]uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[spatial.Key]uint64, len(h.counts))
	for k, v := range h.counts {
		out[k] = v
	}
	return out
}

// Load replaces the hierarchy's contents with counts (used when awakening
// a persisted hierarchy).
func (h *Hierarchy) Load(counts map[spatial.Key]uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts = counts
}
