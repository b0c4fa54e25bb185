// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tube holds one XY grid slot of a chunk: a Z-tick-ordered
// collection of cells. Treating a chunk as a grid of tubes lets most
// splitting stay in XY while Z is resolved within a tube, the "quadtree of
// tubes" approach to the octree.
package tube

import (
	"sort"
	"sync"

	"github.com/zhan520/entwine/internal/pool"
)

// Tube is guarded by its own mutex so concurrent inserts into different
// tubes of the same chunk never contend, the fine-grained lock the
// concurrency model assigns to tube writes.
type Tube struct {
	mu    sync.Mutex
	cells map[uint64]*pool.Cell
}

// New creates an empty tube.
func New() *Tube {
	return &Tube{cells: make(map[uint64]*pool.Cell)}
}

// TryPlace inserts c at zTick if that slot is free and reports whether it
// succeeded; a tube never overwrites an occupied Z-tick (overflow handles
// collisions one level up).
func (t *Tube) TryPlace(zTick uint64, c *pool.Cell) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, occupied := t.cells[zTick]; occupied {
		return false
	}
	t.cells[zTick] = c
	return true
}

// Len returns the number of cells currently held in the tube.
func (t *Tube) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.cells)
}

// Cells returns a Z-tick-ordered snapshot of the tube's cells. The copy is
// safe to read without holding the tube lock, matching the concurrency
// model's "tube reads during split see a consistent snapshot".
func (t *Tube) Cells() []*pool.Cell {
	t.mu.Lock()
	defer t.mu.Unlock()

	ticks := make([]uint64, 0, len(t.cells))
	for tick := range t.cells {
		ticks = append(ticks, tick)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })

	out := make([]*pool.Cell, len(ticks))
	for i, tick := range ticks {
		out[i] = t.cells[tick]
	}
	return out
}
