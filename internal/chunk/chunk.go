// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package chunk implements the grid-of-tubes node of the implicit octree:
// fixed tube grid plus an overflow set awaiting split into up to 8
// children. A chunk's children map mirrors the metric store's Level tree
// (RWMutex-guarded children, double-checked-locking creation), generalised
// from a string-keyed hierarchy selector to the octant split below.
package chunk

import (
	"sync"

	"github.com/zhan520/entwine/internal/pool"
	"github.com/zhan520/entwine/internal/spatial"
	"github.com/zhan520/entwine/internal/tube"
)

// State names a point in the chunk's write lifecycle.
type State int

const (
	Writable State = iota
	Split
	Evicted
)

// Config carries the grid/overflow parameters shared by every chunk in a
// build, resolved once from the top-level config.
type Config struct {
	Splits        uint32
	OverflowDepth uint64
	OverflowRatio float64
}

// Chunk owns a fixed grid of tubes plus an overflow set of cells awaiting
// split. It is the unit the Registry and Clipper traverse and persist.
type Chunk struct {
	Key    spatial.Key
	Bounds spatial.Bounds
	cfg    Config

	gridSpan uint64
	tubes    []*tube.Tube

	mu       sync.RWMutex
	state    State
	overflow []*pool.Cell
	children [8]*Chunk

	// unbounded is true once the chunk's depth exceeds OverflowDepth: its
	// overflow threshold is treated as infinite, so it never splits and
	// insert is guaranteed to terminate.
	unbounded bool
}

// New creates a writable, empty chunk covering bounds at key.
func New(key spatial.Key, bounds spatial.Bounds, cfg Config) *Chunk {
	gridSpan := uint64(1) << cfg.Splits
	c := &Chunk{
		Key:      key,
		Bounds:   bounds,
		cfg:      cfg,
		gridSpan: gridSpan,
		tubes:    make([]*tube.Tube, gridSpan*gridSpan),
	}
	for i := range c.tubes {
		c.tubes[i] = tube.New()
	}
	if uint64(key.Depth) > cfg.OverflowDepth {
		c.unbounded = true
	}
	return c
}

func (c *Chunk) overflowThreshold() float64 {
	span := float64(c.gridSpan)
	return span * span * c.cfg.OverflowRatio
}

// State returns the chunk's current lifecycle state.
func (c *Chunk) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Child returns the i'th child chunk (0..7), or nil if the chunk has not
// split yet.
func (c *Chunk) Child(i uint8) *Chunk {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.children[i]
}

// Insert attempts to place cell in this chunk. It returns true on success.
// false means this chunk is not the right home: the caller must step its
// climber and recurse into the indicated child. onPlaced is called exactly
// once with the key of whichever chunk finally, physically holds cell
// (used by the registry to bump hierarchy counters); a cell that lands in
// a bounded chunk's overflow set is not yet final, so onPlaced is deferred
// until that overflow either redistributes on split or survives to
// persistence (see PendingOverflowCount).
func (c *Chunk) Insert(cell *pool.Cell, onPlaced func(spatial.Key)) bool {
	// Fast path: already split, no mutation needed.
	c.mu.RLock()
	if c.state == Split {
		c.mu.RUnlock()
		return false
	}
	climberBounds := c.Bounds
	gridSpan := c.gridSpan
	c.mu.RUnlock()

	tx, ty, tz := tickWithin(climberBounds, cell.Point, gridSpan)
	tu := c.tubeAt(tx, ty)
	if tu.TryPlace(tz, cell) {
		if onPlaced != nil {
			onPlaced(c.Key)
		}
		return true
	}

	return c.overflowOrSplit(cell, onPlaced)
}

func (c *Chunk) tubeAt(tx, ty uint64) *tube.Tube {
	return c.tubes[ty*c.gridSpan+tx]
}

// tickWithin computes the tube grid coordinate and Z sub-tick of p inside
// bounds, independent of any particular Climber instance.
func tickWithin(bounds spatial.Bounds, p spatial.Vec3, gridSpan uint64) (tx, ty, tz uint64) {
	side := bounds.Max.X - bounds.Min.X
	step := side / float64(gridSpan)

	tick := func(coord, origin float64) uint64 {
		t := uint64((coord - origin) / step)
		if t >= gridSpan {
			t = gridSpan - 1
		}
		return t
	}

	tx = tick(p.X, bounds.Min.X)
	ty = tick(p.Y, bounds.Min.Y)
	tz = tick(p.Z, bounds.Min.Z)
	return
}

func (c *Chunk) overflowOrSplit(cell *pool.Cell, onPlaced func(spatial.Key)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Split {
		return false
	}

	c.overflow = append(c.overflow, cell)

	if c.unbounded {
		// Infinite threshold: the cell stays in overflow forever, so
		// insert always succeeds for chunks below overflowDepth. This is
		// its final home, so count it now.
		if onPlaced != nil {
			onPlaced(c.Key)
		}
		return true
	}

	if float64(len(c.overflow)) < c.overflowThreshold() {
		// Bounded and under threshold: cell is uncounted until this
		// overflow set redistributes on split or is flushed at save.
		return true
	}

	c.splitLocked(onPlaced)
	return false
}

// splitLocked creates the 8 children and redistributes the overflow set
// into them, threading onPlaced through so each redistributed cell is
// counted at whatever child ultimately holds it. Caller must hold c.mu
// for writing.
func (c *Chunk) splitLocked(onPlaced func(spatial.Key)) {
	for i := uint8(0); i < 8; i++ {
		childKey := c.Key.Child(i)
		childBounds := c.Bounds.Child(i)
		c.children[i] = New(childKey, childBounds, c.cfg)
	}

	for _, cell := range c.overflow {
		i := octant(c.Bounds, cell.Point)
		routeIntoChild(c.children[i], cell, onPlaced)
	}
	c.overflow = nil
	c.state = Split
}

// routeIntoChild inserts cell into child, recursing through further
// splits of child itself if needed; the redistribution never reports
// failure upward because child's own Insert handles its own overflow.
func routeIntoChild(child *Chunk, cell *pool.Cell, onPlaced func(spatial.Key)) {
	for {
		if child.Insert(cell, onPlaced) {
			return
		}
		// child split while redistributing into it; step into its own
		// child and retry.
		i := octant(child.Bounds, cell.Point)
		next := child.Child(i)
		if next == nil {
			// Should not happen: a false return implies a child exists.
			return
		}
		child = next
	}
}

// MarkSplit creates this chunk's 8 children structurally, without
// redistributing any cells, and marks the chunk Split. Used to reconstruct
// a previously split chunk's shape from a persisted chunk topology index,
// before each child's own persisted payload (if it is itself a leaf) is
// decoded and reinserted separately.
func (c *Chunk) MarkSplit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Split {
		return
	}
	for i := uint8(0); i < 8; i++ {
		childKey := c.Key.Child(i)
		childBounds := c.Bounds.Child(i)
		c.children[i] = New(childKey, childBounds, c.cfg)
	}
	c.state = Split
}

// Octant returns which of bounds' 8 children contains p, using the
// half-open [lo, hi) tie-break.
func Octant(bounds spatial.Bounds, p spatial.Vec3) uint8 {
	return octant(bounds, p)
}

func octant(bounds spatial.Bounds, p spatial.Vec3) uint8 {
	mid := bounds.Mid()
	var i uint8
	if p.X >= mid.X {
		i |= 1
	}
	if p.Y >= mid.Y {
		i |= 2
	}
	if p.Z >= mid.Z {
		i |= 4
	}
	return i
}

// PendingOverflowCount returns the number of this chunk's overflow cells
// not yet counted toward the hierarchy. A bounded chunk defers counting
// its overflow set until it either redistributes on split (counted there,
// per child) or survives unsplit to persistence, at which point the
// registry flushes this count. Unbounded chunks and split chunks always
// report zero: unbounded overflow is counted immediately on insert, and a
// split chunk's overflow has already been drained and counted.
func (c *Chunk) PendingOverflowCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.unbounded || c.state == Split {
		return 0
	}
	return len(c.overflow)
}

// Cells returns every cell currently resident in this chunk's tubes and
// overflow set, in no particular order, for serialization.
func (c *Chunk) Cells() []*pool.Cell {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*pool.Cell, 0, len(c.overflow))
	for _, tu := range c.tubes {
		out = append(out, tu.Cells()...)
	}
	out = append(out, c.overflow...)
	return out
}
