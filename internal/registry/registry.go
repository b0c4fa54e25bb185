// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package registry is the root of the chunk tree: addPoint descends from
// the root chunk until one accepts the cell, save persists every chunk,
// merge reconciles a sibling subset's tree, and purge releases everything
// at teardown. Grounded on the metric store's MemoryStore top-level
// Write/Read/Free orchestration over its Level tree.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/zhan520/entwine/internal/chunk"
	"github.com/zhan520/entwine/internal/clip"
	"github.com/zhan520/entwine/internal/entwineerr"
	"github.com/zhan520/entwine/internal/hierarchy"
	"github.com/zhan520/entwine/internal/metrics"
	"github.com/zhan520/entwine/internal/pool"
	"github.com/zhan520/entwine/internal/spatial"
	"github.com/zhan520/entwine/internal/storage"
)

// Registry owns the chunk tree rooted at (depth 0, position 0) over the
// index's scaled cubic bounds.
//
// NOTE (scoping decision, see DESIGN.md): this implementation keeps the
// whole chunk tree resident in process memory for the life of a Registry.
// Residency/Clipper still perform the ref-counted accounting and trigger
// persistence when a chunk's ref count reaches zero (the ref-count half
// of the contract), but a de-refed chunk is not actually freed from the
// in-memory tree and re-faulted later (the eviction half). Full disk-paged
// eviction of arbitrary interior nodes is out of scope for this build.
type Registry struct {
	Root *chunk.Chunk

	cube spatial.Bounds
	cfg  chunk.Config

	hier      *hierarchy.Hierarchy
	residency *clip.Residency

	endpoint storage.Endpoint
	codec    storage.ChunkCodec

	mu     sync.Mutex
	synced map[spatial.Key]bool

	namer func(spatial.Key) string
}

// New creates a registry rooted over cube, with cfg's grid/overflow
// parameters, counting into hier and persisting through endpoint/codec.
// Chunk files are named "<key>.<ext>" by default; SetNamer overrides this,
// used by the builder to apply the subset-aware naming convention.
func New(cube spatial.Bounds, cfg chunk.Config, hier *hierarchy.Hierarchy, endpoint storage.Endpoint, codec storage.ChunkCodec) *Registry {
	r := &Registry{
		Root:     chunk.New(spatial.Key{}, cube, cfg),
		cube:     cube,
		cfg:      cfg,
		hier:     hier,
		endpoint: endpoint,
		codec:    codec,
		synced:   make(map[spatial.Key]bool),
	}
	r.namer = func(key spatial.Key) string { return key.String() + "." + codec.Extension() }
	r.residency = clip.NewResidency(r.load, r.save)
	return r
}

// SetNamer overrides how persist/reload resolve a chunk key to a filename.
func (r *Registry) SetNamer(namer func(spatial.Key) string) { r.namer = namer }

// AddPoint routes cell into the tree: starting at root, descend into the
// child a chunk indicates until one accepts the cell. The deepest chunks
// never refuse (their overflow threshold is infinite), so this loop is
// guaranteed to terminate.
func (r *Registry) AddPoint(cell *pool.Cell, clipper *clip.Clipper) error {
	cur := r.Root
	for {
		key := r.keyOf(cur)
		if clipper != nil {
			if _, err := clipper.Acquire(key); err != nil {
				return err
			}
		}

		placed := cur.Insert(cell, r.hier.Increment)
		if placed {
			return nil
		}

		i := chunk.Octant(cur.Bounds, cell.Point)
		next := cur.Child(i)
		if next == nil {
			return entwineerr.New(entwineerr.StorageError, key.String(), fmt.Errorf("chunk reported split but has no child %d", i))
		}
		cur = next
	}
}

// insertCell descends cur's tree until cell lands, invoking onPlaced (if
// non-nil) with whichever chunk finally accepts it. errKind classifies any
// "missing child" failure, which should not happen in practice: cur.Insert
// only returns false when it has already split into 8 children.
func insertCell(cur *chunk.Chunk, cell *pool.Cell, onPlaced func(spatial.Key), errKind entwineerr.Kind) error {
	for {
		if cur.Insert(cell, onPlaced) {
			return nil
		}
		i := chunk.Octant(cur.Bounds, cell.Point)
		child := cur.Child(i)
		if child == nil {
			return entwineerr.New(errKind, cur.Key.String(), fmt.Errorf("missing child while inserting"))
		}
		cur = child
	}
}

// Residency returns the registry's chunk residency tracker, used by the
// Builder to construct per-file Clippers against this tree.
func (r *Registry) Residency() *clip.Residency { return r.residency }

// keyOf returns c's key. The chunk tree holds Key on each node, so this is
// a field read, kept as a method to give the registry one seam for a
// disk-paged lookup.
func (r *Registry) keyOf(c *chunk.Chunk) spatial.Key {
	return c.Key
}

// load resolves key against the live in-memory tree (see type doc): walk
// down from the root one octant per depth, decoding each step's octant
// index from key's accumulated position bits (the inverse of Key.Child's
// Position[axis] = Position[axis]*2 + bit encoding).
func (r *Registry) load(key spatial.Key) (*chunk.Chunk, error) {
	cur := r.Root
	for d := uint32(0); d < key.Depth; d++ {
		shift := key.Depth - d - 1
		var i uint8
		if (key.Position[0]>>shift)&1 != 0 {
			i |= 1
		}
		if (key.Position[1]>>shift)&1 != 0 {
			i |= 2
		}
		if (key.Position[2]>>shift)&1 != 0 {
			i |= 4
		}
		next := cur.Child(i)
		if next == nil {
			return nil, entwineerr.New(entwineerr.StorageError, key.String(), fmt.Errorf("chunk not resident in the live tree"))
		}
		cur = next
	}
	return cur, nil
}

func (r *Registry) save(key spatial.Key, c *chunk.Chunk) error {
	return r.persist(context.Background(), key, c)
}

// persist writes one chunk's cells through the configured codec/endpoint.
// Persistence is idempotent: it always overwrites the chunk's file with
// its current contents.
func (r *Registry) persist(ctx context.Context, key spatial.Key, c *chunk.Chunk) error {
	cells := c.Cells()
	data, err := r.codec.Encode(cells)
	if err != nil {
		return entwineerr.New(entwineerr.StorageError, key.String(), err)
	}
	name := r.namer(key)
	if err := r.endpoint.Put(ctx, name, data); err != nil {
		return entwineerr.New(entwineerr.StorageError, key.String(), err)
	}
	metrics.ChunksPersisted.Inc()

	r.mu.Lock()
	r.synced[key] = true
	r.mu.Unlock()
	return nil
}

// Save traverses the live tree and persists every resident chunk.
func (r *Registry) Save(ctx context.Context) error {
	if err := r.saveSubtree(ctx, r.Root); err != nil {
		return err
	}
	metrics.ChunksResident.Set(float64(len(r.Index())))
	return nil
}

func (r *Registry) saveSubtree(ctx context.Context, c *chunk.Chunk) error {
	if err := r.persist(ctx, c.Key, c); err != nil {
		return err
	}
	// A bounded chunk that never reached its split threshold still holds
	// overflow cells nobody has counted yet (see PendingOverflowCount);
	// flush that count now since persistence is their final resting place.
	if n := c.PendingOverflowCount(); n > 0 {
		r.hier.IncrementBy(c.Key, uint64(n))
	}
	if c.State() != chunk.Split {
		return nil
	}
	for i := uint8(0); i < 8; i++ {
		if child := c.Child(i); child != nil {
			if err := r.saveSubtree(ctx, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// Merge folds other's chunk tree into r: every cell of other is reinserted
// through r's own insert path, re-running overflow/split on the combined
// set and counting the cell into r's hierarchy where it lands. A subtree
// other has split further than r is flattened and reinserted the same way;
// no chunk of other is adopted as-is.
func (r *Registry) Merge(other *Registry) error {
	return mergeSubtree(r.Root, other.Root, r.hier)
}

func mergeSubtree(dst, src *chunk.Chunk, hier *hierarchy.Hierarchy) error {
	if src == nil {
		return nil
	}

	for _, cell := range src.Cells() {
		if err := insertCell(dst, cell, hier.Increment, entwineerr.MergeError); err != nil {
			return err
		}
	}

	if src.State() == chunk.Split {
		for i := uint8(0); i < 8; i++ {
			srcChild := src.Child(i)
			if srcChild == nil {
				continue
			}
			dstChild := dst.Child(i)
			if dstChild == nil {
				// dst never split this far: adopt the whole orphaned
				// subtree by reinserting its cells through dst's own
				// overflow/split machinery instead of dropping them.
				for _, cell := range subtreeCells(srcChild) {
					if err := insertCell(dst, cell, hier.Increment, entwineerr.MergeError); err != nil {
						return err
					}
				}
				continue
			}
			if err := mergeSubtree(dstChild, srcChild, hier); err != nil {
				return err
			}
		}
	}
	return nil
}

// subtreeCells recursively flattens every cell resident anywhere in c's
// subtree: c's own tube/overflow cells plus every split descendant's, used
// to adopt an orphaned source subtree the destination has not split to
// match.
func subtreeCells(c *chunk.Chunk) []*pool.Cell {
	out := c.Cells()
	if c.State() != chunk.Split {
		return out
	}
	for i := uint8(0); i < 8; i++ {
		if child := c.Child(i); child != nil {
			out = append(out, subtreeCells(child)...)
		}
	}
	return out
}

// ChunkIndexEntry records one chunk tree node's topology: its key and
// whether it had split into 8 children by the time the tree was saved.
// Persisted alongside chunk payloads so Reload can reconstruct the tree's
// shape without an Endpoint listing capability.
type ChunkIndexEntry struct {
	Key   string `json:"key"`
	Split bool   `json:"split"`
}

// Index walks the live tree and returns one entry per node, in no
// particular order.
func (r *Registry) Index() []ChunkIndexEntry {
	var out []ChunkIndexEntry
	var walk func(c *chunk.Chunk)
	walk = func(c *chunk.Chunk) {
		split := c.State() == chunk.Split
		out = append(out, ChunkIndexEntry{Key: c.Key.String(), Split: split})
		if !split {
			return
		}
		for i := uint8(0); i < 8; i++ {
			if child := c.Child(i); child != nil {
				walk(child)
			}
		}
	}
	walk(r.Root)
	return out
}

// Reload reconstructs r's tree from a previously persisted chunk index:
// every Split node's 8 children are recreated structurally (see
// chunk.MarkSplit), and every Writable leaf has its persisted payload
// fetched and decoded through p, then reinserted directly into that
// freshly created leaf. Reinsertion does not touch the hierarchy: a
// reloaded build's counts come from the persisted hierarchy blocks, a
// separate, best-effort mechanism (see DESIGN.md).
func (r *Registry) Reload(ctx context.Context, entries []ChunkIndexEntry, p *pool.Pool) error {
	split := make(map[spatial.Key]bool, len(entries))
	for _, e := range entries {
		k, err := spatial.ParseKey(e.Key)
		if err != nil {
			return entwineerr.New(entwineerr.StorageError, e.Key, err)
		}
		split[k] = e.Split
	}
	return r.reloadSubtree(ctx, r.Root, split, p)
}

func (r *Registry) reloadSubtree(ctx context.Context, c *chunk.Chunk, split map[spatial.Key]bool, p *pool.Pool) error {
	if !split[c.Key] {
		return r.reloadLeaf(ctx, c, p)
	}
	c.MarkSplit()
	for i := uint8(0); i < 8; i++ {
		if err := r.reloadSubtree(ctx, c.Child(i), split, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) reloadLeaf(ctx context.Context, c *chunk.Chunk, p *pool.Pool) error {
	name := r.namer(c.Key)
	data, err := r.endpoint.Get(ctx, name)
	if err != nil {
		return entwineerr.New(entwineerr.StorageError, name, err)
	}
	cells, err := r.codec.Decode(data, p)
	if err != nil {
		return entwineerr.New(entwineerr.StorageError, name, err)
	}
	for _, cell := range cells {
		if err := insertCell(c, cell, nil, entwineerr.StorageError); err != nil {
			return err
		}
	}
	return nil
}

// Purge releases every chunk, used after save at teardown. In this
// implementation that means dropping the registry's own reference to the
// tree root; the garbage collector reclaims it once the registry itself
// is no longer reachable.
func (r *Registry) Purge() {
	r.Root = nil
	metrics.ChunksResident.Set(0)
}
