package spatial

import "fmt"

// Key (ChunkKey) identifies a node in the implicit octree rooted at the
// scaled cubic bounds: (depth, position) uniquely names a chunk file.
type Key struct {
	Depth    uint32
	Position [3]uint64
}

// String renders the key as the "d-x-y-z" naming scheme used for chunk and
// hierarchy block filenames.
func (k Key) String() string {
	return fmt.Sprintf("%d-%d-%d-%d", k.Depth, k.Position[0], k.Position[1], k.Position[2])
}

// ParseKey parses the "d-x-y-z" filename scheme back into a Key.
func ParseKey(s string) (Key, error) {
	var k Key
	_, err := fmt.Sscanf(s, "%d-%d-%d-%d", &k.Depth, &k.Position[0], &k.Position[1], &k.Position[2])
	return k, err
}

// Child returns the key of octant i (0..7) one depth below k.
func (k Key) Child(i uint8) Key {
	c := Key{Depth: k.Depth + 1}
	c.Position[0] = k.Position[0]*2 + uint64(i&1)
	c.Position[1] = k.Position[1]*2 + uint64((i>>1)&1)
	c.Position[2] = k.Position[2]*2 + uint64((i>>2)&1)
	return c
}

// Climber walks the implicit octree from the root toward the chunk that
// should own a given point, tracking (depth, position) and the cube bounds
// at the current depth.
type Climber struct {
	cube   Bounds // cube bounds at the root depth
	key    Key
	bounds Bounds // cube bounds at the current depth
}

// NewClimber creates a climber rooted at baseDepth over the given scaled
// cubic bounds.
func NewClimber(cube Bounds, baseDepth uint32) Climber {
	c := Climber{cube: cube}
	c.reset(baseDepth)
	return c
}

func (c *Climber) reset(baseDepth uint32) {
	c.key = Key{Depth: baseDepth}
	c.bounds = c.cube
	// Position at the base depth is derived from how many times the cube
	// has been halved to reach baseDepth; entwine always starts a climber
	// at depth 0 unless resuming a subset build at a shared prefix depth,
	// in which case the caller supplies bounds/position explicitly via Seed.
}

// Reset returns the climber to (baseDepth, 0).
func (c *Climber) Reset(baseDepth uint32) { c.reset(baseDepth) }

// Seed places the climber directly at an already-known key and its bounds,
// used when resuming a subset build at a shared-prefix depth.
func (c *Climber) Seed(key Key, bounds Bounds) {
	c.key = key
	c.bounds = bounds
}

// Key returns the climber's current key.
func (c Climber) Key() Key { return c.key }

// Bounds returns the cube bounds of the climber's current node.
func (c Climber) Bounds() Bounds { return c.bounds }

// octantOf returns which of the 8 children of bounds contains p, using the
// half-open [lo, hi) tie-break: points on a split plane go to the
// higher-coordinate child.
func octantOf(bounds Bounds, p Vec3) uint8 {
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

// Step advances the climber one depth, selecting the octant containing p.
func (c *Climber) Step(p Vec3) {
	i := octantOf(c.bounds, p)
	c.bounds = c.bounds.Child(i)
	c.key = c.key.Child(i)
}

// MagnifyTo fast-forwards the climber to depth, stepping once per
// intervening level so it names the unique chunk at depth that contains p.
func (c *Climber) MagnifyTo(p Vec3, depth uint32) {
	for c.key.Depth < depth {
		c.Step(p)
	}
}

// SharedDepth returns the octree depth at which a build partitioned into
// `of` subsets (a power of 8) starts assigning volume exclusively to one
// subset: log8(of). Depths shallower than this are the shared prefix every
// subset's climber walks identically; SubsetOwner answers the question of
// which subset owns a point once the climber reaches this depth.
func SharedDepth(of uint64) uint32 {
	var d uint32
	for of > 1 {
		of /= 8
		d++
	}
	return d
}

// SubsetOwner reports which subset (0-based, in [0, of)) owns the volume
// containing p: p's octant is taken SharedDepth(of) times from cube
// downward, using the same [lo, hi) tie-break octantOf and Step use, and
// the per-level choices are combined into a single base-8 index. This
// matches spec.md's "subset k owns the volume covered by ticks whose high
// bits equal k at splits = log8(of)".
func SubsetOwner(cube Bounds, p Vec3, of uint64) uint64 {
	depth := SharedDepth(of)
	bounds := cube
	var idx uint64
	for d := uint32(0); d < depth; d++ {
		o := octantOf(bounds, p)
		idx = idx*8 + uint64(o)
		bounds = bounds.Child(o)
	}
	return idx
}

// Tick returns the tube-grid coordinate of p within the climber's current
// chunk, splitting the chunk's cube into a gridSpan x gridSpan x gridSpan
// grid (gridSpan = 2^splits) and reporting which cell p falls in on each
// axis. The Z component additionally returns the sub-tick used to order
// points within a tube.
func (c Climber) Tick(p Vec3, splits uint32) (tx, ty, tz uint64) {
	gridSpan := uint64(1) << splits
	side := c.bounds.Max.X - c.bounds.Min.X
	step := side / float64(gridSpan)

	tick := func(coord, origin float64) uint64 {
		t := uint64((coord - origin) / step)
		if t >= gridSpan {
			t = gridSpan - 1
		}
		return t
	}

	tx = tick(p.X, c.bounds.Min.X)
	ty = tick(p.Y, c.bounds.Min.Y)
	tz = tick(p.Z, c.bounds.Min.Z)
	return
}
