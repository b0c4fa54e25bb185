package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhan520/entwine/internal/pool"
	"github.com/zhan520/entwine/internal/spatial"
)

func cube() spatial.Bounds {
	return spatial.Bounds{Min: spatial.Vec3{0, 0, 0}, Max: spatial.Vec3{8, 8, 8}}
}

func newRoot(overflowRatio float64) *Chunk {
	cfg := Config{Splits: 1, OverflowDepth: 10, OverflowRatio: overflowRatio}
	return New(spatial.Key{}, cube(), cfg)
}

func cellAt(p spatial.Vec3) *pool.Cell {
	return &pool.Cell{Point: p}
}

func TestInsertPlacesIntoFreeTubeSlot(t *testing.T) {
	c := newRoot(0.5)
	ok := c.Insert(cellAt(spatial.Vec3{1, 1, 1}), nil)
	assert.True(t, ok)
	assert.Equal(t, Writable, c.State())
}

func TestInsertOverflowsOnZTickCollision(t *testing.T) {
	c := newRoot(0.99) // high threshold so a single collision doesn't split
	p := spatial.Vec3{1, 1, 1}
	require.True(t, c.Insert(cellAt(p), nil))
	// Same point again: lands on the same tube+Z-tick, must overflow, not
	// overwrite, but still report success since threshold isn't exceeded.
	ok := c.Insert(cellAt(p), nil)
	assert.True(t, ok)
	assert.Equal(t, Writable, c.State())
}

func TestInsertSplitsWhenOverflowExceedsThreshold(t *testing.T) {
	// gridSpan = 2 -> span^2 = 4; ratio tiny so threshold is ~0, any
	// collision pushes past it immediately.
	c := newRoot(0.01)
	p := spatial.Vec3{1, 1, 1}
	require.True(t, c.Insert(cellAt(p), nil))
	// Second insert at same point collides, exceeds threshold -> split.
	ok := c.Insert(cellAt(p), nil)
	assert.False(t, ok, "chunk should report false once it splits, asking caller to recurse")
	assert.Equal(t, Split, c.State())
	assert.NotNil(t, c.Child(octant(c.Bounds, p)))
}

func TestInsertSplitsOnExactOverflowThreshold(t *testing.T) {
	// gridSpan = 4 -> span^2 = 16; ratio 0.25 -> threshold = 4. The chunk
	// must split the moment the overflow set reaches the threshold, not
	// after exceeding it: the 4th colliding cell (5th insert overall)
	// triggers the split, not the 5th colliding cell.
	cfg := Config{Splits: 2, OverflowDepth: 10, OverflowRatio: 0.25}
	c := New(spatial.Key{}, cube(), cfg)
	p := spatial.Vec3{1, 1, 1}

	require.True(t, c.Insert(cellAt(p), nil)) // direct tube placement
	for i := 0; i < 3; i++ {
		ok := c.Insert(cellAt(p), nil) // collisions 1..3: strictly under threshold
		require.True(t, ok)
		require.Equal(t, Writable, c.State())
	}
	ok := c.Insert(cellAt(p), nil) // collision 4 reaches the threshold: split
	assert.False(t, ok, "chunk must split as soon as overflow reaches the threshold")
	assert.Equal(t, Split, c.State())
}

func TestUnboundedChunkNeverSplits(t *testing.T) {
	cfg := Config{Splits: 1, OverflowDepth: 0, OverflowRatio: 0.0001}
	deep := New(spatial.Key{Depth: 5}, cube(), cfg)
	p := spatial.Vec3{1, 1, 1}
	for i := 0; i < 50; i++ {
		ok := deep.Insert(cellAt(p), nil)
		require.True(t, ok, "deep chunks must always succeed, never split")
	}
	assert.Equal(t, Writable, deep.State())
}

func TestOnPlacedCalledOnceOnDirectTubeWrite(t *testing.T) {
	c := newRoot(0.5)
	calls := 0
	c.Insert(cellAt(spatial.Vec3{1, 1, 1}), func(spatial.Key) { calls++ })
	assert.Equal(t, 1, calls)
}

func TestOnPlacedDeferredUntilSplitRedistributesOverflow(t *testing.T) {
	// gridSpan = 2 -> span^2 = 4; ratio tiny so threshold is ~0, any
	// collision pushes past it immediately.
	c := newRoot(0.01)
	p := spatial.Vec3{1, 1, 1}

	var placed []spatial.Key
	record := func(key spatial.Key) { placed = append(placed, key) }

	require.True(t, c.Insert(cellAt(p), record))
	assert.Equal(t, []spatial.Key{c.Key}, placed, "first cell lands directly in a tube")

	// Second insert at the same point collides, exceeds threshold, and
	// splits: both cells must end up counted once each, the first at the
	// root whose tube still holds it and the overflowed one at the child it
	// was redistributed into, not silently dropped.
	ok := c.Insert(cellAt(p), record)
	assert.False(t, ok)
	assert.Equal(t, Split, c.State())
	assert.Len(t, placed, 2, "both the original tube cell and the redistributed overflow cell must be counted")
	assert.Equal(t, c.Child(octant(c.Bounds, p)).Key, placed[1])
}

func TestUnboundedOverflowCountedImmediately(t *testing.T) {
	cfg := Config{Splits: 1, OverflowDepth: 0, OverflowRatio: 0.0001}
	deep := New(spatial.Key{Depth: 5}, cube(), cfg)
	p := spatial.Vec3{1, 1, 1}

	calls := 0
	require.True(t, deep.Insert(cellAt(p), func(spatial.Key) { calls++ }))
	require.True(t, deep.Insert(cellAt(p), func(spatial.Key) { calls++ }))
	assert.Equal(t, 2, calls, "unbounded overflow never splits, so each cell is final and counted on insert")
	assert.Equal(t, 0, deep.PendingOverflowCount())
}

func TestPendingOverflowCountHeldUntilFlush(t *testing.T) {
	c := newRoot(0.99) // high threshold: overflow accumulates, never splits
	p := spatial.Vec3{1, 1, 1}
	require.True(t, c.Insert(cellAt(p), nil))
	require.True(t, c.Insert(cellAt(p), nil))
	assert.Equal(t, 1, c.PendingOverflowCount(), "second cell overflowed but hasn't split or been flushed")
}
