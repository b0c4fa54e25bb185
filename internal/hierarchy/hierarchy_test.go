package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhan520/entwine/internal/spatial"
)

func TestIncrementAndCount(t *testing.T) {
	h := New()
	k := spatial.Key{Depth: 2, Position: [3]uint64{1, 1, 1}}
	h.Increment(k)
	h.Increment(k)
	assert.Equal(t, uint64(2), h.Count(k))
}

func TestMergeAddsCounts(t *testing.T) {
	a, b := New(), New()
	k := spatial.Key{Depth: 1}
	a.Increment(k)
	b.Increment(k)
	b.Increment(k)

	a.Merge(b)
	assert.Equal(t, uint64(3), a.Count(k))
}

func TestBlockRoundTrip(t *testing.T) {
	h := New()
	shallow := spatial.Key{Depth: 2, Position: [3]uint64{1, 2, 3}}
	deep := spatial.Key{Depth: BlockDepth + 4, Position: [3]uint64{100, 200, 300}}
	h.Increment(shallow)
	h.Increment(deep)

	blocks := Blocks(h.Snapshot())
	// The deep node must fold into its ancestor's block, not get its own.
	assert.Len(t, blocks, 2)

	for bk, b := range blocks {
		data, err := MarshalBlock(b)
		require.NoError(t, err)
		back, err := UnmarshalBlock(data)
		require.NoError(t, err)
		assert.Equal(t, len(b), len(back))
		assert.LessOrEqual(t, bk.Depth, uint32(BlockDepth))
	}
}
