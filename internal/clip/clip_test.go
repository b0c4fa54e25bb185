package clip

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhan520/entwine/internal/chunk"
	"github.com/zhan520/entwine/internal/spatial"
)

func testCfg() chunk.Config {
	return chunk.Config{Splits: 1, OverflowDepth: 10, OverflowRatio: 0.5}
}

func testBounds() spatial.Bounds {
	return spatial.Bounds{Min: spatial.Vec3{0, 0, 0}, Max: spatial.Vec3{8, 8, 8}}
}

func TestAcquireLoadsOnce(t *testing.T) {
	var loads int
	var mu sync.Mutex
	loader := func(key spatial.Key) (*chunk.Chunk, error) {
		mu.Lock()
		loads++
		mu.Unlock()
		return chunk.New(key, testBounds(), testCfg()), nil
	}
	saved := false
	saver := func(key spatial.Key, c *chunk.Chunk) error {
		saved = true
		return nil
	}

	r := NewResidency(loader, saver)
	key := spatial.Key{Depth: 0}

	c1, err := r.Acquire(key)
	require.NoError(t, err)
	c2, err := r.Acquire(key)
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Equal(t, 1, loads)

	require.NoError(t, r.Release(key))
	require.NoError(t, r.Release(key))
	assert.True(t, saved)

	_, resident := r.Resident(key)
	assert.False(t, resident)
}

func TestClipperDoesNotReacquireWithinCycle(t *testing.T) {
	var loads int
	loader := func(key spatial.Key) (*chunk.Chunk, error) {
		loads++
		return chunk.New(key, testBounds(), testCfg()), nil
	}
	r := NewResidency(loader, func(spatial.Key, *chunk.Chunk) error { return nil })
	cl := NewClipper(1, r, 100)

	key := spatial.Key{Depth: 0}
	for i := 0; i < 10; i++ {
		_, err := cl.Acquire(key)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, loads)
}
