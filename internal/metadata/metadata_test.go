package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhan520/entwine/internal/config"
	"github.com/zhan520/entwine/internal/schema"
	"github.com/zhan520/entwine/internal/spatial"
)

func TestNewCubifiesBounds(t *testing.T) {
	bounds := spatial.Bounds{Min: spatial.Vec3{0, 0, 0}, Max: spatial.Vec3{10, 4, 2}}
	cfg := config.Default
	m := New(bounds, cfg, schema.Default)

	side := m.NativeCubic.Max.X - m.NativeCubic.Min.X
	assert.InDelta(t, side, m.NativeCubic.Max.Y-m.NativeCubic.Min.Y, 1e-9)
	assert.InDelta(t, side, m.NativeCubic.Max.Z-m.NativeCubic.Min.Z, 1e-9)
}

func TestSRSSetOnce(t *testing.T) {
	m := New(spatial.Bounds{}, config.Default, schema.Default)
	m.SetSRS("EPSG:4326")
	m.SetSRS("EPSG:3857")
	assert.Equal(t, "EPSG:4326", m.SRS())
}

func TestPostfixEmptyWithoutSubset(t *testing.T) {
	m := New(spatial.Bounds{}, config.Default, schema.Default)
	assert.Equal(t, "", m.Postfix())
}

func TestPostfixWithSubset(t *testing.T) {
	cfg := config.Default
	cfg.Subset = &config.Subset{Id: 3, Of: 8}
	m := New(spatial.Bounds{}, cfg, schema.Default)
	assert.Equal(t, "-3", m.Postfix())
}

func TestChunkFilenameSharedVsExclusiveDepth(t *testing.T) {
	cfg := config.Default
	cfg.Subset = &config.Subset{Id: 2, Of: 8}
	m := New(spatial.Bounds{}, cfg, schema.Default)

	replicated := spatial.Key{Depth: 1}
	exclusive := spatial.Key{Depth: 5}

	require.Equal(t, "1-0-0-0-2.laz", m.ChunkFilename(replicated, 3, "laz"))
	require.Equal(t, "5-0-0-0.laz", m.ChunkFilename(exclusive, 3, "laz"))
}

func TestMetadataJSONRoundTrip(t *testing.T) {
	bounds := spatial.Bounds{Min: spatial.Vec3{0, 0, 0}, Max: spatial.Vec3{10, 10, 10}}
	m := New(bounds, config.Default, schema.Default)
	m.SetSRS("EPSG:4326")

	data, err := m.MarshalJSON()
	require.NoError(t, err)

	back := &Metadata{}
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, m.NativeCubic, back.NativeCubic)
	assert.Equal(t, "EPSG:4326", back.SRS())
	assert.Equal(t, m.BuildID, back.BuildID)
}

func TestManifestNextAndComplete(t *testing.T) {
	man := NewManifest([]string{"a.las", "b.las"})
	idx, info, ok := man.Next()
	require.True(t, ok)
	assert.Equal(t, "a.las", info.Path)

	man.Complete(idx, Inserted, 100, 2, 0, "")
	snap := man.Snapshot()
	assert.Equal(t, Inserted, snap[0].Status)
	assert.Equal(t, uint64(100), snap[0].Inserted)
}
