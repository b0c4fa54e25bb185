package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeltaRoundTrip(t *testing.T) {
	d := DefaultDelta()
	native := Vec3{123.45, -67.8, 9.01}
	scaled := d.ToScaled(native)
	back := d.ToNative(scaled)

	assert.InDelta(t, native.X, back.X, 1e-9)
	assert.InDelta(t, native.Y, back.Y, 1e-9)
	assert.InDelta(t, native.Z, back.Z, 1e-9)
}

func TestBoundsCubifyIsCube(t *testing.T) {
	b := Bounds{Min: Vec3{0, 0, 0}, Max: Vec3{10, 4, 2}}
	cube := b.Cubify()

	sideX := cube.Max.X - cube.Min.X
	sideY := cube.Max.Y - cube.Min.Y
	sideZ := cube.Max.Z - cube.Min.Z
	assert.InDelta(t, sideX, sideY, 1e-9)
	assert.InDelta(t, sideY, sideZ, 1e-9)
}

func TestBoundsContainsHalfOpen(t *testing.T) {
	b := Bounds{Min: Vec3{0, 0, 0}, Max: Vec3{2, 2, 2}}
	assert.True(t, b.Contains(Vec3{0, 0, 0}))
	assert.False(t, b.Contains(Vec3{2, 0, 0}), "max edge is exclusive")
}

func TestClimberMagnifyToIsDeterministic(t *testing.T) {
	cube := Bounds{Min: Vec3{0, 0, 0}, Max: Vec3{8, 8, 8}}
	p := Vec3{1, 1, 1}

	a := NewClimber(cube, 0)
	a.MagnifyTo(p, 3)

	b := NewClimber(cube, 0)
	b.Step(p)
	b.Step(p)
	b.Step(p)

	assert.Equal(t, a.Key(), b.Key())
}

func TestClimberSplitPlaneTieBreak(t *testing.T) {
	cube := Bounds{Min: Vec3{0, 0, 0}, Max: Vec3{2, 2, 2}}
	c := NewClimber(cube, 0)
	// Exactly on the split plane: half-open [lo, hi) sends it to the
	// higher octant on that axis (>= mid), matching octantOf.
	c.Step(Vec3{1, 0, 0})
	require.Equal(t, uint32(1), c.Key().Depth)
	assert.Equal(t, uint64(1), c.Key().Position[0])
}

func TestKeyChildEncodesOctant(t *testing.T) {
	k := Key{Depth: 2, Position: [3]uint64{1, 1, 1}}
	c := k.Child(5) // binary 101 -> +x, +0y, +z
	assert.Equal(t, uint32(3), c.Depth)
	assert.Equal(t, uint64(3), c.Position[0])
	assert.Equal(t, uint64(2), c.Position[1])
	assert.Equal(t, uint64(3), c.Position[2])
}
