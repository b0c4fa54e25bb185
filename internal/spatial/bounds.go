package spatial

import "math"

// Bounds is an axis-aligned cube or box in some space (native or scaled).
type Bounds struct {
	Min Vec3
	Max Vec3
}

// Mid returns the box's center.
func (b Bounds) Mid() Vec3 { return b.Min.Mid(b.Max) }

// Contains reports whether p falls in the half-open box [Min, Max), the
// tie-break spec.md's climber contract requires for split-plane points.
func (b Bounds) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X < b.Max.X &&
		p.Y >= b.Min.Y && p.Y < b.Max.Y &&
		p.Z >= b.Min.Z && p.Z < b.Max.Z
}

// Cubify returns the smallest enclosing cube centered on the box's own
// center, sized to its longest side.
func (b Bounds) Cubify() Bounds {
	mid := b.Mid()
	side := math.Max(b.Max.X-b.Min.X, math.Max(b.Max.Y-b.Min.Y, b.Max.Z-b.Min.Z))
	half := side / 2
	return Bounds{
		Min: Vec3{mid.X - half, mid.Y - half, mid.Z - half},
		Max: Vec3{mid.X + half, mid.Y + half, mid.Z + half},
	}
}

// Grow returns the smallest bounds containing both b and p.
func (b Bounds) Grow(p Vec3) Bounds {
	return Bounds{
		Min: Vec3{math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y), math.Min(b.Min.Z, p.Z)},
		Max: Vec3{math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y), math.Max(b.Max.Z, p.Z)},
	}
}

// Child returns the sub-cube of b for octant index i (0..7), where bit 0 of
// i selects the X half, bit 1 selects Y, bit 2 selects Z.
func (b Bounds) Child(i uint8) Bounds {
	mid := b.Mid()
	c := b
	if i&1 == 0 {
		c.Max.X = mid.X
	} else {
		c.Min.X = mid.X
	}
	if i&2 == 0 {
		c.Max.Y = mid.Y
	} else {
		c.Min.Y = mid.Y
	}
	if i&4 == 0 {
		c.Max.Z = mid.Z
	} else {
		c.Min.Z = mid.Z
	}
	return c
}
