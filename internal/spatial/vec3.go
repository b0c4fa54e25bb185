// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package spatial holds the scaled-integer point space, cubic bounds, and
// (depth, position) key addressing that the rest of the index is built on.
package spatial

import "encoding/json"

// Vec3 is a 3-component float64 vector, used both for native-space points
// and for per-axis scale/offset values.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Mid returns the midpoint between v and o.
func (v Vec3) Mid(o Vec3) Vec3 {
	return Vec3{(v.X + o.X) / 2, (v.Y + o.Y) / 2, (v.Z + o.Z) / 2}
}

// UnmarshalJSON accepts either a single scalar (applied to all three axes)
// or a 3-element array, matching the config table's "f64 or Vec3" fields.
func (v *Vec3) UnmarshalJSON(data []byte) error {
	var scalar float64
	if err := json.Unmarshal(data, &scalar); err == nil {
		*v = Vec3{scalar, scalar, scalar}
		return nil
	}

	var triple [3]float64
	if err := json.Unmarshal(data, &triple); err != nil {
		return err
	}
	*v = Vec3{triple[0], triple[1], triple[2]}
	return nil
}

func (v Vec3) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{v.X, v.Y, v.Z})
}

// Point3 is a point in scaled-integer index space, stored as floats because
// ticks are derived by further division, not because the values are
// fractional once scaling has been applied.
type Point3 = Vec3
