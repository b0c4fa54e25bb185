// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package schema describes the per-point attribute layout: which
// dimensions a Cell's opaque byte buffer holds and how many bytes each
// occupies, so pools and storage codecs can size their buffers.
package schema

// Dimension names one scalar attribute stored per point (Intensity,
// Classification, a color channel, ...) and its on-disk width.
type Dimension struct {
	Name string
	Size int // bytes
}

// Schema is the ordered list of dimensions a point carries beyond its XYZ
// position, which is handled separately by spatial.Vec3.
type Schema struct {
	Dims []Dimension
}

// PointSize returns the byte length of one point's attribute buffer.
func (s Schema) PointSize() int {
	total := 0
	for _, d := range s.Dims {
		total += d.Size
	}
	return total
}

// Find returns the dimension named name and whether it is present.
func (s Schema) Find(name string) (Dimension, bool) {
	for _, d := range s.Dims {
		if d.Name == name {
			return d, true
		}
	}
	return Dimension{}, false
}

// Default is the attribute set entwine ships with out of the box:
// intensity, return number/count, classification and RGB color.
var Default = Schema{Dims: []Dimension{
	{Name: "Intensity", Size: 2},
	{Name: "ReturnNumber", Size: 1},
	{Name: "NumberOfReturns", Size: 1},
	{Name: "Classification", Size: 1},
	{Name: "Red", Size: 2},
	{Name: "Green", Size: 2},
	{Name: "Blue", Size: 2},
}}
