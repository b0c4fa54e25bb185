// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package executor is the external collaborator the Builder streams
// decoded cells through: point cloud format parsing (LAS/LAZ/...) is out
// of scope for this index, same as real LASzip codec support, so Executor
// is a narrow interface a real decoder library would implement, plus a
// CSV-based reference implementation used by tests and small builds.
package executor

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/zhan520/entwine/internal/pool"
	"github.com/zhan520/entwine/internal/spatial"
)

// Preview is the result of a fast header-only scan of a file: enough to
// set Metadata's SRS and estimate bounds/point count without a full
// decode pass.
type Preview struct {
	SRS        string
	Bounds     spatial.Bounds
	PointCount uint64
}

// Executor streams decoded points out of one input file.
type Executor interface {
	// Preview performs a fast header scan. The build previews every input
	// once at initialisation to compute bounds, and previews a file again
	// before inserting it to set the SRS unless trustHeaders is set.
	Preview(ctx context.Context, path string) (Preview, error)

	// Decode streams the file's points in batches, calling onBatch with
	// each decoded run of cells. A non-nil error from onBatch stops
	// decoding and is returned to the caller.
	Decode(ctx context.Context, path string, p *pool.Pool, batchSize int, onBatch func([]*pool.Cell) error) error
}

// CSVExecutor reads "x,y,z" rows (native space, one point per line) as a
// stand-in for a real point-cloud decoder. It has no notion of SRS; every
// preview reports an empty SRS string.
type CSVExecutor struct{}

func (CSVExecutor) Preview(_ context.Context, path string) (Preview, error) {
	f, err := os.Open(path)
	if err != nil {
		return Preview{}, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	var bounds spatial.Bounds
	var count uint64
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Preview{}, err
		}
		p, err := parsePoint(rec)
		if err != nil {
			return Preview{}, err
		}
		if first {
			bounds = spatial.Bounds{Min: p, Max: p}
			first = false
		} else {
			bounds = bounds.Grow(p)
		}
		count++
	}
	return Preview{Bounds: bounds, PointCount: count}, nil
}

func (CSVExecutor) Decode(ctx context.Context, path string, p *pool.Pool, batchSize int, onBatch func([]*pool.Cell) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if batchSize <= 0 {
		batchSize = 4096
	}

	r := csv.NewReader(bufio.NewReader(f))
	batch := make([]*pool.Cell, 0, batchSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		point, err := parsePoint(rec)
		if err != nil {
			return err
		}
		cell := p.Get()
		cell.Point = point
		batch = append(batch, cell)

		if len(batch) >= batchSize {
			if err := onBatch(batch); err != nil {
				return err
			}
			batch = make([]*pool.Cell, 0, batchSize)
		}
	}
	if len(batch) > 0 {
		return onBatch(batch)
	}
	return nil
}

func parsePoint(rec []string) (spatial.Vec3, error) {
	if len(rec) < 3 {
		return spatial.Vec3{}, io.ErrUnexpectedEOF
	}
	x, err := strconv.ParseFloat(rec[0], 64)
	if err != nil {
		return spatial.Vec3{}, err
	}
	y, err := strconv.ParseFloat(rec[1], 64)
	if err != nil {
		return spatial.Vec3{}, err
	}
	z, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return spatial.Vec3{}, err
	}
	return spatial.Vec3{X: x, Y: y, Z: z}, nil
}
