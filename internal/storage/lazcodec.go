package storage

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/golang/snappy"
	"github.com/zhan520/entwine/internal/pool"
	"github.com/zhan520/entwine/internal/schema"
)

// lazCodec stands in for real LASzip-compressed LAS output, which is out
// of scope (spec.md treats point codec libraries as external). It uses
// the same flat record layout as binaryCodec but frames it with snappy,
// a block codec geared at the kind of streaming throughput a point-cloud
// reader wants, rather than zstd's higher compression ratio.
type lazCodec struct {
	schema schema.Schema
}

func newLazCodec(sch schema.Schema) *lazCodec {
	return &lazCodec{schema: sch}
}

func (c *lazCodec) Extension() string { return "laz" }

func (c *lazCodec) Encode(cells []*pool.Cell) ([]byte, error) {
	var raw bytes.Buffer
	binary.Write(&raw, binary.LittleEndian, uint64(len(cells)))
	for _, cell := range cells {
		binary.Write(&raw, binary.LittleEndian, cell.Point.X)
		binary.Write(&raw, binary.LittleEndian, cell.Point.Y)
		binary.Write(&raw, binary.LittleEndian, cell.Point.Z)
		raw.Write(cell.Data)
	}
	return snappy.Encode(nil, raw.Bytes()), nil
}

func (c *lazCodec) Decode(data []byte, p *pool.Pool) ([]*pool.Cell, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(raw)
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}

	pointSize := c.schema.PointSize()
	cells := make([]*pool.Cell, 0, count)
	for i := uint64(0); i < count; i++ {
		cell := p.Get()
		if err := binary.Read(r, binary.LittleEndian, &cell.Point.X); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &cell.Point.Y); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &cell.Point.Z); err != nil {
			return nil, err
		}
		if len(cell.Data) < pointSize {
			cell.Data = make([]byte, pointSize)
		}
		if _, err := io.ReadFull(r, cell.Data[:pointSize]); err != nil {
			return nil, err
		}
		cells = append(cells, cell)
	}
	return cells, nil
}
