package storage

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/zhan520/entwine/internal/pool"
	"github.com/zhan520/entwine/internal/schema"
)

// binaryCodec is a fixed-width XYZ-plus-attributes layout, zstd-compressed
// as a whole. It stands in for a real columnar format: entwine's actual
// "binary" output is its own wire format, out of scope here, but zstd
// framing over a flat record layout is the closest thing the example pack
// offers for this concern.
type binaryCodec struct {
	schema schema.Schema
}

func newBinaryCodec(sch schema.Schema) *binaryCodec {
	return &binaryCodec{schema: sch}
}

func (c *binaryCodec) Extension() string { return "bin" }

func (c *binaryCodec) Encode(cells []*pool.Cell) ([]byte, error) {
	var raw bytes.Buffer
	binary.Write(&raw, binary.LittleEndian, uint64(len(cells)))
	for _, cell := range cells {
		binary.Write(&raw, binary.LittleEndian, cell.Point.X)
		binary.Write(&raw, binary.LittleEndian, cell.Point.Y)
		binary.Write(&raw, binary.LittleEndian, cell.Point.Z)
		raw.Write(cell.Data)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(raw.Bytes(), nil), nil
}

func (c *binaryCodec) Decode(data []byte, p *pool.Pool) ([]*pool.Cell, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(data, nil)
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
