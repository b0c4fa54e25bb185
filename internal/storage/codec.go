package storage

import (
	"github.com/zhan520/entwine/internal/pool"
	"github.com/zhan520/entwine/internal/schema"
)

// ChunkCodec encodes and decodes the cell set of one chunk. The adapter
// owns no state besides the schema it was built with; the kind ("laszip"
// or "binary") is chosen once, at Metadata construction, never switched
// at runtime.
type ChunkCodec interface {
	Encode(cells []*pool.Cell) ([]byte, error)
	Decode(data []byte, p *pool.Pool) ([]*pool.Cell, error)
	Extension() string
}

// NewCodec resolves the codec for a dataStorage kind against sch.
func NewCodec(kind string, sch schema.Schema) ChunkCodec {
	switch kind {
	case "binary":
		return newBinaryCodec(sch)
	default:
		return newLazCodec(sch)
	}
}
