package clip

import (
	"github.com/zhan520/entwine/internal/chunk"
	"github.com/zhan520/entwine/internal/spatial"
)

// Clipper is keyed by Origin (input-file id) and tracks which chunks it
// has touched since its last clip so repeated climbs from the same file
// don't re-acquire a chunk they already hold.
type Clipper struct {
	Origin     uint64
	residency  *Residency
	sleepCount uint64

	touched  map[spatial.Key]*chunk.Chunk
	inserted uint64
}

// NewClipper creates a clipper for origin against residency, clipping
// every sleepCount inserts (spec's default is >= 65536).
func NewClipper(origin uint64, residency *Residency, sleepCount uint64) *Clipper {
	if sleepCount == 0 {
		sleepCount = 65536
	}
	return &Clipper{
		Origin:     origin,
		residency:  residency,
		sleepCount: sleepCount,
		touched:    make(map[spatial.Key]*chunk.Chunk),
	}
}

// Acquire returns the chunk for key, acquiring a fresh ref from residency
// only the first time this clipper touches key since its last clip.
func (cl *Clipper) Acquire(key spatial.Key) (*chunk.Chunk, error) {
	if c, ok := cl.touched[key]; ok {
		return c, nil
	}
	c, err := cl.residency.Acquire(key)
	if err != nil {
		return nil, err
	}
	cl.touched[key] = c
	return c, nil
}

// Tick records one inserted point and clips automatically once sleepCount
// inserts have accumulated.
func (cl *Clipper) Tick() {
	cl.inserted++
	if cl.inserted >= cl.sleepCount {
		cl.Clip()
		cl.inserted = 0
	}
}

// Clip releases the ref this clipper holds on every chunk it touched
// during this cycle. Chunks whose global ref count reaches zero are
// persisted and evicted by the underlying Residency.
func (cl *Clipper) Clip() error {
	for key := range cl.touched {
		if err := cl.residency.Release(key); err != nil {
			return err
		}
	}
	cl.touched = make(map[spatial.Key]*chunk.Chunk)
	return nil
}

// Close releases every remaining touched chunk, used when a file's insert
// task ends (successfully or on error).
func (cl *Clipper) Close() error {
	return cl.Clip()
}
