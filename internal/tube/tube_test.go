package tube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zhan520/entwine/internal/pool"
)

func TestTryPlaceRejectsOccupiedTick(t *testing.T) {
	tu := New()
	p := pool.New(0)

	assert.True(t, tu.TryPlace(5, p.Get()))
	assert.False(t, tu.TryPlace(5, p.Get()))
	assert.Equal(t, 1, tu.Len())
}

func TestCellsOrderedByZTick(t *testing.T) {
	tu := New()
	p := pool.New(0)

	c3, c1, c2 := p.Get(), p.Get(), p.Get()
	tu.TryPlace(3, c3)
	tu.TryPlace(1, c1)
	tu.TryPlace(2, c2)

	got := tu.Cells()
	assert.Equal(t, []*pool.Cell{c1, c2, c3}, got)
}
