package workpool

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubmitRunsAllTasks(t *testing.T) {
	p := New(4)
	var count int64
	for i := 0; i < 100; i++ {
		p.Submit(func() { atomic.AddInt64(&count, 1) })
	}
	p.Cycle()
	assert.Equal(t, int64(100), count)
}

func TestCycleWaitsForInFlight(t *testing.T) {
	p := New(2)
	var done int32
	for i := 0; i < 10; i++ {
		p.Submit(func() { atomic.StoreInt32(&done, 1) })
	}
	p.Cycle()
	assert.Equal(t, int32(1), done)
}
