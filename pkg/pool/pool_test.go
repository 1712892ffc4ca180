package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	value int
	data  []byte
}

func newRecordPool(maxIdle int) *Pool[record] {
	return New(
		func() *record { return &record{} },
		func(r *record) { *r = record{} },
		maxIdle,
	)
}

func TestPool_ReusesReturnedRecords(t *testing.T) {
	p := newRecordPool(8)

	first := p.Get()
	first.value = 42
	p.Put(first)

	second := p.Get()
	assert.Same(t, first, second)
	assert.Equal(t, 0, second.value, "record must be reset on return")

	hits, misses := p.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestPool_GetAllocatesWhenEmpty(t *testing.T) {
	p := newRecordPool(8)

	a := p.Get()
	b := p.Get()
	require.NotSame(t, a, b)

	_, misses := p.Stats()
	assert.Equal(t, int64(2), misses)
	assert.Equal(t, 0, p.Idle())
}

func TestPool_MaxIdleDropsExcess(t *testing.T) {
	p := newRecordPool(2)

	records := []*record{p.Get(), p.Get(), p.Get()}
	for _, r := range records {
		p.Put(r)
	}

	assert.Equal(t, 2, p.Idle())
}

func TestPool_PutNilIsNoop(t *testing.T) {
	p := newRecordPool(2)
	p.Put(nil)
	assert.Equal(t, 0, p.Idle())
}

func TestPool_ConcurrentCheckout(t *testing.T) {
	p := newRecordPool(1024)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				r := p.Get()
				r.data = append(r.data[:0], 'x')
				p.Put(r)
			}
		}()
	}
	wg.Wait()

	hits, misses := p.Stats()
	assert.Equal(t, int64(8000), hits+misses)
}

func TestSharded_ShardsAreIndependent(t *testing.T) {
	s := NewSharded(2,
		func() *record { return &record{} },
		func(r *record) { *r = record{} },
		4,
	)

	r0 := s.Get(0)
	s.Put(0, r0)

	// shard 1 starts dry, so it allocates rather than stealing shard 0's record
	r1 := s.Get(1)
	assert.NotSame(t, r0, r1)
	assert.Equal(t, 1, s.Shard(0).Idle())
}

func TestSharded_OverflowCatchesSpill(t *testing.T) {
	s := NewSharded(1,
		func() *record { return &record{} },
		func(r *record) { *r = record{} },
		1,
	)

	a, b := s.Get(0), s.Get(0)
	s.Put(0, a)
	s.Put(0, b) // shard full, spills to overflow

	assert.Equal(t, 1, s.Shard(0).Idle())

	// both records come back without allocating
	first, second := s.Get(0), s.Get(0)
	assert.NotSame(t, first, second)
	hits, _ := s.Shard(0).Stats()
	assert.Equal(t, int64(1), hits)
}

func TestSharded_ShardIndexWraps(t *testing.T) {
	s := NewSharded(2,
		func() *record { return &record{} },
		func(r *record) { *r = record{} },
		4,
	)

	r := s.Get(5) // 5 % 2 == shard 1
	s.Put(5, r)
	assert.Equal(t, 1, s.Shard(1).Idle())
}
