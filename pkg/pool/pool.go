package pool

import (
	"sync"
	"sync/atomic"
)

// Pool is an explicit free list for a single record type. Records are
// checked out with Get and must be returned with Put once they reach a
// terminal lifecycle point. Unlike sync.Pool, retention is deterministic
// and reuse is observable through the hit/miss counters.
type Pool[T any] struct {
	mu   sync.Mutex
	free []*T

	newFn   func() *T
	resetFn func(*T)
	maxIdle int

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a pool producing records with newFn and clearing returned
// records with resetFn. maxIdle bounds the free list; returns beyond it are
// dropped for the garbage collector.
func New[T any](newFn func() *T, resetFn func(*T), maxIdle int) *Pool[T] {
	if maxIdle <= 0 {
		maxIdle = 1024
	}
	return &Pool[T]{
		newFn:   newFn,
		resetFn: resetFn,
		maxIdle: maxIdle,
	}
}

// Get checks a record out of the pool, allocating when the free list is
// empty.
func (p *Pool[T]) Get() *T {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		rec := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.mu.Unlock()
		p.hits.Add(1)
		return rec
	}
	p.mu.Unlock()

	p.misses.Add(1)
	return p.newFn()
}

// Put resets the record and returns it to the free list.
func (p *Pool[T]) Put(rec *T) {
	if rec == nil {
		return
	}
	if p.resetFn != nil {
		p.resetFn(rec)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) >= p.maxIdle {
		return
	}
	p.free = append(p.free, rec)
}

// Stats returns the cumulative hit and miss counts.
func (p *Pool[T]) Stats() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}

// Idle returns the current free list length.
func (p *Pool[T]) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Sharded spreads checkouts across per-lane sub-pools so lanes do not
// contend on a single lock, falling back to a shared overflow pool when a
// shard runs dry on returns.
type Sharded[T any] struct {
	shards   []*Pool[T]
	overflow *Pool[T]
}

// NewSharded creates a sharded pool with one sub-pool per shard plus a
// shared overflow.
func NewSharded[T any](shardCount int, newFn func() *T, resetFn func(*T), maxIdlePerShard int) *Sharded[T] {
	if shardCount <= 0 {
		shardCount = 1
	}
	s := &Sharded[T]{
		shards:   make([]*Pool[T], shardCount),
		overflow: New(newFn, resetFn, maxIdlePerShard*shardCount),
	}
	for i := range s.shards {
		s.shards[i] = New(newFn, resetFn, maxIdlePerShard)
	}
	return s
}

// Get checks a record out of the given shard.
func (s *Sharded[T]) Get(shard int) *T {
	p := s.shards[shard%len(s.shards)]
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		rec := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.mu.Unlock()
		p.hits.Add(1)
		return rec
	}
	p.mu.Unlock()

	// Shard is dry, try the shared overflow before allocating.
	return s.overflow.Get()
}

// Put returns a record to the given shard, spilling to the overflow pool
// when the shard's free list is full.
func (s *Sharded[T]) Put(shard int, rec *T) {
	if rec == nil {
		return
	}
	p := s.shards[shard%len(s.shards)]
	if p.resetFn != nil {
		p.resetFn(rec)
	}

	p.mu.Lock()
	if len(p.free) < p.maxIdle {
		p.free = append(p.free, rec)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	s.overflow.mu.Lock()
	defer s.overflow.mu.Unlock()
	if len(s.overflow.free) < s.overflow.maxIdle {
		s.overflow.free = append(s.overflow.free, rec)
	}
}

// Shard returns the sub-pool for a shard index, mainly for stats.
func (s *Sharded[T]) Shard(i int) *Pool[T] {
	return s.shards[i%len(s.shards)]
}
