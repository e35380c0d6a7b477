package scenario

import (
	"math/rand/v2"
	"sync"
)

// Rand is a seeded random source safe for use by concurrent workers.
// The lock is held for a single draw.
type Rand struct {
	mu  sync.Mutex
	src *rand.Rand
}

// NewRand returns a source seeded with seed. Equal seeds give equal sequences.
func NewRand(seed int64) *Rand {
	s := uint64(seed)
	return &Rand{src: rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))}
}

// Intn returns a value in [0, n). It panics if n <= 0.
func (r *Rand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.IntN(n)
}

// Int64n returns a value in [0, n).
func (r *Rand) Int64n(n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Int64N(n)
}

// Float64 returns a value in [0.0, 1.0).
func (r *Rand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}
