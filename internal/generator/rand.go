package generator

import (
	"math/rand/v2"
	"sync"
)

// Rand is the randomness the generator and the event factory draw from.
// Production code uses NewRand; tests inject NewSequence for fixed outputs.
type Rand interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// IntN returns a value in [0, n). n must be positive.
	IntN(n int) int
}

// lockedRand makes a PCG-backed *rand.Rand safe for concurrent callers.
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRand returns a concurrency-safe PCG source. A zero seed draws a seed from
// the runtime's entropy source.
func NewRand(seed uint64) Rand {
	hi, lo := seed, seed^0x9e3779b97f4a7c15
	if seed == 0 {
		hi, lo = rand.Uint64(), rand.Uint64()
	}
	return &lockedRand{rnd: rand.New(rand.NewPCG(hi, lo))}
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}

func (r *lockedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.IntN(n)
}

// Sequence replays a fixed list of values in [0, 1), cycling when exhausted.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewSequence builds a fixed-sequence source. With no values it always yields 0.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// IntN scales the next value into [0, n).
func (s *Sequence) IntN(n int) int {
	i := int(s.Float64() * float64(n))
	if i >= n {
		return n - 1
	}
	if i < 0 {
		return 0
	}
	return i
}
