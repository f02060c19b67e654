package selector

import (
	"math/rand"
	"sync"
	"time"
)

// RandomSource is the uniform pseudo-random capability the selector draws from.
// *rand.Rand satisfies it.
type RandomSource interface {
	// Intn returns a uniform integer in [0, n).
	Intn(n int) int
	// Float64 returns a uniform float in [0.0, 1.0).
	Float64() float64
}

// NewRandomSource returns a non-cryptographic generator seeded from the wall clock.
// Outcomes are neither reproducible nor auditable.
func NewRandomSource() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// lockedSource serializes access to a source that is not safe for concurrent use.
type lockedSource struct {
	mu  sync.Mutex
	src RandomSource
}

// Locked wraps src so several raffle sessions can draw from it concurrently.
func Locked(src RandomSource) RandomSource {
	if ls, ok := src.(*lockedSource); ok {
		return ls
	}
	return &lockedSource{src: src}
}

func (l *lockedSource) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Intn(n)
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}
