package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/hupe1980/imgcache/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// UUID returns a deterministic version 4 UUID.
func (r *RNG) UUID() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uuidLocked()
}

func (r *RNG) uuidLocked() uuid.UUID {
	var id uuid.UUID
	_, _ = r.rand.Read(id[:])
	id[6] = (id[6] & 0x0f) | 0x40 // version 4
	id[8] = (id[8] & 0x3f) | 0x80 // variant 10
	return id
}

// Image returns n pseudo-random bytes.
func (r *RNG) Image(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, n)
	_, _ = r.rand.Read(b)
	return b
}

// Keys returns n distinct keys spread over all key kinds.
func (r *RNG) Keys(n int) []model.Key {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]model.Key, n)
	for i := range keys {
		owner, id := r.uuidLocked(), r.uuidLocked()
		switch i % 5 {
		case 0:
			keys[i] = model.PostImage(owner, id)
		case 1:
			keys[i] = model.Avatar(owner)
		case 2:
			keys[i] = model.Drawing(owner, id)
		case 3:
			keys[i] = model.DrawingLayer(owner, id, uint32(r.rand.Intn(8)))
		default:
			keys[i] = model.LocalDrawing(id)
		}
	}
	return keys
}

// Zipf returns a Zipfian-distributed value in [0, n).
// Uses Zipf's law: P(k) ∝ 1/k^s where s is the skew parameter.
// s=1.0 gives standard Zipf, s=1.5 gives heavy-tail (80/20 rule).
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	// Compute normalization constant (harmonic number with exponent s)
	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	// Sample from uniform and use inverse transform
	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1 // 0-indexed
		}
	}

	return n - 1
}
