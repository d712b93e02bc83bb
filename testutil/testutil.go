package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/retrodb/persistence"
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

// Bytes returns n pseudo-random bytes.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, n)
	_, _ = r.rand.Read(b)
	return b
}

// Tokens returns n token ids drawn uniformly from [0, vocab).
func Tokens[T persistence.Token](r *RNG, n, vocab int) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return tokensLocked[T](r, n, vocab)
}

func tokensLocked[T persistence.Token](r *RNG, n, vocab int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = T(r.rand.Intn(vocab))
	}
	return out
}

// Records returns count records with lengths uniform in [minLen, maxLen].
func Records[T persistence.Token](r *RNG, count, minLen, maxLen, vocab int) [][]T {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]T, count)
	for i := range out {
		n := minLen + r.rand.Intn(maxLen-minLen+1)
		out[i] = tokensLocked[T](r, n, vocab)
	}
	return out
}

// ZipfTokens returns n token ids in [0, vocab) with a Zipfian frequency
// distribution, which is how natural-language token counts behave.
// s=1.0 gives standard Zipf.
func ZipfTokens[T persistence.Token](r *RNG, n, vocab int, s float64) []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	if vocab <= 1 {
		return make([]T, n)
	}

	cdf := make([]float64, vocab)
	var total float64
	for k := 1; k <= vocab; k++ {
		total += 1.0 / math.Pow(float64(k), s)
		cdf[k-1] = total
	}

	out := make([]T, n)
	for i := range out {
		u := r.rand.Float64() * total
		lo, hi := 0, vocab-1
		for lo < hi {
			mid := (lo + hi) / 2
			if cdf[mid] < u {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		out[i] = T(lo)
	}
	return out
}

// NeighborRows returns n rows of k distinct chunk ids drawn from [0, maxID).
// k must not exceed maxID.
func (r *RNG) NeighborRows(n, k, maxID int) [][]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]int64, n*k)
	rows := make([][]int64, n)
	for i := range n {
		row := data[i*k : (i+1)*k]
		for j, id := range r.rand.Perm(maxID)[:k] {
			row[j] = int64(id)
		}
		rows[i] = row
	}
	return rows
}

// Arange returns start, start+step, ... up to but excluding stop.
func Arange[T persistence.Token](start, stop, step int) []T {
	var out []T
	for v := start; v < stop; v += step {
		out = append(out, T(v))
	}
	return out
}

// Concat returns the concatenation of parts.
func Concat[T any](parts ...[]T) []T {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]T, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Repeat returns n copies of v.
func Repeat[T any](v T, n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = v
	}
	return out
}
