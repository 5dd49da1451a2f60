package fault

import (
	"math/rand/v2"
	"time"
)

// RandomSource supplies the draws behind every fault decision.
// *rand.Rand satisfies it.
type RandomSource interface {
	// Float64 returns a value in [0.0, 1.0).
	Float64() float64
	// IntN returns a value in [0, n). n > 0.
	IntN(n int) int
}

// NewSeededSource returns a deterministic source for seed, or a time-seeded
// one when seed is zero.
func NewSeededSource(seed uint64) RandomSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
