package appts

import (
	"hash/fnv"
	"math/rand"
)

// Subsystem names for RNG partitioning. Keeping the batch-sampling, noise and
// privacy streams isolated means each stage draws the same sequence for a
// given seed regardless of how much randomness the other stages consume.
const (
	// SubsystemSampling draws batch membership during training.
	SubsystemSampling = "sampling"

	// SubsystemNoise draws the noise vectors fed to the model, for both
	// training forwards and prediction.
	SubsystemNoise = "noise"

	// SubsystemWeights draws the model's initial parameters.
	SubsystemWeights = "weights"

	// SubsystemPrivacy draws the Laplace noise protecting aggregate output.
	SubsystemPrivacy = "privacy"
)

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem,
// all derived from a single master seed. Two runs with the same seed and
// identical inputs draw identical random sequences in every subsystem.
//
// Thread-safety: NOT thread-safe. Must be called from a single goroutine.
type PartitionedRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a master seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.seed ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Seed returns the master seed used to create this PartitionedRNG.
func (p *PartitionedRNG) Seed() int64 {
	return p.seed
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
