package appts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	rng1 := NewPartitionedRNG(42)
	rng2 := NewPartitionedRNG(42)

	for i := 0; i < 5; i++ {
		assert.Equal(t,
			rng1.ForSubsystem(SubsystemNoise).Float64(),
			rng2.ForSubsystem(SubsystemNoise).Float64())
	}
}

func TestPartitionedRNG_SubsystemIsolation(t *testing.T) {
	// Draws against one subsystem must not perturb another's sequence.
	a := NewPartitionedRNG(42)
	b := NewPartitionedRNG(42)

	for i := 0; i < 10; i++ {
		a.ForSubsystem(SubsystemSampling).Float64()
	}
	assert.Equal(t,
		b.ForSubsystem(SubsystemNoise).Float64(),
		a.ForSubsystem(SubsystemNoise).Float64())
}

func TestPartitionedRNG_SubsystemsDiffer(t *testing.T) {
	rng := NewPartitionedRNG(42)
	assert.NotEqual(t,
		rng.ForSubsystem(SubsystemNoise).Float64(),
		rng.ForSubsystem(SubsystemPrivacy).Float64())
}

func TestPartitionedRNG_CachesInstances(t *testing.T) {
	rng := NewPartitionedRNG(7)
	assert.Same(t, rng.ForSubsystem(SubsystemWeights), rng.ForSubsystem(SubsystemWeights))
	assert.Equal(t, int64(7), rng.Seed())
}
