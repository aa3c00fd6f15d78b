package appts

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagnitudeLoss(t *testing.T) {
	estimates := []float64{10.0, 20.0, 30.0}
	loss, grad := MagnitudeLoss(estimates, 30.0)

	// total=60, expected=30 -> (60-30)^2 / 3
	assert.InDelta(t, 300.0, loss, 1e-12)
	require.Len(t, grad, 3)
	for _, g := range grad {
		assert.InDelta(t, 2.0*30.0/3.0, g, 1e-12)
	}
}

func TestMagnitudeLoss_ZeroAtTarget(t *testing.T) {
	loss, grad := MagnitudeLoss([]float64{15.0, 15.0}, 30.0)
	assert.Zero(t, loss)
	for _, g := range grad {
		assert.Zero(t, g)
	}
}

func TestDistributionLoss_GradientMatchesFiniteDifference(t *testing.T) {
	estimates := []float64{0.2, 1.4, 2.9, 3.6, 17.0}
	targets := [ConsultationBuckets]float64{1.5, 2.0, 1.5}
	_, grad := DistributionLoss(estimates, targets)
	require.Len(t, grad, len(estimates))

	const h = 1e-6
	for i := range estimates {
		bumped := append([]float64{}, estimates...)
		bumped[i] += h
		plus, _ := DistributionLoss(bumped, targets)
		bumped[i] -= 2 * h
		minus, _ := DistributionLoss(bumped, targets)
		assert.InDelta(t, (plus-minus)/(2*h), grad[i], 1e-5, "estimate %d", i)
	}
}

func TestDistributionLoss_SoftCountsRespectBucketEdges(t *testing.T) {
	// An estimate far below 1 belongs almost entirely to the zero bucket; one
	// far above 3 to the 3+ bucket. With matching targets the loss vanishes.
	estimates := []float64{-10.0, -10.0, 20.0}
	targets := [ConsultationBuckets]float64{2.0, 0.0, 1.0}
	loss, _ := DistributionLoss(estimates, targets)
	assert.InDelta(t, 0.0, loss, 1e-6)
}

func TestDistributionLoss_MidBucketIsComplement(t *testing.T) {
	// Estimates sitting between the edges (sigma(e-1) ~ 1, sigma(e-3) ~ 0)
	// count towards the 1-2 bucket.
	estimates := []float64{2.0, 2.0}
	targets := [ConsultationBuckets]float64{0.0, 2.0, 0.0}
	loss, _ := DistributionLoss(estimates, targets)
	assert.Less(t, loss, 0.25)
}

func trainingFixture(t *testing.T, clinicSizes map[string]int) (*Population, []Clinic) {
	t.Helper()
	rng := rand.New(rand.NewSource(77))
	p := &Population{}
	var clinics []Clinic
	for code, size := range clinicSizes {
		for i := 0; i < size; i++ {
			flags := []float64{-1.0, -1.0, -1.0}
			if rng.Float64() < 0.2 {
				flags[rng.Intn(len(flags))] = 1.0
			}
			p.Individuals = append(p.Individuals, Individual{
				Age:            rng.Intn(90),
				ConditionFlags: flags,
				Clinic:         code,
			})
		}
		clinics = append(clinics, Clinic{
			Code:              code,
			ListSize:          size * 2,
			SimulatedListSize: size,
			Appointments:      float64(size) * 0.4,
		})
	}
	p.AgeMean = 45.0
	p.AgeVariance = 600.0
	return p, clinics
}

func TestFit_TakesTwoStepsPerClinicPerEpoch(t *testing.T) {
	population, clinics := trainingFixture(t, map[string]int{"A": 30, "B": 20})
	config := TrainingConfig{Epochs: 3, BatchSize: 16, LearningRate: 1e-3, OutlierSigma: DefaultOutlierSigma}

	_, metrics, err := Fit(population, clinics, config, NewPartitionedRNG(1))
	require.NoError(t, err)

	// One magnitude and one distribution step per clinic per epoch.
	assert.Equal(t, 3*2, metrics.Magnitude.Count())
	assert.Equal(t, 3*2, metrics.Distribution.Count())
	assert.Greater(t, metrics.Magnitude.Mean(), 0.0)
}

func TestFit_DeterministicForSameSeed(t *testing.T) {
	population, clinics := trainingFixture(t, map[string]int{"A": 25})
	config := TrainingConfig{Epochs: 2, BatchSize: 8, LearningRate: 1e-3, OutlierSigma: DefaultOutlierSigma}

	_, metrics1, err := Fit(population, clinics, config, NewPartitionedRNG(9))
	require.NoError(t, err)
	_, metrics2, err := Fit(population, clinics, config, NewPartitionedRNG(9))
	require.NoError(t, err)

	assert.Equal(t, metrics1.Magnitude.Mean(), metrics2.Magnitude.Mean())
	assert.Equal(t, metrics1.Distribution.Mean(), metrics2.Distribution.Mean())
}

func TestFit_NoEligibleClinicsIsError(t *testing.T) {
	population, _ := trainingFixture(t, map[string]int{"A": 10})
	clinics := []Clinic{{Code: "A", ListSize: 0, SimulatedListSize: 10, Appointments: 4}}
	_, _, err := Fit(population, clinics, DefaultTrainingConfig(), NewPartitionedRNG(1))
	assert.Error(t, err)
}

func TestLossAccumulator(t *testing.T) {
	var a LossAccumulator
	assert.Zero(t, a.Mean())
	a.Add(2.0)
	a.Add(4.0)
	assert.InDelta(t, 3.0, a.Mean(), 1e-12)
	assert.Equal(t, 2, a.Count())
}

func TestSampleNoise_FreshPerCall(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	first := SampleNoise(rng, 4)
	second := SampleNoise(rng, 4)
	require.Len(t, first, 4)
	require.Len(t, first[0], NoiseLength)
	assert.NotEqual(t, first, second, "noise must be resampled on every draw")
}
