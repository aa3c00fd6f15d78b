package appts

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/appointments-sim/appointments-sim/appts/nn"
)

const (
	// Epochs is the fixed number of training epochs. There is no convergence
	// criterion; training always runs the full count.
	Epochs = 100

	// NoiseLength is the length of the noise vector fed to the model.
	NoiseLength = 3

	// LearningRate for the Adam optimizer driving both objectives.
	LearningRate = 1e-4

	// DefaultOutlierSigma is how many standard deviations a clinic's
	// appointments-per-patient rate may deviate from the mean before the
	// clinic is excluded from training.
	DefaultOutlierSigma = 4.0
)

// hiddenLayers is the model's hidden architecture: four dense ReLU layers.
var hiddenLayers = []int{8, 8, 8, 8}

// TrainingConfig collects the tunable training parameters. DefaultTrainingConfig
// gives the values the published aggregates were produced with.
type TrainingConfig struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	OutlierSigma float64
}

// DefaultTrainingConfig returns the standard training parameters.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Epochs:       Epochs,
		BatchSize:    BatchSize,
		LearningRate: LearningRate,
		OutlierSigma: DefaultOutlierSigma,
	}
}

// LossAccumulator tracks the running mean of a loss across gradient steps.
// It accumulates over the entire run, so per-epoch reports show the mean of
// every step taken so far.
type LossAccumulator struct {
	sum   float64
	count int
}

// Add records one loss value.
func (a *LossAccumulator) Add(loss float64) {
	a.sum += loss
	a.count++
}

// Mean returns the running mean, or zero before any values arrive.
func (a *LossAccumulator) Mean() float64 {
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

// Count returns the number of recorded values.
func (a *LossAccumulator) Count() int {
	return a.count
}

// TrainingMetrics exposes the running loss means for both objectives.
type TrainingMetrics struct {
	Magnitude    LossAccumulator
	Distribution LossAccumulator
}

// Fit trains an appointments model against the population and clinic tables.
// Each epoch alternates two objectives in a fixed order (magnitude first,
// then distribution), taking one independent gradient step per eligible
// clinic for each objective. The two objectives are never fused into a joint
// loss: parameters are updated twice per clinic per epoch, from separately
// computed gradients.
func Fit(population *Population, clinics []Clinic, config TrainingConfig, rng *PartitionedRNG) (*nn.Network, *TrainingMetrics, error) {
	perBatch := AppointmentsPerBatch(clinics, config.BatchSize, config.OutlierSigma)
	if len(perBatch) == 0 {
		return nil, nil, fmt.Errorf("fit: no clinics eligible for training")
	}
	builder := NewBatchBuilder(population, perBatch, config.BatchSize)
	if len(builder.Pools()) == 0 {
		return nil, nil, fmt.Errorf("fit: no clinic pools with population members")
	}

	network := nn.New(
		1+len(Conditions)+NoiseLength,
		hiddenLayers,
		OutputComponents,
		population.AgeMean,
		population.AgeVariance,
		rng.ForSubsystem(SubsystemWeights),
	)
	optimizer := nn.NewAdam(network, config.LearningRate)
	metrics := &TrainingMetrics{}

	sampling := rng.ForSubsystem(SubsystemSampling)
	noise := rng.ForSubsystem(SubsystemNoise)
	for epoch := 0; epoch < config.Epochs; epoch++ {
		for _, distribution := range []bool{false, true} {
			for _, pool := range builder.Pools() {
				loss := trainStep(network, optimizer, pool, distribution, sampling, noise)
				if distribution {
					metrics.Distribution.Add(loss)
				} else {
					metrics.Magnitude.Add(loss)
				}
			}
		}
		logrus.Infof("epoch %d/%d: magnitude_loss=%.4f distribution_loss=%.4f",
			epoch+1, config.Epochs, metrics.Magnitude.Mean(), metrics.Distribution.Mean())
	}
	return network, metrics, nil
}

// trainStep runs one gradient step for one clinic under one objective:
// sample a batch, evaluate the model with freshly drawn noise, transform the
// outputs to appointment estimates, differentiate the objective with respect
// to the estimates, and apply one optimizer step.
func trainStep(network *nn.Network, optimizer *nn.Adam, pool *ClinicPool, distribution bool, sampling, noiseRNG *rand.Rand) float64 {
	batch := pool.Batch(sampling)
	ages := make([]float64, len(batch))
	conditions := make([][]float64, len(batch))
	for i, individual := range batch {
		ages[i] = float64(individual.Age)
		conditions[i] = individual.ConditionFlags
	}
	// Noise is drawn fresh for every forward pass used for a gradient step,
	// never cached.
	noise := SampleNoise(noiseRNG, len(batch))

	tape := network.Forward(ages, conditions, noise)
	output := tape.Output()
	estimates := make([]float64, len(batch))
	raw := make([]float64, OutputComponents)
	for i := range batch {
		for j := 0; j < OutputComponents; j++ {
			raw[j] = output.At(i, j)
		}
		estimates[i] = TransformOutput(raw)
	}

	var loss float64
	var grad []float64
	if distribution {
		loss, grad = DistributionLoss(estimates, pool.Buckets)
	} else {
		loss, grad = MagnitudeLoss(estimates, pool.AppointmentsPerBatch)
	}

	// Chain d(loss)/d(estimate) through the affine output transform to get
	// d(loss)/d(raw output), then one optimizer step.
	outputGradient := mat.NewDense(len(batch), OutputComponents, nil)
	for i := range batch {
		for j := 0; j < OutputComponents; j++ {
			outputGradient.Set(i, j, grad[i]*TransformGradient(j))
		}
	}
	optimizer.Apply(network.Backward(tape, outputGradient))
	return loss
}

// SampleNoise draws one standard-normal noise vector of NoiseLength per
// example.
func SampleNoise(rng *rand.Rand, batch int) [][]float64 {
	noise := make([][]float64, batch)
	for i := range noise {
		vector := make([]float64, NoiseLength)
		for j := range vector {
			vector[j] = rng.NormFloat64()
		}
		noise[i] = vector
	}
	return noise
}

// MagnitudeLoss compares the batch's total estimated appointments with the
// clinic's scaled real volume: (total - expected)^2 / batch size. The
// returned gradient is d(loss)/d(estimate_i).
func MagnitudeLoss(estimates []float64, expected float64) (float64, []float64) {
	total := 0.0
	for _, e := range estimates {
		total += e
	}
	batch := float64(len(estimates))
	diff := total - expected
	loss := diff * diff / batch

	grad := make([]float64, len(estimates))
	for i := range grad {
		grad[i] = 2.0 * diff / batch
	}
	return loss, grad
}

// DistributionLoss compares soft bucket totals against the survey-derived
// targets. True bucket membership is a step function with zero gradient
// almost everywhere, so each estimate is soft-assigned with a sigmoid
// relaxation centred at the bucket boundaries of 1.0 and 3.0 appointments.
// The boundary constants encode the survey's bucket edges and must not move.
func DistributionLoss(estimates []float64, targets [ConsultationBuckets]float64) (float64, []float64) {
	batch := float64(len(estimates))
	low := make([]float64, len(estimates))  // sigma(e - 1)
	high := make([]float64, len(estimates)) // sigma(e - 3)
	lowSum, highSum := 0.0, 0.0
	for i, e := range estimates {
		low[i] = sigmoid(e - 1.0)
		high[i] = sigmoid(e - 3.0)
		lowSum += low[i]
		highSum += high[i]
	}
	zero := batch - lowSum
	threeOrMore := highSum
	oneOrTwo := batch - zero - threeOrMore

	dZero := zero - targets[0]
	dMid := oneOrTwo - targets[1]
	dHigh := threeOrMore - targets[2]
	loss := dZero*dZero + dMid*dMid + dHigh*dHigh

	grad := make([]float64, len(estimates))
	for i := range estimates {
		dLow := low[i] * (1.0 - low[i])  // sigma'(e - 1)
		dHi := high[i] * (1.0 - high[i]) // sigma'(e - 3)
		grad[i] = 2.0*dZero*(-dLow) + 2.0*dMid*(dLow-dHi) + 2.0*dHigh*dHi
	}
	return loss, grad
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
