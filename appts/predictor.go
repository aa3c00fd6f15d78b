package appts

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/appointments-sim/appointments-sim/appts/nn"
)

// PredictChunkSize is how many individuals are evaluated per forward pass
// during prediction. Independent of the training batch size.
const PredictChunkSize = 10000

// SummaryDeciles is the minimum number of age deciles tracked in the
// prediction summary (ages 0-9 through 90-99). The summary grows past it
// when the population contains centenarians, so its totals always cover
// every individual written.
const SummaryDeciles = 10

// Predict applies a trained model to the full population in chunks, writing
// one CSV row per individual in input order: the original population columns
// plus an integer appointments column. The continuous estimate is truncated
// towards zero, never below it.
//
// Returns the total estimated appointments per age decile for inspection.
func Predict(network *nn.Network, population *Population, chunkSize int, noiseRNG *rand.Rand, w io.Writer) ([]float64, error) {
	if chunkSize <= 0 {
		chunkSize = PredictChunkSize
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string{}, population.Headers...), "appointments")); err != nil {
		return nil, fmt.Errorf("predict: write header: %w", err)
	}

	summary := make([]float64, SummaryDeciles)
	for start := 0; start < len(population.Individuals); start += chunkSize {
		end := start + chunkSize
		if end > len(population.Individuals) {
			end = len(population.Individuals)
		}
		chunk := population.Individuals[start:end]

		ages := make([]float64, len(chunk))
		conditions := make([][]float64, len(chunk))
		for i, individual := range chunk {
			ages[i] = float64(individual.Age)
			conditions[i] = individual.ConditionFlags
		}
		noise := SampleNoise(noiseRNG, len(chunk))
		output := network.Forward(ages, conditions, noise).Output()

		raw := make([]float64, OutputComponents)
		for i := range chunk {
			for j := 0; j < OutputComponents; j++ {
				raw[j] = output.At(i, j)
			}
			estimate := TransformOutput(raw)
			appointments := int(estimate)
			if appointments < 0 {
				appointments = 0
			}
			row := append(append([]string{}, population.Rows[start+i]...), strconv.Itoa(appointments))
			if err := cw.Write(row); err != nil {
				return nil, fmt.Errorf("predict: write row %d: %w", start+i+1, err)
			}
			decile := chunk[i].Age / 10
			for decile >= len(summary) {
				summary = append(summary, 0)
			}
			summary[decile] += estimate
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("predict: flush: %w", err)
	}

	for decile, total := range summary {
		logrus.Infof("ages %d-%d: %.0f estimated appointments", decile*10, decile*10+9, total)
	}
	return summary, nil
}
