package cmd

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/appointments-sim/appointments-sim/appts"
	"github.com/appointments-sim/appointments-sim/appts/nn"
)

// PredictionsFileName is the per-individual predictions CSV written into the
// output directory by predict and consumed by aggregate.
const PredictionsFileName = "population-appointments.csv"

var (
	predictPopulation string // Simulated population CSV
	predictChunkSize  int    // Individuals per forward pass
)

// predictCmd applies a trained model to the population and writes one
// appointment estimate per individual.
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict annual appointments for every individual using a fitted model",
	Run: func(cmd *cobra.Command, args []string) {
		network, err := nn.Load(filepath.Join(output, ModelFileName))
		if err != nil {
			logrus.Fatalf("unable to load model: %v", err)
		}
		population, err := appts.ReadPopulationFile(predictPopulation)
		if err != nil {
			logrus.Fatalf("unable to read population: %v", err)
		}

		path := filepath.Join(output, PredictionsFileName)
		f, err := os.Create(path)
		if err != nil {
			logrus.Fatalf("unable to create %s: %v", path, err)
		}
		defer f.Close()

		rng := appts.NewPartitionedRNG(seed)
		if _, err := appts.Predict(network, population, predictChunkSize, rng.ForSubsystem(appts.SubsystemNoise), f); err != nil {
			logrus.Fatalf("predict failed: %v", err)
		}
		logrus.Infof("Wrote %d predictions to %s", len(population.Individuals), path)
	},
}

func init() {
	predictCmd.Flags().StringVar(&predictPopulation, "population", "output/population.csv", "Simulated population CSV")
	predictCmd.Flags().IntVar(&predictChunkSize, "chunk-size", appts.PredictChunkSize, "Individuals per forward pass")
	rootCmd.AddCommand(predictCmd)
}
