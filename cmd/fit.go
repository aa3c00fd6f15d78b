package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/appointments-sim/appointments-sim/appts"
)

// ModelFileName is the trained-model artifact written into the output
// directory by fit and read back by predict.
const ModelFileName = "appointments-model.json"

var (
	fitPopulation     string // Simulated population CSV
	fitClinics        string // Clinic list sizes and appointment volumes CSV
	fitTrainingConfig string // Optional YAML overriding training parameters
)

// fitCmd trains the appointments model against the clinic and survey
// aggregates and writes the model artifact.
var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit an appointments model to clinic volumes and the national usage survey",
	Run: func(cmd *cobra.Command, args []string) {
		config, _, err := LoadTrainingConfig(fitTrainingConfig)
		if err != nil {
			logrus.Fatalf("unable to read training config: %v", err)
		}

		population, err := appts.ReadPopulationFile(fitPopulation)
		if err != nil {
			logrus.Fatalf("unable to read population: %v", err)
		}
		clinics, err := appts.ReadClinicsFile(fitClinics)
		if err != nil {
			logrus.Fatalf("unable to read clinics: %v", err)
		}
		logrus.Infof("Fitting over %d individuals and %d clinics: epochs=%d batch_size=%d lr=%g",
			len(population.Individuals), len(clinics), config.Epochs, config.BatchSize, config.LearningRate)

		startTime := time.Now()
		rng := appts.NewPartitionedRNG(seed)
		network, metrics, err := appts.Fit(population, clinics, config, rng)
		if err != nil {
			logrus.Fatalf("fit failed: %v", err)
		}
		logrus.Infof("Training complete in %s: magnitude_loss=%.4f distribution_loss=%.4f",
			time.Since(startTime).Round(time.Second), metrics.Magnitude.Mean(), metrics.Distribution.Mean())

		if err := os.MkdirAll(output, 0755); err != nil {
			logrus.Fatalf("unable to create output directory: %v", err)
		}
		path := filepath.Join(output, ModelFileName)
		if err := network.Save(path); err != nil {
			logrus.Fatalf("unable to save model: %v", err)
		}
		logrus.Infof("Saved model to %s", path)
	},
}

func init() {
	fitCmd.Flags().StringVar(&fitPopulation, "population", "output/population.csv", "Simulated population CSV")
	fitCmd.Flags().StringVar(&fitClinics, "gps", "output/gps.csv", "Clinic list sizes CSV")
	fitCmd.Flags().StringVar(&fitTrainingConfig, "training-config", "", "Optional YAML file overriding training parameters")
	rootCmd.AddCommand(fitCmd)
}
