package cmd

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/appointments-sim/appointments-sim/appts"
	"github.com/appointments-sim/appointments-sim/appts/privacy"
)

// AggregateFileName is the differentially private aggregate CSV written into
// the output directory.
const AggregateFileName = "appointments-aggregated.csv"

var (
	aggregateAppointments string  // Per-individual predictions CSV to aggregate
	aggregateEpsilon      float64 // Per-bucket privacy-loss budget
)

// aggregateCmd turns per-individual predictions into a differentially private
// mean appointment count per (age decile, condition combination) bucket.
var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate predicted appointments by age decile and diagnosis under differential privacy",
	Run: func(cmd *cobra.Command, args []string) {
		in, err := os.Open(aggregateAppointments)
		if err != nil {
			logrus.Fatalf("unable to open appointments: %v", err)
		}
		defer in.Close()
		buckets, err := privacy.ReadPredictions(in)
		if err != nil {
			logrus.Fatalf("unable to read appointments: %v", err)
		}

		if err := os.MkdirAll(output, 0755); err != nil {
			logrus.Fatalf("unable to create output directory: %v", err)
		}
		path := filepath.Join(output, AggregateFileName)
		f, err := os.Create(path)
		if err != nil {
			logrus.Fatalf("unable to create %s: %v", path, err)
		}
		defer f.Close()

		rng := appts.NewPartitionedRNG(seed)
		if err := privacy.WriteAggregate(f, buckets, aggregateEpsilon, rng.ForSubsystem(appts.SubsystemPrivacy)); err != nil {
			logrus.Fatalf("aggregate failed: %v", err)
		}
		logrus.Infof("Wrote %d aggregation buckets to %s", len(buckets.Values), path)
	},
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateAppointments, "appointments", "output/population-appointments.csv", "The appointments to aggregate")
	aggregateCmd.Flags().Float64Var(&aggregateEpsilon, "epsilon", privacy.Epsilon, "Per-bucket privacy-loss budget")
	rootCmd.AddCommand(aggregateCmd)
}
