// Package appts trains and applies a generative model of annual primary care
// appointment use per individual, calibrated against aggregate statistics only:
// per-clinic appointment volumes and the national appointment-frequency
// distribution from the Health Survey for England.
package appts

// ConsultationBuckets is the number of national appointment-frequency classes:
// 0, 1-2, and 3+ appointments over 12 months.
const ConsultationBuckets = 3

// SurveyRow gives the percentage of people within an inclusive age range whose
// annual GP appointment count falls in one usage bucket.
type SurveyRow struct {
	AgeLower   int
	AgeUpper   int
	Bucket     int
	Percentage float64
}

// ConsultationsByAge is the distribution of GP appointment usage by age, taken
// from the Health Survey for England 2019: Use of health care services
// (Table 4). Buckets represent the following number of appointments over 12
// months: 0: 0, 1: 1-2, 2: 3+.
var ConsultationsByAge = []SurveyRow{
	{16, 24, 0, 32.0},
	{16, 24, 1, 37.0},
	{16, 24, 2, 30.0},
	{25, 34, 0, 30.0},
	{25, 34, 1, 36.0},
	{25, 34, 2, 34.0},
	{35, 44, 0, 26.0},
	{35, 44, 1, 40.0},
	{35, 44, 2, 33.0},
	{45, 54, 0, 23.0},
	{45, 54, 1, 40.0},
	{45, 54, 2, 37.0},
	{55, 64, 0, 22.0},
	{55, 64, 1, 36.0},
	{55, 64, 2, 42.0},
	{65, 74, 0, 19.0},
	{65, 74, 1, 34.0},
	{65, 74, 2, 47.0},
	{75, 100, 0, 14.0},
	{75, 100, 1, 35.0},
	{75, 100, 2, 51.0},
}

// AccumulateBuckets adds the survey bucket percentages for age into buckets,
// which must have length ConsultationBuckets. Ages outside every survey range
// contribute nothing.
func AccumulateBuckets(buckets []float64, age int) {
	for _, row := range ConsultationsByAge {
		if age >= row.AgeLower && age <= row.AgeUpper {
			buckets[row.Bucket] += row.Percentage
		}
	}
}
