package appts

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadClinics(t *testing.T) {
	csv := `code,list_size,simulated_list_size,appointments
A,10000,5000,4200.5
B,0,0,10
`
	clinics, err := ReadClinics(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, clinics, 2)
	assert.Equal(t, Clinic{Code: "A", ListSize: 10000, SimulatedListSize: 5000, Appointments: 4200.5}, clinics[0])
}

func TestReadClinics_MalformedIsFatal(t *testing.T) {
	csv := "code,list_size,simulated_list_size,appointments\nA,many,5000,4200\n"
	_, err := ReadClinics(strings.NewReader(csv))
	assert.ErrorContains(t, err, "bad list_size")
}

func TestAppointmentsPerBatch_Scaling(t *testing.T) {
	clinics := []Clinic{
		{Code: "A", ListSize: 10000, SimulatedListSize: 5000, Appointments: 4000},
		{Code: "B", ListSize: 8000, SimulatedListSize: 4000, Appointments: 3300},
	}
	perBatch := AppointmentsPerBatch(clinics, BatchSize, DefaultOutlierSigma)
	require.Contains(t, perBatch, "A")

	// 4000 monthly appointments, scaled to the simulated list, annualised,
	// renormalised to one batch of 4000 individuals.
	annual := 4000.0 * (5000.0 / 10000.0) * 365.0 / 31.0
	assert.InDelta(t, annual*BatchSize/5000.0, perBatch["A"], 1e-9)
}

func TestAppointmentsPerBatch_ExcludesEmptyLists(t *testing.T) {
	clinics := []Clinic{
		{Code: "A", ListSize: 10000, SimulatedListSize: 5000, Appointments: 4000},
		{Code: "Z", ListSize: 0, SimulatedListSize: 100, Appointments: 50},
	}
	perBatch := AppointmentsPerBatch(clinics, BatchSize, DefaultOutlierSigma)
	assert.Contains(t, perBatch, "A")
	assert.NotContains(t, perBatch, "Z")
}

func TestAppointmentsPerBatch_ExcludesRateOutliers(t *testing.T) {
	// A single extreme value among n clinics can reach a z-score of at most
	// sqrt(n-1), so crossing a 4 sigma threshold needs a reasonably sized
	// cohort of ordinary clinics around the outlier.
	var clinics []Clinic
	for i := 0; i < 25; i++ {
		clinics = append(clinics, Clinic{
			Code: fmt.Sprintf("C%02d", i), ListSize: 10000, SimulatedListSize: 5000,
			Appointments: 4000,
		})
	}
	clinics = append(clinics, Clinic{Code: "OUTLIER", ListSize: 10000, SimulatedListSize: 5000, Appointments: 400000})

	perBatch := AppointmentsPerBatch(clinics, BatchSize, DefaultOutlierSigma)
	assert.NotContains(t, perBatch, "OUTLIER")
	assert.Len(t, perBatch, 25)
}

func TestAppointmentsPerBatch_ExcludesEmptySimulatedLists(t *testing.T) {
	// A clinic can carry registered patients but no simulated ones; dividing
	// by its simulated list would poison the map with NaN.
	clinics := []Clinic{
		{Code: "A", ListSize: 10000, SimulatedListSize: 5000, Appointments: 4000},
		{Code: "B", ListSize: 10000, SimulatedListSize: 0, Appointments: 4000},
	}
	perBatch := AppointmentsPerBatch(clinics, BatchSize, DefaultOutlierSigma)
	assert.Contains(t, perBatch, "A")
	assert.NotContains(t, perBatch, "B")
	for code, volume := range perBatch {
		assert.False(t, math.IsNaN(volume), "clinic %s", code)
	}
}

func TestAppointmentsPerBatch_FiniteAndNonNegative(t *testing.T) {
	clinics := []Clinic{
		{Code: "A", ListSize: 12000, SimulatedListSize: 6000, Appointments: 5000},
		{Code: "B", ListSize: 900, SimulatedListSize: 450, Appointments: 300},
		{Code: "C", ListSize: 50000, SimulatedListSize: 25000, Appointments: 0},
	}
	perBatch := AppointmentsPerBatch(clinics, BatchSize, DefaultOutlierSigma)
	for code, volume := range perBatch {
		assert.False(t, math.IsNaN(volume) || math.IsInf(volume, 0), "clinic %s", code)
		assert.GreaterOrEqual(t, volume, 0.0, "clinic %s", code)
	}
}

func TestAppointmentsPerBatch_SigmaIsConfigurable(t *testing.T) {
	clinics := []Clinic{
		{Code: "A", ListSize: 10000, SimulatedListSize: 5000, Appointments: 4000},
		{Code: "B", ListSize: 10000, SimulatedListSize: 5000, Appointments: 4100},
		{Code: "C", ListSize: 10000, SimulatedListSize: 5000, Appointments: 4300},
	}
	strict := AppointmentsPerBatch(clinics, BatchSize, 0.5)
	relaxed := AppointmentsPerBatch(clinics, BatchSize, 10.0)
	assert.Less(t, len(strict), len(relaxed))
	assert.Len(t, relaxed, 3)
}
