package appts

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// Clinic is one GP practice with its observed real patient list and the size
// of the simulated population assigned to it. Appointments is the observed
// monthly total (the source data covers March).
type Clinic struct {
	Code              string
	ListSize          int
	SimulatedListSize int
	Appointments      float64
}

// ReadClinics loads a clinic CSV with columns code, list_size,
// simulated_list_size and appointments.
func ReadClinics(r io.Reader) ([]Clinic, error) {
	cr := csv.NewReader(r)
	headers, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("clinics: read header: %w", err)
	}
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[h] = i
	}
	for _, column := range []string{"code", "list_size", "simulated_list_size", "appointments"} {
		if _, ok := index[column]; !ok {
			return nil, fmt.Errorf("clinics: missing column %q", column)
		}
	}

	var clinics []Clinic
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("clinics: read row: %w", err)
		}
		listSize, err := strconv.Atoi(row[index["list_size"]])
		if err != nil {
			return nil, fmt.Errorf("clinics: row %d: bad list_size: %w", len(clinics)+1, err)
		}
		simulated, err := strconv.Atoi(row[index["simulated_list_size"]])
		if err != nil {
			return nil, fmt.Errorf("clinics: row %d: bad simulated_list_size: %w", len(clinics)+1, err)
		}
		appointments, err := strconv.ParseFloat(row[index["appointments"]], 64)
		if err != nil {
			return nil, fmt.Errorf("clinics: row %d: bad appointments: %w", len(clinics)+1, err)
		}
		clinics = append(clinics, Clinic{
			Code:              row[index["code"]],
			ListSize:          listSize,
			SimulatedListSize: simulated,
			Appointments:      appointments,
		})
	}
	return clinics, nil
}

// ReadClinicsFile is ReadClinics on a file path.
func ReadClinicsFile(path string) ([]Clinic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("clinics: %w", err)
	}
	defer f.Close()
	return ReadClinics(f)
}

// AppointmentsPerBatch screens clinics and scales each survivor's observed
// monthly appointment volume to the share expected of one training batch:
// annualised (365/31), scaled from the real list to the simulated list, then
// renormalised from the simulated list to batchSize individuals.
//
// Clinics with an empty patient list are excluded (their rate is undefined),
// as are clinics with no simulated patients (there is nothing to renormalise
// to) and clinics whose appointments-per-registered-patient rate deviates
// from the population mean by more than outlierSigma standard deviations.
// Exclusions are logged for operator visibility and are not errors.
func AppointmentsPerBatch(clinics []Clinic, batchSize int, outlierSigma float64) map[string]float64 {
	var rates []float64
	for _, clinic := range clinics {
		if clinic.ListSize > 0 {
			rates = append(rates, clinic.Appointments/float64(clinic.ListSize))
		} else {
			logrus.Warnf("excluding clinic %s: empty patient list", clinic.Code)
		}
	}
	mean := stat.Mean(rates, nil)
	std := stat.PopStdDev(rates, nil)

	perBatch := make(map[string]float64)
	for _, clinic := range clinics {
		if clinic.ListSize == 0 {
			continue
		}
		if clinic.SimulatedListSize == 0 {
			logrus.Warnf("excluding clinic %s: no simulated patients", clinic.Code)
			continue
		}
		rate := clinic.Appointments / float64(clinic.ListSize)
		if math.Abs(rate-mean) > outlierSigma*std {
			logrus.Warnf("excluding clinic %s as an outlier: %.2f appointments/patient against a mean of %.2f",
				clinic.Code, rate, mean)
			continue
		}
		// Appointments cover March; scale to the year.
		annual := clinic.Appointments * (float64(clinic.SimulatedListSize) / float64(clinic.ListSize)) * 365.0 / 31.0
		perBatch[clinic.Code] = annual * float64(batchSize) / float64(clinic.SimulatedListSize)
	}
	return perBatch
}
