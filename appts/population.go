package appts

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// Conditions is the fixed vocabulary of chronic-condition flags taken into
// account when modelling appointment use: diabetes mellitus, hypertension and
// COPD. The population CSV carries one condition_<name> column per entry.
var Conditions = []string{"dm", "hyp", "copd"}

// Individual is one member of the simulated population. Immutable once loaded.
// ConditionFlags holds +1.0 for a diagnosed condition and -1.0 otherwise, in
// Conditions order, ready to feed the model.
type Individual struct {
	Age            int
	ConditionFlags []float64
	Clinic         string
}

// Population is the full simulated population in file order, together with the
// raw CSV rows and header needed to pass original columns through to the
// prediction output.
type Population struct {
	Headers     []string
	Rows        [][]string
	Individuals []Individual

	// AgeMean and AgeVariance are the population (biased) statistics used to
	// normalise the model's age input.
	AgeMean     float64
	AgeVariance float64
}

func conditionFlags(row []string, conditionColumns []int) []float64 {
	flags := make([]float64, len(conditionColumns))
	for i, c := range conditionColumns {
		if row[c] == "1" {
			flags[i] = 1.0
		} else {
			flags[i] = -1.0
		}
	}
	return flags
}

// ReadPopulation loads a population CSV with columns age, gp and one
// condition_<name> column per entry of Conditions. A missing column or a
// non-numeric age is a fatal parse error.
func ReadPopulation(r io.Reader) (*Population, error) {
	cr := csv.NewReader(r)
	headers, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("population: read header: %w", err)
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[h] = i
	}
	ageColumn, ok := index["age"]
	if !ok {
		return nil, fmt.Errorf("population: missing column %q", "age")
	}
	clinicColumn, ok := index["gp"]
	if !ok {
		return nil, fmt.Errorf("population: missing column %q", "gp")
	}
	conditionColumns := make([]int, len(Conditions))
	for i, c := range Conditions {
		column, ok := index["condition_"+c]
		if !ok {
			return nil, fmt.Errorf("population: missing column %q", "condition_"+c)
		}
		conditionColumns[i] = column
	}

	p := &Population{Headers: headers}
	var ages []float64
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("population: read row: %w", err)
		}
		age, err := strconv.Atoi(row[ageColumn])
		if err != nil {
			return nil, fmt.Errorf("population: row %d: bad age %q: %w", len(p.Rows)+1, row[ageColumn], err)
		}
		p.Rows = append(p.Rows, row)
		p.Individuals = append(p.Individuals, Individual{
			Age:            age,
			ConditionFlags: conditionFlags(row, conditionColumns),
			Clinic:         row[clinicColumn],
		})
		ages = append(ages, float64(age))
	}

	if len(ages) > 0 {
		p.AgeMean = stat.Mean(ages, nil)
		p.AgeVariance = stat.PopVariance(ages, nil)
	}
	return p, nil
}

// ReadPopulationFile is ReadPopulation on a file path.
func ReadPopulationFile(path string) (*Population, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("population: %w", err)
	}
	defer f.Close()
	return ReadPopulation(f)
}

// ByClinic groups individuals by their assigned clinic, preserving file order
// within each clinic's pool.
func (p *Population) ByClinic() map[string][]Individual {
	byClinic := make(map[string][]Individual)
	for _, individual := range p.Individuals {
		byClinic[individual.Clinic] = append(byClinic[individual.Clinic], individual)
	}
	return byClinic
}
