package privacy

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
)

// BucketKey partitions individuals for aggregation: age decile plus the exact
// combination of condition flags. Each individual lands in exactly one bucket,
// so the privacy guarantee composes per bucket with no cross-bucket concerns.
type BucketKey struct {
	AgeDecile int
	// Flags holds one '0' or '1' per condition column, in column order.
	// Lexicographic order on the string matches tuple order on the flags.
	Flags string
}

// Buckets holds appointment counts grouped by bucket key, together with the
// condition column names discovered in the input.
type Buckets struct {
	ConditionColumns []string
	Values           map[BucketKey][]float64
}

// ReadPredictions groups a per-individual predictions CSV into aggregation
// buckets. Condition columns are discovered by their condition_ prefix, so
// the reader accepts any condition vocabulary the predictor wrote.
func ReadPredictions(r io.Reader) (*Buckets, error) {
	cr := csv.NewReader(r)
	headers, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("aggregate: read header: %w", err)
	}

	ageColumn, appointmentsColumn := -1, -1
	var conditionColumns []int
	var conditionNames []string
	for i, h := range headers {
		switch {
		case h == "age":
			ageColumn = i
		case h == "appointments":
			appointmentsColumn = i
		case strings.HasPrefix(h, "condition_"):
			conditionColumns = append(conditionColumns, i)
			conditionNames = append(conditionNames, h)
		}
	}
	if ageColumn < 0 {
		return nil, fmt.Errorf("aggregate: missing column %q", "age")
	}
	if appointmentsColumn < 0 {
		return nil, fmt.Errorf("aggregate: missing column %q", "appointments")
	}

	buckets := &Buckets{
		ConditionColumns: conditionNames,
		Values:           make(map[BucketKey][]float64),
	}
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("aggregate: read row: %w", err)
		}
		line++
		age, err := strconv.Atoi(row[ageColumn])
		if err != nil {
			return nil, fmt.Errorf("aggregate: row %d: bad age %q: %w", line, row[ageColumn], err)
		}
		appointments, err := strconv.Atoi(row[appointmentsColumn])
		if err != nil {
			return nil, fmt.Errorf("aggregate: row %d: bad appointments %q: %w", line, row[appointmentsColumn], err)
		}
		var flags strings.Builder
		for _, c := range conditionColumns {
			if row[c] == "1" {
				flags.WriteByte('1')
			} else {
				flags.WriteByte('0')
			}
		}
		key := BucketKey{AgeDecile: age / 10, Flags: flags.String()}
		buckets.Values[key] = append(buckets.Values[key], float64(appointments))
	}
	return buckets, nil
}

// WriteAggregate writes one CSV row per non-empty bucket, sorted by key: the
// decile's lower age bound, one 0/1 column per condition, and the noised mean
// appointment count. Empty buckets are absent from the output, not zero.
func WriteAggregate(w io.Writer, buckets *Buckets, epsilon float64, src rand.Source) error {
	cw := csv.NewWriter(w)
	headers := append(append([]string{"age"}, buckets.ConditionColumns...), "mean_appointments")
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("aggregate: write header: %w", err)
	}

	keys := make([]BucketKey, 0, len(buckets.Values))
	for key := range buckets.Values {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].AgeDecile != keys[j].AgeDecile {
			return keys[i].AgeDecile < keys[j].AgeDecile
		}
		return keys[i].Flags < keys[j].Flags
	})

	for _, key := range keys {
		mean := BoundedMean(buckets.Values[key], AppointmentsLowerBound, AppointmentsUpperBound, epsilon, src)
		row := make([]string, 0, len(headers))
		row = append(row, strconv.Itoa(key.AgeDecile*10))
		for i := range buckets.ConditionColumns {
			row = append(row, string(key.Flags[i]))
		}
		row = append(row, strconv.FormatFloat(mean, 'g', -1, 64))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("aggregate: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("aggregate: flush: %w", err)
	}
	return nil
}
