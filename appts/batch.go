package appts

import (
	"math/rand"
	"sort"
)

// BatchSize is the number of training examples per batch. This is chosen to
// be the same order of magnitude as the patient population of the average
// clinic, since batches are formed from the patient population of a single
// clinic.
const BatchSize = 4000

// ClinicPool holds one clinic's training pool and its precomputed targets.
// The pool is oversampled up front when the clinic has fewer individuals than
// the batch size: the sequence is doubled until it reaches the batch size,
// deliberately reusing individuals within a batch rather than failing, trading
// statistical independence for batch-size uniformity.
type ClinicPool struct {
	Code string

	// AppointmentsPerBatch is the clinic's observed annual appointment volume
	// scaled to one batch's worth of individuals.
	AppointmentsPerBatch float64

	// Buckets is the expected number of pool members in each national usage
	// bucket, accumulated from the survey table over the full (oversampled)
	// pool, not just a sampled batch.
	Buckets [ConsultationBuckets]float64

	pool      []Individual
	batchSize int
}

// BatchBuilder produces fixed-size training batches per clinic. Only clinics
// present in the appointments-per-batch map participate; all others are
// skipped entirely.
type BatchBuilder struct {
	pools []*ClinicPool
}

// NewBatchBuilder groups the population by clinic and prepares a pool for
// every clinic with a known appointments-per-batch volume. Pools are ordered
// by clinic code so that training visits clinics deterministically.
func NewBatchBuilder(population *Population, perBatch map[string]float64, batchSize int) *BatchBuilder {
	b := &BatchBuilder{}
	for code, individuals := range population.ByClinic() {
		volume, ok := perBatch[code]
		if !ok {
			continue
		}
		pool := individuals
		for len(pool) < batchSize {
			pool = append(pool, pool...)
		}
		p := &ClinicPool{
			Code:                 code,
			AppointmentsPerBatch: volume,
			pool:                 pool,
			batchSize:            batchSize,
		}
		for _, individual := range pool {
			AccumulateBuckets(p.Buckets[:], individual.Age)
		}
		for i := range p.Buckets {
			p.Buckets[i] /= 100.0
		}
		b.pools = append(b.pools, p)
	}
	sort.Slice(b.pools, func(i, j int) bool { return b.pools[i].Code < b.pools[j].Code })
	return b
}

// Pools returns the eligible clinic pools in clinic-code order.
func (b *BatchBuilder) Pools() []*ClinicPool {
	return b.pools
}

// Size returns the number of individuals in the (oversampled) pool.
func (p *ClinicPool) Size() int {
	return len(p.pool)
}

// Batch samples batchSize individuals from the pool without replacement.
func (p *ClinicPool) Batch(rng *rand.Rand) []Individual {
	batch := make([]Individual, p.batchSize)
	for i, index := range rng.Perm(len(p.pool))[:p.batchSize] {
		batch[i] = p.pool[index]
	}
	return batch
}
