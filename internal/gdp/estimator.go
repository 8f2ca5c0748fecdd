// Package gdp derives the estimated GDP figure stored for every country.
//
// The estimate is intentionally noisy: each call draws a fresh multiplier, so
// identical inputs give different results across refresh runs.
package gdp

import (
	"math/rand/v2"
	"sync"
)

// The multiplier is drawn uniformly from [MultiplierMin, MultiplierMax], both inclusive.
const (
	MultiplierMin = 1000
	MultiplierMax = 2000
)

// Estimator computes population * multiplier / rate.
type Estimator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewEstimator returns an estimator; a nil source falls back to a randomly seeded PCG.
func NewEstimator(src rand.Source) *Estimator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Estimator{rng: rand.New(src)}
}

// Multiplier draws the next scaling factor.
func (e *Estimator) Multiplier() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return MultiplierMin + e.rng.IntN(MultiplierMax-MultiplierMin+1)
}

// Estimate returns nil when population or rate is absent or not positive.
func (e *Estimator) Estimate(population *int64, rate *float64) *float64 {
	if population == nil || rate == nil || *population <= 0 || *rate <= 0 {
		return nil
	}
	v := float64(*population) * float64(e.Multiplier()) / *rate
	return &v
}
