package detection

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"outbreaksim/domain/core"
	dstats "outbreaksim/domain/stats"
)

// CriticalValue returns z(1 - alpha/2) of the standard normal.
func CriticalValue(alpha float64) float64 {
	return distuv.UnitNormal.Quantile(1 - 0.5*alpha)
}

// BinomialEstimate is the single-batch estimator: p = detected/n with the
// normal-approximation standard error sqrt(p(1-p)/n).
func BinomialEstimate(detected, n int, alpha float64) (dstats.Output, error) {
	if n <= 0 {
		return dstats.Output{}, core.NewValidationError("sample size", fmt.Sprintf("must be positive, got %d", n))
	}
	if detected < 0 || detected > n {
		return dstats.Output{}, core.NewValidationError("detected", fmt.Sprintf("%d out of range for n=%d", detected, n))
	}
	p := float64(detected) / float64(n)
	se := math.Sqrt(p * (1 - p) / float64(n))
	return dstats.Output{
		Mean:       p,
		StdErr:     se,
		Alpha:      alpha,
		Method:     dstats.MethodBinomialNormal,
		CIWidth:    2 * CriticalValue(alpha) * se,
		SampleSize: n,
		BatchSize:  1,
	}, nil
}

// BatchedEstimate combines per-batch detection probabilities: the estimate
// is their mean and the standard error is 1/sqrt(n), n being the first
// batch's sample size. The spread of the batch means is kept as a diagnostic
// only.
func BatchedEstimate(probabilities []float64, n int, alpha float64) (dstats.Output, error) {
	if len(probabilities) < 2 {
		return dstats.Output{}, core.NewValidationError("batches", fmt.Sprintf("need at least 2, got %d", len(probabilities)))
	}
	if n <= 0 {
		return dstats.Output{}, core.NewValidationError("sample size", fmt.Sprintf("must be positive, got %d", n))
	}
	mean, err := stats.Mean(probabilities)
	if err != nil {
		return dstats.Output{}, fmt.Errorf("batch mean: %w", err)
	}
	spread, err := stats.StandardDeviationSample(probabilities)
	if err != nil {
		return dstats.Output{}, fmt.Errorf("batch spread: %w", err)
	}
	se := 1 / math.Sqrt(float64(n))
	return dstats.Output{
		Mean:        mean,
		StdErr:      se,
		Alpha:       alpha,
		Method:      dstats.MethodNormalPopulation,
		CIWidth:     2 * CriticalValue(alpha) * se,
		SampleSize:  n,
		BatchSize:   len(probabilities),
		BatchStdDev: spread,
	}, nil
}
