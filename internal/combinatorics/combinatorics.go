// Package combinatorics is the small numeric library behind the simulator:
// exact binomial coefficients, inverse-CDF sampling over a discrete
// distribution, the zero-truncated binomial and uniform subset selection.
package combinatorics

import (
	"fmt"
	"math"
	"math/big"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat/distuv"

	"outbreaksim/domain/core"
)

// PMF tolerances for the sum of a probability mass function. Within
// exactTol the PMF is accepted silently, within looseTol it is accepted but
// flagged as approximate, beyond that it is rejected.
const (
	exactTol = 1e-6
	looseTol = 1e-4
)

// NChooseK returns the binomial coefficient C(n, k) exactly. It fails for
// negative inputs, k > n, or a result that does not fit in int64.
func NChooseK(n, k int) (int64, error) {
	if n < 0 || k < 0 {
		return 0, core.NewValidationError("n, k", fmt.Sprintf("must be non-negative, got n=%d k=%d", n, k))
	}
	if k > n {
		return 0, core.NewValidationError("k", fmt.Sprintf("k=%d exceeds n=%d", k, n))
	}
	c := new(big.Int).Binomial(int64(n), int64(k))
	if !c.IsInt64() {
		return 0, core.NewValidationError("n, k", fmt.Sprintf("C(%d,%d) overflows int64", n, k))
	}
	return c.Int64(), nil
}

// EqualWithinTolerances reports whether a and b agree within the absolute
// tolerance absTol or the relative tolerance relTol (a fraction of the
// larger magnitude), whichever is looser.
func EqualWithinTolerances(a, b, absTol, relTol float64) bool {
	return scalar.EqualWithinAbsOrRel(a, b, absTol, relTol)
}

// CumulativeDistribution validates pmf and returns its running sum. The
// approximate flag is set when the total is off from 1 by more than rounding
// noise but still within the accepted tolerance.
func CumulativeDistribution(pmf []float64) (cdf []float64, approximate bool, err error) {
	if len(pmf) == 0 {
		return nil, false, fmt.Errorf("%w: empty pmf", core.ErrInvalidPMF)
	}
	for i, p := range pmf {
		if p < 0 || math.IsNaN(p) {
			return nil, false, fmt.Errorf("%w: pmf[%d]=%v", core.ErrInvalidPMF, i, p)
		}
	}

	cdf = floats.CumSum(make([]float64, len(pmf)), pmf)
	total := cdf[len(cdf)-1]
	switch {
	case EqualWithinTolerances(1, total, exactTol, exactTol):
		return cdf, false, nil
	case EqualWithinTolerances(1, total, looseTol, looseTol):
		return cdf, true, nil
	default:
		return nil, false, fmt.Errorf("%w: entries sum to %v", core.ErrInvalidPMF, total)
	}
}

// DiscreteChoice maps each draw in [0,1) to a state by inverse CDF: a draw
// <= cdf[0] maps to stateSpace[0], a draw in (cdf[j-1], cdf[j]] maps to
// stateSpace[j]. Draws above the last cumulative value (possible when the
// PMF sums slightly below 1) map to the last state.
func DiscreteChoice(draws []float64, stateSpace []int, cdf []float64) ([]int, error) {
	if len(stateSpace) != len(cdf) {
		return nil, core.NewValidationError("stateSpace", fmt.Sprintf("length %d does not match distribution length %d", len(stateSpace), len(cdf)))
	}
	if len(cdf) == 0 {
		return nil, fmt.Errorf("%w: empty distribution", core.ErrInvalidPMF)
	}

	choices := make([]int, len(draws))
	last := len(cdf) - 1
	for i, u := range draws {
		j := sort.SearchFloat64s(cdf, u)
		if j > last {
			j = last
		}
		choices[i] = stateSpace[j]
	}
	return choices, nil
}

// ChooseFromPMF validates pmf and applies DiscreteChoice.
func ChooseFromPMF(draws []float64, stateSpace []int, pmf []float64) ([]int, error) {
	if len(stateSpace) != len(pmf) {
		return nil, core.NewValidationError("stateSpace", fmt.Sprintf("length %d does not match pmf length %d", len(stateSpace), len(pmf)))
	}
	cdf, _, err := CumulativeDistribution(pmf)
	if err != nil {
		return nil, err
	}
	return DiscreteChoice(draws, stateSpace, cdf)
}

// TruncatedBinomialPMF returns P(X=k | X>=1) for X ~ Binomial(s, p), k=1..s:
//
//	C(s,k) p^k (1-p)^(s-k) / (1 - (1-p)^s)
//
// Terms come from gonum's log-space binomial, so large s does not overflow.
func TruncatedBinomialPMF(s int, p float64) ([]float64, error) {
	if s < 1 {
		return nil, core.NewValidationError("s", fmt.Sprintf("must be positive, got %d", s))
	}
	if !(p > 0 && p < 1) {
		return nil, core.NewValidationError("p", fmt.Sprintf("must be in (0,1), got %v", p))
	}

	bin := distuv.Binomial{N: float64(s), P: p}
	// 1-(1-p)^s without cancellation for small p.
	atLeastOne := -math.Expm1(float64(s) * math.Log1p(-p))

	pmf := make([]float64, s)
	for k := 1; k <= s; k++ {
		pmf[k-1] = bin.Prob(float64(k)) / atLeastOne
	}
	return pmf, nil
}

// SelectRandom returns n distinct elements of items chosen uniformly without
// replacement. items is not modified.
func SelectRandom(items []int, n int, rng *rand.Rand) ([]int, error) {
	if n < 0 || n > len(items) {
		return nil, core.NewValidationError("n", fmt.Sprintf("cannot select %d of %d elements", n, len(items)))
	}
	pool := make([]int, len(items))
	copy(pool, items)
	// Partial Fisher-Yates: the first n slots end up a uniform sample.
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n], nil
}
