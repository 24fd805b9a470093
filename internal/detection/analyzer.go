package detection

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"outbreaksim/domain/core"
	"outbreaksim/domain/network"
	"outbreaksim/domain/sim"
	"outbreaksim/domain/stats"
	"outbreaksim/ports"
)

// Stream names handed to the RNG port.
const (
	StreamReliability = "reliability"
	StreamOrder       = "testing-order"
)

// Analyzer accumulates detection estimates keyed by (parameters, k).
// Re-testing a key overwrites its entry. Safe for concurrent use.
type Analyzer struct {
	rng     ports.RNGPort
	logger  *zap.Logger
	metrics ports.MetricsRecorder

	mu      sync.RWMutex
	results map[stats.Key]stats.Output
	random  map[stats.Key]bool
}

// NewAnalyzer creates an empty analyzer. A nil logger or metrics recorder is
// replaced by a no-op implementation.
func NewAnalyzer(rng ports.RNGPort, logger *zap.Logger, metrics ports.MetricsRecorder) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Analyzer{
		rng:     rng,
		logger:  logger,
		metrics: metrics,
		results: make(map[stats.Key]stats.Output),
		random:  make(map[stats.Key]bool),
	}
}

// Test estimates the detection probability of every parameter set in
// batches[0] at k tests per day.
//
// With one batch the single-batch binomial estimator is used. With several,
// each batch is replayed with its own streams (batch index b folded into the
// seeds) and the per-batch probabilities are combined by BatchedEstimate.
// Every later batch must contain every parameter set of the first.
//
// Parameter sets recorded for a network other than g are skipped with a
// warning. The returned map holds only the keys produced by this call.
func (a *Analyzer) Test(g network.View, batches []sim.Runs, k int, alpha float64, order Order, reliabilitySeed, orderSeed int64) (map[stats.Key]stats.Output, error) {
	if !order.Valid() {
		return nil, core.NewUnsupportedPolicyError(string(order))
	}
	if k < 1 {
		return nil, core.NewValidationError("k", fmt.Sprintf("tests per day must be positive, got %d", k))
	}
	if !(alpha > 0 && alpha < 1) {
		return nil, core.NewValidationError("alpha", fmt.Sprintf("must be in (0,1), got %v", alpha))
	}
	if len(batches) == 0 {
		return nil, core.NewValidationError("batches", "at least one batch is required")
	}
	vertices := g.Vertices()
	if len(vertices) == 0 {
		return nil, fmt.Errorf("%w: %q", core.ErrEmptyNetwork, g.Name())
	}
	sort.Ints(vertices)
	if lowest := vertices[0]; lowest < network.MinVertexLabel {
		return nil, fmt.Errorf("%w: network %q has label %d, labels must be >= %d",
			core.ErrReservedVertex, g.Name(), lowest, network.MinVertexLabel)
	}

	randomOrder := order == Random
	if randomOrder && len(batches) < 2 {
		a.logger.Warn("random testing order with a single batch gives no estimate of ordering variance",
			zap.Int("k", k))
	}

	produced := make(map[stats.Key]stats.Output)
	for _, params := range batches[0].Parameters() {
		if params.NetworkName != g.Name() {
			a.logger.Warn("network name mismatch, skipping parameter set",
				zap.String("params_network", params.NetworkName),
				zap.String("network", g.Name()),
				zap.Int("k", k))
			a.metrics.IncSkipped("detection", "network_mismatch")
			continue
		}

		out, err := a.estimate(vertices, batches, params, k, alpha, randomOrder, reliabilitySeed, orderSeed)
		if err != nil {
			return nil, err
		}
		produced[stats.Key{Params: params, TestsPerDay: k}] = out
	}

	// Nothing is stored unless every parameter set was estimated.
	a.mu.Lock()
	for key, out := range produced {
		a.results[key] = out
		a.random[key] = randomOrder
	}
	a.mu.Unlock()

	for key, out := range produced {
		a.metrics.ObserveDetection(key, out, randomOrder)
		a.logger.Info("conditional probability of outbreak detection",
			zap.String("params", key.Params.String()),
			zap.Int("k", k),
			zap.Bool("random_order", randomOrder),
			zap.Float64("probability", out.Mean),
			zap.Float64("half_width", out.HalfWidth()))
	}
	return produced, nil
}

func (a *Analyzer) estimate(vertices []int, batches []sim.Runs, params sim.Parameters, k int, alpha float64, randomOrder bool, reliabilitySeed, orderSeed int64) (stats.Output, error) {
	h := params.Hash()
	probabilities := make([]float64, len(batches))
	var firstSize, firstDetected int

	for b, runs := range batches {
		out, ok := runs[params]
		if !ok {
			return stats.Output{}, fmt.Errorf("%w: batch %d lacks %s", core.ErrMissingBatch, b, params)
		}
		n := out.SampleSize()
		if n == 0 {
			return stats.Output{}, core.NewValidationError("sample size", fmt.Sprintf("batch %d of %s has no sample paths", b, params))
		}

		schedule, err := a.schedule(vertices, params.TimeHorizon, k, randomOrder, core.DeriveSeed(orderSeed, h, k, b))
		if err != nil {
			return stats.Output{}, err
		}
		reliability := a.rng.Stream(StreamReliability, core.DeriveSeed(reliabilitySeed, h, k, b))
		detected := CountDetected(out, schedule, params.FalseNegativeProbability, reliability)

		if b == 0 {
			firstSize, firstDetected = n, detected
		} else if n != firstSize {
			a.logger.Warn("batches differ in sample size",
				zap.String("params", params.String()),
				zap.Int("batch", b),
				zap.Int("sample_size", n),
				zap.Int("first_sample_size", firstSize))
		}
		probabilities[b] = float64(detected) / float64(n)
	}

	if len(batches) == 1 {
		return BinomialEstimate(firstDetected, firstSize, alpha)
	}
	return BatchedEstimate(probabilities, firstSize, alpha)
}

func (a *Analyzer) schedule(vertices []int, horizon, k int, randomOrder bool, seed int64) (Schedule, error) {
	if !randomOrder {
		return BuildSchedule(k, vertices, horizon)
	}
	return BuildShuffledSchedule(k, vertices, horizon, a.rng.Stream(StreamOrder, seed))
}

// Results returns a copy of every stored estimate.
func (a *Analyzer) Results() map[stats.Key]stats.Output {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[stats.Key]stats.Output, len(a.results))
	for k, v := range a.results {
		out[k] = v
	}
	return out
}

// RandomOrder reports whether key was last tested with random ordering.
func (a *Analyzer) RandomOrder(key stats.Key) (bool, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.random[key]
	return v, ok
}

// Keys returns the stored keys ordered by parameter string, then k.
func (a *Analyzer) Keys() []stats.Key {
	a.mu.RLock()
	keys := make([]stats.Key, 0, len(a.results))
	for k := range a.results {
		keys = append(keys, k)
	}
	a.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		pi, pj := keys[i].Params.String(), keys[j].Params.String()
		if pi != pj {
			return pi < pj
		}
		return keys[i].TestsPerDay < keys[j].TestsPerDay
	})
	return keys
}

// Records flattens the stored estimates into export rows stamped with at.
func (a *Analyzer) Records(runID core.RunID, at time.Time) []stats.Record {
	keys := a.Keys()
	a.mu.RLock()
	defer a.mu.RUnlock()
	records := make([]stats.Record, 0, len(keys))
	for _, key := range keys {
		records = append(records, stats.NewRecord(runID, key, a.results[key], a.random[key], at))
	}
	return records
}
