// Package simulation runs the discrete-time SEIR-style outbreak model over a
// contact network and returns the infectious history of every repetition.
package simulation

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"outbreaksim/domain/core"
	"outbreaksim/domain/network"
	"outbreaksim/domain/sim"
	"outbreaksim/internal/combinatorics"
	"outbreaksim/ports"
)

// Stream names handed to the RNG port.
const (
	StreamInitialSelection = "initial-selection"
	StreamExternal         = "external-infection"
	StreamTransmission     = "transmission"
	StreamInitialCount     = "initial-count"
)

// Simulator is stateless between calls; one instance may serve concurrent
// batches as long as the RNG port and metrics recorder are concurrency safe.
type Simulator struct {
	rng     ports.RNGPort
	logger  *zap.Logger
	metrics ports.MetricsRecorder
}

// New creates a simulator. A nil logger or metrics recorder is replaced by a
// no-op implementation.
func New(rng ports.RNGPort, logger *zap.Logger, metrics ports.MetricsRecorder) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Simulator{rng: rng, logger: logger, metrics: metrics}
}

// Simulate runs params.Repetitions independent repetitions on g.
//
// g must not contain the source vertex and every label must be at least
// network.MinVertexLabel. The parameter set must name g. g itself is never
// mutated; the source is attached to a clone.
func (s *Simulator) Simulate(g network.View, params sim.Parameters, seeds sim.Seeds) (*sim.Output, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.NetworkName != g.Name() {
		return nil, core.NewMismatchError(params.NetworkName, g.Name())
	}
	net, err := attachSource(g)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	h := params.Hash()
	selection := s.rng.Stream(StreamInitialSelection, core.DeriveSeed(seeds[sim.SeedInitialSelection], h))
	external := s.rng.Stream(StreamExternal, core.DeriveSeed(seeds[sim.SeedExternal], h))
	transmission := s.rng.Stream(StreamTransmission, core.DeriveSeed(seeds[sim.SeedTransmission], h))
	countRNG := s.rng.Stream(StreamInitialCount, core.DeriveSeed(seeds[sim.SeedInitialCount], h))

	vertices := net.realLabels()
	counts, err := s.initialCounts(len(vertices), params, countRNG.Float64)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("simulating",
		zap.String("params", params.String()),
		zap.Int("vertices", len(vertices)),
		zap.Int32("seed_hash", int32(h)))

	out := &sim.Output{Paths: make([]sim.SamplePath, params.Repetitions)}
	for r := 0; r < params.Repetitions; r++ {
		initial, err := combinatorics.SelectRandom(vertices, counts[r], selection)
		if err != nil {
			return nil, fmt.Errorf("repetition %d: %w", r, err)
		}
		out.Paths[r] = runRepetition(net, params, initial, external, transmission)
	}
	out.WallTime = time.Since(start)

	s.metrics.ObserveSimulation(params, params.Repetitions, out.WallTime)
	s.logger.Info("simulation finished",
		zap.String("network", params.NetworkName),
		zap.Int("repetitions", params.Repetitions),
		zap.Duration("elapsed", out.WallTime))
	return out, nil
}

// SimulateAll runs every parameter set that names g. Sets naming another
// network are skipped with a warning.
func (s *Simulator) SimulateAll(g network.View, params []sim.Parameters, seeds sim.Seeds) (sim.Runs, error) {
	runs := make(sim.Runs, len(params))
	for _, p := range params {
		if p.NetworkName != g.Name() {
			s.logger.Warn("skipping parameter set for another network",
				zap.String("params_network", p.NetworkName),
				zap.String("network", g.Name()))
			s.metrics.IncSkipped("simulation", "network_mismatch")
			continue
		}
		out, err := s.Simulate(g, p, seeds)
		if err != nil {
			return nil, fmt.Errorf("simulate %s: %w", p, err)
		}
		runs[p] = out
	}
	return runs, nil
}

// initialCounts draws the number of initially infectious vertices for every
// repetition from the zero-truncated Binomial(size, external) distribution.
func (s *Simulator) initialCounts(size int, params sim.Parameters, draw func() float64) ([]int, error) {
	pmf, err := combinatorics.TruncatedBinomialPMF(size, params.ExternalInfectionProbability)
	if err != nil {
		return nil, err
	}
	cdf, approximate, err := combinatorics.CumulativeDistribution(pmf)
	if err != nil {
		return nil, err
	}
	if approximate {
		s.logger.Warn("initial count distribution sums to 1 only approximately",
			zap.Int("size", size),
			zap.Float64("total", cdf[len(cdf)-1]))
	}

	draws := make([]float64, params.Repetitions)
	for i := range draws {
		draws[i] = draw()
	}
	states := make([]int, size)
	for i := range states {
		states[i] = i + 1
	}
	return combinatorics.DiscreteChoice(draws, states, cdf)
}

func runRepetition(net *contactNetwork, params sim.Parameters, initial []int, external, transmission *rand.Rand) sim.SamplePath {
	o := newOutbreak(net)
	o.seed(initial)

	days := make([][]int, 0, params.TimeHorizon+1)
	days = append(days, o.snapshot())
	for t := 1; t <= params.TimeHorizon; t++ {
		o.externalInfections(external, params.ExternalInfectionProbability)
		o.activateLatent(params.Latency)
		days = append(days, o.snapshot())
		o.transmit(transmission, params.TransmissionProbability)
		o.tick()
	}
	return sim.SamplePath{Days: days}
}

// attachSource validates g and returns the dense network with the source
// vertex connected to every real vertex.
func attachSource(g network.View) (*contactNetwork, error) {
	labels := g.Vertices()
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: %q", core.ErrEmptyNetwork, g.Name())
	}
	if g.HasVertex(network.SourceVertex) {
		return nil, fmt.Errorf("%w: network %q already contains vertex %d",
			core.ErrReservedVertex, g.Name(), network.SourceVertex)
	}
	if lowest := labels[0]; lowest < network.MinVertexLabel {
		return nil, fmt.Errorf("%w: network %q has label %d, labels must be >= %d",
			core.ErrReservedVertex, g.Name(), lowest, network.MinVertexLabel)
	}

	work := g.Clone()
	if err := work.AddVertex(network.SourceVertex); err != nil {
		return nil, err
	}
	for _, v := range labels {
		if err := work.AddEdge(network.SourceVertex, v); err != nil {
			return nil, err
		}
	}
	return newContactNetwork(work), nil
}
