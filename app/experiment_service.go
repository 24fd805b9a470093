package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"outbreaksim/adapters/export"
	netadapter "outbreaksim/adapters/network"
	"outbreaksim/domain/core"
	"outbreaksim/domain/network"
	"outbreaksim/domain/run"
	"outbreaksim/domain/sim"
	"outbreaksim/domain/stats"
	"outbreaksim/internal/config"
	"outbreaksim/internal/detection"
	apperrors "outbreaksim/internal/errors"
	"outbreaksim/internal/simulation"
	"outbreaksim/ports"
)

// Version is recorded in run manifests; release builds set it with
// -ldflags "-X outbreaksim/app.Version=...".
var Version = "dev"

// ExperimentService runs an experiment end to end: batched simulation, the
// k sweep of the detection analysis, then every configured sink.
type ExperimentService struct {
	simulator   *simulation.Simulator
	rngPort     ports.RNGPort
	logger      *zap.Logger
	metrics     ports.MetricsRecorder
	parallelism int
	now         func() time.Time
}

// NewExperimentService wires the engine. parallelism bounds how many
// batches simulate at once; values below 1 mean 1.
func NewExperimentService(rngPort ports.RNGPort, logger *zap.Logger, metrics ports.MetricsRecorder, parallelism int) *ExperimentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if parallelism < 1 {
		parallelism = 1
	}
	return &ExperimentService{
		simulator:   simulation.New(rngPort, logger.Named("simulation"), metrics),
		rngPort:     rngPort,
		logger:      logger,
		metrics:     metrics,
		parallelism: parallelism,
		now:         time.Now,
	}
}

// ExperimentRequest defines one run.
type ExperimentRequest struct {
	Experiment *config.Experiment
	Network    network.View
	RunID      core.RunID // optional, generated when empty
	Sinks      []ports.ResultSink
}

// ExperimentResult contains everything a run produced.
type ExperimentResult struct {
	RunID          core.RunID
	NetworkName    string
	Parameters     []sim.Parameters
	Batches        []sim.Runs
	Estimates      map[stats.Key]stats.Output
	Records        []stats.Record
	Manifest       *run.Manifest
	SimulationTime time.Duration
	Elapsed        time.Duration
}

// Run executes the experiment against req.Network.
func (s *ExperimentService) Run(ctx context.Context, req ExperimentRequest) (*ExperimentResult, error) {
	start := s.now()
	exp := req.Experiment
	runID := req.RunID
	if runID == "" {
		runID = core.NewRunID()
	}
	log := s.logger.With(zap.String("run_id", runID.String()), zap.String("experiment", exp.Name))

	params := exp.Parameters(req.Network.Name())
	log.Info("starting experiment",
		zap.String("network", req.Network.Name()),
		zap.Int("parameter_sets", len(params)),
		zap.Int("batches", exp.Batches),
		zap.Ints("tests_per_day", exp.Detection.TestsPerDay))

	batches, err := s.SimulateBatches(ctx, req.Network, params, exp.Seeds, exp.Batches)
	if err != nil {
		return nil, err
	}
	simulated := s.now().Sub(start)

	analyzer := detection.NewAnalyzer(s.rngPort, log.Named("detection"), s.metrics)
	estimates := make(map[stats.Key]stats.Output)
	for _, k := range exp.Detection.TestsPerDay {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := analyzer.Test(req.Network, batches, k, exp.Detection.Alpha, exp.TestingOrder(),
			exp.Detection.ReliabilitySeed, exp.Detection.OrderSeed)
		if err != nil {
			return nil, apperrors.Wrapf(err, "detection analysis for k=%d", k)
		}
		for key, out := range got {
			estimates[key] = out
		}
	}

	finished := s.now()
	records := analyzer.Records(runID, finished)
	for _, sink := range req.Sinks {
		if err := sink.WriteRecords(ctx, records); err != nil {
			return nil, apperrors.ExportError(fmt.Sprintf("%T", sink), err)
		}
	}

	result := &ExperimentResult{
		RunID:          runID,
		NetworkName:    req.Network.Name(),
		Parameters:     params,
		Batches:        batches,
		Estimates:      estimates,
		Records:        records,
		Manifest:       newManifest(runID, exp, req.Network, params, finished),
		SimulationTime: simulated,
		Elapsed:        s.now().Sub(start),
	}
	log.Info("experiment finished",
		zap.Int("estimates", len(estimates)),
		zap.String("fingerprint", result.Manifest.Fingerprint.Hash.String()),
		zap.Duration("simulation", result.SimulationTime),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

// SimulateBatches runs every parameter set once per batch. Batch b uses
// seeds.Offset(b), so results do not depend on scheduling.
func (s *ExperimentService) SimulateBatches(ctx context.Context, g network.View, params []sim.Parameters, seeds sim.Seeds, batches int) ([]sim.Runs, error) {
	if batches < 1 {
		return nil, core.NewValidationError("batches", fmt.Sprintf("must be positive, got %d", batches))
	}
	out := make([]sim.Runs, batches)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.parallelism)
	for b := 0; b < batches; b++ {
		b := b
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			runs, err := s.simulator.SimulateAll(g, params, seeds.Offset(b))
			if err != nil {
				return apperrors.Wrapf(err, "simulate batch %d", b)
			}
			out[b] = runs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		s.logger.Error("batched simulation failed", zap.Error(err))
		return nil, err
	}
	return out, nil
}

func newManifest(runID core.RunID, exp *config.Experiment, g network.View, params []sim.Parameters, at time.Time) *run.Manifest {
	return run.NewManifest(runID, exp.Name,
		run.NetworkSummary{Name: g.Name(), Order: g.Order(), Size: g.Size()},
		params, exp.Seeds, exp.Batches,
		run.Detection{
			TestsPerDay:     exp.Detection.TestsPerDay,
			Order:           exp.TestingOrder().String(),
			Alpha:           exp.Detection.Alpha,
			ReliabilitySeed: exp.Detection.ReliabilitySeed,
			OrderSeed:       exp.Detection.OrderSeed,
		},
		Version, core.NewTimestamp(at))
}

// WriteManifest stores m as indented JSON, creating parent directories.
func WriteManifest(path string, m *run.Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return apperrors.ExportError(path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.ExportError(path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return apperrors.ExportError(path, err)
	}
	return nil
}

// BuildNetwork constructs the experiment network and, when configured,
// writes it next to the results.
func BuildNetwork(exp *config.Experiment, outputDir string) (*netadapter.Graph, error) {
	g, err := netadapter.Build(exp.Network)
	if err != nil {
		return nil, apperrors.Wrap(err, "build network")
	}
	if exp.Output.NetworkFile != "" {
		path := ResolvePath(outputDir, exp.Output.NetworkFile)
		if err := netadapter.WriteFile(path, g, exp.Output.ForwardStar); err != nil {
			return nil, apperrors.ExportError(path, err)
		}
	}
	return g, nil
}

// FileSinks returns the CSV and XLSX sinks named by out.
func FileSinks(out config.OutputConfig, outputDir string) []ports.ResultSink {
	var sinks []ports.ResultSink
	if out.CSV != "" {
		sinks = append(sinks, export.NewCSVSink(ResolvePath(outputDir, out.CSV), out.Append))
	}
	if out.XLSX != "" {
		sinks = append(sinks, export.NewXLSXSink(ResolvePath(outputDir, out.XLSX), out.Append))
	}
	return sinks
}

// ResolvePath joins relative paths onto dir.
func ResolvePath(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}
