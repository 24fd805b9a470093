package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	netadapter "outbreaksim/adapters/network"
	"outbreaksim/adapters/rng"
	"outbreaksim/app"
	"outbreaksim/domain/core"
	"outbreaksim/domain/stats"
	"outbreaksim/internal/config"
	"outbreaksim/internal/logging"
	"outbreaksim/internal/metrics"
)

type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Registry
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "outbreaksim",
		Short: "Monte Carlo outbreak simulation and detection analysis",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newSimulateCmd(),
		newNetworkCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*env, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Env, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, metrics: metrics.NewRegistry()}, nil
}

func newRunCmd() *cobra.Command {
	var (
		configPath  string
		outputDir   string
		runID       string
		parallelism int
		noStore     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate an experiment grid and estimate detection probabilities",
		Long: `Run a full experiment: simulate every parameter set of the grid in
one or more batches, replay a testing schedule for every tests-per-day value,
and export one record per (parameter set, k).

Records are written to the CSV/XLSX files named in the experiment and to the
result store (Postgres when DATABASE_URL is set).

Example: outbreaksim run --config experiments/staff20.yaml --parallelism 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			if outputDir != "" {
				e.cfg.Run.OutputDir = outputDir
			}
			if parallelism > 0 {
				e.cfg.Run.Parallelism = parallelism
			}
			var id core.RunID
			if runID != "" {
				if id, err = core.ParseRunID(runID); err != nil {
					return err
				}
			}
			return runExperiment(cmd.Context(), e, configPath, id, !noStore)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "experiment.yaml", "Experiment file")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for result files (default $OUTPUT_DIR)")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run identifier (UUID); generated when empty")
	cmd.Flags().IntVarP(&parallelism, "parallelism", "p", 0, "Batches simulated concurrently (default $PARALLELISM)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Skip the result store and write only the experiment's files")
	return cmd
}

func runExperiment(ctx context.Context, e *env, configPath string, runID core.RunID, useStore bool) error {
	exp, err := config.LoadExperiment(configPath)
	if err != nil {
		return err
	}
	g, err := app.BuildNetwork(exp, e.cfg.Run.OutputDir)
	if err != nil {
		return err
	}

	sinks := app.FileSinks(exp.Output, e.cfg.Run.OutputDir)
	if useStore {
		store, err := app.OpenResultStore(ctx, e.cfg, e.logger)
		if err != nil {
			return err
		}
		defer store.Close()
		// the CSV store would duplicate an identical CSV sink
		if store.Backend != "csv" || app.ResolvePath(e.cfg.Run.OutputDir, exp.Output.CSV) != app.ResolvePath(e.cfg.Run.OutputDir, app.DefaultStoreFile) {
			sinks = append(sinks, store)
		}
	}

	fmt.Printf("🦠 Running experiment '%s' on %s (%d vertices, %d edges)\n", exp.Name, g.Name(), g.Order(), g.Size())
	service := app.NewExperimentService(rng.NewSeeded(), e.logger, e.metrics, e.cfg.Run.Parallelism)
	res, err := service.Run(ctx, app.ExperimentRequest{
		Experiment: exp,
		Network:    g,
		RunID:      runID,
		Sinks:      sinks,
	})
	if err != nil {
		return err
	}

	if exp.Output.Manifest != "" {
		path := app.ResolvePath(e.cfg.Run.OutputDir, exp.Output.Manifest)
		if err := app.WriteManifest(path, res.Manifest); err != nil {
			return err
		}
		fmt.Printf("💾 Manifest written to %s\n", path)
	}

	printRecords(res.Records)
	fmt.Printf("\nRun %s (fingerprint %.12s): %d parameter sets × %d batches in %v (simulation %v)\n",
		res.RunID, res.Manifest.Fingerprint.Hash, len(res.Parameters), len(res.Batches),
		res.Elapsed.Round(time.Millisecond), res.SimulationTime.Round(time.Millisecond))
	return nil
}

func printRecords(records []stats.Record) {
	fmt.Printf("\n%-4s %-4s %-8s %-8s %-8s %-4s %-10s %-10s\n",
		"T", "lat", "fnr", "p_trans", "p_ext", "k", "p_detect", "ci_width")
	for _, r := range records {
		fmt.Printf("%-4d %-4d %-8.3g %-8.3g %-8.3g %-4d %-10.4f %-10.4f\n",
			r.TimeHorizon, r.Latency, r.FalseNegativeProbability, r.TransmissionProbability,
			r.ExternalInfectionProbability, r.TestsPerDay, r.Probability, r.CIWidth)
	}
}

func newSimulateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate the experiment grid and print mean infectious counts per day",
		Long: `Simulate every parameter set of the experiment once (batch 0) without
running the detection analysis. Prints, for every parameter set, the mean
number of infectious network vertices on each day.

Example: outbreaksim simulate --config experiments/staff20.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.logger.Sync()
			return runSimulate(cmd.Context(), e, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "experiment.yaml", "Experiment file")
	return cmd
}

func runSimulate(ctx context.Context, e *env, configPath string) error {
	exp, err := config.LoadExperiment(configPath)
	if err != nil {
		return err
	}
	g, err := netadapter.Build(exp.Network)
	if err != nil {
		return err
	}

	service := app.NewExperimentService(rng.NewSeeded(), e.logger, e.metrics, e.cfg.Run.Parallelism)
	params := exp.Parameters(g.Name())
	batches, err := service.SimulateBatches(ctx, g, params, exp.Seeds, 1)
	if err != nil {
		return err
	}

	runs := batches[0]
	for _, p := range runs.Parameters() {
		out := runs[p]
		fmt.Printf("\n%s\n", p)
		for t := 0; t <= p.TimeHorizon; t++ {
			total := 0
			for _, path := range out.Paths {
				// the source vertex is always infectious and not part of the network
				total += len(path.InfectiousOn(t)) - 1
			}
			fmt.Printf("  day %3d: %.3f\n", t, float64(total)/float64(len(out.Paths)))
		}
	}
	return nil
}

func newNetworkCmd() *cobra.Command {
	var (
		configPath  string
		outPath     string
		forwardStar bool
	)

	cmd := &cobra.Command{
		Use:   "network",
		Short: "Build the experiment's contact network and write it as an edge list",
		Long: `Build the network described by an experiment file and write it to a
file, either one edge per line or in forward-star form (a vertex followed by
all its neighbours).

Example: outbreaksim network --config experiments/staff20.yaml --out staff20.txt --forward-star`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := config.LoadExperiment(configPath)
			if err != nil {
				return err
			}
			g, err := netadapter.Build(exp.Network)
			if err != nil {
				return err
			}
			if outPath == "" {
				return netadapter.Write(os.Stdout, g, forwardStar)
			}
			if err := netadapter.WriteFile(outPath, g, forwardStar); err != nil {
				return err
			}
			fmt.Printf("💾 Wrote %s (%d vertices, %d edges) to %s\n", g.Name(), g.Order(), g.Size(), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "experiment.yaml", "Experiment file")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&forwardStar, "forward-star", false, "Write forward-star lines instead of single edges")
	return cmd
}
