package ports

import (
	"time"

	"outbreaksim/domain/sim"
	"outbreaksim/domain/stats"
)

// MetricsRecorder receives engine observations. Implementations must be safe
// for concurrent use because batches run in parallel.
type MetricsRecorder interface {
	ObserveSimulation(params sim.Parameters, repetitions int, elapsed time.Duration)
	ObserveDetection(key stats.Key, out stats.Output, randomOrder bool)
	IncSkipped(stage, reason string)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) ObserveSimulation(sim.Parameters, int, time.Duration) {}
func (NopMetrics) ObserveDetection(stats.Key, stats.Output, bool)       {}
func (NopMetrics) IncSkipped(string, string)                            {}
