// Package testkit provides fixtures and in-memory adapters for tests.
package testkit

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"outbreaksim/domain/sim"
	"outbreaksim/domain/stats"
	"outbreaksim/ports"
)

// ExampleParams is the reference configuration used across packages:
// complete graph of 20 staff, 3 days, 5 repetitions.
func ExampleParams() sim.Parameters {
	return sim.Parameters{
		NetworkName:                  "completegraph_staff20",
		TimeHorizon:                  3,
		Repetitions:                  5,
		FalseNegativeProbability:     0.25,
		TransmissionProbability:      0.1,
		Latency:                      2,
		ExternalInfectionProbability: 0.1,
	}
}

// ExampleSeeds are the base seeds paired with ExampleParams.
func ExampleSeeds() sim.Seeds {
	return sim.Seeds{2507, 2507, 2101, 1308}
}

// SeedCall is one Stream request seen by RecordingRNG.
type SeedCall struct {
	Name string
	Seed int64
}

// RecordingRNG behaves like the production adapter and remembers every
// requested stream.
type RecordingRNG struct {
	mu    sync.Mutex
	calls []SeedCall
}

func NewRecordingRNG() *RecordingRNG {
	return &RecordingRNG{}
}

func (r *RecordingRNG) Stream(name string, seed int64) *rand.Rand {
	r.mu.Lock()
	r.calls = append(r.calls, SeedCall{Name: name, Seed: seed})
	r.mu.Unlock()
	return rand.New(rand.NewSource(seed))
}

// Calls returns the recorded requests in call order.
func (r *RecordingRNG) Calls() []SeedCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SeedCall(nil), r.calls...)
}

// Seeds returns the seeds requested for one stream name, in call order.
func (r *RecordingRNG) Seeds(name string) []int64 {
	var out []int64
	for _, c := range r.Calls() {
		if c.Name == name {
			out = append(out, c.Seed)
		}
	}
	return out
}

// Draw values for FixedRNG. Always makes every Bernoulli(p) trial succeed,
// Never makes every trial with p < 1 fail.
const (
	Always = 0.0
	Never  = 0.999999
)

// FixedRNG returns generators whose Float64 is constant per stream name.
// Streams without an entry fall back to Never.
type FixedRNG map[string]float64

func (f FixedRNG) Stream(name string, _ int64) *rand.Rand {
	v, ok := f[name]
	if !ok {
		v = Never
	}
	return rand.New(constSource(int64(v * (1 << 63))))
}

type constSource int64

func (c constSource) Int63() int64 { return int64(c) }
func (constSource) Seed(int64)     {}

// MemoryResults is an in-memory ResultRepository.
type MemoryResults struct {
	mu      sync.Mutex
	records []stats.Record
	writes  int
}

func NewMemoryResults() *MemoryResults {
	return &MemoryResults{}
}

func (m *MemoryResults) WriteRecords(_ context.Context, records []stats.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	m.writes++
	return nil
}

func (m *MemoryResults) ListRecords(_ context.Context, filter ports.ResultFilter) ([]stats.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []stats.Record
	for _, r := range m.records {
		if filter.RunID != "" && r.RunID != filter.RunID {
			continue
		}
		if filter.NetworkName != "" && r.NetworkName != filter.NetworkName {
			continue
		}
		if filter.TestsPerDay > 0 && r.TestsPerDay != filter.TestsPerDay {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Writes counts WriteRecords calls.
func (m *MemoryResults) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// MetricsSpy counts recorder calls.
type MetricsSpy struct {
	mu          sync.Mutex
	Simulations int
	Detections  int
	Skipped     map[string]int
}

func NewMetricsSpy() *MetricsSpy {
	return &MetricsSpy{Skipped: make(map[string]int)}
}

func (m *MetricsSpy) ObserveSimulation(sim.Parameters, int, time.Duration) {
	m.mu.Lock()
	m.Simulations++
	m.mu.Unlock()
}

func (m *MetricsSpy) ObserveDetection(stats.Key, stats.Output, bool) {
	m.mu.Lock()
	m.Detections++
	m.mu.Unlock()
}

func (m *MetricsSpy) IncSkipped(stage, reason string) {
	m.mu.Lock()
	m.Skipped[stage+"/"+reason]++
	m.mu.Unlock()
}

var (
	_ ports.RNGPort          = (*RecordingRNG)(nil)
	_ ports.RNGPort          = FixedRNG(nil)
	_ ports.ResultRepository = (*MemoryResults)(nil)
	_ ports.MetricsRecorder  = (*MetricsSpy)(nil)
)
