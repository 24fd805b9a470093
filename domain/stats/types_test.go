package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"outbreaksim/domain/core"
	"outbreaksim/domain/sim"
)

func TestOutputBounds(t *testing.T) {
	out := Output{Mean: 0.4, StdErr: 0.05, CIWidth: 0.2}
	assert.InDelta(t, 0.1, out.HalfWidth(), 1e-12)
	assert.InDelta(t, 0.3, out.Lower(), 1e-12)
	assert.InDelta(t, 0.5, out.Upper(), 1e-12)
}

func TestNewRecord(t *testing.T) {
	params := sim.Parameters{
		NetworkName:                  "neighboringgraph_staff100_degree20",
		TimeHorizon:                  6,
		Repetitions:                  50000,
		FalseNegativeProbability:     0.21,
		TransmissionProbability:      0.05,
		Latency:                      3,
		ExternalInfectionProbability: 0.0001,
	}
	out := Output{Mean: 0.8, StdErr: 0.01, Alpha: 0.05, Method: MethodNormalPopulation, CIWidth: 0.04, SampleSize: 50000, BatchSize: 30}
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	runID := core.NewRunID()

	rec := NewRecord(runID, Key{Params: params, TestsPerDay: 5}, out, true, at)

	assert.Equal(t, runID, rec.RunID)
	assert.Equal(t, params.NetworkName, rec.NetworkName)
	assert.Equal(t, 5, rec.TestsPerDay)
	assert.True(t, rec.RandomOrder)
	assert.InDelta(t, 0.78, rec.LowerCI, 1e-12)
	assert.InDelta(t, 0.82, rec.UpperCI, 1e-12)
	assert.Equal(t, "normal population test", rec.Method)
	assert.Equal(t, 30, rec.BatchSize)
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
}
