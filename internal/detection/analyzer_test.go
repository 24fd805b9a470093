package detection

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	netadapter "outbreaksim/adapters/network"
	"outbreaksim/adapters/rng"
	"outbreaksim/domain/core"
	"outbreaksim/domain/sim"
	"outbreaksim/domain/stats"
	"outbreaksim/internal/simulation"
	"outbreaksim/internal/testkit"
)

type fixture struct {
	graph  *netadapter.Graph
	params sim.Parameters
	runs   []sim.Runs
}

func newFixture(t *testing.T, batches int) fixture {
	t.Helper()
	g, err := netadapter.Complete(20, 2)
	require.NoError(t, err)
	params := testkit.ExampleParams()
	params.Repetitions = 40
	params.TimeHorizon = 5

	s := simulation.New(rng.NewSeeded(), nil, nil)
	runs := make([]sim.Runs, batches)
	for b := range runs {
		r, err := s.SimulateAll(g, []sim.Parameters{params}, testkit.ExampleSeeds().Offset(b))
		require.NoError(t, err)
		runs[b] = r
	}
	return fixture{graph: g, params: params, runs: runs}
}

func TestAnalyzerSingleBatch(t *testing.T) {
	f := newFixture(t, 1)
	a := NewAnalyzer(rng.NewSeeded(), nil, nil)

	got, err := a.Test(f.graph, f.runs, 4, 0.05, Circular, 17, 23)
	require.NoError(t, err)
	require.Len(t, got, 1)

	key := stats.Key{Params: f.params, TestsPerDay: 4}
	out := got[key]
	assert.GreaterOrEqual(t, out.Mean, 0.0)
	assert.LessOrEqual(t, out.Mean, 1.0)
	assert.InDelta(t, math.Sqrt(out.Mean*(1-out.Mean)/40), out.StdErr, 1e-12)
	assert.Equal(t, 40, out.SampleSize)
	assert.Equal(t, 1, out.BatchSize)
	assert.Equal(t, stats.MethodBinomialNormal, out.Method)

	random, ok := a.RandomOrder(key)
	require.True(t, ok)
	assert.False(t, random)
	assert.Equal(t, out, a.Results()[key])
}

func TestAnalyzerIsReproducible(t *testing.T) {
	f := newFixture(t, 2)

	first, err := NewAnalyzer(rng.NewSeeded(), nil, nil).Test(f.graph, f.runs, 3, 0.05, Random, 5, 9)
	require.NoError(t, err)
	second, err := NewAnalyzer(rng.NewSeeded(), nil, nil).Test(f.graph, f.runs, 3, 0.05, Random, 5, 9)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAnalyzerBatched(t *testing.T) {
	f := newFixture(t, 3)
	a := NewAnalyzer(rng.NewSeeded(), nil, nil)

	got, err := a.Test(f.graph, f.runs, 2, 0.1, Random, 1, 2)
	require.NoError(t, err)

	key := stats.Key{Params: f.params, TestsPerDay: 2}
	out := got[key]
	assert.Equal(t, stats.MethodNormalPopulation, out.Method)
	assert.Equal(t, 3, out.BatchSize)
	assert.InDelta(t, 1/math.Sqrt(40), out.StdErr, 1e-12)
	assert.GreaterOrEqual(t, out.Mean, 0.0)
	assert.LessOrEqual(t, out.Mean, 1.0)

	random, _ := a.RandomOrder(key)
	assert.True(t, random)
}

func TestAnalyzerFoldsKAndBatchIntoSeeds(t *testing.T) {
	f := newFixture(t, 2)
	recorder := testkit.NewRecordingRNG()
	a := NewAnalyzer(recorder, nil, nil)

	_, err := a.Test(f.graph, f.runs, 3, 0.05, Random, 100, 200)
	require.NoError(t, err)

	h := f.params.Hash()
	assert.Equal(t, []int64{
		core.DeriveSeed(100, h, 3, 0),
		core.DeriveSeed(100, h, 3, 1),
	}, recorder.Seeds(StreamReliability))
	assert.Equal(t, []int64{
		core.DeriveSeed(200, h, 3, 0),
		core.DeriveSeed(200, h, 3, 1),
	}, recorder.Seeds(StreamOrder))
}

func TestAnalyzerCircularUsesNoOrderStream(t *testing.T) {
	f := newFixture(t, 1)
	recorder := testkit.NewRecordingRNG()
	_, err := NewAnalyzer(recorder, nil, nil).Test(f.graph, f.runs, 3, 0.05, Circular, 100, 200)
	require.NoError(t, err)
	assert.Empty(t, recorder.Seeds(StreamOrder))
	assert.Len(t, recorder.Seeds(StreamReliability), 1)
}

func TestAnalyzerOverwritesKey(t *testing.T) {
	f := newFixture(t, 1)
	a := NewAnalyzer(rng.NewSeeded(), nil, nil)
	key := stats.Key{Params: f.params, TestsPerDay: 4}

	_, err := a.Test(f.graph, f.runs, 4, 0.05, Circular, 1, 1)
	require.NoError(t, err)
	_, err = a.Test(f.graph, f.runs, 4, 0.01, Random, 1, 1)
	require.NoError(t, err)

	assert.Len(t, a.Results(), 1)
	assert.Equal(t, 0.01, a.Results()[key].Alpha)
	random, _ := a.RandomOrder(key)
	assert.True(t, random)

	_, err = a.Test(f.graph, f.runs, 6, 0.05, Circular, 1, 1)
	require.NoError(t, err)
	assert.Len(t, a.Results(), 2)
	assert.Equal(t, []stats.Key{key, {Params: f.params, TestsPerDay: 6}}, a.Keys())
}

func TestAnalyzerSkipsOtherNetworks(t *testing.T) {
	f := newFixture(t, 1)
	foreign := f.params
	foreign.NetworkName = "elsewhere"
	f.runs[0][foreign] = f.runs[0][f.params]

	spy := testkit.NewMetricsSpy()
	got, err := NewAnalyzer(rng.NewSeeded(), nil, spy).Test(f.graph, f.runs, 2, 0.05, Circular, 1, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NotContains(t, got, stats.Key{Params: foreign, TestsPerDay: 2})
	assert.Equal(t, 1, spy.Skipped["detection/network_mismatch"])
	assert.Equal(t, 1, spy.Detections)
}

func TestAnalyzerValidation(t *testing.T) {
	f := newFixture(t, 1)
	a := NewAnalyzer(rng.NewSeeded(), nil, nil)

	_, err := a.Test(f.graph, f.runs, 2, 0.05, Order("alphabetical"), 1, 1)
	assert.True(t, core.IsUnsupportedPolicy(err))

	_, err = a.Test(f.graph, f.runs, 0, 0.05, Circular, 1, 1)
	assert.True(t, core.IsValidationError(err))

	_, err = a.Test(f.graph, f.runs, 2, 1, Circular, 1, 1)
	assert.True(t, core.IsValidationError(err))

	_, err = a.Test(f.graph, nil, 2, 0.05, Circular, 1, 1)
	assert.True(t, core.IsValidationError(err))

	_, err = a.Test(f.graph, []sim.Runs{f.runs[0], {}}, 2, 0.05, Circular, 1, 1)
	assert.True(t, errors.Is(err, core.ErrMissingBatch))

	assert.Empty(t, a.Results())
}

func TestAnalyzerStoresNothingWhenABatchIsIncomplete(t *testing.T) {
	f := newFixture(t, 2)
	second := f.params
	second.TransmissionProbability = 0.5
	f.runs[0][second] = f.runs[0][f.params]

	spy := testkit.NewMetricsSpy()
	a := NewAnalyzer(rng.NewSeeded(), nil, spy)
	got, err := a.Test(f.graph, f.runs, 2, 0.05, Circular, 1, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMissingBatch))
	assert.Nil(t, got)
	assert.Empty(t, a.Results())
	assert.Empty(t, a.Keys())
	assert.Equal(t, 0, spy.Detections)
}

func TestAnalyzerRejectsReservedLabels(t *testing.T) {
	f := newFixture(t, 1)
	for _, start := range []int{0, 1} {
		g, err := netadapter.Complete(20, start)
		require.NoError(t, err)
		require.Equal(t, f.graph.Name(), g.Name())

		a := NewAnalyzer(rng.NewSeeded(), nil, nil)
		_, err = a.Test(g, f.runs, 2, 0.05, Circular, 1, 1)
		assert.True(t, errors.Is(err, core.ErrReservedVertex), "start %d", start)
		assert.True(t, core.IsValidationError(err))
		assert.Empty(t, a.Results())
	}
}

func TestAnalyzerRecords(t *testing.T) {
	f := newFixture(t, 1)
	a := NewAnalyzer(rng.NewSeeded(), nil, nil)
	_, err := a.Test(f.graph, f.runs, 5, 0.05, Circular, 1, 1)
	require.NoError(t, err)
	_, err = a.Test(f.graph, f.runs, 1, 0.05, Random, 1, 1)
	require.NoError(t, err)

	runID := core.NewRunID()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	records := a.Records(runID, at)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].TestsPerDay)
	assert.True(t, records[0].RandomOrder)
	assert.Equal(t, 5, records[1].TestsPerDay)
	assert.False(t, records[1].RandomOrder)
	for _, r := range records {
		assert.Equal(t, runID, r.RunID)
		assert.Equal(t, at, r.CreatedAt)
		assert.Equal(t, f.params.NetworkName, r.NetworkName)
		assert.InDelta(t, r.Probability-r.CIWidth/2, r.LowerCI, 1e-12)
	}
}
