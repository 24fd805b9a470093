package simulation

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	netadapter "outbreaksim/adapters/network"
	"outbreaksim/adapters/rng"
	"outbreaksim/domain/core"
	"outbreaksim/domain/network"
	"outbreaksim/domain/sim"
	"outbreaksim/internal/testkit"
)

func pathGraph(t *testing.T, name string, labels ...int) *netadapter.Graph {
	t.Helper()
	g := netadapter.NewGraph(name)
	for i := 1; i < len(labels); i++ {
		require.NoError(t, g.AddEdge(labels[i-1], labels[i]))
	}
	return g
}

// deterministicRNG forces one initial vertex (the lowest label), no external
// infections and certain transmission.
func deterministicRNG() testkit.FixedRNG {
	return testkit.FixedRNG{
		StreamInitialCount:     testkit.Always,
		StreamInitialSelection: testkit.Always,
		StreamExternal:         testkit.Never,
		StreamTransmission:     testkit.Always,
	}
}

func pathParams(latency, horizon int) sim.Parameters {
	return sim.Parameters{
		NetworkName:                  "path",
		TimeHorizon:                  horizon,
		Repetitions:                  1,
		FalseNegativeProbability:     0.25,
		TransmissionProbability:      0.5,
		Latency:                      latency,
		ExternalInfectionProbability: 0.1,
	}
}

func assertPathInvariants(t *testing.T, path sim.SamplePath, horizon int, g network.View) {
	t.Helper()
	require.Len(t, path.Days, horizon+1)
	for day, set := range path.Days {
		require.NotEmpty(t, set)
		assert.Equal(t, network.SourceVertex, set[0], "day %d must contain the source", day)
		for i := 1; i < len(set); i++ {
			assert.Less(t, set[i-1], set[i], "day %d must be strictly ascending", day)
			assert.True(t, g.HasVertex(set[i]), "day %d has unknown vertex %d", day, set[i])
		}
		if day > 0 {
			assert.Subset(t, set, path.Days[day-1], "day %d lost an infectious vertex", day)
		}
	}
	assert.GreaterOrEqual(t, len(path.Days[0]), 2, "at least one real vertex starts infectious")
}

func TestSimulateExampleScenario(t *testing.T) {
	g, err := netadapter.Complete(20, 2)
	require.NoError(t, err)
	params := testkit.ExampleParams()

	s := New(rng.NewSeeded(), nil, nil)
	out, err := s.Simulate(g, params, testkit.ExampleSeeds())
	require.NoError(t, err)

	require.Equal(t, 5, out.SampleSize())
	for _, path := range out.Paths {
		assertPathInvariants(t, path, 3, g)
	}
	assert.False(t, g.HasVertex(network.SourceVertex), "caller's network must not be mutated")
}

func TestSimulateIsReproducible(t *testing.T) {
	g, err := netadapter.Neighboring(30, 4, 2)
	require.NoError(t, err)
	params := testkit.ExampleParams()
	params.NetworkName = g.Name()
	params.Repetitions = 20
	params.TimeHorizon = 10
	params.TransmissionProbability = 0.3

	s := New(rng.NewSeeded(), nil, nil)
	first, err := s.Simulate(g, params, testkit.ExampleSeeds())
	require.NoError(t, err)
	second, err := s.Simulate(g, params, testkit.ExampleSeeds())
	require.NoError(t, err)
	assert.Equal(t, first.Paths, second.Paths)

	other, err := s.Simulate(g, params, testkit.ExampleSeeds().Offset(1))
	require.NoError(t, err)
	assert.NotEqual(t, first.Paths, other.Paths)
}

func TestSimulateSeedsStreamsWithParameterHash(t *testing.T) {
	g, err := netadapter.Complete(20, 2)
	require.NoError(t, err)
	params := testkit.ExampleParams()
	seeds := testkit.ExampleSeeds()
	recorder := testkit.NewRecordingRNG()

	_, err = New(recorder, nil, nil).Simulate(g, params, seeds)
	require.NoError(t, err)

	h := params.Hash()
	assert.Equal(t, []int64{core.DeriveSeed(seeds[sim.SeedInitialSelection], h)}, recorder.Seeds(StreamInitialSelection))
	assert.Equal(t, []int64{core.DeriveSeed(seeds[sim.SeedExternal], h)}, recorder.Seeds(StreamExternal))
	assert.Equal(t, []int64{core.DeriveSeed(seeds[sim.SeedTransmission], h)}, recorder.Seeds(StreamTransmission))
	assert.Equal(t, []int64{core.DeriveSeed(seeds[sim.SeedInitialCount], h)}, recorder.Seeds(StreamInitialCount))
}

func TestLatencyDelaysInfectiousness(t *testing.T) {
	g := pathGraph(t, "path", 2, 3, 4, 5)
	s := New(deterministicRNG(), nil, nil)

	out, err := s.Simulate(g, pathParams(2, 5), sim.Seeds{})
	require.NoError(t, err)

	want := [][]int{
		{1, 2},
		{1, 2},
		{1, 2},
		{1, 2, 3}, // exposed day 1
		{1, 2, 3},
		{1, 2, 3, 4}, // exposed day 3
	}
	assert.Equal(t, want, out.Paths[0].Days)
}

func TestZeroLatencyShowsNextDay(t *testing.T) {
	g := pathGraph(t, "path", 2, 3, 4, 5)
	s := New(deterministicRNG(), nil, nil)

	zero, err := s.Simulate(g, pathParams(0, 5), sim.Seeds{})
	require.NoError(t, err)
	one, err := s.Simulate(g, pathParams(1, 5), sim.Seeds{})
	require.NoError(t, err)

	want := [][]int{
		{1, 2},
		{1, 2},
		{1, 2, 3},
		{1, 2, 3, 4},
		{1, 2, 3, 4, 5},
		{1, 2, 3, 4, 5},
	}
	assert.Equal(t, want, zero.Paths[0].Days)
	assert.Equal(t, want, one.Paths[0].Days)
}

func TestExternalInfectionSkipsLatency(t *testing.T) {
	g := pathGraph(t, "path", 2, 3, 4)
	fixed := deterministicRNG()
	fixed[StreamExternal] = testkit.Always

	out, err := New(fixed, nil, nil).Simulate(g, pathParams(5, 2), sim.Seeds{})
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 2}, {1, 2, 3, 4}, {1, 2, 3, 4}}, out.Paths[0].Days)
}

func TestNoTransmissionWithoutContact(t *testing.T) {
	g := netadapter.NewGraph("path")
	require.NoError(t, g.AddVertex(2))
	require.NoError(t, g.AddVertex(3))

	out, err := New(deterministicRNG(), nil, nil).Simulate(g, pathParams(0, 4), sim.Seeds{})
	require.NoError(t, err)
	for _, day := range out.Paths[0].Days {
		assert.Equal(t, []int{1, 2}, day)
	}
}

func TestSimulateValidation(t *testing.T) {
	s := New(rng.NewSeeded(), nil, nil)

	withSource := pathGraph(t, "path", 1, 2, 3)
	_, err := s.Simulate(withSource, pathParams(1, 2), sim.Seeds{})
	assert.True(t, errors.Is(err, core.ErrReservedVertex))
	assert.True(t, core.IsValidationError(err))

	lowLabel := pathGraph(t, "path", 0, 2, 3)
	_, err = s.Simulate(lowLabel, pathParams(1, 2), sim.Seeds{})
	assert.True(t, errors.Is(err, core.ErrReservedVertex))

	_, err = s.Simulate(netadapter.NewGraph("path"), pathParams(1, 2), sim.Seeds{})
	assert.True(t, errors.Is(err, core.ErrEmptyNetwork))

	bad := pathParams(1, 2)
	bad.TransmissionProbability = 1
	_, err = s.Simulate(pathGraph(t, "path", 2, 3), bad, sim.Seeds{})
	assert.True(t, errors.Is(err, core.ErrInvalidParameter))

	other := pathParams(1, 2)
	other.NetworkName = "elsewhere"
	_, err = s.Simulate(pathGraph(t, "path", 2, 3), other, sim.Seeds{})
	assert.True(t, core.IsPolicyMismatch(err))
}

func TestSimulateAllSkipsOtherNetworks(t *testing.T) {
	g := pathGraph(t, "path", 2, 3, 4)
	spy := testkit.NewMetricsSpy()
	s := New(rng.NewSeeded(), nil, spy)

	mine := pathParams(1, 3)
	longer := pathParams(1, 6)
	foreign := pathParams(1, 3)
	foreign.NetworkName = "other"

	runs, err := s.SimulateAll(g, []sim.Parameters{mine, foreign, longer}, sim.Seeds{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.Contains(t, runs, mine)
	assert.Contains(t, runs, longer)
	assert.NotContains(t, runs, foreign)
	assert.Equal(t, 2, spy.Simulations)
	assert.Equal(t, 1, spy.Skipped["simulation/network_mismatch"])
}

func TestSamplePathsAreMonotone(t *testing.T) {
	g, err := netadapter.Crossing(16, 4, 2)
	require.NoError(t, err)
	s := New(rng.NewSeeded(), nil, nil)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("infectious sets never shrink", prop.ForAll(
		func(seed int64, latency int, transmission float64) bool {
			params := sim.Parameters{
				NetworkName:                  g.Name(),
				TimeHorizon:                  8,
				Repetitions:                  3,
				FalseNegativeProbability:     0.2,
				TransmissionProbability:      transmission,
				Latency:                      latency,
				ExternalInfectionProbability: 0.05,
			}
			out, err := s.Simulate(g, params, sim.Seeds{seed, seed + 1, seed + 2, seed + 3})
			if err != nil {
				return false
			}
			for _, path := range out.Paths {
				for day := 1; day < len(path.Days); day++ {
					prev := make(map[int]bool, len(path.Days[day-1]))
					for _, v := range path.Days[day-1] {
						prev[v] = true
					}
					kept := 0
					for _, v := range path.Days[day] {
						if prev[v] {
							kept++
						}
					}
					if kept != len(prev) {
						return false
					}
				}
			}
			return true
		},
		gen.Int64Range(0, 1<<40),
		gen.IntRange(0, 4),
		gen.Float64Range(0.01, 0.9),
	))

	properties.TestingRun(t)
}
