package detection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbreaksim/domain/core"
	dstats "outbreaksim/domain/stats"
)

func TestCriticalValue(t *testing.T) {
	assert.InDelta(t, 1.959964, CriticalValue(0.05), 1e-6)
	assert.InDelta(t, 2.575829, CriticalValue(0.01), 1e-6)
}

func TestBinomialEstimate(t *testing.T) {
	tests := []struct {
		name     string
		detected int
		n        int
		mean     float64
	}{
		{"none", 0, 10, 0},
		{"some", 3, 10, 0.3},
		{"all", 10, 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := BinomialEstimate(tt.detected, tt.n, 0.05)
			require.NoError(t, err)
			se := math.Sqrt(tt.mean * (1 - tt.mean) / float64(tt.n))
			assert.InDelta(t, tt.mean, out.Mean, 1e-12)
			assert.InDelta(t, se, out.StdErr, 1e-12)
			assert.InDelta(t, 2*CriticalValue(0.05)*se, out.CIWidth, 1e-12)
			assert.Equal(t, dstats.MethodBinomialNormal, out.Method)
			assert.Equal(t, 1, out.BatchSize)
			assert.Equal(t, tt.n, out.SampleSize)
			assert.Equal(t, 0.05, out.Alpha)
		})
	}

	_, err := BinomialEstimate(1, 0, 0.05)
	assert.True(t, core.IsValidationError(err))
	_, err = BinomialEstimate(11, 10, 0.05)
	assert.True(t, core.IsValidationError(err))
}

func TestBatchedEstimate(t *testing.T) {
	out, err := BatchedEstimate([]float64{0.2, 0.4, 0.6}, 100, 0.05)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, out.Mean, 1e-12)
	assert.InDelta(t, 0.1, out.StdErr, 1e-12)
	assert.InDelta(t, 0.2, out.BatchStdDev, 1e-12)
	assert.InDelta(t, 2*CriticalValue(0.05)*0.1, out.CIWidth, 1e-12)
	assert.Equal(t, dstats.MethodNormalPopulation, out.Method)
	assert.Equal(t, 3, out.BatchSize)
	assert.Equal(t, 100, out.SampleSize)

	_, err = BatchedEstimate([]float64{0.5}, 100, 0.05)
	assert.True(t, core.IsValidationError(err))
	_, err = BatchedEstimate([]float64{0.5, 0.4}, 0, 0.05)
	assert.True(t, core.IsValidationError(err))
}
