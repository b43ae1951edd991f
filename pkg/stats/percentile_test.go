package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	p50 := Percentile([]float64{10, 20, 30, 40}, 50)
	require.NotNil(t, p50)
	assert.InDelta(t, 25, *p50, 1e-9)

	single := Percentile([]float64{5}, 95)
	require.NotNil(t, single)
	assert.Equal(t, 5.0, *single)

	assert.Nil(t, Percentile(nil, 50))
	assert.Nil(t, Percentile([]float64{}, 50))
}

func TestPercentileUnsortedInputAndBounds(t *testing.T) {
	values := []float64{40, 10, 30, 20}

	assert.Equal(t, 10.0, *Percentile(values, 0))
	assert.Equal(t, 40.0, *Percentile(values, 100))
	assert.InDelta(t, 38.5, *Percentile(values, 95), 1e-9)
	// Входной срез не меняется
	assert.Equal(t, []float64{40, 10, 30, 20}, values)
}

func TestMean(t *testing.T) {
	assert.Nil(t, Mean(nil))
	assert.InDelta(t, 25, *Mean([]float64{10, 20, 30, 40}), 1e-9)
	assert.Equal(t, []float64{1, 2}, Int64s([]int64{1, 2}))
	assert.Equal(t, 99.96, Round(99.9649, 2))
}
