package stat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalityAcceptsSymmetricSample(t *testing.T) {
	// symmetric, light-tailed data has near-zero skew and a small JB
	// statistic, so the null hypothesis stands
	values := []float64{-2, -1.5, -1, -0.5, 0, 0.5, 1, 1.5, 2}
	p, err := normality(values)
	require.NoError(t, err)
	assert.Greater(t, p, 0.05)
}

func TestNormalityAcceptsGaussianSample(t *testing.T) {
	// sample the exact shape of a normal distribution through its quantiles
	values := make([]float64, 50)
	for i := range values {
		values[i] = 10 + 0.5*normalQuantile((float64(i)+0.5)/50)
	}
	p, err := normality(values)
	require.NoError(t, err)
	assert.Greater(t, p, 0.05)
}

func TestNormalityRejectsSkewedSample(t *testing.T) {
	values := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 100}
	p, err := normality(values)
	require.NoError(t, err)
	assert.Less(t, p, 0.05)
}

func TestNormalityInsufficientData(t *testing.T) {
	_, err := normality(nil)
	assert.Error(t, err)
	_, err = normality([]float64{1, 2})
	assert.Error(t, err)
}

func TestNormalityZeroVariance(t *testing.T) {
	_, err := normality([]float64{3, 3, 3, 3})
	assert.Error(t, err)
}
