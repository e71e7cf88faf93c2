package stat

import (
	"fmt"
	"math"
)

// normality runs a Jarque-Bera goodness-of-fit test against the null
// hypothesis that the observations are normally distributed.  The JB
// statistic is asymptotically chi-squared with two degrees of freedom, so
// the p-value has the exact closed form exp(-JB/2).  Requires at least
// three observations and non-zero variance.
func normality(values []float64) (pValue float64, err error) {
	n := len(values)
	if n < 3 {
		return 0, fmt.Errorf("normality test requires at least 3 samples, got %d", n)
	}

	m := mean(values)
	m2, m3, m4 := 0.0, 0.0, 0.0
	for _, v := range values {
		d := v - m
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	m2 /= float64(n)
	m3 /= float64(n)
	m4 /= float64(n)

	if m2 == 0 {
		return 0, fmt.Errorf("normality test is undefined for zero-variance samples")
	}

	skew := m3 / math.Pow(m2, 1.5)
	kurt := m4 / (m2 * m2)

	jb := float64(n) / 6 * (skew*skew + (kurt-3)*(kurt-3)/4)
	return math.Exp(-jb / 2), nil
}
