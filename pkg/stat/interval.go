package stat

import (
	"fmt"
	"math"
)

// Interval is a two-sided confidence interval around the mean
type Interval struct {
	Lower float64
	Upper float64
	Level float64
}

// confidenceInterval computes the Student-t interval around the mean at the
// given confidence level.  Requires at least two observations; with zero
// variance the interval degenerates to [mean, mean].
func confidenceInterval(values []float64, level float64) (*Interval, error) {
	if level <= 0 || level >= 1 {
		return nil, fmt.Errorf("confidence level must be within (0,1), got %f", level)
	}
	n := len(values)
	if n < 2 {
		return nil, fmt.Errorf("confidence interval requires at least 2 samples, got %d", n)
	}
	m := mean(values)
	sd := stddev(values, m)
	sem := sd / math.Sqrt(float64(n))
	t := tQuantile(0.5+level/2, n-1)
	return &Interval{
		Lower: m - t*sem,
		Upper: m + t*sem,
		Level: level,
	}, nil
}

// tQuantile returns the p-th quantile of the Student-t distribution with df
// degrees of freedom.  df 1 and 2 have closed forms; larger df use the
// Cornish-Fisher expansion around the normal quantile, which is accurate to
// about three decimal places for df >= 3.
func tQuantile(p float64, df int) float64 {
	switch df {
	case 1:
		return math.Tan(math.Pi * (p - 0.5))
	case 2:
		u := 2*p - 1
		return u * math.Sqrt(2/(1-u*u))
	}

	z := normalQuantile(p)
	z3 := z * z * z
	z5 := z3 * z * z
	z7 := z5 * z * z
	z9 := z7 * z * z
	n := float64(df)

	g1 := (z3 + z) / 4
	g2 := (5*z5 + 16*z3 + 3*z) / 96
	g3 := (3*z7 + 19*z5 + 17*z3 - 15*z) / 384
	g4 := (79*z9 + 776*z7 + 1482*z5 - 1920*z3 - 945*z) / 92160

	return z + g1/n + g2/(n*n) + g3/(n*n*n) + g4/(n*n*n*n)
}

// Acklam's rational approximation to the inverse normal CDF,
// |relative error| < 1.15e-9 over the full domain
var (
	nqA = [6]float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02, 1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	nqB = [5]float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02, 6.680131188771972e+01, -1.328068155288572e+01}
	nqC = [6]float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00, -2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	nqD = [4]float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00, 3.754408661907416e+00}
)

func normalQuantile(p float64) float64 {
	const pLow = 0.02425
	const pHigh = 1 - pLow

	switch {
	case p <= 0:
		return math.Inf(-1)
	case p >= 1:
		return math.Inf(1)
	case p < pLow:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((nqC[0]*q+nqC[1])*q+nqC[2])*q+nqC[3])*q+nqC[4])*q + nqC[5]) /
			((((nqD[0]*q+nqD[1])*q+nqD[2])*q+nqD[3])*q + 1)
	case p > pHigh:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((nqC[0]*q+nqC[1])*q+nqC[2])*q+nqC[3])*q+nqC[4])*q + nqC[5]) /
			((((nqD[0]*q+nqD[1])*q+nqD[2])*q+nqD[3])*q + 1)
	default:
		q := p - 0.5
		r := q * q
		return (((((nqA[0]*r+nqA[1])*r+nqA[2])*r+nqA[3])*r+nqA[4])*r + nqA[5]) * q /
			(((((nqB[0]*r+nqB[1])*r+nqB[2])*r+nqB[3])*r+nqB[4])*r + 1)
	}
}
