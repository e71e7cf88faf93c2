package stat

import (
	"math"

	"github.com/ammeterqa/ammqa/pkg/run"
)

// normalAlpha is the significance threshold for the normality decision
const normalAlpha = 0.05

// Options configures the analysis.  The zero value uses a 0.95 confidence
// level.
type Options struct {
	ConfidenceLevel float64
}

func (o Options) level() float64 {
	if o.ConfidenceLevel == 0 {
		return 0.95
	}
	return o.ConfidenceLevel
}

// Result summarizes the successful samples of one run.  CI and IsNormal are
// nil when the run did not collect enough samples to compute them; that is
// a reportable condition, not an error.
type Result struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Median float64

	CI       *Interval
	IsNormal *bool

	// Outliers holds the sequence indices of samples beyond 1.5 IQR from
	// the nearest quartile, in increasing order
	Outliers []int

	// ReliabilityScore combines measurement precision (inverse coefficient
	// of variation) and outlier frequency into a [0,1] metric
	ReliabilityScore float64
}

// Analyze computes the full analysis for a run.  It reads only the run's
// successful samples and is idempotent: two calls over the same finalized
// run produce identical results.
func Analyze(r *run.TestRun, opts Options) Result {
	samples := r.Samples()
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}

	m := mean(values)
	res := Result{
		Count:    len(values),
		Mean:     m,
		StdDev:   stddev(values, m),
		Min:      min(values),
		Max:      max(values),
		Median:   median(values),
		Outliers: outliers(samples),
	}

	if ci, err := confidenceInterval(values, opts.level()); err == nil {
		res.CI = ci
	}
	if p, err := normality(values); err == nil {
		normal := p > normalAlpha
		res.IsNormal = &normal
	}

	res.ReliabilityScore = reliability(res.Mean, res.StdDev, len(res.Outliers), res.Count)
	return res
}

// outliers flags samples beyond 1.5 IQR from the nearest quartile.  The
// rule needs all four quartile boundaries, so fewer than four samples flag
// nothing.
func outliers(samples []run.Sample) []int {
	flagged := []int{}
	if len(samples) < 4 {
		return flagged
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}
	q1 := quantile(values, 0.25)
	q3 := quantile(values, 0.75)
	iqr := q3 - q1
	lo := q1 - 1.5*iqr
	hi := q3 + 1.5*iqr

	for _, s := range samples {
		if s.Value < lo || s.Value > hi {
			flagged = append(flagged, s.Seq)
		}
	}
	return flagged
}

// reliability scores a run in [0,1].  Precision is the inverse coefficient
// of variation mapped onto (0,1]; a zero-variance, zero-outlier run scores
// exactly 1.0.
func reliability(mean, sd float64, outlierCount, sampleCount int) float64 {
	if sampleCount == 0 {
		return 0.0
	}

	var precision float64
	switch {
	case sd == 0:
		precision = 1.0
	case mean == 0:
		// infinite coefficient of variation
		precision = 0.0
	default:
		precision = 1.0 / (1.0 + sd/math.Abs(mean))
	}

	score := precision * (1.0 - float64(outlierCount)/float64(sampleCount))
	return math.Max(0.0, math.Min(1.0, score))
}
