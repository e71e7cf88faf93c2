// Package report defines the persisted result record and utilities for
// saving, loading, filtering and comparing records across runs.  Every
// numeric field crossing this boundary is a native finite scalar; the
// normalization step is a contract, not an incidental fix.
package report

import (
	"fmt"
	"math"
	"time"

	"github.com/ammeterqa/ammqa/pkg/run"
	"github.com/ammeterqa/ammqa/pkg/stat"
)

// SerializationError reports a non-finite numeric reaching the persistence
// boundary.  Gateway parsing rejects non-finite readings, so this firing
// means an internal computation produced NaN or Inf.
type SerializationError struct {
	Field string
	Value float64
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("non-finite value %f for field %s at serialization boundary", e.Value, e.Field)
}

// Metadata identifies one run
type Metadata struct {
	RunID        string    `json:"run_id"`
	DeviceType   string    `json:"device_type"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	SampleRateHz float64   `json:"sample_rate_hz"`
}

// Measurement is one outcome at the boundary.  Successful samples carry a
// value; failures carry the failure kind and message instead.
type Measurement struct {
	Seq         int      `json:"sequence_index"`
	Timestamp   float64  `json:"timestamp"`
	Value       *float64 `json:"value,omitempty"`
	FailureKind string   `json:"failure_kind,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// ConfidenceInterval mirrors stat.Interval at the boundary
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Level float64 `json:"level"`
}

// Analysis mirrors stat.Result at the boundary.  ConfidenceInterval and
// IsNormal serialize as null when the run had too few samples.
type Analysis struct {
	Count            int                 `json:"count"`
	Mean             float64             `json:"mean"`
	StdDev           float64             `json:"std_dev"`
	Min              float64             `json:"min"`
	Max              float64             `json:"max"`
	Median           float64             `json:"median"`
	CI               *ConfidenceInterval `json:"confidence_interval"`
	IsNormal         *bool               `json:"is_normal_distribution"`
	Outliers         []int               `json:"outliers"`
	ReliabilityScore float64             `json:"reliability_score"`
}

// Record is the complete persisted result of one run
type Record struct {
	Metadata     Metadata      `json:"metadata"`
	Measurements []Measurement `json:"measurements"`
	Analysis     Analysis      `json:"analysis"`
}

// New builds the boundary record from a finalized run and its analysis.
// Every float is checked and a SerializationError is returned rather than
// letting a NaN or Inf reach the encoder.
func New(r *run.TestRun, a stat.Result) (*Record, error) {
	if !r.Finalized() {
		return nil, fmt.Errorf("cannot build a record from an unfinalized run")
	}

	outcomes := r.Outcomes()
	measurements := make([]Measurement, 0, len(outcomes))
	for _, o := range outcomes {
		switch {
		case o.Sample != nil:
			v, err := normalize(fmt.Sprintf("measurements[%d].value", o.Sample.Seq), o.Sample.Value)
			if err != nil {
				return nil, err
			}
			value := v
			measurements = append(measurements, Measurement{
				Seq:       o.Sample.Seq,
				Timestamp: unixSeconds(o.Sample.Timestamp),
				Value:     &value,
			})
		default:
			measurements = append(measurements, Measurement{
				Seq:         o.Failure.Seq,
				Timestamp:   unixSeconds(o.Failure.Timestamp),
				FailureKind: string(o.Failure.Kind),
				Message:     o.Failure.Message,
			})
		}
	}

	analysis, err := normalizeAnalysis(a)
	if err != nil {
		return nil, err
	}

	return &Record{
		Metadata: Metadata{
			RunID:        r.ID.String(),
			DeviceType:   r.DeviceType,
			StartTime:    r.Start,
			EndTime:      r.End,
			SampleRateHz: r.RateHz,
		},
		Measurements: measurements,
		Analysis:     analysis,
	}, nil
}

func normalizeAnalysis(a stat.Result) (Analysis, error) {
	fields := map[string]float64{
		"mean":              a.Mean,
		"std_dev":           a.StdDev,
		"min":               a.Min,
		"max":               a.Max,
		"median":            a.Median,
		"reliability_score": a.ReliabilityScore,
	}
	for name, v := range fields {
		if _, err := normalize(name, v); err != nil {
			return Analysis{}, err
		}
	}

	out := Analysis{
		Count:            a.Count,
		Mean:             a.Mean,
		StdDev:           a.StdDev,
		Min:              a.Min,
		Max:              a.Max,
		Median:           a.Median,
		IsNormal:         a.IsNormal,
		Outliers:         append([]int{}, a.Outliers...),
		ReliabilityScore: a.ReliabilityScore,
	}
	if a.CI != nil {
		for name, v := range map[string]float64{
			"confidence_interval.lower": a.CI.Lower,
			"confidence_interval.upper": a.CI.Upper,
		} {
			if _, err := normalize(name, v); err != nil {
				return Analysis{}, err
			}
		}
		out.CI = &ConfidenceInterval{Lower: a.CI.Lower, Upper: a.CI.Upper, Level: a.CI.Level}
	}
	return out, nil
}

func normalize(field string, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &SerializationError{Field: field, Value: v}
	}
	return v, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
