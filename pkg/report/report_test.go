package report

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammeterqa/ammqa/pkg/device"
	"github.com/ammeterqa/ammqa/pkg/run"
	"github.com/ammeterqa/ammqa/pkg/stat"
)

type step struct {
	v    float64
	fail bool
}

type scriptedMeasurer struct {
	steps []step
	idx   int
}

func (m *scriptedMeasurer) Measure(ctx context.Context) (float64, error) {
	s := m.steps[m.idx]
	m.idx++
	if s.fail {
		return 0, &device.AcquisitionError{Kind: device.EmptyResponse, Device: "entes", Msg: "scripted failure"}
	}
	return s.v, nil
}

func buildRun(t *testing.T, steps []step) *run.TestRun {
	t.Helper()
	r, err := run.NewTestRun("entes", 1000)
	require.NoError(t, err)
	s, err := run.NewSampler(r, &scriptedMeasurer{steps: steps}, len(steps))
	require.NoError(t, err)
	done, err := s.Start(context.Background())
	require.NoError(t, err)
	<-done
	require.NoError(t, r.Finalize(time.Now()))
	return r
}

func TestNewRecord(t *testing.T) {
	r := buildRun(t, []step{{v: 1.5}, {fail: true}, {v: 2.5}})
	analysis := stat.Analyze(r, stat.Options{})

	rec, err := New(r, analysis)
	require.NoError(t, err)

	assert.Equal(t, r.ID.String(), rec.Metadata.RunID)
	assert.Equal(t, "entes", rec.Metadata.DeviceType)
	assert.Equal(t, 1000.0, rec.Metadata.SampleRateHz)

	require.Len(t, rec.Measurements, 3)
	require.NotNil(t, rec.Measurements[0].Value)
	assert.Equal(t, 1.5, *rec.Measurements[0].Value)
	assert.Nil(t, rec.Measurements[1].Value)
	assert.Equal(t, string(device.EmptyResponse), rec.Measurements[1].FailureKind)
	for i, m := range rec.Measurements {
		assert.Equal(t, i, m.Seq)
		assert.Greater(t, m.Timestamp, 0.0)
	}
	assert.Equal(t, 2, rec.Analysis.Count)
}

func TestNewRecordRequiresFinalizedRun(t *testing.T) {
	r, err := run.NewTestRun("entes", 10)
	require.NoError(t, err)
	_, err = New(r, stat.Result{})
	assert.Error(t, err)
}

func TestRecordJSONShape(t *testing.T) {
	r := buildRun(t, []step{{v: 1.0}, {v: 1.0}})
	rec, err := New(r, stat.Analyze(r, stat.Options{}))
	require.NoError(t, err)

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	meta := decoded["metadata"].(map[string]interface{})
	assert.Equal(t, rec.Metadata.RunID, meta["run_id"])
	assert.Equal(t, "entes", meta["device_type"])

	analysis := decoded["analysis"].(map[string]interface{})
	assert.Equal(t, 2.0, analysis["count"])
	// zero-variance interval is [mean, mean]
	ci := analysis["confidence_interval"].(map[string]interface{})
	assert.Equal(t, 1.0, ci["lower"])
	assert.Equal(t, 1.0, ci["upper"])
	// below the normality threshold: explicit null, not absent
	assert.Contains(t, analysis, "is_normal_distribution")
	assert.Nil(t, analysis["is_normal_distribution"])
}

func TestSerializationErrorOnNonFinite(t *testing.T) {
	r := buildRun(t, []step{{v: 1.0}, {v: 2.0}})

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		a := stat.Analyze(r, stat.Options{})
		a.Mean = bad
		_, err := New(r, a)
		var serr *SerializationError
		assert.True(t, errors.As(err, &serr), "expected a SerializationError for %f", bad)
	}
}

func TestSerializationErrorInInterval(t *testing.T) {
	r := buildRun(t, []step{{v: 1.0}, {v: 2.0}})
	a := stat.Analyze(r, stat.Options{})
	require.NotNil(t, a.CI)
	a.CI.Upper = math.Inf(1)

	_, err := New(r, a)
	var serr *SerializationError
	assert.True(t, errors.As(err, &serr))
}
