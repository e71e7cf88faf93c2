package run

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammeterqa/ammqa/pkg/device"
)

// scriptedMeasurer returns canned outcomes in order, repeating the last one
type scriptedMeasurer struct {
	values []float64
	errs   []error
	calls  int
}

func (m *scriptedMeasurer) Measure(ctx context.Context) (float64, error) {
	i := m.calls
	if i >= len(m.values) {
		i = len(m.values) - 1
	}
	m.calls++
	return m.values[i], m.errs[i]
}

func constant(v float64) *scriptedMeasurer {
	return &scriptedMeasurer{values: []float64{v}, errs: []error{nil}}
}

func alwaysFailing(kind device.FailureKind) *scriptedMeasurer {
	return &scriptedMeasurer{
		values: []float64{0},
		errs:   []error{&device.AcquisitionError{Kind: kind, Device: "greenlee", Msg: "injected"}},
	}
}

func collect(t *testing.T, s *Sampler) {
	t.Helper()
	done, err := s.Start(context.Background())
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sampler did not finish")
	}
}

func TestSamplerCollectsFullCount(t *testing.T) {
	r, err := NewTestRun("greenlee", 100)
	require.NoError(t, err)
	s, err := NewSampler(r, constant(2.5), 12)
	require.NoError(t, err)

	collect(t, s)

	outcomes := r.Outcomes()
	require.Len(t, outcomes, 12)
	for i, o := range outcomes {
		assert.Equal(t, i, o.Seq())
		require.NotNil(t, o.Sample)
		assert.Equal(t, 2.5, o.Sample.Value)
	}
}

func TestSamplerInterval(t *testing.T) {
	tt := []struct {
		rateHz float64
		exp    time.Duration
	}{
		{rateHz: 10, exp: 100 * time.Millisecond},
		{rateHz: 100, exp: 10 * time.Millisecond},
		{rateHz: 0.5, exp: 2 * time.Second},
	}
	for _, tc := range tt {
		r, err := NewTestRun("greenlee", tc.rateHz)
		require.NoError(t, err)
		s, err := NewSampler(r, constant(1), 1)
		require.NoError(t, err)
		assert.Equal(t, tc.exp, s.Interval())
	}
}

func TestSamplerRecordsFailures(t *testing.T) {
	r, err := NewTestRun("greenlee", 100)
	require.NoError(t, err)
	s, err := NewSampler(r, alwaysFailing(device.Timeout), 5)
	require.NoError(t, err)

	collect(t, s)

	failures := r.Failures()
	require.Len(t, failures, 5)
	for _, f := range failures {
		assert.Equal(t, device.Timeout, f.Kind)
		assert.NotEmpty(t, f.Message)
	}
	assert.Empty(t, r.Samples())
}

func TestSamplerStopIsCooperative(t *testing.T) {
	r, err := NewTestRun("greenlee", 20)
	require.NoError(t, err)
	s, err := NewSampler(r, constant(1), 1000)
	require.NoError(t, err)

	done, err := s.Start(context.Background())
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)
	s.Stop()
	s.Stop() // idempotent

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sampler did not observe stop at tick boundary")
	}

	n := len(r.Outcomes())
	assert.Greater(t, n, 0)
	assert.Less(t, n, 1000)
}

func TestSamplerContextCancel(t *testing.T) {
	r, err := NewTestRun("greenlee", 20)
	require.NoError(t, err)
	s, err := NewSampler(r, constant(1), 1000)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done, err := s.Start(ctx)
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sampler did not observe cancellation")
	}
	assert.Less(t, len(r.Outcomes()), 1000)
}

func TestSamplerFailureRateAbort(t *testing.T) {
	r, err := NewTestRun("greenlee", 500)
	require.NoError(t, err)
	s, err := NewSampler(r, alwaysFailing(device.ConnectionRefused), 1000, WithFailureRateLimit(0.5))
	require.NoError(t, err)

	collect(t, s)

	// aborts as soon as the minimum window fills
	assert.Equal(t, minOutcomesForAbort, len(r.Outcomes()))
}

func TestSamplerRunsFullCountWithoutLimit(t *testing.T) {
	r, err := NewTestRun("greenlee", 500)
	require.NoError(t, err)
	s, err := NewSampler(r, alwaysFailing(device.Timeout), 30)
	require.NoError(t, err)

	collect(t, s)

	// no configured limit: every tick executes despite 100% failures
	assert.Len(t, r.Outcomes(), 30)
}

func TestSamplerValidation(t *testing.T) {
	r, err := NewTestRun("greenlee", 10)
	require.NoError(t, err)

	_, err = NewSampler(r, constant(1), 0)
	assert.Error(t, err)
	_, err = NewSampler(r, constant(1), 10, WithFailureRateLimit(1.5))
	assert.Error(t, err)
}

func TestSamplerCannotStartTwice(t *testing.T) {
	r, err := NewTestRun("greenlee", 100)
	require.NoError(t, err)
	s, err := NewSampler(r, constant(1), 2)
	require.NoError(t, err)

	collect(t, s)
	_, err = s.Start(context.Background())
	assert.Error(t, err)
}
