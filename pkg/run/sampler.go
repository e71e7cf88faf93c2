package run

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ammeterqa/ammqa/pkg/device"
)

// minOutcomesForAbort is the smallest outcome count before the configured
// failure-rate limit can abort a run.  A 50% rate after two ticks is noise;
// after ten it is a broken device.
const minOutcomesForAbort = 10

// Sampler drives one TestRun: it ticks at the run's configured rate,
// performs one measurement per tick through the configured Measurer, and
// appends the Sample or Failure to the outcome log.  The run is touched by
// no other goroutine until the completion channel closes.
type Sampler struct {
	run   *TestRun
	meter device.Measurer
	count int
	limit float64
	log   *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

type SamplerOption func(s *Sampler) error

// WithFailureRateLimit aborts the run early once the observed failure rate
// exceeds limit.  A limit of zero disables the check and the run always
// executes its full configured count.
func WithFailureRateLimit(limit float64) SamplerOption {
	return func(s *Sampler) error {
		if limit < 0 || limit > 1 {
			return fmt.Errorf("failure rate limit must be within [0,1], got %f", limit)
		}
		s.limit = limit
		return nil
	}
}

// WithSamplerLogger attaches a structured logger to the sampling loop
func WithSamplerLogger(log *zap.Logger) SamplerOption {
	return func(s *Sampler) error {
		s.log = log
		return nil
	}
}

// NewSampler creates a sampler that will collect count outcomes into r
func NewSampler(r *TestRun, meter device.Measurer, count int, opts ...SamplerOption) (*Sampler, error) {
	if count <= 0 {
		return nil, fmt.Errorf("sampler requires a measurement count greater than zero")
	}
	s := &Sampler{
		run:   r,
		meter: meter,
		count: count,
		log:   zap.NewNop(),
		stop:  make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Interval returns the tick period derived from the run's sample rate
func (s *Sampler) Interval() time.Duration {
	return time.Duration(float64(time.Second) / s.run.RateHz)
}

// Start launches the sampling task and returns a channel that closes when
// the task has appended its last outcome.  The caller must not read the run
// until the channel closes.
func (s *Sampler) Start(ctx context.Context) (<-chan struct{}, error) {
	if err := s.run.begin(time.Now()); err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go s.loop(ctx, done)
	return done, nil
}

// Stop requests cooperative termination.  The request is observed at the
// next tick boundary; a measurement already in flight runs to its own
// timeout and its outcome is still recorded.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Sampler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	tick := time.NewTicker(s.Interval())
	defer tick.Stop()

	for i := 0; i < s.count; i++ {
		value, err := s.meter.Measure(ctx)
		now := time.Now()
		switch {
		case err == nil:
			if rerr := s.run.recordValue(value, now); rerr != nil {
				s.log.Error("dropping sample", zap.Error(rerr))
				return
			}
		default:
			kind, ok := device.KindOf(err)
			if !ok {
				// not part of the acquisition taxonomy, treat as a
				// refused/unreachable endpoint
				kind = device.ConnectionRefused
			}
			s.log.Debug("measurement failed",
				zap.String("device", s.run.DeviceType),
				zap.String("kind", string(kind)),
				zap.Error(err))
			if rerr := s.run.recordFailure(kind, err.Error(), now); rerr != nil {
				s.log.Error("dropping failure", zap.Error(rerr))
				return
			}
		}

		if s.limit > 0 && len(s.run.outcomes) >= minOutcomesForAbort && s.run.FailureRate() > s.limit {
			s.log.Warn("aborting run, failure rate over limit",
				zap.String("device", s.run.DeviceType),
				zap.Float64("rate", s.run.FailureRate()),
				zap.Float64("limit", s.limit))
			return
		}
		if i == s.count-1 {
			return
		}

		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}
