// Package bench orchestrates acquisition runs: it validates the requested
// device against the registry, serializes runs per device, starts the
// sampling task, waits for the completion signal, finalizes the run and
// hands it to the analyzer.
package bench

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ammeterqa/ammqa/pkg/device"
	"github.com/ammeterqa/ammqa/pkg/faults"
	"github.com/ammeterqa/ammqa/pkg/report"
	"github.com/ammeterqa/ammqa/pkg/run"
	"github.com/ammeterqa/ammqa/pkg/stat"
)

// ValidationError is returned synchronously when the requested device type
// is not in the registry.  No connection is attempted and no task started.
type ValidationError struct {
	DeviceType string
	Known      []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid device type: %s, must be one of %s", e.DeviceType, strings.Join(e.Known, ", "))
}

// Bench runs validated acquisition runs against registered devices.  Runs
// against the same device are serialized by a per-device lock because each
// device is a single-socket endpoint; runs against distinct devices proceed
// in parallel.
type Bench struct {
	registry   device.Registry
	timeout    time.Duration
	rateHz     float64
	count      int
	confidence float64
	abortRate  float64
	faults     *faults.Config
	log        *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(b *Bench) error

// WithSampling sets the tick rate and the number of outcomes per run
func WithSampling(rateHz float64, count int) Option {
	return func(b *Bench) error {
		if rateHz <= 0 {
			return fmt.Errorf("sample rate must be greater than zero, got %f Hz", rateHz)
		}
		if count <= 0 {
			return fmt.Errorf("measurement count must be greater than zero, got %d", count)
		}
		b.rateHz = rateHz
		b.count = count
		return nil
	}
}

// WithTimeout sets the per-measurement deadline passed to the gateway
func WithTimeout(d time.Duration) Option {
	return func(b *Bench) error {
		if d <= 0 {
			return fmt.Errorf("measurement timeout must be greater than zero")
		}
		b.timeout = d
		return nil
	}
}

// WithConfidenceLevel sets the confidence level for the analysis interval
func WithConfidenceLevel(level float64) Option {
	return func(b *Bench) error {
		if level <= 0 || level >= 1 {
			return fmt.Errorf("confidence level must be within (0,1), got %f", level)
		}
		b.confidence = level
		return nil
	}
}

// WithFaultInjection enables fault injection for every run started by the
// bench
func WithFaultInjection(cfg faults.Config) Option {
	return func(b *Bench) error {
		b.faults = &cfg
		return nil
	}
}

// WithFailureRateLimit aborts runs early once the observed failure rate
// exceeds limit.  Without this option runs always execute their full count.
func WithFailureRateLimit(limit float64) Option {
	return func(b *Bench) error {
		if limit < 0 || limit > 1 {
			return fmt.Errorf("failure rate limit must be within [0,1], got %f", limit)
		}
		b.abortRate = limit
		return nil
	}
}

// WithLogger attaches a structured logger
func WithLogger(log *zap.Logger) Option {
	return func(b *Bench) error {
		b.log = log
		return nil
	}
}

func New(registry device.Registry, opts ...Option) (*Bench, error) {
	if registry == nil {
		return nil, fmt.Errorf("bench requires a device registry")
	}
	b := &Bench{
		registry:   registry,
		timeout:    device.DefaultTimeout,
		rateHz:     10,
		count:      50,
		confidence: 0.95,
		log:        zap.NewNop(),
		locks:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Bench) deviceLock(deviceType string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	lock, ok := b.locks[deviceType]
	if !ok {
		lock = &sync.Mutex{}
		b.locks[deviceType] = lock
	}
	return lock
}

// RunTest executes one full run against deviceType and returns the combined
// result record.  The device type is validated before any task starts or
// any connection is attempted.  Cancelling ctx stops the run cooperatively
// at the next tick boundary; outcomes collected so far are still analyzed.
func (b *Bench) RunTest(ctx context.Context, deviceType string) (*report.Record, error) {
	ep, ok := b.registry.Lookup(deviceType)
	if !ok {
		return nil, &ValidationError{DeviceType: deviceType, Known: b.registry.Types()}
	}

	lock := b.deviceLock(deviceType)
	lock.Lock()
	defer lock.Unlock()

	gw, err := device.NewGateway(ep, device.WithTimeout(b.timeout))
	if err != nil {
		return nil, err
	}
	var meter device.Measurer = gw
	if b.faults != nil {
		inj, err := faults.New(gw, *b.faults)
		if err != nil {
			return nil, err
		}
		meter = inj
	}

	r, err := run.NewTestRun(deviceType, b.rateHz)
	if err != nil {
		return nil, err
	}
	sampler, err := run.NewSampler(r, meter, b.count,
		run.WithFailureRateLimit(b.abortRate),
		run.WithSamplerLogger(b.log))
	if err != nil {
		return nil, err
	}

	b.log.Info("starting run",
		zap.String("run_id", r.ID.String()),
		zap.String("device", deviceType),
		zap.Float64("rate_hz", b.rateHz),
		zap.Int("count", b.count))

	done, err := sampler.Start(ctx)
	if err != nil {
		return nil, err
	}
	select {
	case <-done:
	case <-ctx.Done():
		sampler.Stop()
		<-done
	}

	if err := r.Finalize(time.Now()); err != nil {
		return nil, err
	}

	analysis := stat.Analyze(r, stat.Options{ConfidenceLevel: b.confidence})
	b.log.Info("run complete",
		zap.String("run_id", r.ID.String()),
		zap.Int("samples", analysis.Count),
		zap.Int("failures", len(r.Failures())),
		zap.Float64("reliability", analysis.ReliabilityScore))

	return report.New(r, analysis)
}
