// Package faults wraps a device gateway with deterministic or probabilistic
// failure injection so the acquisition pipeline can be exercised against
// every failure kind without an unreliable device on the wire.
package faults

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/ammeterqa/ammqa/pkg/device"
)

// gateway is the slice of the device gateway the injector needs: a plain
// measurement and a measurement with a corrupted payload.
type gateway interface {
	Measure(ctx context.Context) (float64, error)
	MeasureWith(ctx context.Context, filter device.PayloadFilter) (float64, error)
}

// Config controls when and how faults are injected.  Schedule entries fire
// unconditionally on their call index; otherwise each call triggers with
// probability Rate and the kind is drawn from the Kinds weights.  Identical
// Seed and call sequence produce identical outcomes.
type Config struct {
	Seed     int64
	Rate     float64
	Kinds    map[device.FailureKind]float64
	Schedule map[int]device.FailureKind
}

// Stats reports injection totals for a completed run
type Stats struct {
	Calls    int
	Injected int
	ByKind   map[device.FailureKind]int
}

// Injector implements device.Measurer.  Timeout and ConnectionRefused are
// synthesized without touching the network; MalformedResponse and
// EmptyResponse corrupt the real payload so the gateway's own parser
// produces the failure.
//
// An Injector is owned by a single sampling task and is not safe for
// concurrent use.
type Injector struct {
	gw         gateway
	deviceType string
	cfg        Config
	kinds      []device.FailureKind
	weights    []float64
	rng        *rand.Rand

	calls    int
	injected map[device.FailureKind]int
}

func New(gw *device.Gateway, cfg Config) (*Injector, error) {
	return newInjector(gw, gw.Endpoint().Device.Type(), cfg)
}

func newInjector(gw gateway, deviceType string, cfg Config) (*Injector, error) {
	if cfg.Rate < 0 || cfg.Rate > 1 {
		return nil, fmt.Errorf("fault rate must be within [0,1], got %f", cfg.Rate)
	}
	if cfg.Kinds == nil {
		cfg.Kinds = map[device.FailureKind]float64{
			device.Timeout:           1,
			device.ConnectionRefused: 1,
			device.MalformedResponse: 1,
			device.EmptyResponse:     1,
		}
	}

	// fixed kind order so the weighted draw is reproducible across runs
	kinds := make([]device.FailureKind, 0, len(cfg.Kinds))
	for k := range cfg.Kinds {
		if cfg.Kinds[k] < 0 {
			return nil, fmt.Errorf("fault weight for %s must not be negative", k)
		}
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	total := 0.0
	weights := make([]float64, len(kinds))
	for i, k := range kinds {
		total += cfg.Kinds[k]
		weights[i] = total
	}
	if cfg.Rate > 0 && total == 0 {
		return nil, fmt.Errorf("fault rate is %f but every kind weight is zero", cfg.Rate)
	}
	for i := range weights {
		if total > 0 {
			weights[i] /= total
		}
	}

	return &Injector{
		gw:         gw,
		deviceType: deviceType,
		cfg:        cfg,
		kinds:      kinds,
		weights:    weights,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		injected:   make(map[device.FailureKind]int),
	}, nil
}

// Measure either passes through to the gateway or injects the fault chosen
// for this call index
func (i *Injector) Measure(ctx context.Context) (float64, error) {
	idx := i.calls
	i.calls++

	kind, ok := i.pick(idx)
	if !ok {
		return i.gw.Measure(ctx)
	}
	i.injected[kind]++

	switch kind {
	case device.Timeout:
		return 0, &device.AcquisitionError{Kind: device.Timeout, Device: i.deviceType, Msg: "injected measurement timeout"}
	case device.ConnectionRefused:
		return 0, &device.AcquisitionError{Kind: device.ConnectionRefused, Device: i.deviceType, Msg: "injected connection refused"}
	case device.EmptyResponse:
		return i.gw.MeasureWith(ctx, func([]byte) []byte { return nil })
	case device.MalformedResponse:
		return i.gw.MeasureWith(ctx, func([]byte) []byte { return []byte("CORRUPT_DATA_NOT_A_FLOAT") })
	default:
		return 0, fmt.Errorf("unknown fault kind: %s", kind)
	}
}

// pick decides whether call idx triggers a fault and which kind.  The
// schedule wins over the probabilistic draw and consumes no randomness, so
// scheduled faults do not perturb the sequence of probabilistic ones.
func (i *Injector) pick(idx int) (device.FailureKind, bool) {
	if kind, ok := i.cfg.Schedule[idx]; ok {
		return kind, true
	}
	if i.cfg.Rate == 0 {
		return "", false
	}
	if i.rng.Float64() >= i.cfg.Rate {
		return "", false
	}
	draw := i.rng.Float64()
	for n, limit := range i.weights {
		if draw < limit {
			return i.kinds[n], true
		}
	}
	return i.kinds[len(i.kinds)-1], true
}

// Stats returns injection totals so far
func (i *Injector) Stats() Stats {
	byKind := make(map[device.FailureKind]int, len(i.injected))
	total := 0
	for k, n := range i.injected {
		byKind[k] = n
		total += n
	}
	return Stats{Calls: i.calls, Injected: total, ByKind: byKind}
}
