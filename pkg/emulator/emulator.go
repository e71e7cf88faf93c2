// Package emulator serves the device side of the ammeter wire protocol for
// development and integration testing.  Each emulator listens on TCP,
// answers its device's exact command string with a generated reading, and
// ignores anything else.
package emulator

import (
	"bytes"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ammeterqa/ammqa/pkg/device"
)

// Model produces one current reading in amperes
type Model func() float64

// Emulator is a single-device TCP server.  One client request is handled
// per connection, mirroring how the physical meters behave.
type Emulator struct {
	dev   device.Device
	model Model
	log   *zap.Logger

	mu     sync.Mutex
	ln     net.Listener
	closed bool
	wg     sync.WaitGroup
}

type EmulatorOption func(e *Emulator) error

// WithModel overrides the device's default value model
func WithModel(m Model) EmulatorOption {
	return func(e *Emulator) error {
		if m == nil {
			return fmt.Errorf("emulator model must not be nil")
		}
		e.model = m
		return nil
	}
}

// WithSeed makes the default value model reproducible
func WithSeed(seed int64) EmulatorOption {
	return func(e *Emulator) error {
		e.model = defaultModel(e.dev, rand.New(rand.NewSource(seed)))
		return nil
	}
}

// WithEmulatorLogger attaches a structured logger
func WithEmulatorLogger(log *zap.Logger) EmulatorOption {
	return func(e *Emulator) error {
		e.log = log
		return nil
	}
}

func New(dev device.Device, opts ...EmulatorOption) (*Emulator, error) {
	if dev == nil {
		return nil, fmt.Errorf("emulator requires a device capability")
	}
	e := &Emulator{
		dev:   dev,
		model: defaultModel(dev, rand.New(rand.NewSource(time.Now().UnixNano()))),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// defaultModel reproduces the physical characteristics of each meter:
// greenlee applies ohm's law to a random voltage and resistance, entes
// multiplies magnetic field strength by a calibration factor, and circutor
// integrates sampled voltages over a random time step.
func defaultModel(dev device.Device, r *rand.Rand) Model {
	switch dev.Type() {
	case "entes":
		field := NewUniformRNG(0.01, 0.1, r)
		calibration := NewUniformRNG(500, 2000, r)
		return func() float64 { return field.Rand() * calibration.Rand() }
	case "circutor":
		step := NewUniformRNG(0.001, 0.01, r)
		voltage := NewUniformRNG(0.1, 1.0, r)
		return func() float64 {
			dt := step.Rand()
			sum := 0.0
			for i := 0; i < 10; i++ {
				sum += voltage.Rand() * dt
			}
			return sum
		}
	default:
		voltage := NewUniformRNG(1.0, 10.0, r)
		resistance := NewUniformRNG(0.1, 100.0, r)
		return func() float64 { return voltage.Rand() / resistance.Rand() }
	}
}

// Start binds the listener and begins serving.  Use addr ":0" to let the
// kernel pick a free port, then read it back with Port.
func (e *Emulator) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("emulator for %s could not listen on %s: %v", e.dev.Type(), addr, err)
	}
	e.mu.Lock()
	e.ln = ln
	e.mu.Unlock()

	e.log.Info("emulator running",
		zap.String("device", e.dev.Type()),
		zap.String("addr", ln.Addr().String()))

	e.wg.Add(1)
	go e.serve(ln)
	return nil
}

// Port returns the bound port, 0 before Start
func (e *Emulator) Port() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ln == nil {
		return 0
	}
	return e.ln.Addr().(*net.TCPAddr).Port
}

func (e *Emulator) serve(ln net.Listener) {
	defer e.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			e.mu.Lock()
			closed := e.closed
			e.mu.Unlock()
			if closed {
				return
			}
			e.log.Debug("accept failed", zap.Error(err))
			continue
		}
		e.wg.Add(1)
		go e.handle(conn)
	}
}

func (e *Emulator) handle(conn net.Conn) {
	defer e.wg.Done()
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		return
	}
	if !bytes.Equal(buf[:n], e.dev.Command()) {
		// unknown command, hang up without a response
		return
	}

	e.mu.Lock()
	reading := e.model()
	e.mu.Unlock()

	_, _ = conn.Write([]byte(strconv.FormatFloat(reading, 'f', -1, 64)))
}

// Close stops the listener and waits for in-flight connections to finish
func (e *Emulator) Close() error {
	e.mu.Lock()
	e.closed = true
	ln := e.ln
	e.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	e.wg.Wait()
	return err
}
