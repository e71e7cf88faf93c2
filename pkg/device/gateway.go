package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"syscall"
	"time"
)

// DefaultTimeout bounds one complete connect-send-read exchange
const DefaultTimeout = 2 * time.Second

// maxResponse bounds the size of a device reply.  Real ammeters answer with
// a short numeric string; anything larger is treated as malformed.
const maxResponse = 1024

// Measurer performs one measurement attempt.  The gateway implements it
// directly; the fault injector wraps it.
type Measurer interface {
	Measure(ctx context.Context) (float64, error)
}

// PayloadFilter transforms the raw response payload before parsing.  Used by
// the fault injector to corrupt otherwise valid responses.
type PayloadFilter func([]byte) []byte

// Gateway is a synchronous client for a single device endpoint.  Every call
// dials a fresh connection, sends the device command, reads one bounded
// response and releases the connection on all exit paths.
type Gateway struct {
	ep      Endpoint
	timeout time.Duration

	dials uint64
}

type GatewayOption func(g *Gateway) error

// WithTimeout overrides the per-call deadline covering connect, write and read
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) error {
		if d <= 0 {
			return fmt.Errorf("gateway timeout must be greater than zero")
		}
		g.timeout = d
		return nil
	}
}

func NewGateway(ep Endpoint, opts ...GatewayOption) (*Gateway, error) {
	if ep.Device == nil {
		return nil, fmt.Errorf("gateway requires a device capability")
	}
	g := &Gateway{ep: ep, timeout: DefaultTimeout}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Endpoint returns the endpoint this gateway is bound to
func (g *Gateway) Endpoint() Endpoint {
	return g.ep
}

// Attempts returns the number of connections attempted over the lifetime of
// the gateway.  Resilience tests use this to prove that synthesized faults
// and validation failures never touch the network.
func (g *Gateway) Attempts() uint64 {
	return atomic.LoadUint64(&g.dials)
}

// Measure performs one command/response exchange and parses the reply
func (g *Gateway) Measure(ctx context.Context) (float64, error) {
	return g.MeasureWith(ctx, nil)
}

// MeasureWith performs one exchange, applying filter to the raw payload
// before it reaches the parser.  A nil filter leaves the payload untouched.
func (g *Gateway) MeasureWith(ctx context.Context, filter PayloadFilter) (float64, error) {
	atomic.AddUint64(&g.dials, 1)

	deadline := time.Now().Add(g.timeout)
	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", g.ep.Addr())
	if err != nil {
		return 0, g.classify(err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return 0, g.classify(err)
	}
	if _, err := conn.Write(g.ep.Device.Command()); err != nil {
		return 0, g.classify(err)
	}
	payload, err := io.ReadAll(io.LimitReader(conn, maxResponse))
	if err != nil {
		return 0, g.classify(err)
	}
	if filter != nil {
		payload = filter(payload)
	}
	return g.ep.Device.Parse(payload)
}

// classify maps transport errors onto the failure taxonomy.  Deadline
// expiry at any stage is a Timeout; a refused or unreachable endpoint is
// ConnectionRefused.
func (g *Gateway) classify(err error) error {
	kind := ConnectionRefused
	var nerr net.Error
	switch {
	case errors.As(err, &nerr) && nerr.Timeout():
		kind = Timeout
	case errors.Is(err, context.DeadlineExceeded):
		kind = Timeout
	case errors.Is(err, syscall.ECONNREFUSED):
		kind = ConnectionRefused
	}
	return &AcquisitionError{Kind: kind, Device: g.ep.Device.Type(), Err: err}
}
