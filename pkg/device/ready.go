package device

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff"
)

// WaitReady blocks until the endpoint accepts a TCP connection or maxWait
// elapses.  Emulators take a moment to bind their listeners, so the bench
// probes with exponential backoff rather than sleeping a fixed interval.
func WaitReady(ctx context.Context, addr string, maxWait time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = maxWait

	op := func() error {
		conn, err := net.DialTimeout("tcp", addr, b.InitialInterval)
		if err != nil {
			return err
		}
		return conn.Close()
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("device at %s not ready after %s: %v", addr, maxWait, err)
	}
	return nil
}
