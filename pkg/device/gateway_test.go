package device

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServer answers one connection at a time with the payload returned by
// respond.  A nil respond leaves the client hanging until its deadline.
func testServer(t *testing.T, respond func(command []byte) []byte) Endpoint {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				buf := make([]byte, 1024)
				n, err := conn.Read(buf)
				if err != nil {
					return
				}
				if respond == nil {
					// stall until the client gives up
					time.Sleep(2 * time.Second)
					return
				}
				_, _ = conn.Write(respond(buf[:n]))
			}(conn)
		}
	}()

	return Endpoint{
		Device: Greenlee{},
		Host:   "127.0.0.1",
		Port:   ln.Addr().(*net.TCPAddr).Port,
	}
}

func TestGatewayMeasure(t *testing.T) {
	ep := testServer(t, func(command []byte) []byte {
		assert.Equal(t, Greenlee{}.Command(), command)
		return []byte("3.14")
	})
	gw, err := NewGateway(ep)
	require.NoError(t, err)

	v, err := gw.Measure(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 3.14, v)
	assert.Equal(t, uint64(1), gw.Attempts())
}

func TestGatewayFailureKinds(t *testing.T) {
	tt := []struct {
		name    string
		respond func([]byte) []byte
		kind    FailureKind
	}{
		{name: "empty response", respond: func([]byte) []byte { return nil }, kind: EmptyResponse},
		{name: "malformed response", respond: func([]byte) []byte { return []byte("not-a-number") }, kind: MalformedResponse},
		{name: "stalled device", respond: nil, kind: Timeout},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			ep := testServer(t, tc.respond)
			gw, err := NewGateway(ep, WithTimeout(200*time.Millisecond))
			require.NoError(t, err)

			_, err = gw.Measure(context.Background())
			kind, ok := KindOf(err)
			assert.True(t, ok, "expected an acquisition error, got %v", err)
			assert.Equal(t, tc.kind, kind)
		})
	}
}

func TestGatewayConnectionRefused(t *testing.T) {
	// grab a port and close the listener so nothing is bound to it
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	gw, err := NewGateway(Endpoint{Device: Entes{}, Host: "127.0.0.1", Port: port}, WithTimeout(500*time.Millisecond))
	require.NoError(t, err)

	_, err = gw.Measure(context.Background())
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, ConnectionRefused, kind)
	assert.Equal(t, uint64(1), gw.Attempts())
}

func TestGatewayOptions(t *testing.T) {
	_, err := NewGateway(Endpoint{Host: "localhost", Port: 5000})
	assert.Error(t, err)

	_, err = NewGateway(Endpoint{Device: Greenlee{}, Host: "localhost", Port: 5000}, WithTimeout(0))
	assert.Error(t, err)
}

func TestWaitReady(t *testing.T) {
	ep := testServer(t, func([]byte) []byte { return []byte("1.0") })
	assert.NoError(t, WaitReady(context.Background(), ep.Addr(), time.Second))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	assert.Error(t, WaitReady(context.Background(), addr, 300*time.Millisecond))
}
