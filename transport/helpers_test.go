package transport

import (
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-dlt645/dlt645"
)

const (
	testDevice = "/dev/ttyTEST"
	testMeter  = "1234567890AB"
)

// newTestConfig creates a Config with short timeouts suitable for tests.
func newTestConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()

	defaults := []Option{
		WithReplyTimeout(MinReplyTimeout), // 100ms
	}

	cfg, err := NewConfig(testDevice, append(defaults, opts...)...)
	require.NoError(t, err)

	return cfg
}

// newPipeConn creates a net.Pipe pair and registers cleanup.
func newPipeConn(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()

	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	return local, remote
}

// newTestClient creates an opened Client backed by the local end of
// net.Pipe. The remote end plays the bus.
func newTestClient(t *testing.T, cfg *Config, opts ...ClientOption) (*Client, net.Conn) {
	t.Helper()

	local, remote := newPipeConn(t)

	c, err := NewClient(cfg, append([]ClientOption{WithPort(local)}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, c.Open(t.Context()))
	t.Cleanup(func() { _ = c.Close() })

	return c, remote
}

// readFrame reads one frame from r, skipping wake-up bytes.
func readFrame(r io.Reader) ([]byte, error) {
	b := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
		if b[0] == dlt645.StartByte {
			break
		}
		if b[0] != 0xFE {
			return nil, errors.New("unexpected byte before frame")
		}
	}

	header := make([]byte, dlt645.HeaderLen)
	header[0] = dlt645.StartByte
	if _, err := io.ReadFull(r, header[1:]); err != nil {
		return nil, err
	}

	rest := make([]byte, int(header[dlt645.HeaderLen-1])+dlt645.TrailerLen)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, err
	}

	return append(header, rest...), nil
}

// meterFunc answers the n-th request (counting from 0). Each returned chunk
// is written separately; no chunks means no answer.
type meterFunc func(n int, req *dlt645.ParsedFrame) [][]byte

// startMeter simulates the bus side of conn until conn is closed. Every
// request frame is also sent on the returned channel.
func startMeter(t *testing.T, conn net.Conn, codec *dlt645.Codec, answer meterFunc) <-chan []byte {
	t.Helper()

	requests := make(chan []byte, 16)

	go func() {
		defer close(requests)

		for n := 0; ; n++ {
			raw, err := readFrame(conn)
			if err != nil {
				return
			}
			requests <- raw

			req, err := codec.Parse(raw)
			if err != nil {
				continue
			}

			for _, chunk := range answer(n, req) {
				if _, err := conn.Write(chunk); err != nil {
					return
				}
			}
		}
	}()

	return requests
}

// respond builds a response frame from addr.
func respond(t *testing.T, codec *dlt645.Codec, addr string, control dlt645.ControlCode, payload ...byte) []byte {
	t.Helper()

	frame, err := codec.BuildFrame(addr, control, payload)
	require.NoError(t, err)

	return frame.Bytes()
}
