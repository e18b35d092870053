package engine

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/samaelod/spy/types"
)

// scriptedConn returns one scripted chunk per Read, then readErr.
type scriptedConn struct {
	mu      sync.Mutex
	chunks  [][]byte
	readErr error
	written []byte
	closed  bool
}

func (c *scriptedConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.chunks) == 0 {
		if c.readErr == nil {
			return 0, io.EOF
		}
		return 0, c.readErr
	}
	n := copy(p, c.chunks[0])
	c.chunks = c.chunks[1:]
	return n, nil
}

func (c *scriptedConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, p...)
	return len(p), nil
}

func (c *scriptedConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *scriptedConn) LocalAddr() net.Addr                { return &net.TCPAddr{} }
func (c *scriptedConn) RemoteAddr() net.Addr               { return &net.TCPAddr{} }
func (c *scriptedConn) SetDeadline(t time.Time) error      { return nil }
func (c *scriptedConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *scriptedConn) SetWriteDeadline(t time.Time) error { return nil }

// dialScripted serves conns by address.
func dialScripted(conns map[string]*scriptedConn) DialFunc {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		c, ok := conns[address]
		if !ok {
			return nil, &net.OpError{Op: "dial", Net: network, Err: io.ErrUnexpectedEOF}
		}
		return c, nil
	}
}

// listen opens a loopback listener and returns an endpoint pointing at it.
func listen(t *testing.T, ep types.Endpoint) (net.Listener, types.Endpoint) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	ep.Host = host
	ep.Port = port
	return ln, ep
}
