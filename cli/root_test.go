package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadArgCountPrintsUsage(t *testing.T) {
	for _, n := range []int{0, 1, 3, 5, 7, 8} {
		t.Run(fmt.Sprintf("%d_args", n), func(t *testing.T) {
			args := make([]string, n)
			for i := range args {
				args[i] = fmt.Sprintf("arg%d", i)
			}

			var stdout, stderr bytes.Buffer
			code := ExecuteArgs(context.Background(), "test", args, &stdout, &stderr)
			assert.Equal(t, 1, code)
			assert.Equal(t, usage, stdout.String())
			assert.Empty(t, stderr.String())
		})
	}
}

// closingServer accepts one connection, writes a byte and hangs up. It
// drains probe bytes until the session goes away so the hang up is a clean
// FIN rather than a reset.
func closingServer(t *testing.T) (string, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte{0x02})
		conn.(*net.TCPConn).CloseWrite()
		io.Copy(io.Discard, conn)
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port
}

func TestArgPairsStartSessions(t *testing.T) {
	labels := []string{" >>> ", " <<< ", " --- "}
	for pairs := 1; pairs <= 3; pairs++ {
		t.Run(fmt.Sprintf("%d_pairs", pairs), func(t *testing.T) {
			args := []string{"--color=never", "--keepalive-interval=10ms"}
			for i := 0; i < pairs; i++ {
				host, port := closingServer(t)
				args = append(args, host, port)
			}

			var stdout, stderr bytes.Buffer
			code := ExecuteArgs(context.Background(), "test", args, &stdout, &stderr)

			// every peer hung up, which ends the run with a failure status
			assert.Equal(t, 1, code)
			assert.Empty(t, stdout.String())

			out := stderr.String()
			assert.Equal(t, pairs, strings.Count(out, "Started "))
			for i := 0; i < pairs; i++ {
				assert.Contains(t, out, "Started "+labels[i]+" ...")
				assert.Contains(t, out, labels[i]+"000000: 02 ")
			}
			assert.NotContains(t, out, "\x1b[")
		})
	}
}

func TestColoredDumpsByDefault(t *testing.T) {
	host, port := closingServer(t)

	var stdout, stderr bytes.Buffer
	ExecuteArgs(context.Background(), "test", []string{host, port}, &stdout, &stderr)
	assert.Contains(t, stderr.String(), "\x1b[31m")
	assert.Contains(t, stderr.String(), "\x1b[0m")
}

func TestInvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		flag string
		want string
	}{
		{"color", "--color=sometimes", "invalid color mode"},
		{"buffer", "--buffer-size=0", "buffer size must be positive"},
		{"log_level", "--log-level=loud", "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := ExecuteArgs(context.Background(), "test", []string{tt.flag, "localhost", "1"}, &stdout, &stderr)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr.String(), tt.want)
		})
	}
}

func TestVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := ExecuteArgs(context.Background(), "1.2.3", []string{"--version"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "1.2.3")
}
