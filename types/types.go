package types

import (
	"net"
	"time"
)

// Labels and terminal colors for the three endpoint positions.
const (
	LabelRX    = " >>> "
	LabelTX    = " <<< "
	LabelProbe = " --- "

	ColorRed   = 31
	ColorGreen = 32
	ColorCyan  = 36
)

// MaxEndpoints is the number of (host, port) pairs the tool accepts.
const MaxEndpoints = 3

// Endpoint describes one TCP destination to observe. It is never mutated
// after construction.
type Endpoint struct {
	Host      string
	Port      string
	Label     string // fixed width marker, e.g. " >>> "
	Color     int    // ANSI SGR code, 0 = none
	KeepAlive bool   // write a probe byte before every read
}

// Address returns host:port in dialable form.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, e.Port)
}

// Chunk is the result of one read on an endpoint.
type Chunk struct {
	Data  []byte
	Time  time.Time
	Label string
	Color int
}

type SessionStatus int

const (
	StatusIdle SessionStatus = iota
	StatusRunning
	StatusClosed
	StatusError
)

func (s SessionStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusClosed:
		return "closed"
	case StatusError:
		return "error"
	}
	return "unknown"
}
