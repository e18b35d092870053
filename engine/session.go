package engine

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/samaelod/spy/types"
)

// ErrPeerClosed ends a session whose remote side closed the connection.
var ErrPeerClosed = errors.New("peer closed connection")

// probe is written before every read on keep-alive endpoints. It only
// produces traffic when the far side is wired as a loopback.
var probe = []byte{'*'}

// Defaults used when SessionOptions leaves a field at zero.
const (
	DefaultBufferSize        = 10000
	DefaultKeepAliveInterval = time.Second
)

type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

type SessionOptions struct {
	BufferSize        int
	KeepAliveInterval time.Duration
	Logger            *log.Logger

	// Dial and Now are replaced in tests.
	Dial DialFunc
	Now  func() time.Time
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.KeepAliveInterval <= 0 {
		o.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if o.Logger == nil {
		o.Logger = log.StandardLogger()
	}
	if o.Dial == nil {
		o.Dial = (&net.Dialer{}).DialContext
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Stats counts what a session has seen so far.
type Stats struct {
	Reads    int
	Bytes    uint64
	Probes   int
	LastRead time.Time
}

// Session owns one connection and dumps everything read from it.
//
// There is no retry: a failed connect, a failed read or write, or the peer
// closing the connection ends the session for good. A keep-alive session
// does a plain blocking read after its probe; a silent peer blocks it just
// like a listening session.
type Session struct {
	ep       types.Endpoint
	renderer *Renderer
	opts     SessionOptions
	log      *log.Entry

	mu     sync.Mutex
	status types.SessionStatus
	stats  Stats
	err    error
}

func NewSession(ep types.Endpoint, r *Renderer, opts SessionOptions) *Session {
	opts = opts.withDefaults()
	return &Session{
		ep:       ep,
		renderer: r,
		opts:     opts,
		log: opts.Logger.WithFields(log.Fields{
			"endpoint": ep.Address(),
			"label":    ep.Label,
		}),
	}
}

func (s *Session) Endpoint() types.Endpoint {
	return s.ep
}

// Run connects and loops until the connection fails, the peer closes it or
// ctx is cancelled. It never returns nil.
func (s *Session) Run(ctx context.Context) error {
	s.setStatus(types.StatusRunning)
	err := s.run(ctx)
	s.finish(ctx, err)
	return err
}

func (s *Session) run(ctx context.Context) error {
	addr := s.ep.Address()
	conn, err := s.opts.Dial(ctx, "tcp", addr)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrapf(err, "connect %s", addr)
	}
	defer conn.Close()

	// Reads and writes have no deadline; closing the connection is the only
	// way to unblock them.
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	if err := s.renderer.Notice("Started %s ...", s.ep.Label); err != nil {
		s.log.WithError(err).Debug("start banner not written")
	}

	buf := make([]byte, s.opts.BufferSize)
	for {
		if s.ep.KeepAlive {
			if _, err := conn.Write(probe); err != nil {
				return s.connErr(ctx, err, "probe %s", addr)
			}
			s.mu.Lock()
			s.stats.Probes++
			s.mu.Unlock()
		}

		n, err := conn.Read(buf)
		now := s.opts.Now()
		if n > 0 {
			s.mu.Lock()
			s.stats.Reads++
			s.stats.Bytes += uint64(n)
			s.stats.LastRead = now
			s.mu.Unlock()

			// Render copies the bytes into its own buffer before returning,
			// so buf is free for the next read.
			rerr := s.renderer.Render(types.Chunk{
				Data:  buf[:n],
				Time:  now,
				Label: s.ep.Label,
				Color: s.ep.Color,
			})
			if rerr != nil {
				s.log.WithError(rerr).Debug("dump not written")
			}
		}
		if err != nil {
			return s.connErr(ctx, err, "read %s", addr)
		}
		if n == 0 {
			return ErrPeerClosed
		}

		if s.ep.KeepAlive {
			t := time.NewTimer(s.opts.KeepAliveInterval)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
}

func (s *Session) connErr(ctx context.Context, err error, format string, args ...any) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, io.EOF) {
		return ErrPeerClosed
	}
	return errors.Wrapf(err, format, args...)
}

func (s *Session) finish(ctx context.Context, err error) {
	s.mu.Lock()
	s.err = err
	switch {
	case errors.Is(err, ErrPeerClosed), ctx.Err() != nil:
		s.status = types.StatusClosed
	default:
		s.status = types.StatusError
	}
	st := s.stats
	s.mu.Unlock()

	entry := s.log.WithFields(log.Fields{
		"reads": st.Reads,
		"bytes": humanize.Bytes(st.Bytes),
	})
	if st.Probes > 0 {
		entry = entry.WithField("probes", st.Probes)
	}
	if errors.Is(err, ErrPeerClosed) || ctx.Err() != nil {
		entry.WithError(err).Info("session ended")
		return
	}
	entry.WithError(err).Warn("session failed")
}

func (s *Session) setStatus(st types.SessionStatus) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func (s *Session) Status() types.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Err returns the error that ended the session, nil while it still runs.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
