package engine

import (
	"context"
	stderrors "errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/samaelod/spy/types"
)

// Engine runs one Session per configured endpoint and waits for all of them.
type Engine struct {
	Renderer *Renderer
	sessions []*Session
}

// New builds a session for each endpoint. Endpoints are copied into their
// sessions and never touched again.
func New(eps []types.Endpoint, r *Renderer, opts SessionOptions) *Engine {
	e := &Engine{Renderer: r}
	for _, ep := range eps {
		e.sessions = append(e.sessions, NewSession(ep, r, opts))
	}
	return e
}

func (e *Engine) Sessions() []*Session {
	return e.sessions
}

// Run starts every session and blocks until all have ended. The first
// session runs on the calling goroutine. One session failing does not stop
// the others. The returned error joins every session error except
// cancellation; with a context that is never cancelled Run only returns once
// every connection is gone.
func (e *Engine) Run(ctx context.Context) error {
	if len(e.sessions) == 0 {
		return nil
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	collect := func(err error) {
		if err == nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return
		}
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	// Callbacks return nil: Wait only reports the first error, and every
	// session's outcome is wanted, so errors are gathered by collect.
	for _, s := range e.sessions[1:] {
		s := s
		g.Go(func() error {
			collect(s.Run(ctx))
			return nil
		})
	}
	collect(e.sessions[0].Run(ctx))
	_ = g.Wait()

	return stderrors.Join(errs...)
}
