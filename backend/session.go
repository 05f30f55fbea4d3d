package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Session is the result of one aggregation: the registry visible to a
// principal plus the providers backing it. A session must be closed when the
// caller is done with it.
type Session struct {
	// ID identifies the session in logs.
	ID string

	// Principal is the identity the session was aggregated for.
	Principal Principal

	// Registry holds every tool the principal may call.
	Registry *ToolRegistry

	// Failures lists backends that were visible to the principal but could
	// not be used.
	Failures []Failure

	logger    Logger
	mu        sync.Mutex
	providers []Provider
	closed    bool
}

func newSession(id string, p Principal, logger Logger) *Session {
	return &Session{
		ID:        id,
		Principal: p,
		Registry:  NewToolRegistry(),
		logger:    loggerOrDiscard(logger),
	}
}

func (s *Session) track(p Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers = append(s.providers, p)
}

// Call invokes a tool by id.
func (s *Session) Call(ctx context.Context, id string, args map[string]any) (any, error) {
	return s.Registry.Call(ctx, id, args)
}

// Missing returns the names of backends that failed during aggregation.
func (s *Session) Missing() []string {
	out := make([]string, len(s.Failures))
	for i, f := range s.Failures {
		out[i] = f.Backend
	}
	return out
}

// Handles returns the close handles of every provider the session opened.
func (s *Session) Handles() []io.Closer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]io.Closer, len(s.providers))
	for i, p := range s.providers {
		out[i] = p
	}
	return out
}

// Close closes every provider the session opened. It is safe to call more
// than once; later calls return nil.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	handles := make([]io.Closer, len(s.providers))
	for i, p := range s.providers {
		handles[i] = p
	}
	s.mu.Unlock()

	err := Teardown(handles)
	if err != nil {
		s.logger.Warn("session teardown incomplete", "session", s.ID, "error", err)
	} else {
		s.logger.Debug("session closed", "session", s.ID, "providers", len(handles))
	}
	return err
}

// Teardown closes every handle in reverse order, continuing past failures.
// Nil handles are skipped.
func Teardown(handles []io.Closer) error {
	var errs []error
	for i := len(handles) - 1; i >= 0; i-- {
		h := handles[i]
		if h == nil {
			continue
		}
		if err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close handle %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
