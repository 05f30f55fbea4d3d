package source

import (
	"context"
	"sync"

	"github.com/jonwraymond/toolgate/backend"
)

// Static serves a fixed descriptor list. Set replaces it.
type Static struct {
	mu    sync.RWMutex
	descs []backend.Descriptor
}

var _ backend.Source = (*Static)(nil)

// NewStatic creates a static source holding copies of descs.
func NewStatic(descs ...backend.Descriptor) *Static {
	s := &Static{}
	s.Set(descs...)
	return s
}

// Set replaces the descriptor list.
func (s *Static) Set(descs ...backend.Descriptor) {
	cloned := cloneAll(descs)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.descs = cloned
}

// ListDescriptors returns copies of the current descriptors.
func (s *Static) ListDescriptors(ctx context.Context) ([]backend.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.descs), nil
}

func cloneAll(descs []backend.Descriptor) []backend.Descriptor {
	out := make([]backend.Descriptor, len(descs))
	for i, d := range descs {
		out[i] = d.Clone()
	}
	return out
}
