package remote

import (
	"context"

	"github.com/jonwraymond/toolgate/backend"
)

// Connector creates and connects remote providers with shared options.
type Connector struct {
	opts []Option
}

var _ backend.Connector = (*Connector)(nil)

// NewConnector creates a connector that applies opts to every provider.
func NewConnector(opts ...Option) *Connector {
	return &Connector{opts: opts}
}

// Connect builds a provider for d and connects it.
func (c *Connector) Connect(ctx context.Context, d backend.Descriptor) (backend.Provider, error) {
	p, err := New(d, c.opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Connect(ctx); err != nil {
		return nil, err
	}
	return p, nil
}
