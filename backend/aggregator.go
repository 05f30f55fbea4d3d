package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Default aggregation settings.
const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultMaxConcurrency = 8
)

// Config configures an Aggregator.
type Config struct {
	// Source lists backend descriptors.
	// Required.
	Source Source

	// Factories resolves local descriptors.
	// Default: DefaultFactories().
	Factories *FactoryTable

	// Connector connects remote descriptors.
	// Optional; without it remote descriptors are reported as failures.
	Connector Connector

	// ConnectTimeout bounds each remote connection attempt, including the
	// handshake and tool listing.
	// Default: 30s
	ConnectTimeout time.Duration

	// MaxConcurrency limits how many providers are built at once.
	// Default: 8
	MaxConcurrency int

	// Logger is an optional logger for aggregation events.
	Logger Logger
}

func (c *Config) validate() error {
	if c.Source == nil {
		return fmt.Errorf("%w: Source is required", ErrConfiguration)
	}
	if c.ConnectTimeout < 0 {
		return fmt.Errorf("%w: ConnectTimeout must not be negative", ErrConfiguration)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Factories == nil {
		c.Factories = DefaultFactories()
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	c.Logger = loggerOrDiscard(c.Logger)
}

// Aggregator turns descriptors and a principal into a session-scoped tool
// registry.
type Aggregator struct {
	cfg Config
}

// NewAggregator creates a new aggregator.
func NewAggregator(cfg Config) (*Aggregator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Aggregator{cfg: cfg}, nil
}

// built is the outcome of instantiating one descriptor.
type built struct {
	desc     Descriptor
	provider Provider
	err      error
}

// Aggregate builds the tool registry visible to p.
//
// Per-backend failures (unknown factory, connection errors, listing errors)
// are collected in Session.Failures and do not stop aggregation. Invalid
// descriptor data and duplicate tool ids abort aggregation; in that case every
// provider opened so far is closed and no session is returned.
func (a *Aggregator) Aggregate(ctx context.Context, p Principal) (*Session, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	logger := a.cfg.Logger

	descriptors, err := a.cfg.Source.ListDescriptors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list descriptors: %w", err)
	}

	visible := make([]Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if !d.Enabled {
			continue
		}
		if !IsAllowed(d, p) {
			logger.Debug("backend not authorized", "backend", d.Name, "principal", p.String())
			continue
		}
		visible = append(visible, d)
	}

	results := make([]built, len(visible))
	var g errgroup.Group
	g.SetLimit(a.cfg.MaxConcurrency)
	for i, d := range visible {
		g.Go(func() error {
			provider, err := a.build(ctx, d)
			results[i] = built{desc: d, provider: provider, err: err}
			return nil
		})
	}
	_ = g.Wait()

	session := newSession(uuid.NewString(), p, logger)
	for _, r := range results {
		if r.err != nil {
			session.Failures = append(session.Failures, Failure{Backend: r.desc.Name, Kind: r.desc.Kind, Err: r.err})
			logger.Warn("backend unavailable", "session", session.ID, "backend", r.desc.Name, "error", r.err)
			continue
		}
		session.track(r.provider)
	}

	for _, r := range results {
		if r.err != nil {
			continue
		}
		tools, err := r.provider.Tools()
		if err != nil {
			session.Failures = append(session.Failures, Failure{Backend: r.desc.Name, Kind: r.desc.Kind, Err: err})
			logger.Warn("backend tools unavailable", "session", session.ID, "backend", r.desc.Name, "error", err)
			continue
		}
		for _, tool := range tools {
			if err := session.Registry.Register(tool); err != nil {
				var dup *DuplicateToolError
				if errors.As(err, &dup) {
					closeErr := session.Close()
					logger.Error("duplicate tool id", "session", session.ID, "tool", dup.ID,
						"first", dup.First, "second", dup.Second)
					if closeErr != nil {
						return nil, errors.Join(dup, closeErr)
					}
					return nil, dup
				}
				logger.Warn("tool skipped", "session", session.ID, "backend", r.desc.Name, "tool", tool.ID, "error", err)
			}
		}
	}

	logger.Info("aggregation complete",
		"session", session.ID,
		"principal", p.String(),
		"backends", len(visible)-len(session.Failures),
		"failed", len(session.Failures),
		"tools", session.Registry.Len(),
	)
	return session, nil
}

func (a *Aggregator) build(ctx context.Context, d Descriptor) (Provider, error) {
	switch d.Kind {
	case KindLocalMock:
		return a.cfg.Factories.Build(d)
	case KindRemote:
		if a.cfg.Connector == nil {
			return nil, &ConnectionError{Backend: d.Name, Transport: d.Transport, Err: ErrNoConnector}
		}
		ctx, cancel := context.WithTimeout(ctx, a.cfg.ConnectTimeout)
		defer cancel()
		return a.cfg.Connector.Connect(ctx, d)
	default:
		return nil, &ConfigError{Backend: d.Name, Field: "kind", Message: "unknown kind " + string(d.Kind)}
	}
}
