// Package remote provides a backend that proxies tools from an MCP server
// reached over stdio, SSE, or streamable HTTP.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jonwraymond/toolfoundation/model"
	"github.com/jonwraymond/toolgate/backend"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrToolFailed indicates the remote server reported a tool error result.
var ErrToolFailed = errors.New("remote tool reported an error")

// State is the connection state of a Provider.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Provider is a backend.Provider backed by an MCP client session.
//
// Tools are available only after Connect has completed the handshake and the
// initial listing. Handlers may be called concurrently; the session
// multiplexes requests.
type Provider struct {
	desc   backend.Descriptor
	opts   options
	logger backend.Logger

	mu      sync.Mutex
	state   State
	session *mcp.ClientSession
	tools   []backend.RegisteredTool
}

var _ backend.Provider = (*Provider)(nil)

// New creates a disconnected provider for a remote descriptor.
func New(d backend.Descriptor, opts ...Option) (*Provider, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.Kind != backend.KindRemote {
		return nil, &backend.ConfigError{Backend: d.Name, Field: "kind", Message: "must be remote"}
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	logger := o.logger
	if logger == nil {
		logger = backend.DiscardLogger()
	}
	return &Provider{desc: d.Clone(), opts: o, logger: logger}, nil
}

// Name returns the backend id.
func (p *Provider) Name() string { return p.desc.Name }

// Kind returns backend.KindRemote.
func (p *Provider) Kind() backend.Kind { return backend.KindRemote }

// Transport returns the descriptor transport.
func (p *Provider) Transport() backend.Transport { return p.desc.Transport }

// State returns the current connection state.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Connect opens the transport, performs the handshake, and lists tools.
// It is valid only once, from StateDisconnected. On failure the provider
// moves to StateFailed, nothing is left running, and the error is a
// *backend.ConnectionError.
func (p *Provider) Connect(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateDisconnected {
		state := p.state
		p.mu.Unlock()
		return fmt.Errorf("%w: connect from %s", backend.ErrInvalidState, state)
	}
	p.state = StateConnecting
	p.mu.Unlock()

	if p.opts.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.connectTimeout)
		defer cancel()
	}

	transport, err := newTransport(p.desc, p.opts)
	if err != nil {
		return p.fail(backend.StageTransport, err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: p.opts.clientName, Version: p.opts.clientVersion}, nil)
	session, err := client.Connect(ctx, detachedTransport{inner: transport}, nil)
	if err != nil {
		return p.fail(backend.StageHandshake, err)
	}

	listed, err := listTools(ctx, session)
	if err != nil {
		_ = session.Close()
		return p.fail(backend.StageListTools, err)
	}

	tools := make([]backend.RegisteredTool, 0, len(listed))
	for _, t := range listed {
		tools = append(tools, p.wrap(t))
	}

	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		_ = session.Close()
		return &backend.ConnectionError{Backend: p.desc.Name, Transport: p.desc.Transport, Stage: backend.StageListTools, Err: backend.ErrProviderClosed}
	}
	p.state = StateConnected
	p.session = session
	p.tools = tools
	p.mu.Unlock()

	p.logger.Info("backend connected",
		"backend", p.desc.Name,
		"transport", string(p.desc.Transport),
		"tools", len(tools),
	)
	return nil
}

func (p *Provider) fail(stage string, err error) error {
	p.mu.Lock()
	if p.state == StateConnecting {
		p.state = StateFailed
	}
	p.mu.Unlock()

	p.logger.Warn("backend connection failed",
		"backend", p.desc.Name,
		"transport", string(p.desc.Transport),
		"stage", stage,
		"error", err,
	)
	return &backend.ConnectionError{Backend: p.desc.Name, Transport: p.desc.Transport, Stage: stage, Err: err}
}

func listTools(ctx context.Context, session *mcp.ClientSession) ([]*mcp.Tool, error) {
	var tools []*mcp.Tool
	cursor := ""
	for {
		var params *mcp.ListToolsParams
		if cursor != "" {
			params = &mcp.ListToolsParams{Cursor: cursor}
		}
		res, err := session.ListTools(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, t := range res.Tools {
			if t != nil && t.Name != "" {
				tools = append(tools, t)
			}
		}
		if res.NextCursor == "" {
			return tools, nil
		}
		cursor = res.NextCursor
	}
}

// Tools returns the tools listed at connect time.
func (p *Provider) Tools() ([]backend.RegisteredTool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case StateConnected:
		return append([]backend.RegisteredTool(nil), p.tools...), nil
	case StateClosed:
		return nil, backend.ErrProviderClosed
	default:
		return nil, backend.ErrNotConnected
	}
}

// Capabilities returns the capabilities the server announced during the
// handshake, or nil before Connect.
func (p *Provider) Capabilities() *mcp.ServerCapabilities {
	if res := p.initializeResult(); res != nil {
		return res.Capabilities
	}
	return nil
}

// ServerInfo returns the server implementation, or nil before Connect.
func (p *Provider) ServerInfo() *mcp.Implementation {
	if res := p.initializeResult(); res != nil {
		return res.ServerInfo
	}
	return nil
}

func (p *Provider) initializeResult() *mcp.InitializeResult {
	p.mu.Lock()
	session := p.session
	p.mu.Unlock()
	if session == nil {
		return nil
	}
	return session.InitializeResult()
}

// Close releases the session. For stdio this closes the child's stdin and
// signals it if it does not exit in time. Close is idempotent.
func (p *Provider) Close() error {
	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return nil
	}
	p.state = StateClosed
	session := p.session
	p.session = nil
	p.mu.Unlock()

	if session == nil {
		return nil
	}
	err := session.Close()
	if p.desc.Transport == backend.TransportStdio && terminatedOnClose(err) {
		p.logger.Debug("backend child terminated on close", "backend", p.desc.Name, "error", err)
		err = nil
	}
	p.logger.Debug("backend closed", "backend", p.desc.Name, "error", err)
	if err != nil {
		return fmt.Errorf("close %s: %w", p.desc.Name, err)
	}
	return nil
}

func (p *Provider) activeSession() (*mcp.ClientSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case StateConnected:
		return p.session, nil
	case StateClosed:
		return nil, backend.ErrProviderClosed
	default:
		return nil, backend.ErrNotConnected
	}
}

func (p *Provider) wrap(t *mcp.Tool) backend.RegisteredTool {
	schema := model.Tool{Tool: *t}
	if schema.InputSchema == nil {
		schema.InputSchema = backend.PermissiveSchema()
	}
	rt := backend.NewRegisteredTool(p.desc.Name, schema, nil)
	rt.Handler = p.handler(rt.ID, t.Name)
	return rt
}

func (p *Provider) handler(id, name string) backend.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		session, err := p.activeSession()
		if err != nil {
			return nil, &backend.CallError{ToolID: id, Err: err}
		}
		res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
		if err != nil {
			if p.State() == StateClosed {
				err = fmt.Errorf("%w: %v", backend.ErrProviderClosed, err)
			}
			return nil, &backend.CallError{ToolID: id, Err: err}
		}
		out, err := decodeResult(res)
		if err != nil {
			return nil, &backend.CallError{ToolID: id, Err: err}
		}
		return out, nil
	}
}

// decodeResult converts a tool result to a JSON-like value: structured
// content when present, otherwise the content blocks.
func decodeResult(res *mcp.CallToolResult) (any, error) {
	if res == nil {
		return nil, nil
	}
	if res.IsError {
		msg := strings.Join(texts(res.Content), "\n")
		if msg == "" {
			return nil, ErrToolFailed
		}
		return nil, fmt.Errorf("%w: %s", ErrToolFailed, msg)
	}
	if res.StructuredContent != nil {
		return res.StructuredContent, nil
	}

	switch len(res.Content) {
	case 0:
		return nil, nil
	case 1:
		if tc, ok := res.Content[0].(*mcp.TextContent); ok {
			return tc.Text, nil
		}
	}

	items := make([]any, 0, len(res.Content))
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			items = append(items, tc.Text)
			continue
		}
		v, err := contentValue(c)
		if err != nil {
			return nil, fmt.Errorf("decode content: %w", err)
		}
		items = append(items, v)
	}
	return map[string]any{"content": items}, nil
}

func texts(content []mcp.Content) []string {
	var out []string
	for _, c := range content {
		if tc, ok := c.(*mcp.TextContent); ok && tc.Text != "" {
			out = append(out, tc.Text)
		}
	}
	return out
}

func contentValue(c mcp.Content) (any, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
