// Package gateway serves an aggregated session as a single MCP server, so an
// MCP host sees every tool the principal may use under one connection.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolgate/backend"
)

// ErrToolCallLimitExceeded is returned when MaxToolCalls is exceeded.
var ErrToolCallLimitExceeded = errors.New("tool call limit exceeded")

// SearchToolName is the name of the optional tool-search tool. It contains no
// dot, so it never collides with a backend tool id.
const SearchToolName = "search_tools"

// Options configures a gateway.
type Options struct {
	// Name and Version identify the server during the handshake.
	// Defaults: "toolgate", "dev".
	Name    string
	Version string

	// MaxToolCalls limits the total number of tool invocations.
	// Zero means unlimited.
	MaxToolCalls int

	// SearchTool exposes SearchToolName, a BM25 search over the session's
	// tools.
	SearchTool bool

	// Logger is an optional logger for call events.
	Logger backend.Logger
}

// Gateway exposes one session's registry as MCP tools.
type Gateway struct {
	session *backend.Session
	opts    Options
	logger  backend.Logger
	server  *mcp.Server

	mu        sync.Mutex
	callCount int
}

// New builds a gateway for session. The session stays owned by the caller.
func New(session *backend.Session, opts Options) *Gateway {
	if opts.Name == "" {
		opts.Name = "toolgate"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	logger := opts.Logger
	if logger == nil {
		logger = backend.DiscardLogger()
	}

	g := &Gateway{session: session, opts: opts, logger: logger}
	g.server = mcp.NewServer(
		&mcp.Implementation{Name: opts.Name, Version: opts.Version},
		&mcp.ServerOptions{Instructions: instructions(session)},
	)
	for _, tool := range session.Registry.List() {
		g.addTool(tool)
	}
	if opts.SearchTool {
		g.addSearchTool()
	}
	return g
}

// NewServer builds the MCP server for session.
func NewServer(session *backend.Session, opts Options) *mcp.Server {
	return New(session, opts).Server()
}

// Serve runs the MCP server for session over transport until the client
// disconnects or ctx is done.
func Serve(ctx context.Context, session *backend.Session, transport mcp.Transport, opts Options) error {
	return New(session, opts).Serve(ctx, transport)
}

// Server returns the underlying MCP server.
func (g *Gateway) Server() *mcp.Server { return g.server }

// Serve runs the server over transport.
func (g *Gateway) Serve(ctx context.Context, transport mcp.Transport) error {
	g.logger.Info("gateway serving",
		"session", g.session.ID,
		"principal", g.session.Principal.String(),
		"tools", g.session.Registry.Len(),
	)
	return g.server.Run(ctx, transport)
}

// CallCount returns the number of tool calls admitted so far.
func (g *Gateway) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.callCount
}

func instructions(session *backend.Session) string {
	var b strings.Builder
	b.WriteString("Tools are named <backend>.<tool>.")
	if missing := session.Missing(); len(missing) > 0 {
		fmt.Fprintf(&b, " Unavailable backends: %s.", strings.Join(missing, ", "))
	}
	return b.String()
}

func (g *Gateway) addTool(tool backend.RegisteredTool) {
	g.server.AddTool(&mcp.Tool{
		Name:        tool.ID,
		Title:       tool.Schema.Title,
		Description: tool.Schema.Description,
		InputSchema: objectSchema(tool.Schema.InputSchema),
		Annotations: tool.Schema.Annotations,
	}, g.handler(tool.ID))
}

// objectSchema returns schema with a "type": "object" root, which MCP
// requires of input schemas.
func objectSchema(schema any) any {
	m, ok := schema.(map[string]any)
	if schema == nil || (ok && len(m) == 0) {
		return backend.PermissiveSchema()
	}
	if !ok {
		return schema
	}
	if _, has := m["type"]; has {
		return m
	}
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out["type"] = "object"
	return out
}

func (g *Gateway) admit() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.opts.MaxToolCalls > 0 && g.callCount >= g.opts.MaxToolCalls {
		return fmt.Errorf("%w: max %d calls exceeded", ErrToolCallLimitExceeded, g.opts.MaxToolCalls)
	}
	g.callCount++
	return nil
}

// handler routes an MCP call into the session. Tool failures are reported as
// error results so the host's model can see them.
func (g *Gateway) handler(id string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]any{}
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(fmt.Sprintf("invalid arguments for %s: %v", id, err)), nil
			}
		}
		if err := g.admit(); err != nil {
			return errorResult(err.Error()), nil
		}

		result, err := g.session.Call(ctx, id, args)
		if err != nil {
			g.logger.Warn("tool call failed", "session", g.session.ID, "tool", id, "error", err)
			return errorResult(err.Error()), nil
		}
		g.logger.Debug("tool call", "session", g.session.ID, "tool", id)
		return successResult(result)
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// successResult reports v as JSON text plus structured content. Values that
// are not JSON objects are wrapped as {"result": v}.
func successResult(v any) (*mcp.CallToolResult, error) {
	structured, err := asObject(v)
	if err != nil {
		return errorResult(fmt.Sprintf("encode result: %v", err)), nil
	}
	text, err := json.Marshal(structured)
	if err != nil {
		return errorResult(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(text)}},
		StructuredContent: structured,
	}, nil
}

func asObject(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err == nil && m != nil {
		return m, nil
	}
	return map[string]any{"result": v}, nil
}

type searchInput struct {
	Query string `json:"query" jsonschema:"words to match against tool names, descriptions, and tags"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

type searchHit struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}

type searchOutput struct {
	Tools []searchHit `json:"tools"`
}

func (g *Gateway) addSearchTool() {
	mcp.AddTool(g.server, &mcp.Tool{
		Name:        SearchToolName,
		Description: "Search the available tools by keyword.",
	}, func(_ context.Context, _ *mcp.CallToolRequest, in searchInput) (*mcp.CallToolResult, searchOutput, error) {
		found, err := g.session.Registry.Search(in.Query, in.Limit)
		if err != nil {
			return nil, searchOutput{}, err
		}
		out := searchOutput{Tools: make([]searchHit, 0, len(found))}
		for _, t := range found {
			out.Tools = append(out.Tools, searchHit{ID: t.ID, Description: t.Schema.Description})
		}
		return nil, out, nil
	})
}
