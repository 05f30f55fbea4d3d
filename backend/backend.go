package backend

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/jonwraymond/toolfoundation/model"
)

// Common errors for backend operations.
var (
	ErrToolNotFound     = errors.New("tool not found")
	ErrProviderClosed   = errors.New("provider closed")
	ErrNotConnected     = errors.New("provider not connected")
	ErrInvalidState     = errors.New("invalid provider state")
	ErrNoConnector      = errors.New("no connector configured for remote backends")
	ErrInvalidPrincipal = errors.New("invalid principal")
)

// Kind identifies how a backend is provided.
type Kind string

const (
	// KindLocalMock is an in-process provider built by a registered factory.
	KindLocalMock Kind = "local_mock"

	// KindRemote is an out-of-process MCP server.
	KindRemote Kind = "remote"
)

// Transport identifies the wire protocol used to reach a remote backend.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportSSE   Transport = "sse"
	TransportHTTP  Transport = "http"
)

// Principal is the caller identity a session is aggregated for.
type Principal struct {
	UserID string
	Role   string
}

// Validate checks that the principal carries a user id.
func (p Principal) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return ErrInvalidPrincipal
	}
	return nil
}

// String returns "user(role)" for logging.
func (p Principal) String() string {
	if p.Role == "" {
		return p.UserID
	}
	return p.UserID + "(" + p.Role + ")"
}

// Descriptor declares one backend: where it lives, how to reach it, and who
// may use it. Descriptors are snapshots; sources hand out fresh copies.
type Descriptor struct {
	Name        string
	Description string
	Kind        Kind
	Enabled     bool

	// Factory is the factory table key for local backends.
	// Defaults to Name when empty.
	Factory string

	// Remote connection parameters.
	Transport Transport
	Command   string
	Args      []string
	Env       map[string]string
	Dir       string
	ServerURL string
	Headers   map[string]string

	// Authorization. Empty sets are unrestricted.
	RequiredRoles []string
	AllowedUsers  []string
}

// FactoryKey returns the factory table key for a local descriptor.
func (d Descriptor) FactoryKey() string {
	if d.Factory != "" {
		return d.Factory
	}
	return d.Name
}

// Validate checks that the descriptor carries every field its kind and
// transport require.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return &ConfigError{Field: "name", Message: "is required"}
	}
	if strings.Contains(d.Name, toolIDSeparator) {
		return &ConfigError{Backend: d.Name, Field: "name", Message: "must not contain " + toolIDSeparator}
	}
	switch d.Kind {
	case KindLocalMock:
		return nil
	case KindRemote:
	case "":
		return &ConfigError{Backend: d.Name, Field: "kind", Message: "is required"}
	default:
		return &ConfigError{Backend: d.Name, Field: "kind", Message: "unknown kind " + string(d.Kind)}
	}

	switch d.Transport {
	case TransportStdio:
		if d.Command == "" {
			return &ConfigError{Backend: d.Name, Field: "command", Message: "is required for stdio transport"}
		}
	case TransportSSE, TransportHTTP:
		if d.ServerURL == "" {
			return &ConfigError{Backend: d.Name, Field: "server_url", Message: "is required for " + string(d.Transport) + " transport"}
		}
	case "":
		return &ConfigError{Backend: d.Name, Field: "transport", Message: "is required for remote backends"}
	default:
		return &ConfigError{Backend: d.Name, Field: "transport", Message: "unsupported transport " + string(d.Transport)}
	}
	return nil
}

// Clone returns a deep copy of the descriptor.
func (d Descriptor) Clone() Descriptor {
	out := d
	out.Args = slices.Clone(d.Args)
	out.RequiredRoles = slices.Clone(d.RequiredRoles)
	out.AllowedUsers = slices.Clone(d.AllowedUsers)
	out.Env = cloneMap(d.Env)
	out.Headers = cloneMap(d.Headers)
	return out
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Handler is the uniform call surface of every tool.
// Handlers must honor ctx cancellation.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// RegisteredTool is a tool as seen by the aggregation layer.
type RegisteredTool struct {
	// ID is "<backend>.<name>".
	ID string

	// BackendID names the provider the tool came from.
	BackendID string

	// Schema describes the tool. Schema.Namespace equals BackendID.
	Schema model.Tool

	// Handler invokes the tool. It closes over, but does not own, the
	// provider's connection.
	Handler Handler
}

// NewRegisteredTool builds a RegisteredTool with a derived ID and namespace.
func NewRegisteredTool(backendID string, schema model.Tool, h Handler) RegisteredTool {
	schema.Namespace = backendID
	return RegisteredTool{
		ID:        FormatToolID(backendID, schema.Name),
		BackendID: backendID,
		Schema:    schema,
		Handler:   h,
	}
}

// Name returns the provider-local tool name.
func (t RegisteredTool) Name() string {
	return t.Schema.Name
}

// Provider is a source of tools: an in-process set of operations or a
// connection to a remote server.
//
// Contract:
// - Tools must only be called once the provider is ready (connected for remote).
// - Close must be idempotent and must invalidate handlers produced by Tools.
type Provider interface {
	// Name returns the backend id tools are namespaced under.
	Name() string

	// Kind returns how the backend is provided.
	Kind() Kind

	// Tools returns the provider's tools, wrapped for registration.
	Tools() ([]RegisteredTool, error)

	// Close releases the provider's resources.
	Close() error
}

// Connector connects remote descriptors.
//
// Contract:
// - Context: Connect must honor cancellation and deadlines.
// - Errors: failures return *ConnectionError and leave no process or socket behind.
type Connector interface {
	Connect(ctx context.Context, d Descriptor) (Provider, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, d Descriptor) (Provider, error)

// Connect calls f(ctx, d).
func (f ConnectorFunc) Connect(ctx context.Context, d Descriptor) (Provider, error) {
	return f(ctx, d)
}

// Source lists backend descriptors.
//
// Contract:
// - ListDescriptors is idempotent and side-effect free; each call re-reads the
//   underlying data so external edits are picked up.
// - Structurally invalid data returns *ConfigError, never a partial list.
type Source interface {
	ListDescriptors(ctx context.Context) ([]Descriptor, error)
}
