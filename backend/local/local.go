// Package local provides an in-process backend whose tools are plain Go
// functions.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/jonwraymond/toolfoundation/model"
	"github.com/jonwraymond/toolgate/backend"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Errors returned by local backends.
var (
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrInvalidOperation = errors.New("invalid operation")
)

// HandlerFunc is the function signature for tool handlers.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// Func is a synchronous operation that does not take a context.
type Func func(args map[string]any) (any, error)

// ToolDef defines a local tool with its handler.
type ToolDef struct {
	Name         string
	Title        string
	Description  string
	InputSchema  map[string]any
	OutputSchema map[string]any
	Annotations  *mcp.ToolAnnotations
	Tags         []string
	Handler      HandlerFunc
}

type operation struct {
	def    ToolDef
	schema *jsonschema.Resolved
}

// Backend is a backend.Provider for in-process operations.
type Backend struct {
	name   string
	mu     sync.RWMutex
	ops    map[string]operation
	closed bool
}

var _ backend.Provider = (*Backend)(nil)

// New creates a new local backend whose tools are namespaced under name.
func New(name string) *Backend {
	return &Backend{
		name: name,
		ops:  make(map[string]operation),
	}
}

// Kind returns backend.KindLocalMock.
func (b *Backend) Kind() backend.Kind {
	return backend.KindLocalMock
}

// Name returns the backend instance name.
func (b *Backend) Name() string {
	return b.name
}

// AddOperation registers an operation. The input schema is compiled once
// here; a nil schema accepts any object.
func (b *Backend) AddOperation(def ToolDef) error {
	if def.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidOperation)
	}
	if def.Handler == nil {
		return fmt.Errorf("%w: %s: handler is required", ErrInvalidOperation, def.Name)
	}
	if def.InputSchema == nil {
		def.InputSchema = backend.PermissiveSchema()
	}
	resolved, err := compileSchema(def.InputSchema)
	if err != nil {
		return fmt.Errorf("%w: %s: input schema: %v", ErrInvalidOperation, def.Name, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return backend.ErrProviderClosed
	}
	if _, exists := b.ops[def.Name]; exists {
		return fmt.Errorf("%w: %s already registered", ErrInvalidOperation, def.Name)
	}
	b.ops[def.Name] = operation{def: def, schema: resolved}
	return nil
}

// AddFunc registers a synchronous function as an operation. The function is
// adapted to the context-aware handler contract here, once.
func (b *Backend) AddFunc(name, description string, schema map[string]any, fn Func) error {
	var handler HandlerFunc
	if fn != nil {
		handler = func(ctx context.Context, args map[string]any) (any, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return fn(args)
		}
	}
	return b.AddOperation(ToolDef{
		Name:        name,
		Description: description,
		InputSchema: schema,
		Handler:     handler,
	})
}

// Tools returns the registered operations sorted by name.
func (b *Backend) Tools() ([]backend.RegisteredTool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]backend.RegisteredTool, 0, len(b.ops))
	for _, op := range b.ops {
		schema := model.Tool{
			Tool: mcp.Tool{
				Name:         op.def.Name,
				Title:        op.def.Title,
				Description:  op.def.Description,
				InputSchema:  op.def.InputSchema,
				OutputSchema: op.def.OutputSchema,
				Annotations:  op.def.Annotations,
			},
			Tags: model.NormalizeTags(op.def.Tags),
		}
		out = append(out, backend.NewRegisteredTool(b.name, schema, op.handler()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// Close marks the backend closed. Handlers already handed out keep working;
// no further operations can be added.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (op operation) handler() backend.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		if args == nil {
			args = map[string]any{}
		}
		if err := op.schema.Validate(args); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		return op.def.Handler(ctx, args)
	}
}

func compileSchema(raw map[string]any) (*jsonschema.Resolved, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s.Resolve(nil)
}
