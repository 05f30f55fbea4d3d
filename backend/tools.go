package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jonwraymond/tooldiscovery/index"
	"github.com/jonwraymond/tooldiscovery/search"
	"github.com/jonwraymond/toolfoundation/model"
)

// ToolRegistry holds the tools visible to one session.
// Keys are unique; registration never overwrites.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]RegisteredTool
	idx   index.Index
}

// NewToolRegistry creates an empty tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]RegisteredTool)}
}

// Register adds a tool. It fails with *DuplicateToolError if the id is taken.
func (r *ToolRegistry) Register(tool RegisteredTool) error {
	if tool.Handler == nil {
		return fmt.Errorf("tool %s: handler is nil", tool.ID)
	}
	if tool.BackendID == "" || tool.Schema.Name == "" || tool.ID != FormatToolID(tool.BackendID, tool.Schema.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidToolID, tool.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.tools[tool.ID]; ok {
		return &DuplicateToolError{ID: tool.ID, First: existing.BackendID, Second: tool.BackendID}
	}
	r.tools[tool.ID] = tool
	r.idx = nil
	return nil
}

// Get retrieves a tool by id.
func (r *ToolRegistry) Get(id string) (RegisteredTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[id]
	return t, ok
}

// List returns a snapshot of all tools sorted by id.
func (r *ToolRegistry) List() []RegisteredTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RegisteredTool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs returns all tool ids sorted.
func (r *ToolRegistry) IDs() []string {
	tools := r.List()
	out := make([]string, len(tools))
	for i, t := range tools {
		out[i] = t.ID
	}
	return out
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Namespaces returns the backend ids that contributed tools, sorted.
func (r *ToolRegistry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, t := range r.tools {
		seen[t.BackendID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Call invokes a tool by id. Every failure, including an unknown id or a
// panicking handler, is returned as *CallError.
func (r *ToolRegistry) Call(ctx context.Context, id string, args map[string]any) (result any, err error) {
	tool, ok := r.Get(id)
	if !ok {
		return nil, &CallError{ToolID: id, Err: ErrToolNotFound}
	}
	if err := ctx.Err(); err != nil {
		return nil, &CallError{ToolID: id, Err: err}
	}
	if args == nil {
		args = map[string]any{}
	}

	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = &CallError{ToolID: id, Err: fmt.Errorf("handler panic: %v", p)}
		}
	}()

	result, err = tool.Handler(ctx, args)
	if err != nil {
		return nil, WrapCallError(id, err)
	}
	return result, nil
}

// DefaultSearchLimit is the result limit Search applies when limit <= 0.
const DefaultSearchLimit = 10

// Search returns up to limit tools matching query, best match first. A limit
// of zero or less means DefaultSearchLimit. The search index is built lazily
// and rebuilt after new registrations.
func (r *ToolRegistry) Search(query string, limit int) ([]RegisteredTool, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	idx := r.searchIndex()
	summaries, err := idx.Search(query, limit)
	if err != nil {
		return nil, fmt.Errorf("search tools: %w", err)
	}

	out := make([]RegisteredTool, 0, len(summaries))
	for _, s := range summaries {
		if t, ok := r.Get(FormatToolID(s.Namespace, s.Name)); ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *ToolRegistry) searchIndex() index.Index {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.idx != nil {
		return r.idx
	}

	idx := index.NewInMemoryIndex(index.IndexOptions{
		Searcher: search.NewBM25Searcher(search.BM25Config{}),
	})
	for _, t := range r.tools {
		schema := t.Schema
		if schema.InputSchema == nil {
			schema.InputSchema = PermissiveSchema()
		}
		schema.Tags = model.NormalizeTags(schema.Tags)
		// Tools the index rejects remain callable; they are just not searchable.
		_ = idx.RegisterTool(schema, model.NewLocalBackend(t.ID))
	}
	r.idx = idx
	return idx
}

// PermissiveSchema returns the input schema used when a tool declares none.
func PermissiveSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
	}
}
