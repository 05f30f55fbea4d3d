package backend

import (
	"sort"
	"sync"
)

// Factory creates a local provider whose tools are namespaced under name.
type Factory func(name string) (Provider, error)

// FactoryTable maps short keys to local provider factories.
// It is read-mostly: written at startup, read on every aggregation.
type FactoryTable struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    Logger
}

// NewFactoryTable creates an empty factory table.
func NewFactoryTable() *FactoryTable {
	return &FactoryTable{factories: make(map[string]Factory)}
}

// SetLogger sets the logger used to report overwritten keys.
func (t *FactoryTable) SetLogger(l Logger) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logger = l
}

// Register registers a factory under key. Registering an existing key
// replaces the previous factory and logs a warning.
func (t *FactoryTable) Register(key string, factory Factory) {
	if key == "" || factory == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.factories[key]; exists {
		loggerOrDiscard(t.logger).Warn("backend factory replaced", "key", key)
	}
	t.factories[key] = factory
}

// Get returns the factory registered under key.
func (t *FactoryTable) Get(key string) (Factory, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.factories[key]
	return f, ok
}

// Keys returns registered keys sorted for deterministic output.
func (t *FactoryTable) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.factories))
	for k := range t.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build looks up the factory for a local descriptor and invokes it.
func (t *FactoryTable) Build(d Descriptor) (Provider, error) {
	key := d.FactoryKey()
	factory, ok := t.Get(key)
	if !ok {
		return nil, &FactoryNotFoundError{Backend: d.Name, Key: key}
	}
	return factory(d.Name)
}

var defaultFactories = NewFactoryTable()

// DefaultFactories returns the process-wide factory table.
func DefaultFactories() *FactoryTable {
	return defaultFactories
}

// RegisterFactory registers a factory in the process-wide table.
// Provider packages call it from init so that importing them is enough to
// make them available to descriptors.
func RegisterFactory(key string, factory Factory) {
	defaultFactories.Register(key, factory)
}
