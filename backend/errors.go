package backend

import (
	"errors"
	"fmt"
)

// Sentinel errors for error classification.
var (
	// ErrConfig indicates malformed or missing backend descriptor data.
	ErrConfig = errors.New("backend configuration error")

	// ErrFactoryNotFound indicates a local descriptor names an unregistered factory.
	ErrFactoryNotFound = errors.New("backend factory not found")

	// ErrConnection indicates a remote backend could not be spawned,
	// reached, or handshaken with.
	ErrConnection = errors.New("backend connection error")

	// ErrDuplicateTool indicates two providers expose the same tool id.
	ErrDuplicateTool = errors.New("duplicate tool id")

	// ErrCall indicates a tool invocation failed after aggregation.
	ErrCall = errors.New("tool call failed")

	// ErrConfiguration indicates an invalid Aggregator configuration.
	ErrConfiguration = errors.New("aggregator configuration error")
)

// ConfigError describes invalid descriptor data.
type ConfigError struct {
	// Backend is the descriptor name, if known.
	Backend string

	// Field is the offending field.
	Field string

	// Message describes the problem.
	Message string

	// Err is the underlying error, if any.
	Err error
}

func (e *ConfigError) Error() string {
	msg := "invalid backend config"
	if e.Backend != "" {
		msg += " for " + e.Backend
	}
	if e.Field != "" {
		msg += ": " + e.Field
		if e.Message != "" {
			msg += " " + e.Message
		}
	} else if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is matches ErrConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// FactoryNotFoundError reports a local descriptor whose factory key is not
// registered.
type FactoryNotFoundError struct {
	Backend string
	Key     string
}

func (e *FactoryNotFoundError) Error() string {
	return fmt.Sprintf("backend %s: no factory registered for key %q", e.Backend, e.Key)
}

// Is matches ErrFactoryNotFound.
func (e *FactoryNotFoundError) Is(target error) bool { return target == ErrFactoryNotFound }

// Connection stages reported by ConnectionError.
const (
	StageTransport = "transport"
	StageHandshake = "handshake"
	StageListTools = "list_tools"
)

// ConnectionError reports a failed remote connection attempt.
type ConnectionError struct {
	Backend   string
	Transport Transport
	Stage     string
	Err       error
}

func (e *ConnectionError) Error() string {
	msg := "connect " + e.Backend
	if e.Transport != "" {
		msg += " (" + string(e.Transport) + ")"
	}
	if e.Stage != "" {
		msg += " during " + e.Stage
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Is matches ErrConnection.
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// DuplicateToolError reports a tool id exposed twice.
type DuplicateToolError struct {
	ID string

	// First is the backend that registered the id first.
	First string

	// Second is the backend whose registration was rejected.
	Second string
}

func (e *DuplicateToolError) Error() string {
	if e.First == "" && e.Second == "" {
		return fmt.Sprintf("duplicate tool id %q", e.ID)
	}
	return fmt.Sprintf("duplicate tool id %q exposed by backends %q and %q", e.ID, e.First, e.Second)
}

// Is matches ErrDuplicateTool.
func (e *DuplicateToolError) Is(target error) bool { return target == ErrDuplicateTool }

// CallError reports a failed tool invocation.
type CallError struct {
	ToolID string
	Err    error
}

func (e *CallError) Error() string {
	if e.Err == nil {
		return "call " + e.ToolID + " failed"
	}
	return "call " + e.ToolID + ": " + e.Err.Error()
}

func (e *CallError) Unwrap() error { return e.Err }

// Is matches ErrCall.
func (e *CallError) Is(target error) bool { return target == ErrCall }

// WrapCallError wraps err in a CallError for toolID unless it already is one.
func WrapCallError(toolID string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return err
	}
	return &CallError{ToolID: toolID, Err: err}
}

// Failure records a backend skipped during aggregation.
type Failure struct {
	Backend string
	Kind    Kind
	Err     error
}

func (f Failure) Error() string {
	return f.Backend + ": " + f.Err.Error()
}

func (f Failure) Unwrap() error { return f.Err }
