package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrTransport is the kind of every failure to reach the model endpoint.
	ErrTransport = errors.New("model transport failed")
	// ErrValidation is the kind of every response that does not match the output schema.
	ErrValidation = errors.New("model output failed validation")
	// ErrTool is the kind of every failure raised by a tool handler.
	ErrTool = errors.New("tool execution failed")

	ErrUnknownTool       = errors.New("unknown tool")
	ErrInvalidToolInput  = errors.New("invalid tool arguments")
	ErrMaxToolRounds     = errors.New("tool round budget exhausted")
	ErrMissingDependency = errors.New("missing tool dependency")
)

// AgentError is returned by Agent.Run. It unwraps to both its Kind and the cause.
type AgentError struct {
	Agent    string
	Kind     error
	Attempts int
	Err      error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent %s: %v: %v", e.Agent, e.Kind, e.Err)
}

func (e *AgentError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// TransportError carries the HTTP status reported by a provider, when known.
type TransportError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ToolError wraps a failing tool handler.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// ValidationError lists every violated field of a model response.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid output: " + strings.Join(e.Problems, "; ")
}

// Retryable reports whether a failed model call may be attempted again.
// Cancellation and client-side request errors are never retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		switch te.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return false
		}
	}
	return true
}

// KindOf returns ErrTransport, ErrValidation or ErrTool for errors produced by an agent run.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrTool, ErrTransport} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
