package difyflow

import (
	"errors"
	"fmt"
)

// Graph errors are detected when a Graph is built and are never retried.
var (
	// ErrNoStartNode is returned when a graph has zero or several start nodes.
	ErrNoStartNode = errors.New("difyflow: no unique start node")

	// ErrUnknownNode is returned when a referenced node doesn't exist.
	ErrUnknownNode = errors.New("difyflow: node not found")

	// ErrDuplicateNode is returned when two nodes share an id.
	ErrDuplicateNode = errors.New("difyflow: duplicate node id")

	// ErrInvalidNode is returned for nodes with an empty id or no data.
	ErrInvalidNode = errors.New("difyflow: invalid node")

	// ErrDanglingEdge is returned when an edge points at a missing node.
	ErrDanglingEdge = errors.New("difyflow: edge references unknown node")
)

// Node errors report a misconfigured node found while a run visits it.
var (
	// ErrMissingTemplate is returned when an llm node declares no prompt templates.
	ErrMissingTemplate = errors.New("difyflow: llm node has no prompt templates")

	// ErrUnsupportedType is returned when no handler exists for a node type.
	ErrUnsupportedType = errors.New("difyflow: unsupported node type")

	// ErrScriptFailed is returned when a code node's script fails.
	ErrScriptFailed = errors.New("difyflow: script failed")
)

// Gateway errors wrap failures of the external collaborators.
var (
	// ErrLanguageModel is returned when the language model call fails.
	ErrLanguageModel = errors.New("difyflow: language model call failed")

	// ErrRetrieval is returned when the retrieval call fails.
	ErrRetrieval = errors.New("difyflow: retrieval call failed")
)

// Execution errors end a run without a partial answer.
var (
	// ErrStepLimitExceeded is returned when a run visits more nodes than allowed.
	ErrStepLimitExceeded = errors.New("difyflow: step limit exceeded")

	// ErrCancelled is returned when the run context is cancelled or times out.
	ErrCancelled = errors.New("difyflow: run cancelled")
)

// GraphError describes a structural problem with a workflow graph.
type GraphError struct {
	Kind    error  // one of the graph sentinel errors
	NodeID  string // offending node, if any
	EdgeID  string // offending edge, if any
	Message string
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	switch {
	case e.EdgeID != "":
		return fmt.Sprintf("%v: edge %s: %s", e.Kind, e.EdgeID, e.Message)
	case e.NodeID != "":
		return fmt.Sprintf("%v: node %s: %s", e.Kind, e.NodeID, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	default:
		return e.Kind.Error()
	}
}

// Unwrap returns the sentinel kind.
func (e *GraphError) Unwrap() error {
	return e.Kind
}

// NodeError describes a node that could not be executed as configured.
type NodeError struct {
	Kind     error
	NodeID   string
	NodeType NodeType
	Err      error // underlying cause, may be nil
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	msg := fmt.Sprintf("%v: node %s (%s)", e.Kind, e.NodeID, e.NodeType)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel kind and the cause.
func (e *NodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// GatewayError wraps a failed language model or retrieval call.
type GatewayError struct {
	Kind   error // ErrLanguageModel or ErrRetrieval
	NodeID string
	Err    error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("%v: node %s: %v", e.Kind, e.NodeID, e.Err)
}

// Unwrap exposes both the sentinel kind and the gateway's own error.
func (e *GatewayError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// ExecutionError ends a run: the step limit was hit or the run was cancelled.
type ExecutionError struct {
	Kind   error // ErrStepLimitExceeded or ErrCancelled
	NodeID string
	Steps  int
	Err    error // context error for cancellations
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("%v after %d steps", e.Kind, e.Steps)
	if e.NodeID != "" {
		msg += " at node " + e.NodeID
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel kind and the cause.
func (e *ExecutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
