// Package dispatch routes tool calls requested by the model to the backend
// that owns the tool, in-process or remote.
package dispatch

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

var (
	// ErrToolNotFound marks a call to a tool absent from the aggregated
	// catalog. It is surfaced to the model as result data, not raised.
	ErrToolNotFound = errors.New("tool not found")
	// ErrToolExecutionFailed marks a call that reached its backend but
	// errored there. Also surfaced to the model as result data.
	ErrToolExecutionFailed = errors.New("tool execution failed")
)

// ToolCall is one tool invocation requested by the model. Immutable.
type ToolCall struct {
	// ID correlates the call with its result. Assigned by the model;
	// generated when the model omits it.
	ID string
	// Name is the catalog name of the tool.
	Name string
	// Arguments is the JSON-encoded argument object, passed through
	// unmodified except for the documented identity injection.
	Arguments string
	// TurnID is the originating turn.
	TurnID string
}

// ToolResult is the outcome of exactly one ToolCall. A failed call carries
// its error as data so the model can see it and adapt.
type ToolResult struct {
	// CallID references the ToolCall this result answers.
	CallID string
	// Name is the tool name, echoed for the model.
	Name string
	// Content is the textual result of a successful call.
	Content string
	// Error is the failure description of an unsuccessful call.
	Error string
}

// Failed reports whether the call errored.
func (r ToolResult) Failed() bool {
	return r.Error != ""
}

// Payload returns what the model should see: the content on success, the
// error text on failure.
func (r ToolResult) Payload() string {
	if r.Failed() {
		return fmt.Sprintf("Tool call failed: %s", r.Error)
	}
	return r.Content
}

// NewToolCall creates a call, generating an ID when the model supplied none.
func NewToolCall(id, name, arguments, turnID string) ToolCall {
	if id == "" {
		id = uuid.NewString()
	}
	return ToolCall{
		ID:        id,
		Name:      name,
		Arguments: arguments,
		TurnID:    turnID,
	}
}
