// Package tools defines the native tool contract and the in-process tool
// registry, including the immutable metadata side-table used for gating and
// grouping.
package tools

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrFailedUnmarshalInput is returned by a tool that could not parse its
// JSON input. The dispatcher surfaces it to the model as correctable data
// rather than failing the call.
var ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")

// ITool is an in-process tool the agent can invoke directly.
type ITool interface {
	// Name returns the name of the Tool.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	// Should not exceed LLM model limit.
	Description() string
	// Parameters returns the JSON schema of the tool input.
	Parameters() any

	// Call executes the tool with the given JSON input and returns the result.
	// If the tool fails to parse the input, it should return
	// ErrFailedUnmarshalInput.
	Call(context.Context, string) (string, error)
}

// Tool is a typed tool with a structured input and output.
type Tool[I any, O any] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}

// CallerIdentityArg is the argument field injected at dispatch time into
// tools that declare RequiresAuth. Remote tool schemas never receive it.
const CallerIdentityArg = "caller_identity"

// Meta is the registration-time metadata of a tool. It is populated once
// when the tool is registered and never mutated after.
type Meta struct {
	// Category groups related tools.
	Category string
	// RequiresAuth marks tools that receive the caller identity injected
	// into their arguments at dispatch time.
	RequiresAuth bool
}
