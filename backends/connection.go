package backends

import (
	"context"
)

// ToolInfo describes one tool offered by a backend.
type ToolInfo struct {
	Name        string
	Description string
	// InputSchema is the JSON schema of the tool arguments: a
	// *jsonschema.Schema for native tools, or the raw schema map reported by
	// a remote server.
	InputSchema any
}

// ResourceInfo describes one resource offered by a backend.
type ResourceInfo struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
}

// ResourceContent is the content of a read resource.
type ResourceContent struct {
	URI      string
	MIMEType string
	Text     string
}

// PromptInfo describes one prompt offered by a backend.
type PromptInfo struct {
	Name        string
	Description string
}

// Connection is a live channel to one backend, uniform across transports.
// Connections are created and torn down only by the Registry; all other
// components treat them as read-only.
type Connection interface {
	// Endpoint returns the endpoint this connection is bound to.
	Endpoint() Endpoint
	// Alive reports whether the connection is usable.
	Alive() bool

	// ListTools returns the tools the backend offers.
	ListTools(ctx context.Context) ([]ToolInfo, error)
	// CallTool invokes a tool with JSON-encoded arguments and returns the
	// textual result.
	CallTool(ctx context.Context, name, argsJSON string) (string, error)
	// ListResources returns the resources the backend offers.
	ListResources(ctx context.Context) ([]ResourceInfo, error)
	// ReadResource reads one resource by URI.
	ReadResource(ctx context.Context, uri string) (*ResourceContent, error)
	// ListPrompts returns the prompts the backend offers.
	ListPrompts(ctx context.Context) ([]PromptInfo, error)

	// Close tears the connection down. Closing an already-dead connection is
	// not an error.
	Close() error
}
