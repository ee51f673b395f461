package backends

import (
	"context"
	"sync/atomic"

	"github.com/effective-security/agentic/tools"
)

// localConnection serves the in-process native tool registry through the
// Connection contract. It has no wire transport; calls go straight to the
// tool implementations.
type localConnection struct {
	endpoint Endpoint
	registry *tools.Registry
	closed   atomic.Bool
}

var _ Connection = (*localConnection)(nil)

// NewLocalConnection creates a Connection over the native tool registry.
func NewLocalConnection(registry *tools.Registry) Connection {
	return &localConnection{
		endpoint: LocalEndpoint(),
		registry: registry,
	}
}

func (c *localConnection) Endpoint() Endpoint {
	return c.endpoint
}

func (c *localConnection) Alive() bool {
	return !c.closed.Load()
}

func (c *localConnection) ListTools(ctx context.Context) ([]ToolInfo, error) {
	all := c.registry.All()
	infos := make([]ToolInfo, 0, len(all))
	for _, tool := range all {
		infos = append(infos, ToolInfo{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.Parameters(),
		})
	}
	return infos, nil
}

func (c *localConnection) CallTool(ctx context.Context, name, argsJSON string) (string, error) {
	tool, ok := c.registry.Get(name)
	if !ok {
		return "", ErrToolUnknown
	}
	return tool.Call(ctx, argsJSON)
}

// The native registry offers no resources or prompts.

func (c *localConnection) ListResources(ctx context.Context) ([]ResourceInfo, error) {
	return nil, nil
}

func (c *localConnection) ReadResource(ctx context.Context, uri string) (*ResourceContent, error) {
	return nil, ErrResourceUnknown
}

func (c *localConnection) ListPrompts(ctx context.Context) ([]PromptInfo, error) {
	return nil, nil
}

func (c *localConnection) Close() error {
	c.closed.Store(true)
	return nil
}
