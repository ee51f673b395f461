package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentic/backends"
	"github.com/effective-security/agentic/catalog"
	"github.com/effective-security/agentic/tools"
	"github.com/effective-security/agentic/tools/dice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConnection struct {
	endpoint  backends.Endpoint
	tools     []backends.ToolInfo
	resources []backends.ResourceInfo
	prompts   []backends.PromptInfo
	listErr   error
	listDelay time.Duration
}

var _ backends.Connection = (*fakeConnection)(nil)

func (c *fakeConnection) Endpoint() backends.Endpoint { return c.endpoint }
func (c *fakeConnection) Alive() bool                 { return true }
func (c *fakeConnection) ListTools(ctx context.Context) ([]backends.ToolInfo, error) {
	if c.listDelay > 0 {
		select {
		case <-time.After(c.listDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return c.tools, c.listErr
}
func (c *fakeConnection) CallTool(_ context.Context, name, _ string) (string, error) {
	return "result of " + name, nil
}
func (c *fakeConnection) ListResources(_ context.Context) ([]backends.ResourceInfo, error) {
	return c.resources, c.listErr
}
func (c *fakeConnection) ReadResource(_ context.Context, _ string) (*backends.ResourceContent, error) {
	return nil, backends.ErrResourceUnknown
}
func (c *fakeConnection) ListPrompts(_ context.Context) ([]backends.PromptInfo, error) {
	return c.prompts, c.listErr
}
func (c *fakeConnection) Close() error { return nil }

func connect(t *testing.T, reg *backends.Registry, conns ...*fakeConnection) {
	t.Helper()
	byKey := make(map[string]backends.Connection)
	for _, conn := range conns {
		byKey[conn.endpoint.Key()] = conn
	}
	reg.WithDialer(func(_ context.Context, ep backends.Endpoint) (backends.Connection, error) {
		conn, ok := byKey[ep.Key()]
		if !ok {
			return nil, errors.Newf("no fake for %s", ep)
		}
		return conn, nil
	})
	for _, conn := range conns {
		_, err := reg.Connect(context.Background(), conn.endpoint)
		require.NoError(t, err)
	}
}

func Test_Tools_Collision(t *testing.T) {
	ctx := context.Background()
	reg := backends.NewRegistry()

	first := &fakeConnection{
		endpoint: backends.HTTPEndpoint("first", "http://localhost:1111/mcp"),
		tools: []backends.ToolInfo{
			{Name: "search", Description: "first search"},
			{Name: "fetch", Description: "fetch a page"},
		},
	}
	second := &fakeConnection{
		endpoint: backends.HTTPEndpoint("second", "http://localhost:2222/mcp"),
		tools: []backends.ToolInfo{
			{Name: "search", Description: "second search"},
			{Name: "translate", Description: "translate text"},
		},
	}
	connect(t, reg, first, second)

	agg := catalog.NewAggregator(reg, nil)
	descriptors := agg.Tools(ctx)
	require.Len(t, descriptors, 3)

	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"search", "fetch", "translate"}, names)

	// the first-connected backend keeps the colliding name
	assert.Equal(t, "first search", descriptors[0].Description)
	origin, ok := descriptors[0].Origin.(catalog.Remote)
	require.True(t, ok)
	assert.Equal(t, "first", origin.Endpoint.Name)
	assert.Equal(t, "search", origin.WireName)
}

func Test_Tools_CaseInsensitiveCollision(t *testing.T) {
	ctx := context.Background()
	reg := backends.NewRegistry()

	first := &fakeConnection{
		endpoint: backends.HTTPEndpoint("first", "http://localhost:1111/mcp"),
		tools: []backends.ToolInfo{
			{Name: "Search", Description: "first search"},
		},
	}
	second := &fakeConnection{
		endpoint: backends.HTTPEndpoint("second", "http://localhost:2222/mcp"),
		tools: []backends.ToolInfo{
			{Name: "search", Description: "second search"},
		},
	}
	connect(t, reg, first, second)

	agg := catalog.NewAggregator(reg, nil)
	descriptors := agg.Tools(ctx)
	require.Len(t, descriptors, 1)

	// names differing only in case collide; the first backend keeps it
	assert.Equal(t, "Search", descriptors[0].Name)
	origin, ok := descriptors[0].Origin.(catalog.Remote)
	require.True(t, ok)
	assert.Equal(t, "first", origin.Endpoint.Name)
}

func Test_Tools_NativeOrigin(t *testing.T) {
	ctx := context.Background()
	reg := backends.NewRegistry()

	toolReg := tools.NewRegistry()
	toolReg.Register(dice.New(), tools.Meta{Category: "utility", RequiresAuth: false})
	reg.RegisterLocal(backends.NewLocalConnection(toolReg))

	remote := &fakeConnection{
		endpoint: backends.HTTPEndpoint("srv", "http://localhost:3333/mcp"),
		tools:    []backends.ToolInfo{{Name: "search"}},
	}
	connect(t, reg, remote)

	agg := catalog.NewAggregator(reg, toolReg)
	descriptors := agg.Tools(ctx)
	require.Len(t, descriptors, 2)

	native, ok := descriptors[0].Origin.(catalog.Native)
	require.True(t, ok)
	require.NotNil(t, native.Tool)
	assert.Equal(t, dice.ToolName, native.Tool.Name())
	assert.Equal(t, "utility", native.Meta.Category)

	_, ok = descriptors[1].Origin.(catalog.Remote)
	assert.True(t, ok)
}

func Test_Tools_FailingBackendOmitted(t *testing.T) {
	ctx := context.Background()
	reg := backends.NewRegistry()

	healthy := &fakeConnection{
		endpoint: backends.HTTPEndpoint("ok", "http://localhost:1111/mcp"),
		tools:    []backends.ToolInfo{{Name: "fetch"}},
	}
	broken := &fakeConnection{
		endpoint: backends.HTTPEndpoint("broken", "http://localhost:2222/mcp"),
		listErr:  errors.New("connection reset"),
	}
	slow := &fakeConnection{
		endpoint:  backends.HTTPEndpoint("slow", "http://localhost:3333/mcp"),
		tools:     []backends.ToolInfo{{Name: "never"}},
		listDelay: time.Second,
	}
	connect(t, reg, healthy, broken, slow)

	agg := catalog.NewAggregator(reg, nil).WithListTimeout(50 * time.Millisecond)
	descriptors := agg.Tools(ctx)
	require.Len(t, descriptors, 1)
	assert.Equal(t, "fetch", descriptors[0].Name)
}

func Test_Resources_Prompts(t *testing.T) {
	ctx := context.Background()
	reg := backends.NewRegistry()

	conn := &fakeConnection{
		endpoint: backends.HTTPEndpoint("srv", "http://localhost:1111/mcp"),
		resources: []backends.ResourceInfo{
			{URI: "file:///notes.txt", Name: "notes", MIMEType: "text/plain"},
		},
		prompts: []backends.PromptInfo{
			{Name: "summarize", Description: "summarize a document"},
		},
	}
	connect(t, reg, conn)

	agg := catalog.NewAggregator(reg, nil)

	resources := agg.Resources(ctx)
	require.Len(t, resources, 1)
	assert.Equal(t, "file:///notes.txt", resources[0].URI)
	assert.Equal(t, "srv", resources[0].Endpoint.Name)

	prompts := agg.Prompts(ctx)
	require.Len(t, prompts, 1)
	assert.Equal(t, "summarize", prompts[0].Name)
}
