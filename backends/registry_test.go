package backends_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentic/backends"
	"github.com/effective-security/agentic/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConnection struct {
	endpoint backends.Endpoint
	tools    []backends.ToolInfo
	closed   atomic.Bool
	dead     atomic.Bool
}

var _ backends.Connection = (*fakeConnection)(nil)

func (c *fakeConnection) Endpoint() backends.Endpoint { return c.endpoint }
func (c *fakeConnection) Alive() bool                 { return !c.closed.Load() && !c.dead.Load() }
func (c *fakeConnection) ListTools(_ context.Context) ([]backends.ToolInfo, error) {
	return c.tools, nil
}
func (c *fakeConnection) CallTool(_ context.Context, name, _ string) (string, error) {
	return "result of " + name, nil
}
func (c *fakeConnection) ListResources(_ context.Context) ([]backends.ResourceInfo, error) {
	return nil, nil
}
func (c *fakeConnection) ReadResource(_ context.Context, _ string) (*backends.ResourceContent, error) {
	return nil, backends.ErrResourceUnknown
}
func (c *fakeConnection) ListPrompts(_ context.Context) ([]backends.PromptInfo, error) {
	return nil, nil
}
func (c *fakeConnection) Close() error {
	c.closed.Store(true)
	return nil
}

func Test_Registry_Connect(t *testing.T) {
	ctx := context.Background()
	endpoint := backends.HTTPEndpoint("srv", "http://localhost:7777/mcp")

	var dials atomic.Int32
	reg := backends.NewRegistry().
		WithDialer(func(_ context.Context, ep backends.Endpoint) (backends.Connection, error) {
			dials.Add(1)
			return &fakeConnection{endpoint: ep}, nil
		})

	conn, err := reg.Connect(ctx, endpoint)
	require.NoError(t, err)
	require.NotNil(t, conn)

	// idempotent: the same connection is reused
	again, err := reg.Connect(ctx, endpoint)
	require.NoError(t, err)
	assert.Same(t, conn, again)
	assert.EqualValues(t, 1, dials.Load())

	assert.Same(t, conn, reg.Get(endpoint))
	assert.Equal(t, map[string]bool{"srv": true}, reg.Status())

	reg.Disconnect(endpoint)
	assert.Nil(t, reg.Get(endpoint))
}

func Test_Registry_ConcurrentConnect(t *testing.T) {
	ctx := context.Background()
	endpoint := backends.HTTPEndpoint("srv", "http://localhost:7777/mcp")

	var dials atomic.Int32
	reg := backends.NewRegistry().
		WithDialer(func(_ context.Context, ep backends.Endpoint) (backends.Connection, error) {
			dials.Add(1)
			time.Sleep(20 * time.Millisecond)
			return &fakeConnection{endpoint: ep}, nil
		})

	const callers = 16
	conns := make([]backends.Connection, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			conn, err := reg.Connect(ctx, endpoint)
			assert.NoError(t, err)
			conns[i] = conn
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, dials.Load(), "concurrent Connect calls must dial once")
	for i := 1; i < callers; i++ {
		assert.Same(t, conns[0], conns[i])
	}
}

func Test_Registry_ConnectFailure(t *testing.T) {
	ctx := context.Background()
	endpoint := backends.HTTPEndpoint("down", "http://localhost:1/mcp")

	var dials atomic.Int32
	reg := backends.NewRegistry().
		WithDialer(func(_ context.Context, ep backends.Endpoint) (backends.Connection, error) {
			if dials.Add(1) == 1 {
				return nil, errors.New("connection refused")
			}
			return &fakeConnection{endpoint: ep}, nil
		})

	_, err := reg.Connect(ctx, endpoint)
	require.Error(t, err)
	assert.True(t, errors.Is(err, backends.ErrBackendUnreachable))
	assert.Nil(t, reg.Get(endpoint))

	// a failed attempt does not poison later attempts
	conn, err := reg.Connect(ctx, endpoint)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.EqualValues(t, 2, dials.Load())
}

func Test_Registry_Reconnect(t *testing.T) {
	ctx := context.Background()
	endpoint := backends.HTTPEndpoint("srv", "http://localhost:7777/mcp")

	var dials atomic.Int32
	reg := backends.NewRegistry().
		WithDialer(func(_ context.Context, ep backends.Endpoint) (backends.Connection, error) {
			dials.Add(1)
			return &fakeConnection{endpoint: ep}, nil
		})

	first, err := reg.Connect(ctx, endpoint)
	require.NoError(t, err)

	// the connection goes dead without being closed
	first.(*fakeConnection).dead.Store(true)
	assert.Nil(t, reg.Get(endpoint))

	second, err := reg.Connect(ctx, endpoint)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.EqualValues(t, 2, dials.Load())

	// the displaced connection was closed and the key is listed once
	assert.True(t, first.(*fakeConnection).closed.Load())
	require.Len(t, reg.Connections(), 1)
	assert.Same(t, second, reg.Connections()[0])
	assert.Same(t, second, reg.Get(endpoint))
}

func Test_Registry_Local(t *testing.T) {
	reg := backends.NewRegistry()

	toolReg := tools.NewRegistry()
	local := backends.NewLocalConnection(toolReg)
	installed := reg.RegisterLocal(local)
	assert.Same(t, local, installed)

	// first registration wins
	other := backends.NewLocalConnection(tools.NewRegistry())
	assert.Same(t, local, reg.RegisterLocal(other))

	require.Len(t, reg.Connections(), 1)

	reg.DisconnectAll()
	assert.Empty(t, reg.Connections())
	assert.False(t, local.Alive())
}

func Test_LocalConnection(t *testing.T) {
	ctx := context.Background()

	toolReg := tools.NewRegistry()
	toolReg.Register(&echoTool{}, tools.Meta{Category: "utility"})
	conn := backends.NewLocalConnection(toolReg)

	infos, err := conn.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "echo", infos[0].Name)

	res, err := conn.CallTool(ctx, "echo", `{"text":"hi"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"text":"hi"}`, res)

	_, err = conn.CallTool(ctx, "missing", "{}")
	assert.True(t, errors.Is(err, backends.ErrToolUnknown))

	_, err = conn.ReadResource(ctx, "file:///none")
	assert.True(t, errors.Is(err, backends.ErrResourceUnknown))
}

type echoTool struct{}

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "echoes its input" }
func (t *echoTool) Parameters() any     { return map[string]any{"type": "object"} }
func (t *echoTool) Call(_ context.Context, input string) (string, error) {
	return input, nil
}
