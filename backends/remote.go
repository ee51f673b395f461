package backends

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	mcp "github.com/metoro-io/mcp-golang"
	mcphttp "github.com/metoro-io/mcp-golang/transport/http"
	mcpstdio "github.com/metoro-io/mcp-golang/transport/stdio"
)

const clientName = "agentic"
const clientVersion = "1.0.0"

// remoteConnection speaks MCP to one server over HTTP or stdio.
type remoteConnection struct {
	endpoint Endpoint
	client   *mcp.Client
	// cmd is set for stdio endpoints; the subprocess lives as long as the
	// connection.
	cmd *exec.Cmd

	mu          sync.Mutex
	initialized bool
	alive       bool
}

var _ Connection = (*remoteConnection)(nil)

// dialRemote establishes an MCP connection for the endpoint and verifies it
// with the protocol initialize handshake.
func dialRemote(ctx context.Context, endpoint Endpoint) (Connection, error) {
	conn := &remoteConnection{endpoint: endpoint}

	switch endpoint.Kind {
	case KindHTTP:
		transport := mcphttp.NewHTTPClientTransport(endpoint.URL)
		conn.client = mcp.NewClientWithInfo(transport, mcp.ClientInfo{
			Name:    clientName,
			Version: clientVersion,
		})
	case KindStdio:
		cmd := exec.Command(endpoint.Command, endpoint.Args...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, errors.WithMessage(err, "failed to open stdin pipe")
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, errors.WithMessage(err, "failed to open stdout pipe")
		}
		if err := cmd.Start(); err != nil {
			return nil, errors.WithMessagef(err, "failed to start %s", endpoint.Command)
		}
		conn.cmd = cmd
		transport := mcpstdio.NewStdioServerTransportWithIO(stdout, stdin)
		conn.client = mcp.NewClientWithInfo(transport, mcp.ClientInfo{
			Name:    clientName,
			Version: clientVersion,
		})
	default:
		return nil, errors.Newf("endpoint %s is not remote", endpoint)
	}

	if err := conn.ensureInitialized(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func (c *remoteConnection) ensureInitialized(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}
	if _, err := c.client.Initialize(ctx); err != nil {
		c.alive = false
		return errors.WithMessage(err, "failed to initialize MCP client")
	}
	c.initialized = true
	c.alive = true
	return nil
}

func (c *remoteConnection) Endpoint() Endpoint {
	return c.endpoint
}

func (c *remoteConnection) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

func (c *remoteConnection) markAlive(ok bool) {
	c.mu.Lock()
	c.alive = ok
	c.mu.Unlock()
}

func (c *remoteConnection) ListTools(ctx context.Context) ([]ToolInfo, error) {
	resp, err := c.client.ListTools(ctx, nil)
	if err != nil {
		c.markAlive(false)
		return nil, errors.WithMessage(err, "failed to list tools")
	}
	c.markAlive(true)

	infos := make([]ToolInfo, 0, len(resp.Tools))
	for _, tool := range resp.Tools {
		infos = append(infos, ToolInfo{
			Name:        tool.Name,
			Description: derefString(tool.Description),
			InputSchema: tool.InputSchema,
		})
	}
	return infos, nil
}

func (c *remoteConnection) CallTool(ctx context.Context, name, argsJSON string) (string, error) {
	args := map[string]any{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", errors.WithMessagef(err, "invalid arguments for tool %s", name)
		}
	}

	resp, err := c.client.CallTool(ctx, name, args)
	if err != nil {
		return "", errors.WithMessagef(err, "failed to call tool %s", name)
	}
	return flattenToolResponse(resp), nil
}

// flattenToolResponse joins the textual parts of an MCP tool response.
func flattenToolResponse(resp *mcp.ToolResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, content := range resp.Content {
		if content == nil {
			continue
		}
		if content.TextContent != nil && content.TextContent.Text != "" {
			parts = append(parts, content.TextContent.Text)
		}
		if content.EmbeddedResource != nil {
			if content.EmbeddedResource.TextResourceContents != nil &&
				content.EmbeddedResource.TextResourceContents.Text != "" {
				parts = append(parts, content.EmbeddedResource.TextResourceContents.Text)
			}
		}
	}
	return strings.Join(parts, "\n")
}

func (c *remoteConnection) ListResources(ctx context.Context) ([]ResourceInfo, error) {
	resp, err := c.client.ListResources(ctx, nil)
	if err != nil {
		c.markAlive(false)
		return nil, errors.WithMessage(err, "failed to list resources")
	}
	c.markAlive(true)

	infos := make([]ResourceInfo, 0, len(resp.Resources))
	for _, res := range resp.Resources {
		infos = append(infos, ResourceInfo{
			URI:         res.Uri,
			Name:        res.Name,
			Description: derefString(res.Description),
			MIMEType:    derefString(res.MimeType),
		})
	}
	return infos, nil
}

func (c *remoteConnection) ReadResource(ctx context.Context, uri string) (*ResourceContent, error) {
	resp, err := c.client.ReadResource(ctx, uri)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to read resource %s", uri)
	}

	content := &ResourceContent{URI: uri}
	for _, item := range resp.Contents {
		if item == nil || item.TextResourceContents == nil {
			continue
		}
		content.Text = item.TextResourceContents.Text
		content.MIMEType = derefString(item.TextResourceContents.MimeType)
		break
	}
	return content, nil
}

func (c *remoteConnection) ListPrompts(ctx context.Context) ([]PromptInfo, error) {
	resp, err := c.client.ListPrompts(ctx, nil)
	if err != nil {
		c.markAlive(false)
		return nil, errors.WithMessage(err, "failed to list prompts")
	}
	c.markAlive(true)

	infos := make([]PromptInfo, 0, len(resp.Prompts))
	for _, prompt := range resp.Prompts {
		infos = append(infos, PromptInfo{
			Name:        prompt.Name,
			Description: derefString(prompt.Description),
		})
	}
	return infos, nil
}

func (c *remoteConnection) Close() error {
	c.mu.Lock()
	c.alive = false
	cmd := c.cmd
	c.cmd = nil
	c.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
