package config_test

import (
	"testing"
	"time"

	"github.com/effective-security/agentic/backends"
	"github.com/effective-security/agentic/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
backends:
  - name: context7
    kind: remote-network
    url: http://localhost:8811/mcp
  - name: filesystem
    kind: remote-stdio
    command: npx
    args: ["-y", "@modelcontextprotocol/server-filesystem", "/tmp"]
    disabled: true
agent:
  system_prompt: "You are a helpful assistant."
  max_tool_cycles: 5
  fanout: 2
  native_tools: [roll_dice, get_current_time]
  resource_context: true
redis:
  addr: "localhost:6379"
  prefix: "agentic"
attachments:
  expiry_threshold: 47h
`

func Test_ParseConfig(t *testing.T) {
	cfg, err := config.ParseConfig([]byte(validYAML))
	require.NoError(t, err)

	require.Len(t, cfg.Backends, 2)
	assert.Equal(t, "context7", cfg.Backends[0].Name)
	assert.True(t, cfg.Backends[1].Disabled)

	ep := cfg.Backends[0].Endpoint()
	assert.Equal(t, backends.KindHTTP, ep.Kind)
	assert.Equal(t, "http://localhost:8811/mcp", ep.URL)

	ep = cfg.Backends[1].Endpoint()
	assert.Equal(t, backends.KindStdio, ep.Kind)
	assert.Equal(t, "npx", ep.Command)
	assert.Len(t, ep.Args, 3)

	assert.Equal(t, 5, cfg.Agent.MaxToolCycles)
	assert.Equal(t, 2, cfg.Agent.Fanout)
	assert.Equal(t, []string{"roll_dice", "get_current_time"}, cfg.Agent.NativeTools)
	assert.True(t, cfg.Agent.ResourceContext)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	threshold, err := cfg.Attachments.Threshold()
	require.NoError(t, err)
	assert.Equal(t, 47*time.Hour, threshold)
}

func Test_ParseConfig_Invalid(t *testing.T) {
	tcases := []struct {
		name string
		yaml string
	}{
		{
			name: "missing backend name",
			yaml: "backends:\n  - kind: remote-network\n    url: http://localhost:1/mcp\n",
		},
		{
			name: "unknown kind",
			yaml: "backends:\n  - name: x\n    kind: carrier-pigeon\n",
		},
		{
			name: "network backend without url",
			yaml: "backends:\n  - name: x\n    kind: remote-network\n",
		},
		{
			name: "stdio backend without command",
			yaml: "backends:\n  - name: x\n    kind: remote-stdio\n",
		},
		{
			name: "duplicate backend names",
			yaml: "backends:\n  - name: x\n    kind: remote-network\n    url: http://localhost:1/mcp\n  - name: x\n    kind: remote-network\n    url: http://localhost:2/mcp\n",
		},
		{
			name: "negative cycles",
			yaml: "agent:\n  max_tool_cycles: -1\n",
		},
		{
			name: "bad duration",
			yaml: "attachments:\n  expiry_threshold: soon\n",
		},
		{
			name: "not yaml",
			yaml: "backends: [",
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.ParseConfig([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func Test_LoadConfig_Empty(t *testing.T) {
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Backends)
}
