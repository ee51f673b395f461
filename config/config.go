// Package config loads and validates the service configuration: backend
// endpoints, agent limits, storage and attachment policy.
package config

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentic/backends"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Backends    []*BackendConfig `json:"backends" yaml:"backends" validate:"dive"`
	Agent       AgentConfig      `json:"agent" yaml:"agent"`
	Redis       RedisConfig      `json:"redis,omitempty" yaml:"redis,omitempty"`
	Attachments AttachmentConfig `json:"attachments,omitempty" yaml:"attachments,omitempty"`
}

// BackendConfig describes one tool backend to connect on startup.
type BackendConfig struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	// Kind is the transport: remote-network or remote-stdio.
	Kind string `json:"kind" yaml:"kind" validate:"required,oneof=remote-network remote-stdio"`
	// URL of the server, for remote-network backends.
	URL string `json:"url,omitempty" yaml:"url,omitempty" validate:"required_if=Kind remote-network,omitempty,url"`
	// Command and Args launch the server subprocess, for remote-stdio
	// backends.
	Command  string   `json:"command,omitempty" yaml:"command,omitempty" validate:"required_if=Kind remote-stdio"`
	Args     []string `json:"args,omitempty" yaml:"args,omitempty"`
	Disabled bool     `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// Endpoint converts the entry to a backend endpoint.
func (c *BackendConfig) Endpoint() backends.Endpoint {
	if c.Kind == "remote-stdio" {
		return backends.StdioEndpoint(c.Name, c.Command, c.Args...)
	}
	return backends.HTTPEndpoint(c.Name, c.URL)
}

// AgentConfig bounds the turn loop.
type AgentConfig struct {
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	// MaxToolCycles bounds model/dispatch alternations per user turn.
	MaxToolCycles int `json:"max_tool_cycles,omitempty" yaml:"max_tool_cycles,omitempty" validate:"omitempty,gte=1"`
	// Fanout bounds concurrent tool calls within one dispatch.
	Fanout       int `json:"fanout,omitempty" yaml:"fanout,omitempty" validate:"omitempty,gte=1"`
	HistoryLimit int `json:"history_limit,omitempty" yaml:"history_limit,omitempty" validate:"omitempty,gte=1"`
	// NativeTools is the allow-list of in-process tools offered to the
	// model. Empty means none.
	NativeTools []string `json:"native_tools,omitempty" yaml:"native_tools,omitempty"`
	// ResourceContext renders backend resources into the model input.
	ResourceContext bool `json:"resource_context,omitempty" yaml:"resource_context,omitempty"`
}

// RedisConfig selects the Redis turn store. An empty Addr selects the
// in-memory store.
type RedisConfig struct {
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty" validate:"omitempty,hostname_port"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db,omitempty" yaml:"db,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// AttachmentConfig tunes the attachment refresh policy.
type AttachmentConfig struct {
	// ExpiryThreshold is the provider reference age that triggers a refresh,
	// in time.ParseDuration syntax, e.g. "47h".
	ExpiryThreshold string `json:"expiry_threshold,omitempty" yaml:"expiry_threshold,omitempty"`
}

// Threshold parses the expiry threshold. Zero means use the default.
func (c *AttachmentConfig) Threshold() (time.Duration, error) {
	if c.ExpiryThreshold == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.ExpiryThreshold)
	if err != nil {
		return 0, errors.WithMessage(err, "invalid expiry_threshold")
	}
	return d, nil
}

// LoadConfig reads, expands and validates the configuration from a file.
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseConfig parses and validates raw YAML.
func ParseConfig(data []byte) (*Config, error) {
	cfg := new(Config)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WithMessage(err, "failed to parse configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.WithMessage(err, "invalid configuration")
	}
	seen := make(map[string]bool)
	for _, b := range c.Backends {
		if seen[b.Name] {
			return errors.Newf("invalid configuration: duplicate backend name %q", b.Name)
		}
		seen[b.Name] = true
	}
	if _, err := c.Attachments.Threshold(); err != nil {
		return err
	}
	return nil
}
