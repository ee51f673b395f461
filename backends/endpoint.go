// Package backends manages live channels to tool-providing backends: the
// in-process native registry and remote MCP servers. The Registry owns every
// connection; other components only read them.
package backends

import (
	"fmt"
)

// Kind is the transport of a backend endpoint.
type Kind string

const (
	// KindInProcess is the native tool registry.
	KindInProcess Kind = "in-process"
	// KindStdio is a remote MCP server spawned as a subprocess and spoken to
	// over stdin/stdout.
	KindStdio Kind = "remote-stdio"
	// KindHTTP is a remote MCP server spoken to over HTTP.
	KindHTTP Kind = "remote-network"
)

// Endpoint identifies one backend. Immutable once created; its Key is the
// identity used by the Registry.
type Endpoint struct {
	// Name is a human label for logs and status.
	Name string
	Kind Kind
	// URL is set for KindHTTP endpoints.
	URL string
	// Command and Args are set for KindStdio endpoints.
	Command string
	Args    []string
}

// LocalEndpoint is the endpoint of the in-process native tool registry.
func LocalEndpoint() Endpoint {
	return Endpoint{Name: "native", Kind: KindInProcess}
}

// HTTPEndpoint creates a remote-network endpoint.
func HTTPEndpoint(name, url string) Endpoint {
	return Endpoint{Name: name, Kind: KindHTTP, URL: url}
}

// StdioEndpoint creates a remote-stdio endpoint.
func StdioEndpoint(name, command string, args ...string) Endpoint {
	return Endpoint{Name: name, Kind: KindStdio, Command: command, Args: args}
}

// Key returns the endpoint identity used for connection reuse.
func (e Endpoint) Key() string {
	switch e.Kind {
	case KindInProcess:
		return string(KindInProcess)
	case KindHTTP:
		return e.URL
	default:
		return fmt.Sprintf("%s %s", e.Command, e.Args)
	}
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s (%s)", e.Name, e.Key())
}
