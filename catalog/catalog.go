// Package catalog aggregates the capabilities of every live backend into
// one flat, deduplicated view offered to the model.
package catalog

import (
	"github.com/effective-security/agentic/backends"
	"github.com/effective-security/agentic/tools"
)

// Origin is the tagged variant identifying which backend owns a tool and how
// to invoke it. Exactly one concrete type implements each case: Native for
// in-process tools, Remote for MCP-server tools.
type Origin interface {
	isOrigin()
}

// Native is the origin of an in-process tool. It carries the tool reference
// and its registration metadata.
type Native struct {
	Tool tools.ITool
	Meta tools.Meta
}

func (Native) isOrigin() {}

// Remote is the origin of a tool owned by a remote backend. WireName is the
// name the backend knows the tool by.
type Remote struct {
	Endpoint backends.Endpoint
	WireName string
}

func (Remote) isOrigin() {}

// ToolDescriptor is one entry of the aggregated tool catalog. Its name is
// unique within the catalog; the connection registry remains the source of
// truth for the owning backend.
type ToolDescriptor struct {
	Name        string
	Description string
	// InputSchema is the JSON schema of the tool arguments.
	InputSchema any
	Origin      Origin
}

// Resource is one entry of the aggregated resource catalog.
type Resource struct {
	backends.ResourceInfo
	Endpoint backends.Endpoint
}

// Prompt is one entry of the aggregated prompt catalog.
type Prompt struct {
	backends.PromptInfo
	Endpoint backends.Endpoint
}
