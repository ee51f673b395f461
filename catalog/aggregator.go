package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/effective-security/agentic/backends"
	"github.com/effective-security/agentic/pkg/metricskey"
	"github.com/effective-security/agentic/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agentic", "catalog")

// DefaultListTimeout bounds one backend's capability listing. A slow backend
// is skipped for that aggregation call, never blocks the others.
const DefaultListTimeout = 10 * time.Second

// Aggregator queries every live backend connection and merges the results.
// Name collisions resolve first-registered-wins: the backend that connected
// earlier keeps the name. Results are re-queried on every call; callers that
// need stability within one turn memoize for that turn only.
type Aggregator struct {
	registry *backends.Registry
	// toolMeta resolves metadata for native tools.
	toolMeta *tools.Registry

	listTimeout time.Duration
}

// NewAggregator creates an aggregator over the connection registry. The tool
// registry supplies metadata for native descriptors and may be nil when no
// native backend is registered.
func NewAggregator(registry *backends.Registry, toolMeta *tools.Registry) *Aggregator {
	return &Aggregator{
		registry:    registry,
		toolMeta:    toolMeta,
		listTimeout: DefaultListTimeout,
	}
}

// WithListTimeout sets the per-backend listing timeout.
func (a *Aggregator) WithListTimeout(timeout time.Duration) *Aggregator {
	a.listTimeout = timeout
	return a
}

// Tools returns the aggregated tool catalog.
func (a *Aggregator) Tools(ctx context.Context) []ToolDescriptor {
	conns := a.registry.Connections()
	listed := collect(ctx, a.listTimeout, conns, backends.Connection.ListTools)

	var out []ToolDescriptor
	seen := make(map[string]bool)
	for i, conn := range conns {
		endpoint := conn.Endpoint()
		for _, info := range listed[i] {
			// the collision key matches the dispatch index: names differing
			// only in case are the same tool
			nameKey := strings.ToLower(info.Name)
			if seen[nameKey] {
				// first-registered backend keeps the name
				logger.ContextKV(ctx, xlog.DEBUG,
					"status", "tool_name_collision",
					"tool", info.Name,
					"endpoint", endpoint.String(),
				)
				continue
			}
			seen[nameKey] = true

			var origin Origin
			if endpoint.Kind == backends.KindInProcess {
				origin = a.nativeOrigin(info.Name)
			} else {
				origin = Remote{Endpoint: endpoint, WireName: info.Name}
			}
			out = append(out, ToolDescriptor{
				Name:        info.Name,
				Description: info.Description,
				InputSchema: info.InputSchema,
				Origin:      origin,
			})
		}
	}
	return out
}

func (a *Aggregator) nativeOrigin(name string) Origin {
	if a.toolMeta == nil {
		return Native{}
	}
	tool, _ := a.toolMeta.Get(name)
	meta, _ := a.toolMeta.GetMeta(name)
	return Native{Tool: tool, Meta: meta}
}

// Resources returns the aggregated resource catalog.
func (a *Aggregator) Resources(ctx context.Context) []Resource {
	conns := a.registry.Connections()
	listed := collect(ctx, a.listTimeout, conns, backends.Connection.ListResources)

	var out []Resource
	seen := make(map[string]bool)
	for i, conn := range conns {
		for _, info := range listed[i] {
			if seen[info.URI] {
				continue
			}
			seen[info.URI] = true
			out = append(out, Resource{ResourceInfo: info, Endpoint: conn.Endpoint()})
		}
	}
	return out
}

// Prompts returns the aggregated prompt catalog.
func (a *Aggregator) Prompts(ctx context.Context) []Prompt {
	conns := a.registry.Connections()
	listed := collect(ctx, a.listTimeout, conns, backends.Connection.ListPrompts)

	var out []Prompt
	seen := make(map[string]bool)
	for i, conn := range conns {
		for _, info := range listed[i] {
			if seen[info.Name] {
				continue
			}
			seen[info.Name] = true
			out = append(out, Prompt{PromptInfo: info, Endpoint: conn.Endpoint()})
		}
	}
	return out
}

// collect queries all connections concurrently, each under its own timeout.
// A failing or slow backend yields an empty slot; the failure is logged and
// never propagated.
func collect[T any](
	ctx context.Context,
	timeout time.Duration,
	conns []backends.Connection,
	list func(backends.Connection, context.Context) ([]T, error),
) [][]T {
	results := make([][]T, len(conns))

	var wg sync.WaitGroup
	for i, conn := range conns {
		if !conn.Alive() {
			continue
		}
		wg.Add(1)
		go func(i int, conn backends.Connection) {
			defer wg.Done()

			started := time.Now()
			listCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			items, err := list(conn, listCtx)
			metricskey.PerfBackendList.MeasureSince(started, conn.Endpoint().Name)
			if err != nil {
				logger.ContextKV(ctx, xlog.WARNING,
					"status", "backend_list_failed",
					"endpoint", conn.Endpoint().String(),
					"err", err.Error(),
				)
				return
			}
			results[i] = items
		}(i, conn)
	}
	wg.Wait()

	return results
}
