package dispatch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentic/backends"
	"github.com/effective-security/agentic/catalog"
	"github.com/effective-security/agentic/chatmodel"
	"github.com/effective-security/agentic/pkg/metricskey"
	"github.com/effective-security/agentic/tools"
	"github.com/effective-security/xlog"
	"github.com/tidwall/sjson"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agentic", "dispatch")

// DefaultFanout bounds how many tool calls of one batch run concurrently.
const DefaultFanout = 4

// Dispatcher resolves tool calls against the aggregated catalog and invokes
// the owning backend. It only reads connections; the registry owns them.
type Dispatcher struct {
	registry   *backends.Registry
	aggregator *catalog.Aggregator

	fanout int
}

// NewDispatcher creates a dispatcher over the given registry and aggregator.
func NewDispatcher(registry *backends.Registry, aggregator *catalog.Aggregator) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		aggregator: aggregator,
		fanout:     DefaultFanout,
	}
}

// WithFanout bounds concurrent execution within one ExecuteMany batch.
func (d *Dispatcher) WithFanout(n int) *Dispatcher {
	if n > 0 {
		d.fanout = n
	}
	return d
}

// Execute resolves and invokes a single tool call. An unknown tool or a
// backend failure is returned as an error-carrying ToolResult, never as a
// Go error: the model must see the failure as data.
func (d *Dispatcher) Execute(ctx context.Context, call ToolCall) ToolResult {
	index := d.index(ctx)
	return d.execute(ctx, call, index)
}

// ExecuteMany invokes independent calls concurrently, bounded by the fanout
// limit. The result slice has the same length and order as the input; each
// result is matched to its call by ID even though completion order is
// arbitrary. A failure in one call does not affect its siblings.
func (d *Dispatcher) ExecuteMany(ctx context.Context, calls []ToolCall) []ToolResult {
	if len(calls) == 0 {
		return nil
	}
	index := d.index(ctx)

	// dispatched calls run to completion even when the caller's context is
	// canceled; the caller checks its own ctx afterward and discards the
	// results
	runCtx := context.WithoutCancel(ctx)

	byID := make(map[string]ToolResult, len(calls))
	var mu sync.Mutex

	sem := make(chan struct{}, d.fanout)
	var wg sync.WaitGroup
	for _, call := range calls {
		wg.Add(1)
		go func(call ToolCall) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res := d.execute(runCtx, call, index)
			mu.Lock()
			byID[call.ID] = res
			mu.Unlock()
		}(call)
	}
	wg.Wait()

	// reassemble in original call order, matching by call ID
	out := make([]ToolResult, len(calls))
	for i, call := range calls {
		if res, ok := byID[call.ID]; ok {
			out[i] = res
		} else {
			out[i] = ToolResult{
				CallID: call.ID,
				Name:   call.Name,
				Error:  "no response received from tool",
			}
		}
	}
	return out
}

// index snapshots the current catalog into a name lookup for one dispatch.
func (d *Dispatcher) index(ctx context.Context) map[string]catalog.ToolDescriptor {
	descriptors := d.aggregator.Tools(ctx)
	index := make(map[string]catalog.ToolDescriptor, len(descriptors))
	for _, desc := range descriptors {
		index[strings.ToLower(desc.Name)] = desc
	}
	return index
}

func (d *Dispatcher) execute(ctx context.Context, call ToolCall, index map[string]catalog.ToolDescriptor) ToolResult {
	desc, ok := index[strings.ToLower(call.Name)]
	if !ok {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, call.Name)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_not_found",
			"tool", call.Name,
		)
		return ToolResult{
			CallID: call.ID,
			Name:   call.Name,
			Error:  errors.WithMessagef(ErrToolNotFound, "%s", call.Name).Error(),
		}
	}

	started := time.Now()
	content, err := d.invoke(ctx, call, desc)
	metricskey.PerfToolCall.MeasureSince(started, call.Name)

	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, call.Name)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_call_failed",
			"tool", call.Name,
			"err", err.Error(),
		)
		return ToolResult{
			CallID: call.ID,
			Name:   call.Name,
			Error:  errors.WithMessagef(ErrToolExecutionFailed, "%s: %s", call.Name, err.Error()).Error(),
		}
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, call.Name)
	return ToolResult{
		CallID:  call.ID,
		Name:    call.Name,
		Content: content,
	}
}

func (d *Dispatcher) invoke(ctx context.Context, call ToolCall, desc catalog.ToolDescriptor) (string, error) {
	switch origin := desc.Origin.(type) {
	case catalog.Native:
		if origin.Tool == nil {
			return "", errors.Newf("native tool %s has no implementation", call.Name)
		}
		args := call.Arguments
		if origin.Meta.RequiresAuth {
			injected, err := injectCallerIdentity(ctx, args)
			if err != nil {
				return "", err
			}
			args = injected
		}
		return origin.Tool.Call(ctx, args)

	case catalog.Remote:
		// arguments pass through unmodified; remote schemas do not expect
		// the identity field
		conn := d.registry.Get(origin.Endpoint)
		if conn == nil {
			return "", errors.Newf("backend %s is not connected", origin.Endpoint)
		}
		return conn.CallTool(ctx, origin.WireName, call.Arguments)

	default:
		return "", errors.Newf("tool %s has unknown origin", call.Name)
	}
}

// injectCallerIdentity adds the authenticated caller identity to the
// argument object of a tool that declared RequiresAuth. This is the only
// place dispatch modifies model-supplied arguments.
func injectCallerIdentity(ctx context.Context, argsJSON string) (string, error) {
	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return argsJSON, nil
	}
	identity, ok := chatCtx.GetMetadata(chatmodel.MetaCallerIdentity)
	if !ok {
		return argsJSON, nil
	}
	if argsJSON == "" {
		argsJSON = "{}"
	}
	injected, err := sjson.Set(argsJSON, tools.CallerIdentityArg, identity)
	if err != nil {
		return "", errors.WithMessage(err, "failed to inject caller identity")
	}
	return injected, nil
}
