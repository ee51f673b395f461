// Package agent drives the turn-level state machine: model call, tool
// dispatch, tool results, model call again, until the model yields no
// further tool calls or the cycle bound is hit.
package agent

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentic/attachments"
	"github.com/effective-security/agentic/backends"
	"github.com/effective-security/agentic/catalog"
	"github.com/effective-security/agentic/chatmodel"
	"github.com/effective-security/agentic/dispatch"
	"github.com/effective-security/agentic/pkg/llms"
	"github.com/effective-security/agentic/pkg/llmutils"
	"github.com/effective-security/agentic/pkg/metricskey"
	"github.com/effective-security/agentic/store"
	"github.com/effective-security/agentic/stream"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agentic", "agent")

// ErrModelStream is returned when the model streaming call fails. It is
// fatal to the turn but not to the process.
var ErrModelStream = errors.New("model stream failed")

// State of the turn state machine.
type State int

const (
	StateInit State = iota
	StateModelTurn
	StateDispatching
	StateDone
)

const (
	// DefaultMaxCycles bounds ModelTurn/Dispatching alternations per user
	// turn to stop runaway tool-calling loops.
	DefaultMaxCycles = 10
	// DefaultHistoryLimit is how many prior turns are loaded into the model
	// input.
	DefaultHistoryLimit = 50
	// ResourceContentLimit bounds per-resource content rendered into the
	// context block.
	ResourceContentLimit = 500
)

const truncationNotice = "\n\n[Response truncated: tool call limit reached.]"

// Result is the outcome of one completed user turn.
type Result struct {
	// TurnID identifies the committed assistant turn.
	TurnID string
	// Content is the full accumulated assistant text.
	Content string
	// Cycles is how many model calls the turn took.
	Cycles int
	// Truncated is set when the cycle bound forced completion.
	Truncated bool
}

// Loop runs user turns. One Run executes per in-flight turn; a single Loop
// may serve concurrent turns because all per-turn state lives on the stack
// of Run.
type Loop struct {
	model      llms.Model
	registry   *backends.Registry
	aggregator *catalog.Aggregator
	dispatcher *dispatch.Dispatcher
	turns      store.TurnStore
	refresher  *attachments.Manager

	systemPrompt  string
	maxCycles     int
	historyLimit  int
	nativeAllowed map[string]bool
	useResources  bool
}

// NewLoop creates a turn loop. Native tools are gated by an allow-list that
// starts empty: without WithNativeTools the model sees only remote-backend
// tools.
func NewLoop(
	model llms.Model,
	registry *backends.Registry,
	aggregator *catalog.Aggregator,
	dispatcher *dispatch.Dispatcher,
	turns store.TurnStore,
) *Loop {
	return &Loop{
		model:         model,
		registry:      registry,
		aggregator:    aggregator,
		dispatcher:    dispatcher,
		turns:         turns,
		maxCycles:     DefaultMaxCycles,
		historyLimit:  DefaultHistoryLimit,
		nativeAllowed: make(map[string]bool),
	}
}

// WithSystemPrompt sets the system message prepended to every turn.
func (l *Loop) WithSystemPrompt(prompt string) *Loop {
	l.systemPrompt = prompt
	return l
}

// WithMaxCycles overrides the cycle bound.
func (l *Loop) WithMaxCycles(n int) *Loop {
	if n > 0 {
		l.maxCycles = n
	}
	return l
}

// WithHistoryLimit overrides how many prior turns are loaded.
func (l *Loop) WithHistoryLimit(n int) *Loop {
	l.historyLimit = n
	return l
}

// WithNativeTools enables the named in-process tools for the model.
// Remote-backend tools are always offered and need no enabling.
func (l *Loop) WithNativeTools(names ...string) *Loop {
	for _, name := range names {
		l.nativeAllowed[strings.ToLower(name)] = true
	}
	return l
}

// WithAttachments sets the manager used to refresh expired attachments
// during history assembly.
func (l *Loop) WithAttachments(m *attachments.Manager) *Loop {
	l.refresher = m
	return l
}

// WithResourceContext renders backend resources as a context block ahead of
// the conversation history.
func (l *Loop) WithResourceContext(enabled bool) *Loop {
	l.useResources = enabled
	return l
}

// Run executes one user turn. Events are delivered to the emitter in
// production order; the final event is TurnComplete on success or Error on
// failure. The user turn is committed before the first model call and the
// assistant turn after the last one.
func (l *Loop) Run(ctx context.Context, chatID, input string, emitter stream.Emitter) (*Result, error) {
	started := time.Now()
	modelName := l.model.GetName()
	defer metricskey.PerfAgentTurn.MeasureSince(started, modelName)

	res, err := l.run(ctx, chatID, input, emitter)
	if err != nil {
		metricskey.StatsTurnsFailed.IncrCounter(1, modelName)
		_ = emitter.Emit(ctx, stream.Error(err.Error()))
		return nil, err
	}
	metricskey.StatsTurnsCompleted.IncrCounter(1, modelName)
	if res.Truncated {
		metricskey.StatsTurnsTruncated.IncrCounter(1, modelName)
	}
	return res, nil
}

func (l *Loop) run(ctx context.Context, chatID, input string, emitter stream.Emitter) (*Result, error) {
	if chatID == "" {
		return nil, errors.WithStack(chatmodel.ErrInvalidChatContext)
	}
	if chatmodel.GetChatContext(ctx) == nil {
		ctx = chatmodel.WithChatContext(ctx, chatmodel.NewChatContext(chatID))
	}
	modelName := l.model.GetName()

	// Init: commit the user turn, assemble history and the tool catalog.
	state := StateInit
	userTurn := chatmodel.NewTurn(chatID, llms.RoleHuman, input)
	if err := l.turns.AppendTurn(ctx, userTurn); err != nil {
		return nil, errors.WithMessage(err, "failed to store user turn")
	}

	messages, err := l.assembleHistory(ctx, chatID)
	if err != nil {
		return nil, err
	}

	toolDefs := l.enabledTools(ctx)
	var callOpts []llms.CallOption
	if len(toolDefs) > 0 {
		callOpts = append(callOpts, llms.WithTools(toolDefs))
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"chat_id", chatID,
		"messages", len(messages),
		"tools", len(toolDefs),
		"input", slices.StringUpto(input, 64),
	)

	var response strings.Builder
	var cycles int
	var truncated bool

	state = StateModelTurn
	for state != StateDone {
		if cycles >= l.maxCycles {
			truncated = true
			response.WriteString(truncationNotice)
			_ = emitter.Emit(ctx, stream.TextDelta(truncationNotice))
			state = StateDone
			break
		}
		cycles++

		choice, err := l.modelTurn(ctx, messages, callOpts, emitter)
		if err != nil {
			return nil, err
		}
		if choice.Content != "" {
			if response.Len() > 0 {
				response.WriteString("\n\n")
			}
			response.WriteString(choice.Content)
		}

		if len(choice.ToolCalls) == 0 {
			state = StateDone
			break
		}

		// Dispatching: execute all calls of this sub-turn, then feed results
		// back as tool-role messages.
		state = StateDispatching
		messages, err = l.dispatchCalls(ctx, userTurn.ID, choice, messages, emitter)
		if err != nil {
			return nil, err
		}
		state = StateModelTurn
	}

	// Done: commit the assistant turn and emit the terminal event.
	assistantTurn := chatmodel.NewTurn(chatID, llms.RoleAI, response.String())
	if err := l.turns.AppendTurn(ctx, assistantTurn); err != nil {
		return nil, errors.WithMessage(err, "failed to store assistant turn")
	}
	if err := emitter.Emit(ctx, stream.TurnComplete(assistantTurn.ID)); err != nil {
		return nil, err
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"chat_id", chatID,
		"turn_id", assistantTurn.ID,
		"model", modelName,
		"cycles", cycles,
		"truncated", truncated,
	)

	return &Result{
		TurnID:    assistantTurn.ID,
		Content:   response.String(),
		Cycles:    cycles,
		Truncated: truncated,
	}, nil
}

// modelTurn performs one streamed model call. Text deltas are forwarded to
// the emitter as they arrive; models that do not stream still produce one
// delta with the full content.
func (l *Loop) modelTurn(ctx context.Context, messages []llms.Message, callOpts []llms.CallOption, emitter stream.Emitter) (*llms.ContentChoice, error) {
	started := time.Now()
	modelName := l.model.GetName()

	var streamed atomic.Bool
	opts := make([]llms.CallOption, 0, len(callOpts)+1)
	opts = append(opts, callOpts...)
	opts = append(opts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		streamed.Store(true)
		return emitter.Emit(ctx, stream.TextDelta(string(chunk)))
	}))

	metricskey.StatsModelMessagesSent.IncrCounter(float64(len(messages)), modelName)
	metricskey.StatsModelBytesSent.IncrCounter(float64(llmutils.CountMessagesContentSize(messages)), modelName)

	resp, err := l.model.GenerateContent(ctx, messages, opts...)
	metricskey.PerfModelTurn.MeasureSince(started, modelName)
	if err != nil {
		return nil, errors.WithMessage(errors.Mark(err, ErrModelStream), "failed to generate content")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.WithMessage(ErrModelStream, "model returned no choices")
	}

	choice := resp.Choices[0]
	if !streamed.Load() && choice.Content != "" {
		if err := emitter.Emit(ctx, stream.TextDelta(choice.Content)); err != nil {
			return nil, err
		}
	}
	return choice, nil
}

// dispatchCalls executes the tool calls of one sub-turn and appends the
// AI tool-call message and the tool-role responses to the history. When
// cancellation is observed the in-flight calls have already completed; their
// results are discarded and no new model turn is entered.
func (l *Loop) dispatchCalls(ctx context.Context, turnID string, choice *llms.ContentChoice, messages []llms.Message, emitter stream.Emitter) ([]llms.Message, error) {
	calls := make([]dispatch.ToolCall, 0, len(choice.ToolCalls))
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		call := dispatch.NewToolCall(tc.ID, tc.FunctionCall.Name, tc.FunctionCall.Arguments, turnID)
		calls = append(calls, call)
		if err := emitter.Emit(ctx, stream.ToolStarted(call.Name, call.Arguments)); err != nil {
			return nil, err
		}
	}
	if len(calls) == 0 {
		return messages, nil
	}

	results := l.dispatcher.ExecuteMany(ctx, calls)
	if err := ctx.Err(); err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "turn_canceled",
			"discarded_results", len(results),
		)
		return nil, errors.Wrap(err, "turn canceled")
	}

	messages = append(messages, llms.MessageFromToolCalls(llms.RoleAI, choice.ToolCalls...))
	for i, res := range results {
		if err := emitter.Emit(ctx, stream.ToolFinished(res.Name, calls[i].Arguments, res.Payload(), res.Failed())); err != nil {
			return nil, err
		}
		messages = append(messages, llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: res.CallID,
			Name:       res.Name,
			Content:    res.Payload(),
		}))
	}
	return messages, nil
}

// assembleHistory builds the model input: system prompt, optional resource
// context block, then the recent turns with attachments refreshed.
func (l *Loop) assembleHistory(ctx context.Context, chatID string) ([]llms.Message, error) {
	var messages []llms.Message
	if l.systemPrompt != "" {
		messages = append(messages, llms.MessageFromTextParts(llms.RoleSystem, l.systemPrompt))
	}
	if l.useResources {
		if block := l.resourceContext(ctx); block != "" {
			messages = append(messages, llms.MessageFromTextParts(llms.RoleSystem, block))
		}
	}

	history, err := l.turns.RecentTurns(ctx, chatID, l.historyLimit)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to load turn history")
	}
	for _, turn := range history {
		if l.refresher != nil && len(turn.Attachments) > 0 {
			valid, err := l.refresher.EnsureValid(ctx, chatID, turn.Attachments)
			if err != nil {
				// Degrade to omitting the failed attachments rather than
				// aborting the turn.
				turn.Content += "\n[Note: an attachment could not be refreshed and was omitted.]"
			}
			turn.Attachments = valid
		}
		messages = append(messages, turn.Message())
	}
	return messages, nil
}

// enabledTools returns the catalog entries offered to the model, applying
// the native allow-list. Remote tools are always offered.
func (l *Loop) enabledTools(ctx context.Context) []llms.Tool {
	var defs []llms.Tool
	for _, desc := range l.aggregator.Tools(ctx) {
		if _, ok := desc.Origin.(catalog.Native); ok && !l.nativeAllowed[strings.ToLower(desc.Name)] {
			continue
		}
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        desc.Name,
				Description: desc.Description,
				Parameters:  desc.InputSchema,
			},
		})
	}
	return defs
}

// resourceContext renders available backend resources into a bounded context
// block. Resources that fail to read are skipped.
func (l *Loop) resourceContext(ctx context.Context) string {
	resources := l.aggregator.Resources(ctx)
	if len(resources) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Available Resources\n")
	for _, res := range resources {
		b.WriteString("\n## ")
		b.WriteString(res.Name)
		b.WriteString(" (")
		b.WriteString(res.URI)
		b.WriteString(")\n")
		if res.Description != "" {
			b.WriteString(res.Description)
			b.WriteString("\n")
		}

		conn := l.registry.Get(res.Endpoint)
		if conn == nil {
			continue
		}
		content, err := conn.ReadResource(ctx, res.URI)
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "read_resource",
				"uri", res.URI,
				"err", err.Error())
			continue
		}
		if content.Text != "" {
			b.WriteString(slices.StringUpto(content.Text, ResourceContentLimit))
			b.WriteString("\n")
		}
	}
	return b.String()
}
