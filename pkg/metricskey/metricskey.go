// Package metricskey declares the metric descriptors emitted by the agent
// core: backend connections, tool dispatch, turn execution and attachment
// refreshes.
package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsBackendConnects provides total backend connection attempts.
	StatsBackendConnects = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_backend_connects",
		Help:         "stats_backend_connects provides total backend connection attempts",
		RequiredTags: []string{"endpoint"},
	}

	// StatsBackendConnectsFailed provides total failed backend connections.
	StatsBackendConnectsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_backend_connects_failed",
		Help:         "stats_backend_connects_failed provides total failed backend connection attempts",
		RequiredTags: []string{"endpoint"},
	}

	// StatsToolCallsSucceeded provides total succeeded tool calls.
	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total succeeded tool calls",
		RequiredTags: []string{"tool"},
	}

	// StatsToolCallsFailed provides total failed tool calls.
	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total failed tool calls",
		RequiredTags: []string{"tool"},
	}

	// StatsToolCallsNotFound provides total tool calls to unknown tools.
	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls to unknown tools",
		RequiredTags: []string{"tool"},
	}

	// StatsTurnsCompleted provides total completed agent turns.
	StatsTurnsCompleted = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_turns_completed",
		Help:         "stats_turns_completed provides total completed agent turns",
		RequiredTags: []string{"model"},
	}

	// StatsTurnsFailed provides total failed agent turns.
	StatsTurnsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_turns_failed",
		Help:         "stats_turns_failed provides total failed agent turns",
		RequiredTags: []string{"model"},
	}

	// StatsTurnsTruncated provides total turns cut off at the cycle limit.
	StatsTurnsTruncated = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_turns_truncated",
		Help:         "stats_turns_truncated provides total turns cut off at the tool cycle limit",
		RequiredTags: []string{"model"},
	}

	// StatsModelMessagesSent provides total messages sent to the model.
	StatsModelMessagesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_model_messages_sent",
		Help:         "stats_model_messages_sent provides total messages sent to the model",
		RequiredTags: []string{"model"},
	}

	// StatsModelBytesSent provides total content bytes sent to the model.
	StatsModelBytesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_model_bytes_sent",
		Help:         "stats_model_bytes_sent provides total content bytes sent to the model",
		RequiredTags: []string{"model"},
	}

	// StatsAttachmentsRefreshed provides total attachment re-materializations.
	StatsAttachmentsRefreshed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_attachments_refreshed",
		Help:         "stats_attachments_refreshed provides total attachment re-materializations",
		RequiredTags: []string{},
	}

	// StatsAttachmentsRefreshFailed provides total failed re-materializations.
	StatsAttachmentsRefreshFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_attachments_refresh_failed",
		Help:         "stats_attachments_refresh_failed provides total failed attachment re-materializations",
		RequiredTags: []string{},
	}
)

// Perf
var (
	// PerfToolCall measures tool call execution time.
	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call measures tool call execution time",
		RequiredTags: []string{"tool"},
	}

	// PerfModelTurn measures one model call within a turn.
	PerfModelTurn = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_model_turn",
		Help:         "perf_model_turn measures one model call within a turn",
		RequiredTags: []string{"model"},
	}

	// PerfAgentTurn measures a full user turn, including tool cycles.
	PerfAgentTurn = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_agent_turn",
		Help:         "perf_agent_turn measures a full user turn including tool cycles",
		RequiredTags: []string{"model"},
	}

	// PerfBackendList measures capability listing per backend.
	PerfBackendList = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_backend_list",
		Help:         "perf_backend_list measures capability listing per backend",
		RequiredTags: []string{"endpoint"},
	}
)
