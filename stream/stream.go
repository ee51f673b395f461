// Package stream defines the ordered event sequence a turn produces and the
// emitter that delivers it to the calling transport.
package stream

// EventType identifies one kind of turn event.
type EventType string

const (
	// EventTextDelta carries one chunk of streamed model text.
	EventTextDelta EventType = "text_delta"
	// EventToolStarted marks a tool call being dispatched.
	EventToolStarted EventType = "tool_started"
	// EventToolFinished carries a tool result. Results of parallel calls are
	// emitted in call order, matching the dispatcher contract.
	EventToolFinished EventType = "tool_finished"
	// EventError is terminal for a failed turn.
	EventError EventType = "error"
	// EventTurnComplete is terminal for a successful turn.
	EventTurnComplete EventType = "turn_complete"
)

// Event is one entry of a turn's event sequence. How events are serialized
// onto the wire is the calling transport's concern.
type Event struct {
	Type EventType `json:"type"`

	// Text is set for EventTextDelta.
	Text string `json:"text,omitempty"`
	// Tool and Args are set for EventToolStarted and EventToolFinished.
	Tool string `json:"tool,omitempty"`
	Args string `json:"args,omitempty"`
	// Result and Failed are set for EventToolFinished.
	Result string `json:"result,omitempty"`
	Failed bool   `json:"failed,omitempty"`
	// Err is set for EventError.
	Err string `json:"error,omitempty"`
	// TurnID is set for EventTurnComplete.
	TurnID string `json:"turn_id,omitempty"`
}

// Terminal reports whether the event ends the turn's sequence.
func (e Event) Terminal() bool {
	return e.Type == EventError || e.Type == EventTurnComplete
}

func TextDelta(text string) Event {
	return Event{Type: EventTextDelta, Text: text}
}

func ToolStarted(tool, args string) Event {
	return Event{Type: EventToolStarted, Tool: tool, Args: args}
}

func ToolFinished(tool, args, result string, failed bool) Event {
	return Event{Type: EventToolFinished, Tool: tool, Args: args, Result: result, Failed: failed}
}

func Error(message string) Event {
	return Event{Type: EventError, Err: message}
}

func TurnComplete(turnID string) Event {
	return Event{Type: EventTurnComplete, TurnID: turnID}
}
