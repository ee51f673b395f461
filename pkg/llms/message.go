package llms

import (
	"fmt"
)

// Role is the type of chat message.
type Role string

const (
	// RoleSystem is the system prompt.
	RoleSystem Role = "system"
	// RoleHuman is a message sent by the user.
	RoleHuman Role = "human"
	// RoleAI is a message produced by the model.
	RoleAI Role = "ai"
	// RoleTool is a tool result fed back to the model.
	RoleTool Role = "tool"
)

// Message is one message in the history sent to a model. It has a role and
// an ordered sequence of content parts.
type Message struct {
	Role  Role          `json:"role"`
	Parts []ContentPart `json:"parts"`
}

// ContentPart is an interface all parts of content have to implement.
type ContentPart interface {
	isPart()
}

// TextContent is content with some text.
type TextContent struct {
	Text string `json:"text"`
}

func (tc TextContent) String() string { return tc.Text }

func (TextContent) isPart() {}

// FileURIContent references content previously uploaded to the model
// provider. The URI is only meaningful to that provider and has a bounded
// validity window.
type FileURIContent struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mime_type"`
}

func (fc FileURIContent) String() string { return fc.URI }

func (FileURIContent) isPart() {}

// FunctionCall is the name and arguments of a function call.
type FunctionCall struct {
	Name string `json:"name"`
	// Arguments is a JSON-encoded argument object.
	Arguments string `json:"arguments"`
}

// ToolCall is a call to a tool requested by the model.
type ToolCall struct {
	// ID is the unique identifier of the tool call, assigned by the model.
	ID string `json:"id"`
	// Type is the tool call kind, typically "function".
	Type string `json:"type"`
	// FunctionCall is the function to be executed.
	FunctionCall *FunctionCall `json:"function,omitempty"`
}

func (tc ToolCall) String() string {
	return fmt.Sprintf("ToolCall: %s (%s), input: %s", tc.ID, tc.FunctionCall.Name, tc.FunctionCall.Arguments)
}

func (ToolCall) isPart() {}

// ToolCallResponse is the result of a tool call, attached to a RoleTool
// message and matched back to its ToolCall by ID.
type ToolCallResponse struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
}

func (tr ToolCallResponse) String() string {
	return fmt.Sprintf("ToolCallResponse: %s (%s), response size: %d", tr.ToolCallID, tr.Name, len(tr.Content))
}

func (ToolCallResponse) isPart() {}

// TextPart creates TextContent from a given string.
func TextPart(s string) TextContent {
	return TextContent{Text: s}
}

// FileURIPart creates a FileURIContent from a provider URI and MIME type.
func FileURIPart(uri, mimeType string) FileURIContent {
	return FileURIContent{URI: uri, MIMEType: mimeType}
}

// MessageFromParts creates a Message with a role and a list of parts.
func MessageFromParts(role Role, parts ...ContentPart) Message {
	return Message{Role: role, Parts: parts}
}

// MessageFromTextParts creates a Message with a role and a list of text parts.
func MessageFromTextParts(role Role, parts ...string) Message {
	result := Message{
		Role:  role,
		Parts: make([]ContentPart, 0, len(parts)),
	}
	for _, part := range parts {
		result.Parts = append(result.Parts, TextPart(part))
	}
	return result
}

// MessageFromToolCalls creates a RoleAI message carrying tool call requests.
func MessageFromToolCalls(role Role, toolCalls ...ToolCall) Message {
	result := Message{
		Role:  role,
		Parts: make([]ContentPart, 0, len(toolCalls)),
	}
	for _, tc := range toolCalls {
		result.Parts = append(result.Parts, tc)
	}
	return result
}

// MessageFromToolResponse creates a RoleTool message carrying a tool result.
func MessageFromToolResponse(role Role, response ToolCallResponse) Message {
	return Message{
		Role:  role,
		Parts: []ContentPart{response},
	}
}

// TextContentOf concatenates the text parts of a message.
func TextContentOf(msg Message) string {
	var out string
	for _, part := range msg.Parts {
		if tc, ok := part.(TextContent); ok {
			out += tc.Text
		}
	}
	return out
}

// ContentResponse is the response returned by a GenerateContent call.
type ContentResponse struct {
	Choices []*ContentChoice
}

// ContentChoice is one of the response choices returned by GenerateContent.
type ContentChoice struct {
	// Content is the textual content of a response.
	Content string `json:"content"`
	// StopReason is the reason the model stopped generating output.
	StopReason string `json:"stop_reason"`
	// ToolCalls is a list of tool calls the model asks to invoke.
	ToolCalls []ToolCall `json:"tool_calls"`
}
