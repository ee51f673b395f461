// Package llmutils provides small helpers shared by the agent core.
package llmutils

import (
	"encoding/json"

	"github.com/effective-security/agentic/pkg/llms"
)

// ToJSON marshals the value to a compact JSON string.
func ToJSON(val any) string {
	bs, _ := json.Marshal(val)
	return string(bs)
}

// CountMessagesContentSize returns the total byte size of message content.
func CountMessagesContentSize(msgs []llms.Message) uint64 {
	var size uint64
	for _, msg := range msgs {
		for _, part := range msg.Parts {
			switch p := part.(type) {
			case llms.TextContent:
				size += uint64(len(p.Text))
			case llms.ToolCall:
				if p.FunctionCall != nil {
					size += uint64(len(p.FunctionCall.Name) + len(p.FunctionCall.Arguments))
				}
			case llms.ToolCallResponse:
				size += uint64(len(p.Content))
			}
		}
	}
	return size
}
