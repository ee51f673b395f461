package chatmodel

import (
	"time"

	"github.com/effective-security/agentic/pkg/llms"
)

// Attachment is a file reference carried by a conversation turn. The storage
// URI is permanent; the provider URI is the short-lived reference understood
// by the model provider and is replaced in place when it expires. The
// storage URI never changes after creation.
type Attachment struct {
	// StorageURI is the durable location of the content in long-term storage.
	StorageURI string `json:"storage_uri"`
	// ProviderURI is the provider-scoped reference with a bounded validity
	// window, counted from UploadedAt.
	ProviderURI string `json:"provider_uri"`
	// MIMEType of the content.
	MIMEType string `json:"mime_type"`
	// UploadedAt is when ProviderURI was created.
	UploadedAt time.Time `json:"uploaded_at"`
}

// Turn is one committed conversation turn. Turns are immutable once stored;
// new turns are only ever appended. The sole exception is an attachment's
// provider URI, which the attachment lifecycle manager may refresh in place.
type Turn struct {
	ID          string       `json:"id"`
	ChatID      string       `json:"chat_id"`
	Role        llms.Role    `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// NewTurn creates a turn with a generated ID.
func NewTurn(chatID string, role llms.Role, content string) Turn {
	return Turn{
		ID:        NewChatID(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// Message converts the turn into a model-bound message. Attachments are
// rendered as provider file references; the caller is responsible for
// refreshing expired provider URIs first.
func (t Turn) Message() llms.Message {
	parts := []llms.ContentPart{llms.TextPart(t.Content)}
	for _, att := range t.Attachments {
		if att.ProviderURI != "" {
			parts = append(parts, llms.FileURIPart(att.ProviderURI, att.MIMEType))
		}
	}
	return llms.MessageFromParts(t.Role, parts...)
}
