package domain

import (
	"fmt"
	"strings"
	"time"
)

// ChatRole identifies the author of a chat turn.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatTurn is one message in a session's append-only history.
// Turns are never mutated after being appended.
type ChatTurn struct {
	Role      ChatRole
	Text      string
	Timestamp time.Time
}

// ChatCitation references the guideline passage backing part of an answer.
type ChatCitation struct {
	Source  string `json:"source"`
	Page    int    `json:"page"`
	ChunkID string `json:"chunk_id"`
	Excerpt string `json:"excerpt"`
}

// ChatResult is the answer to one chat turn, with inline citation markers
// in the answer text and the structured citations backing them.
type ChatResult struct {
	Answer    string         `json:"answer"`
	Citations []ChatCitation `json:"citations"`
}

// ValidateChatTurn checks the fixed role set.
func ValidateChatTurn(t *ChatTurn) error {
	if t == nil {
		return fmt.Errorf("chat turn cannot be nil")
	}
	switch t.Role {
	case ChatRoleUser, ChatRoleAssistant:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidChatRole, t.Role)
	}
	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("chat turn text is required")
	}
	return nil
}
