package model

import "time"

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultMaxTurns bounds a user's conversation history.
const DefaultMaxTurns = 20

// Turn is one question or answer in a user's conversation.
type Turn struct {
	ID        int64     `json:"id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Model     string    `json:"model,omitempty"` // completion model that produced an assistant turn
	CreatedAt time.Time `json:"created_at"`
}

func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content, CreatedAt: time.Now()}
}

func AssistantTurn(content, model string) Turn {
	return Turn{Role: RoleAssistant, Content: content, Model: model, CreatedAt: time.Now()}
}
