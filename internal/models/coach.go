package models

import "time"

// ChatMessage is a single turn in a coach conversation.
type ChatMessage struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"` // user or assistant
	Intent         string    `json:"intent,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// CoachReply is returned to the client after a chat turn.
type CoachReply struct {
	ConversationID string `json:"conversation_id"`
	Intent         string `json:"intent"`
	Reply          string `json:"reply"`
}
