package domain

import "time"

// ChatRole identifies who authored a chat turn.
type ChatRole string

// Available chat roles.
const (
	// ChatRoleHuman is a question asked by the user.
	ChatRoleHuman ChatRole = "human"

	// ChatRoleAssistant is an answer produced by the RAG engine.
	ChatRoleAssistant ChatRole = "assistant"
)

// IsValid returns true if the role is recognised.
func (r ChatRole) IsValid() bool {
	return r == ChatRoleHuman || r == ChatRoleAssistant
}

// String returns the string representation.
func (r ChatRole) String() string {
	return string(r)
}

// ChatTurn is one message of a conversation about a document.
// The log is append-only and ordered per (user, document).
type ChatTurn struct {
	// ID is the unique identifier for the turn.
	ID string

	// Role is the author of the message.
	Role ChatRole

	// Message is the message text.
	Message string

	// CreatedAt is when the turn was appended.
	CreatedAt time.Time
}

// NewestFirst returns a copy of turns ordered from newest to oldest.
// The input is expected in append (oldest-first) order.
func NewestFirst(turns []ChatTurn) []ChatTurn {
	out := make([]ChatTurn, len(turns))
	for i := range turns {
		out[len(turns)-1-i] = turns[i]
	}
	return out
}
