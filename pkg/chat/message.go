// Package chat implements the client-side conversation state of chatbox: the
// Store owning the ordered message log and theme preference, and the
// Controller running one reply request at a time against it.
package chat

import (
	"fmt"
	"time"

	"github.com/papercomputeco/chatbox/pkg/llm"
)

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Visible reports whether messages of this role are shown to the user.
func (r Role) Visible() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one turn in the conversation. Messages are never mutated once
// appended to a Store.
type Message struct {
	ID        string    `json:"id" yaml:"id"`
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

func (m Message) String() string {
	return fmt.Sprintf("[%s]: %s", m.Role, m.Content)
}

// Wire strips the message down to what the reply endpoint receives.
func (m Message) Wire() llm.Message {
	return llm.Message{
		Role:    string(m.Role),
		Content: m.Content,
	}
}

// ToWire converts a log into the {role, content} sequence sent upstream.
func ToWire(messages []Message) []llm.Message {
	out := make([]llm.Message, len(messages))
	for i, m := range messages {
		out[i] = m.Wire()
	}
	return out
}

// FilterVisible returns the messages that are rendered to the user, in order.
func FilterVisible(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role.Visible() {
			out = append(out, m)
		}
	}
	return out
}
