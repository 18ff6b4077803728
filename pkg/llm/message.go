package llm

// Message represents a single message in a conversation as it travels over the wire.
// Identifiers and timestamps stay on the client; only role and content are sent.
type Message struct {
	Role    string `json:"role"`    // "system", "user", "assistant"
	Content string `json:"content"` // The message content
}
