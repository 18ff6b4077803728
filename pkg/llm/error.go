// Package llm provides the wire representations exchanged between the chat
// client, the reply endpoint and an optional upstream inference provider.
package llm

// ErrorResponse represents an error from the reply endpoint or upstream LLM API.
type ErrorResponse struct {
	Error string `json:"error"`
}
