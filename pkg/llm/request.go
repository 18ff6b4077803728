package llm

// ChatRequest is the body of an Ollama-compatible /api/chat call. The reply
// server builds one per forwarded conversation.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`

	// Stream defaults to true on the Ollama side, so it is always sent.
	Stream *bool `json:"stream,omitempty"`

	Options   *Options `json:"options,omitempty"`
	KeepAlive string   `json:"keep_alive,omitempty"`
}

// NewChatRequest returns a non-streaming request for the conversation.
// Empty options are left out so the provider applies its defaults.
func NewChatRequest(model string, messages []Message, options *Options) ChatRequest {
	streaming := false
	req := ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &streaming,
	}
	if !options.Empty() {
		req.Options = options
	}
	return req
}
