package llm

// ReplyRequest is the body the chat client posts to the reply endpoint:
// the full conversation so far, system message included.
type ReplyRequest struct {
	Messages []Message `json:"messages"`
}

// ReplyResponse is the body the reply endpoint answers with on success.
type ReplyResponse struct {
	Reply string `json:"reply"`
}

// LastContent returns the content of the final message, or "" for an empty request.
func (r *ReplyRequest) LastContent() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}
