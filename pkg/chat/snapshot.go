package chat

// Snapshot is the externally visible conversation state. Snapshots are
// copies: holding one never observes later mutations.
type Snapshot struct {
	// Messages is the full log, system message included.
	Messages []Message
	// Busy is true while a reply request is outstanding.
	Busy  bool
	Theme Theme
	// Version increases by one with every emitted snapshot.
	Version uint64
}

// Visible returns the messages rendered to the user.
func (s Snapshot) Visible() []Message {
	return FilterVisible(s.Messages)
}

// Last returns the final message of the log, or the zero Message for an
// empty log.
func (s Snapshot) Last() Message {
	if len(s.Messages) == 0 {
		return Message{}
	}
	return s.Messages[len(s.Messages)-1]
}
