package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/papercomputeco/chatbox/pkg/chat"
)

// snapshotMsg carries the newest store state into the program.
type snapshotMsg chat.Snapshot

// mailbox holds the latest snapshot pushed by the store. put never blocks,
// so the store can notify it while a controller holds its lock; readers only
// ever see the newest snapshot.
type mailbox struct {
	mu     sync.Mutex
	latest chat.Snapshot
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newMailbox() *mailbox {
	return &mailbox{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (m *mailbox) put(s chat.Snapshot) {
	m.mu.Lock()
	if s.Version >= m.latest.Version {
		m.latest = s
	}
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// wait returns a command that delivers the next snapshot.
func (m *mailbox) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.signal:
			m.mu.Lock()
			defer m.mu.Unlock()
			return snapshotMsg(m.latest)
		case <-m.done:
			return nil
		}
	}
}

func (m *mailbox) close() {
	m.once.Do(func() { close(m.done) })
}
