// Package tui is the terminal chat interface: a bubbletea program rendering
// the conversation of a chat.Controller and sending what the user types.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatbox/pkg/chat"
)

const (
	inputHeight = 3
	minWidth    = 20
)

// Model is the bubbletea model of the chat screen.
type Model struct {
	ctx        context.Context
	controller *chat.Controller
	logger     *zap.Logger

	mailbox     *mailbox
	unsubscribe func()

	snap     chat.Snapshot
	keyMap   KeyMap
	style    *Style
	renderer *glamour.TermRenderer
	// rendered for this theme and wrap width
	rendererTheme chat.Theme
	rendererWidth int

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model

	width  int
	height int
}

// New creates the model and subscribes it to the controller's store. Call
// Close once the program has exited.
func New(ctx context.Context, controller *chat.Controller, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := Model{
		ctx:        ctx,
		controller: controller,
		logger:     logger,
		mailbox:    newMailbox(),
		keyMap:     DefaultKeyMap,
		viewport:   viewport.New(80, 20),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Points)),
		help:       help.New(),
		width:      80,
		height:     24,
	}

	m.input = textarea.New()
	m.input.Placeholder = "Type a message…"
	m.input.ShowLineNumbers = false
	m.input.SetHeight(inputHeight)
	m.input.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	m.input.Focus()

	m.unsubscribe = controller.Store().Subscribe(m.mailbox.put)

	m.snap = controller.Snapshot()
	m.applyTheme()
	m.resize(m.width, m.height)

	return m
}

// Close unsubscribes the model from the store.
func (m Model) Close() {
	m.unsubscribe()
	m.mailbox.close()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.mailbox.wait())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case snapshotMsg:
		m.applySnapshot(chat.Snapshot(msg))
		cmds = append(cmds, m.mailbox.wait())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.Send):
			m.send()

		case key.Matches(msg, m.keyMap.ToggleTheme):
			m.controller.ToggleTheme()

		case key.Matches(msg, m.keyMap.Clear):
			if !m.controller.ResetConversation() {
				m.logger.Debug("clear ignored while awaiting a reply")
			}

		case key.Matches(msg, m.keyMap.ScrollUp), key.Matches(msg, m.keyMap.ScrollDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)

		default:
			if m.input.Focused() {
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	default:
		if m.input.Focused() {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// send submits the input. Empty input and input typed while a reply is
// outstanding stay in the box.
func (m *Model) send() {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" || m.snap.Busy {
		return
	}
	if m.controller.Submit(m.ctx, text) {
		m.input.Reset()
	}
}

func (m *Model) applySnapshot(s chat.Snapshot) {
	if s.Version < m.snap.Version {
		return
	}
	themeChanged := s.Theme != m.snap.Theme
	m.snap = s

	if themeChanged {
		m.applyTheme()
	}

	if s.Busy {
		m.input.Blur()
		m.input.Placeholder = "Waiting for a reply…"
	} else if !m.input.Focused() {
		m.input.Focus()
		m.input.Placeholder = "Type a message…"
	}

	m.refresh()
}

func (m *Model) applyTheme() {
	m.style = NewStyle(m.snap.Theme)
	m.spinner.Style = m.style.Typing
	m.ensureRenderer()
}

func (m *Model) resize(width, height int) {
	m.width = max(width, minWidth)
	m.height = height

	m.input.SetWidth(m.width - 2)

	header := 1
	typing := 1
	helpLine := 1
	input := inputHeight + 2
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-header-typing-helpLine-input, 1)

	m.ensureRenderer()
	m.refresh()
}

func (m *Model) bubbleWidth() int {
	return max(m.width*3/4, minWidth)
}

func (m *Model) ensureRenderer() {
	width := m.bubbleWidth() - 4
	if m.renderer != nil && m.rendererTheme == m.snap.Theme && m.rendererWidth == width {
		return
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(string(m.snap.Theme)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.logger.Warn("markdown renderer unavailable", zap.Error(err))
		m.renderer = nil
		return
	}
	m.renderer = r
	m.rendererTheme = m.snap.Theme
	m.rendererWidth = width
}

// refresh re-renders the conversation, keeping the view pinned to the
// bottom unless the user scrolled up.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderConversation())
	if atBottom || m.snap.Busy {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderConversation() string {
	visible := m.snap.Visible()
	blocks := make([]string, 0, len(visible))
	for _, msg := range visible {
		blocks = append(blocks, m.renderMessage(msg))
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) renderMessage(msg chat.Message) string {
	ts := m.style.Timestamp.Render(msg.CreatedAt.Local().Format("3:04 PM"))

	if msg.Role == chat.RoleUser {
		header := ts + " " + m.style.UserLabel.Render("You")
		content := strings.TrimSpace(msg.Content)
		width := min(lipgloss.Width(content)+2, m.bubbleWidth())
		bubble := m.style.UserBubble.Width(width).Render(content)
		block := lipgloss.JoinVertical(lipgloss.Right, header, bubble)
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, block)
	}

	header := m.style.AssistantLabel.Render("AI") + " " + ts
	bubble := m.style.AssistantBubble.Render(m.renderMarkdown(msg.Content))
	return lipgloss.JoinVertical(lipgloss.Left, header, bubble)
}

func (m *Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		m.logger.Debug("markdown render failed", zap.Error(err))
		return content
	}
	return strings.Trim(out, "\n")
}

func (m Model) View() string {
	title := m.style.Header.Render("chatbox") + m.style.Timestamp.Render(string(m.snap.Theme))

	typing := ""
	if m.snap.Busy {
		typing = m.style.Typing.Render(m.spinner.View() + " AI is typing…")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.viewport.View(),
		typing,
		m.style.Input.Render(m.input.View()),
		m.help.View(m.keyMap),
	)
}
