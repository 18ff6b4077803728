// Package mcpserver exposes a chat conversation as Model Context Protocol
// tools, so an MCP client can drive the same conversation as the chat UI.
package mcpserver

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatbox/pkg/chat"
)

const (
	serverName    = "chatbox"
	serverVersion = "0.1.0"
)

var (
	errEmptyText = errors.New("text must not be empty")
	errPending   = errors.New("a reply is still pending")
)

// Server serves the chat tools over an MCP transport.
type Server struct {
	controller *chat.Controller
	logger     *zap.Logger
	server     *mcp.Server
}

// SendMessageInput is the input of send_message.
type SendMessageInput struct {
	Text string `json:"text" jsonschema:"the user message to send"`
}

// SendMessageOutput is the output of send_message.
type SendMessageOutput struct {
	Reply string `json:"reply" jsonschema:"the assistant reply, or an apology when the request failed"`
}

// ListMessagesInput is the input of list_messages.
type ListMessagesInput struct {
	IncludeSystem bool `json:"include_system,omitempty" jsonschema:"include the system prompt"`
}

// MessageOutput is one message of list_messages.
type MessageOutput struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ListMessagesOutput is the output of list_messages.
type ListMessagesOutput struct {
	Messages []MessageOutput `json:"messages"`
	Theme    string          `json:"theme"`
	Busy     bool            `json:"busy"`
}

// ClearConversationOutput is the output of clear_conversation.
type ClearConversationOutput struct {
	Cleared bool `json:"cleared"`
}

// ToggleThemeOutput is the output of toggle_theme.
type ToggleThemeOutput struct {
	Theme string `json:"theme"`
}

type emptyInput struct{}

// New creates the MCP server and registers its tools.
func New(controller *chat.Controller, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		controller: controller,
		logger:     logger,
		server:     mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "send_message",
		Description: "Send a user message to the conversation and wait for the assistant's reply.",
	}, s.sendMessage)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_messages",
		Description: "List the messages of the conversation in order.",
	}, s.listMessages)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "clear_conversation",
		Description: "Clear the conversation back to the greeting.",
	}, s.clearConversation)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "toggle_theme",
		Description: "Switch the display theme between light and dark.",
	}, s.toggleTheme)

	return s
}

// Run serves on t until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	s.logger.Info("starting MCP server")
	return s.server.Run(ctx, t)
}

// Connect serves a single session on t without blocking.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

func (s *Server) sendMessage(ctx context.Context, _ *mcp.CallToolRequest, in SendMessageInput) (*mcp.CallToolResult, SendMessageOutput, error) {
	s.logger.Debug("send_message called", zap.Int("length", len(in.Text)))

	result, ok := s.controller.Send(ctx, in.Text)
	if !ok {
		if s.controller.Busy() {
			return nil, SendMessageOutput{}, errPending
		}
		return nil, SendMessageOutput{}, errEmptyText
	}

	select {
	case msg := <-result:
		return nil, SendMessageOutput{Reply: msg.Content}, nil
	case <-ctx.Done():
		return nil, SendMessageOutput{}, ctx.Err()
	}
}

func (s *Server) listMessages(_ context.Context, _ *mcp.CallToolRequest, in ListMessagesInput) (*mcp.CallToolResult, ListMessagesOutput, error) {
	snap := s.controller.Snapshot()

	messages := snap.Messages
	if !in.IncludeSystem {
		messages = snap.Visible()
	}

	out := ListMessagesOutput{
		Messages: make([]MessageOutput, len(messages)),
		Theme:    string(snap.Theme),
		Busy:     snap.Busy,
	}
	for i, m := range messages {
		out.Messages[i] = MessageOutput{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}
	return nil, out, nil
}

func (s *Server) clearConversation(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, ClearConversationOutput, error) {
	if !s.controller.ResetConversation() {
		return nil, ClearConversationOutput{}, errPending
	}
	return nil, ClearConversationOutput{Cleared: true}, nil
}

func (s *Server) toggleTheme(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, ToggleThemeOutput, error) {
	theme := s.controller.ToggleTheme()
	return nil, ToggleThemeOutput{Theme: string(theme)}, nil
}
