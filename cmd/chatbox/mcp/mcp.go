package mcpcmder

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatbox/cmd/chatbox/session"
	"github.com/papercomputeco/chatbox/pkg/mcpserver"
)

const mcpLongDesc string = `Serve the conversation as MCP tools over stdio.

Starts a Model Context Protocol server on stdin/stdout exposing the
send_message, list_messages, clear_conversation and toggle_theme
tools. Logs go to ~/.chatbox/chatbox.log so stdio stays clean.

Examples:
  chatbox mcp
  chatbox mcp --db ~/.chatbox/agent.db`

const mcpShortDesc string = "Serve the conversation as MCP tools"

type mcpCommander struct{}

func NewMCPCmd() *cobra.Command {
	cmder := &mcpCommander{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: mcpShortDesc,
		Long:  mcpLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	return cmd
}

func (c *mcpCommander) run(ctx context.Context, cmd *cobra.Command) error {
	s, err := session.Open(ctx, cmd, session.WithFileLogging())
	if err != nil {
		return err
	}
	defer s.Close()

	controller := s.NewController()
	defer controller.Wait()

	return mcpserver.New(controller, s.Logger).Run(ctx, &mcp.StdioTransport{})
}
