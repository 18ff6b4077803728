// Package chatboxcmder assembles the chatbox command tree.
package chatboxcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/chatbox/cmd/chatbox/chat"
	clearcmder "github.com/papercomputeco/chatbox/cmd/chatbox/clear"
	exportcmder "github.com/papercomputeco/chatbox/cmd/chatbox/export"
	historycmder "github.com/papercomputeco/chatbox/cmd/chatbox/history"
	importcmder "github.com/papercomputeco/chatbox/cmd/chatbox/import"
	mcpcmder "github.com/papercomputeco/chatbox/cmd/chatbox/mcp"
	"github.com/papercomputeco/chatbox/cmd/chatbox/session"
	themecmder "github.com/papercomputeco/chatbox/cmd/chatbox/theme"
)

const chatboxLongDesc string = `chatbox is a terminal chat client.

Run without a subcommand to open the chat screen. The conversation and
the display theme persist in a local database between runs.

Configuration is read from ~/.chatbox/config.toml:

  url           = "http://localhost:8080/api/chat"
  db            = "~/.chatbox/chatbox.db"
  timeout       = "2m"
  system_prompt = "You are a helpful assistant."
  greeting      = "Hi! Ask me anything"
  debug         = false

Flags override the file.`

const chatboxShortDesc string = "A terminal chat client"

func NewChatboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "chatbox",
		Short:        chatboxShortDesc,
		Long:         chatboxLongDesc,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return chatcmder.RunDefault(cmd)
		},
	}

	session.AddFlags(cmd)

	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(clearcmder.NewClearCmd())
	cmd.AddCommand(themecmder.NewThemeCmd())
	cmd.AddCommand(exportcmder.NewExportCmd())
	cmd.AddCommand(importcmder.NewImportCmd())
	cmd.AddCommand(mcpcmder.NewMCPCmd())

	return cmd
}
