package chatcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatbox/cmd/chatbox/session"
	"github.com/papercomputeco/chatbox/pkg/tui"
)

const chatLongDesc string = `Open the chat screen.

Shows the conversation, sends what you type to the reply endpoint and
renders the replies as markdown. The conversation and the theme are
saved after every change and restored on the next start. Logs go to
~/.chatbox/chatbox.log.

Examples:
  chatbox
  chatbox chat --url http://localhost:8080/api/chat
  chatbox chat --db ~/notes/chat.bolt`

const chatShortDesc string = "Open the chat screen"

type chatCommander struct{}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	s, err := session.Open(ctx, cmd, session.WithFileLogging())
	if err != nil {
		return err
	}
	defer s.Close()

	s.Logger.Info("chat started",
		zap.String("db", s.DBPath),
		zap.String("url", s.Config.URL),
	)

	// quitting abandons a pending reply
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	controller := s.NewController()
	err = tui.Run(runCtx, controller, s.Logger)
	cancel()
	controller.Wait()

	if err != nil {
		return fmt.Errorf("chat screen failed: %w", err)
	}
	return nil
}

// RunDefault runs the chat screen for a command that is not the chat
// subcommand itself.
func RunDefault(cmd *cobra.Command) error {
	return (&chatCommander{}).run(cmd.Context(), cmd)
}
