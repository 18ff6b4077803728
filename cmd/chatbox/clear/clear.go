package clearcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatbox/cmd/chatbox/session"
)

const clearLongDesc string = `Clear the conversation.

Replaces the persisted conversation with a fresh greeting. The theme
is left alone.

Examples:
  chatbox clear
  chatbox clear --db ~/work/chat.bolt`

const clearShortDesc string = "Clear the conversation"

type clearCommander struct{}

func NewClearCmd() *cobra.Command {
	cmder := &clearCommander{}

	cmd := &cobra.Command{
		Use:   "clear",
		Short: clearShortDesc,
		Long:  clearLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	return cmd
}

func (c *clearCommander) run(ctx context.Context, cmd *cobra.Command) error {
	s, err := session.Open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	removed := len(s.Store.VisibleMessages()) - 1
	s.Store.Reset()

	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d messages from %s\n", max(removed, 0), s.DBPath)
	return nil
}
