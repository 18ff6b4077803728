package themecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatbox/cmd/chatbox/session"
	"github.com/papercomputeco/chatbox/pkg/chat"
)

const themeLongDesc string = `Show or change the display theme.

Without an argument the current theme is printed. "toggle" flips
between light and dark.

Examples:
  chatbox theme
  chatbox theme dark
  chatbox theme toggle`

const themeShortDesc string = "Show or change the display theme"

type themeCommander struct{}

func NewThemeCmd() *cobra.Command {
	cmder := &themeCommander{}

	cmd := &cobra.Command{
		Use:       "theme [light|dark|toggle]",
		Short:     themeShortDesc,
		Long:      themeLongDesc,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"light", "dark", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return cmder.run(cmd.Context(), cmd, arg)
		},
	}

	return cmd
}

func (c *themeCommander) run(ctx context.Context, cmd *cobra.Command, arg string) error {
	var want chat.Theme
	if arg != "" && arg != "toggle" {
		theme, err := chat.ParseTheme(arg)
		if err != nil {
			return err
		}
		want = theme
	}

	s, err := session.Open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	switch {
	case arg == "toggle":
		s.Store.ToggleTheme()
	case want != "":
		s.Store.SetTheme(want)
	}

	fmt.Fprintln(cmd.OutOrStdout(), s.Store.Theme())
	return nil
}
