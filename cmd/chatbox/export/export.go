package exportcmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatbox/cmd/chatbox/session"
	"github.com/papercomputeco/chatbox/cmd/chatbox/transfer"
)

const exportLongDesc string = `Export the conversation.

Writes the full conversation, system message included, as a
checksummed JSON or YAML envelope that "chatbox import" accepts.
Without a file the envelope goes to stdout. The format follows the
file extension unless --format is given.

Examples:
  chatbox export
  chatbox export backup.json
  chatbox export --format yaml > chat.yaml`

const exportShortDesc string = "Export the conversation"

type exportCommander struct {
	format string
}

func NewExportCmd() *cobra.Command {
	cmder := &exportCommander{}

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: exportShortDesc,
		Long:  exportLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return cmder.run(cmd.Context(), cmd, path)
		},
	}

	cmd.Flags().StringVarP(&cmder.format, "format", "f", "", "Output format: json or yaml")

	return cmd
}

func (c *exportCommander) run(ctx context.Context, cmd *cobra.Command, path string) error {
	format := transfer.FormatFromPath(path)
	if c.format != "" {
		var err error
		format, err = transfer.ParseFormat(c.format)
		if err != nil {
			return err
		}
	}

	s, err := session.Open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	messages := s.Store.Messages()
	data, err := transfer.Encode(messages, format)
	if err != nil {
		return fmt.Errorf("could not export conversation: %w", err)
	}

	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d messages from %s to %s\n", len(messages), s.DBPath, path)
	return nil
}
