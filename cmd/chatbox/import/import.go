package importcmder

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatbox/cmd/chatbox/session"
	"github.com/papercomputeco/chatbox/cmd/chatbox/transfer"
)

const importLongDesc string = `Import a conversation.

Replaces the persisted conversation with one written by "chatbox export".
The envelope's checksum and structure are verified first; nothing is
changed when verification fails. Use "-" to read from stdin.

Examples:
  chatbox import backup.json
  chatbox import --db /tmp/scratch.db chat.yaml
  cat chat.yaml | chatbox import --format yaml -`

const importShortDesc string = "Import a conversation"

type importCommander struct {
	format string
}

func NewImportCmd() *cobra.Command {
	cmder := &importCommander{}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: importShortDesc,
		Long:  importLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.format, "format", "f", "", "Input format: json or yaml (default from the file extension)")

	return cmd
}

func (c *importCommander) run(ctx context.Context, cmd *cobra.Command, path string) error {
	format := transfer.FormatFromPath(path)
	if c.format != "" {
		var err error
		format, err = transfer.ParseFormat(c.format)
		if err != nil {
			return err
		}
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("could not read %s: %w", path, err)
	}

	messages, err := transfer.Decode(data, format)
	if err != nil {
		return fmt.Errorf("could not import %s: %w", path, err)
	}

	s, err := session.Open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Store.Replace(messages); err != nil {
		return fmt.Errorf("could not import %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d messages from %s into %s\n", len(messages), path, s.DBPath)
	return nil
}
