package historycmder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatbox/cmd/chatbox/session"
	"github.com/papercomputeco/chatbox/pkg/chat"
	"github.com/papercomputeco/chatbox/pkg/storage"
)

const historyLongDesc string = `Print the conversation.

Prints every visible message with its author and time. Markdown is
rendered for the current theme when stdout is a terminal. With
--follow the command keeps running and prints messages as another
chatbox process (for example the chat UI) adds them.

Following needs a SQLite database: bbolt files are locked by the
process writing them.

Examples:
  chatbox history
  chatbox history --oneline
  chatbox history --follow`

const historyShortDesc string = "Print the conversation"

type historyCommander struct {
	follow  bool
	raw     bool
	oneline bool
}

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().BoolVarP(&cmder.follow, "follow", "F", false, "Keep printing new messages as they are added")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print markdown source instead of rendering it")
	cmd.Flags().BoolVar(&cmder.oneline, "oneline", false, "Print one truncated line per message")

	return cmd
}

func (c *historyCommander) run(ctx context.Context, cmd *cobra.Command) error {
	s, err := session.Open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if c.follow && s.DBPath == ":memory:" {
		return errors.New("cannot follow an in-memory database")
	}

	p, err := newPrinter(cmd.OutOrStdout(), s.Store.Theme(), c.raw, c.oneline)
	if err != nil {
		return err
	}

	messages := s.Store.Messages()
	for _, m := range chat.FilterVisible(messages) {
		p.print(m)
	}

	if !c.follow {
		return nil
	}

	f := &follower{
		driver:  s.Driver,
		logger:  s.Logger,
		printer: p,
		seen:    make(map[string]bool, len(messages)),
	}
	f.mark(messages)
	return f.watch(ctx, s.DBPath)
}

// follower prints messages appended to the database by other processes.
type follower struct {
	driver  storage.Driver
	logger  *zap.Logger
	printer *printer

	rootID string
	seen   map[string]bool
}

func (f *follower) mark(messages []chat.Message) {
	if len(messages) > 0 {
		f.rootID = messages[0].ID
	}
	for _, m := range messages {
		f.seen[m.ID] = true
	}
}

func (f *follower) watch(ctx context.Context, dbPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not watch %s: %w", dbPath, err)
	}
	defer watcher.Close()

	// SQLite writes land in sidecar files (-wal, -journal), so watch the
	// directory and filter by name.
	if err := watcher.Add(filepath.Dir(dbPath)); err != nil {
		return fmt.Errorf("could not watch %s: %w", dbPath, err)
	}
	base := filepath.Base(dbPath)

	f.logger.Debug("following conversation", zap.String("path", dbPath))

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), base) || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			f.reload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// reload prints every visible message not printed yet. A new root message
// means the conversation was cleared.
func (f *follower) reload(ctx context.Context) {
	data, err := f.driver.Get(ctx, chat.DefaultLogKey)
	if err != nil {
		if !storage.IsNotFound(err) {
			f.logger.Warn("failed to read conversation", zap.Error(err))
		}
		return
	}

	messages, err := chat.DecodeLog(data)
	if err != nil {
		// a write may be in flight; the next event rereads it
		f.logger.Debug("skipping unreadable conversation", zap.Error(err))
		return
	}

	if messages[0].ID != f.rootID {
		f.printer.notice("conversation cleared")
		f.seen = make(map[string]bool, len(messages))
	}

	for _, m := range messages {
		if f.seen[m.ID] {
			continue
		}
		f.seen[m.ID] = true
		if m.Role.Visible() {
			f.printer.print(m)
		}
	}
	f.rootID = messages[0].ID
}
