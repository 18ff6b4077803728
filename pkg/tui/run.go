package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatbox/pkg/chat"
)

// Run shows the chat screen until the user quits or ctx is cancelled.
func Run(ctx context.Context, controller *chat.Controller, logger *zap.Logger, opts ...tea.ProgramOption) error {
	m := New(ctx, controller, logger)
	defer m.Close()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
