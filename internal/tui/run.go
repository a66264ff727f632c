package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/local-guide/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the chat on the terminal and blocks until the user quits or ctx
// ends.
func Run(ctx context.Context, session Session, health HealthChecker, cities []model.City, opts ...Option) error {
	if session == nil {
		return errors.New("session is required")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	m := newModel(ctx, session, health, cities, cfg)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
