package components

import (
	"fmt"

	"github.com/Veraticus/local-guide/internal/model"
	"github.com/Veraticus/local-guide/internal/tui/themes"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StatsPanelModel displays session statistics.
type StatsPanelModel struct {
	theme       themes.Theme
	progressBar progress.Model
	stats       model.Stats
	width       int
}

// NewStatsPanelModel creates a new stats panel.
func NewStatsPanelModel(theme themes.Theme) StatsPanelModel {
	prog := progress.New(progress.WithDefaultGradient())
	prog.ShowPercentage = false
	prog.Width = 20

	return StatsPanelModel{
		progressBar: prog,
		theme:       theme,
	}
}

// Update handles messages.
func (m StatsPanelModel) Update(msg tea.Msg) (StatsPanelModel, tea.Cmd) {
	switch msg := msg.(type) {
	case StatsUpdatedMsg:
		m.stats = msg.Stats

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = max(10, min(m.width/4, 30))
	}

	return m, nil
}

// Stats returns the counters currently displayed.
func (m StatsPanelModel) Stats() model.Stats {
	return m.stats
}

// View renders a single status line: answer rate bar plus counters.
func (m StatsPanelModel) View() string {
	if m.stats.Total == 0 {
		return m.theme.StatusPending.Render("No questions yet")
	}

	answered := float64(m.stats.Answered) / float64(m.stats.Total)
	counts := fmt.Sprintf("%d answered · %d refused · %d in scope of %d",
		m.stats.Answered, m.stats.Refused, m.stats.Accepted, m.stats.Total)

	return lipgloss.JoinHorizontal(lipgloss.Center,
		m.progressBar.ViewAs(answered),
		" ",
		m.theme.Normal.Render(counts),
	)
}
