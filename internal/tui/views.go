package tui

import (
	"strings"

	"github.com/Veraticus/local-guide/internal/cli"
	"github.com/charmbracelet/lipgloss"
)

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.renderHeader(),
		m.viewport.View(),
	}
	if m.showStats {
		sections = append(sections, m.statsPanel.View())
	}
	sections = append(sections, m.renderInput())
	if m.showHelp {
		sections = append(sections, m.help.View(m.keymap))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	city := "no city selected, use /city <name>"
	if c := m.session.City(); c != "" {
		city = c.Title()
	}
	title := m.theme.Title.Render(cli.TempleIcon + " Local Guide")
	return m.theme.Header.Width(m.width).Render(title + "  " + m.theme.Subtitle.Render(city))
}

func (m Model) renderInput() string {
	if m.pending > 0 {
		return m.input.View() + " " + m.spinner.View()
	}
	return m.input.View()
}

func (m Model) renderTranscript() string {
	if len(m.entries) == 0 {
		return m.theme.StatusPending.Render("Ask a question, or type /help.")
	}

	blocks := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		blocks = append(blocks, m.renderEntry(e))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderEntry(e entry) string {
	var parts []string
	if e.prompt != "" {
		parts = append(parts, m.theme.Question.Render("› "+e.prompt))
	}
	switch {
	case e.waiting:
		parts = append(parts, m.theme.StatusPending.Render("thinking..."))
	case e.err != nil:
		parts = append(parts, m.theme.StatusError.Render(cli.ErrorIcon+" "+e.err.Error()))
	case e.resp != nil:
		parts = append(parts, cli.RenderResponse(*e.resp, m.config.Verbose))
	case e.notice != "":
		parts = append(parts, e.notice)
	}
	return strings.Join(parts, "\n")
}
