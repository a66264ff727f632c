package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/local-guide/internal/cli"
	"github.com/Veraticus/local-guide/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

var errUnknownCommand = errors.New("unknown command")

const commandHelp = `/city <name>  switch city (clears history)
/stats        session counters
/history      questions asked in this city
/health       component health
/help         this list
/quit         leave`

// submit turns one line of input into a question or a slash command.
func (m *Model) submit(raw string) tea.Cmd {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "/") {
		return m.runCommand(text)
	}

	m.entries = append(m.entries, entry{prompt: text, waiting: true})
	m.pending++
	return tea.Batch(m.askCmd(len(m.entries)-1, text), m.spinner.Tick)
}

func (m *Model) runCommand(text string) tea.Cmd {
	name, arg, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "city":
		if arg == "" {
			m.addNotice(m.renderCities())
			return nil
		}
		return m.selectCityCmd(model.NormalizeCity(arg))
	case "stats":
		m.addNotice(cli.RenderStats(m.session.Stats()))
	case "history":
		m.addNotice(cli.RenderHistory(m.session.History()))
	case "health":
		if m.health == nil {
			m.addError(errors.New("health checks are not available"))
			return nil
		}
		return m.healthCmd()
	case "help":
		m.addNotice(commandHelp)
	case "quit", "exit":
		m.quitting = true
		return tea.Quit
	default:
		m.addError(fmt.Errorf("%w /%s, try /help", errUnknownCommand, name))
	}
	return nil
}

func (m *Model) askCmd(index int, text string) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		resp, err := session.Ask(ctx, text)
		return answerMsg{index: index, resp: resp, err: err}
	}
}

func (m *Model) selectCityCmd(city model.City) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		c, err := session.SelectCity(ctx, city)
		return citySelectedMsg{city: city, ctx: c, err: err}
	}
}

func (m *Model) healthCmd() tea.Cmd {
	ctx, checker := m.ctx, m.health
	return func() tea.Msg {
		return healthMsg{health: checker.Health(ctx)}
	}
}

func (m *Model) renderCities() string {
	names := make([]string, 0, len(m.cities))
	for _, c := range m.cities {
		names = append(names, c.Title())
	}
	current := "none"
	if c := m.session.City(); c != "" {
		current = c.Title()
	}
	return fmt.Sprintf("Cities: %s (current: %s)", strings.Join(names, ", "), current)
}
