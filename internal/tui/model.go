// Package tui provides an interactive chat for one pipeline session.
package tui

import (
	"context"

	"github.com/Veraticus/local-guide/internal/cli"
	"github.com/Veraticus/local-guide/internal/model"
	"github.com/Veraticus/local-guide/internal/pipeline"
	"github.com/Veraticus/local-guide/internal/tui/components"
	"github.com/Veraticus/local-guide/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Session is the slice of a pipeline session the chat drives.
type Session interface {
	Ask(ctx context.Context, text string) (model.Response, error)
	SelectCity(ctx context.Context, city model.City) (model.Context, error)
	City() model.City
	Stats() model.Stats
	History() []model.Interaction
}

// HealthChecker reports component health for /health.
type HealthChecker interface {
	Health(ctx context.Context) pipeline.Health
}

// entry is one block of the transcript: a question with its response, or a
// notice produced by a command.
type entry struct {
	err     error
	resp    *model.Response
	prompt  string
	notice  string
	waiting bool
}

// Model holds the chat state.
type Model struct {
	ctx        context.Context
	session    Session
	health     HealthChecker
	theme      themes.Theme
	help       help.Model
	statsPanel components.StatsPanelModel
	keymap     KeyMap
	config     Config
	cities     []model.City
	entries    []entry
	spinner    spinner.Model
	input      textinput.Model
	viewport   viewport.Model
	width      int
	height     int
	pending    int
	showStats  bool
	showHelp   bool
	quitting   bool
}

func newModel(ctx context.Context, session Session, health HealthChecker, cities []model.City, cfg Config) Model {
	input := textinput.New()
	input.Placeholder = "Ask about food, places or getting around..."
	input.CharLimit = 1000
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(cfg.Theme.Primary)

	m := Model{
		ctx:        ctx,
		session:    session,
		health:     health,
		cities:     cities,
		theme:      cfg.Theme,
		config:     cfg,
		keymap:     DefaultKeyMap(),
		help:       help.New(),
		statsPanel: components.NewStatsPanelModel(cfg.Theme),
		spinner:    s,
		input:      input,
		viewport:   viewport.New(cfg.Width, cfg.Height),
		showStats:  cfg.ShowStats,
		showHelp:   cfg.ShowHelp,
	}
	m.resize(cfg.Width, cfg.Height)
	m.updatePrompt()
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Submit):
			text := m.input.Value()
			m.input.Reset()
			cmd := m.submit(text)
			m.refresh()
			return m, cmd
		case key.Matches(msg, m.keymap.ClearScreen):
			m.entries = nil
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keymap.ToggleStats):
			m.showStats = !m.showStats
			m.resize(m.width, m.height)
			return m, nil
		case key.Matches(msg, m.keymap.ToggleHelp):
			m.help.ShowAll = !m.help.ShowAll
			m.resize(m.width, m.height)
			return m, nil
		case key.Matches(msg, m.keymap.ScrollUp), key.Matches(msg, m.keymap.ScrollDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		var cmd tea.Cmd
		m.statsPanel, cmd = m.statsPanel.Update(msg)
		cmds = append(cmds, cmd)
		m.refresh()

	case answerMsg:
		m.pending--
		if msg.index < len(m.entries) {
			e := &m.entries[msg.index]
			e.waiting = false
			if msg.err != nil {
				e.err = msg.err
			} else {
				resp := msg.resp
				e.resp = &resp
			}
		}
		m.statsPanel, _ = m.statsPanel.Update(components.StatsUpdatedMsg{Stats: m.session.Stats()})
		m.refresh()
		return m, nil

	case citySelectedMsg:
		if msg.err != nil {
			m.addError(msg.err)
		} else {
			m.addNotice(m.theme.StatusSuccess.Render("Now answering questions about " + msg.city.Title() + "."))
		}
		m.updatePrompt()
		m.statsPanel, _ = m.statsPanel.Update(components.StatsUpdatedMsg{Stats: m.session.Stats()})
		m.refresh()
		return m, nil

	case healthMsg:
		m.addNotice(cli.RenderHealth(msg.health))
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.pending > 0 {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(10, width-lipgloss.Width(m.input.Prompt)-2)
	m.help.Width = width

	// header, input and status lines
	chrome := 4
	if m.showStats {
		chrome++
	}
	if m.showHelp {
		chrome += lipgloss.Height(m.help.View(m.keymap))
	}
	m.viewport.Width = width
	m.viewport.Height = max(1, height-chrome)
}

func (m *Model) refresh() {
	m.viewport.SetContent(lipgloss.NewStyle().Width(max(1, m.viewport.Width)).Render(m.renderTranscript()))
	m.viewport.GotoBottom()
}

func (m *Model) updatePrompt() {
	city := m.session.City()
	if city == "" {
		m.input.Prompt = m.theme.Prompt.Render("no city › ")
		return
	}
	m.input.Prompt = m.theme.Prompt.Render(city.Title() + " › ")
}

func (m *Model) addNotice(text string) {
	m.entries = append(m.entries, entry{notice: text})
}

func (m *Model) addError(err error) {
	m.entries = append(m.entries, entry{err: err})
}
