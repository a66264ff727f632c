package tui

import "github.com/Veraticus/local-guide/internal/tui/themes"

// Config holds TUI configuration.
type Config struct {
	Theme     themes.Theme
	Width     int
	Height    int
	Verbose   bool
	ShowStats bool
	ShowHelp  bool
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Theme:     themes.Default,
		Width:     80,
		Height:    24,
		ShowStats: true,
		ShowHelp:  true,
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithVerbose shows the diagnostic reason under each refusal.
func WithVerbose(enabled bool) Option {
	return func(c *Config) {
		c.Verbose = enabled
	}
}

// WithStats toggles the stats line.
func WithStats(enabled bool) Option {
	return func(c *Config) {
		c.ShowStats = enabled
	}
}
