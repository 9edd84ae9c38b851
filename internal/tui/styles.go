// Package tui implements the terminal order form using Bubble Tea.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorText      = lipgloss.Color("#F5F5F5")
	colorBrand     = lipgloss.Color("#25D366")
	colorBrandDark = lipgloss.Color("#128C7E")
	colorAccent    = lipgloss.Color("#34B7F1")
	colorBorder    = lipgloss.Color("#4A5A5F")
	colorSuccess   = lipgloss.Color("#4CAF50")
	colorWarning   = lipgloss.Color("#FFC107")
	colorError     = lipgloss.Color("#F44336")
	colorMuted     = lipgloss.Color("#9E9E9E")
)

// Styles holds all the lipgloss styles for the TUI.
type Styles struct {
	App lipgloss.Style

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style

	ListTitle lipgloss.Style

	// Order summary
	ItemTitle   lipgloss.Style
	Price       lipgloss.Style
	Total       lipgloss.Style
	Option      lipgloss.Style
	OptionFocus lipgloss.Style
	FreeBadge   lipgloss.Style
	Progress    lipgloss.Style

	// Feedback
	FieldError lipgloss.Style
	Banner     lipgloss.Style
	Link       lipgloss.Style

	// General
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Box       lipgloss.Style
	HelpBar   lipgloss.Style
}

// DefaultStyles returns the default TUI styles.
func DefaultStyles() Styles {
	return Styles{
		App: lipgloss.NewStyle().
			Padding(1, 2),

		Header: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colorBorder).
			MarginBottom(1).
			Padding(0, 1),

		HeaderTitle: lipgloss.NewStyle().
			Foreground(colorBrand).
			Bold(true),

		ListTitle: lipgloss.NewStyle().
			Foreground(colorBrand).
			Bold(true).
			MarginBottom(1),

		ItemTitle: lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true),

		Price: lipgloss.NewStyle().
			Foreground(colorText),

		Total: lipgloss.NewStyle().
			Foreground(colorBrand).
			Bold(true),

		Option: lipgloss.NewStyle().
			Foreground(colorText).
			PaddingLeft(2),

		OptionFocus: lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true),

		FreeBadge: lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true),

		Progress: lipgloss.NewStyle().
			Foreground(colorBrandDark),

		FieldError: lipgloss.NewStyle().
			Foreground(colorError).
			PaddingLeft(2),

		Banner: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorError).
			Foreground(colorError).
			Padding(0, 1).
			MarginBottom(1),

		Link: lipgloss.NewStyle().
			Foreground(colorAccent).
			Underline(true),

		Subtle: lipgloss.NewStyle().
			Foreground(colorMuted),

		Highlight: lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true),

		Success: lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true),

		Box: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(1, 2),

		HelpBar: lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1),
	}
}
