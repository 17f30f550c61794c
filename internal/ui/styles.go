// Package ui holds the lipgloss styles shared by the CLI commands.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"

	"github.com/kennyg/scribe/internal/resource"
)

// IsTTY indicates whether stdout is an interactive terminal.
// When false, UI functions produce plain text without colors or decorations.
var IsTTY = term.IsTerminal(os.Stdout.Fd())

var (
	Gold    = lipgloss.Color("#F4D03F")
	Copper  = lipgloss.Color("#DC7633")
	Purple  = lipgloss.Color("#9B59B6")
	Blue    = lipgloss.Color("#5DADE2")
	Cyan    = lipgloss.Color("#76D7C4")
	Green   = lipgloss.Color("#58D68D")
	Pink    = lipgloss.Color("#FF6B9D")
	Magenta = lipgloss.Color("#E91E8C")

	White    = lipgloss.Color("#FDFEFE")
	Gray     = lipgloss.Color("#AAB7B8")
	DarkGray = lipgloss.Color("#5D6D7E")
)

var (
	// Title for primary headings
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Gold)

	// Success messages
	Success = lipgloss.NewStyle().
		Foreground(Green)

	// Error messages
	Error = lipgloss.NewStyle().
		Foreground(Pink).
		Bold(true)

	// Warning messages
	Warning = lipgloss.NewStyle().
		Foreground(Copper)

	// Info messages
	Info = lipgloss.NewStyle().
		Foreground(Blue)

	// Muted/secondary text
	Muted = lipgloss.NewStyle().
		Foreground(Gray)

	// Highlight for important items
	Highlight = lipgloss.NewStyle().
		Foreground(Gold).
		Bold(true)
)

var baseBadge = lipgloss.NewStyle().
	Padding(0, 1).
	Bold(true)

// Badge returns the colored type indicator for a resource category.
func Badge(t resource.Type) string {
	if !IsTTY {
		switch t {
		case resource.TypeAgent:
			return "[AGENT]"
		case resource.TypeTool:
			return "[TOOL]"
		case resource.TypeCommand:
			return "[CMD]"
		case resource.TypeMCPServer:
			return "[MCP]"
		}
		return "[?]"
	}
	switch t {
	case resource.TypeAgent:
		return baseBadge.Background(Magenta).Foreground(White).Render("◈ AGENT")
	case resource.TypeTool:
		return baseBadge.Background(Copper).Foreground(White).Render("⚡ TOOL")
	case resource.TypeCommand:
		return baseBadge.Background(Blue).Foreground(White).Render("⌘ CMD")
	case resource.TypeMCPServer:
		return baseBadge.Background(Purple).Foreground(White).Render("✦ MCP")
	}
	return baseBadge.Background(DarkGray).Foreground(White).Render("?")
}
