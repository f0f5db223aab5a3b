package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/dkoosis/dbuild/internal/diag"
)

// Theme defines colors and icons for terminal rendering.
type Theme struct {
	Name    string
	Primary lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
	Icons   ThemeIcons
}

// ThemeIcons defines the icon set for a theme.
type ThemeIcons struct {
	Pass  string
	Fail  string
	Warn  string
	Info  string
	Start string
}

// DefaultTheme returns a vibrant color theme.
func DefaultTheme() Theme {
	return Theme{
		Name:    "default",
		Primary: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),             // blue
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("34")),             // green
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),            // orange
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true), // red
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("45")),             // cyan
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("242")),            // gray
		Bold:    lipgloss.NewStyle().Bold(true),
		Icons: ThemeIcons{
			Pass:  "✓",
			Fail:  "✗",
			Warn:  "⚠",
			Info:  "●",
			Start: "▶",
		},
	}
}

// OrcaTheme returns a muted theme.
func OrcaTheme() Theme {
	return Theme{
		Name:    "orca",
		Primary: lipgloss.NewStyle().Foreground(lipgloss.Color("75")),  // pale blue
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("108")), // sage green
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("179")), // muted gold
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("167")), // muted red
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("110")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Bold:    lipgloss.NewStyle().Bold(true),
		Icons: ThemeIcons{
			Pass:  "✓",
			Fail:  "✗",
			Warn:  "!",
			Info:  "·",
			Start: "›",
		},
	}
}

// MonoTheme returns a monochrome theme (no colors).
func MonoTheme() Theme {
	return Theme{
		Name:    "mono",
		Primary: lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Info:    lipgloss.NewStyle(),
		Muted:   lipgloss.NewStyle(),
		Bold:    lipgloss.NewStyle().Bold(true),
		Icons: ThemeIcons{
			Pass:  "+",
			Fail:  "x",
			Warn:  "!",
			Info:  "*",
			Start: ">",
		},
	}
}

// ThemeByName returns a theme by name, defaulting to DefaultTheme.
func ThemeByName(name string) Theme {
	switch name {
	case "orca":
		return OrcaTheme()
	case "mono":
		return MonoTheme()
	default:
		return DefaultTheme()
	}
}

// SeverityStyle returns the style and icon used for a severity. Unknown
// severities render plain with no icon.
func (t Theme) SeverityStyle(s diag.Severity) (lipgloss.Style, string) {
	switch s {
	case diag.SeverityError:
		return t.Error, t.Icons.Fail
	case diag.SeverityWarning:
		return t.Warning, t.Icons.Warn
	case diag.SeverityInfo:
		return t.Info, t.Icons.Info
	default:
		return lipgloss.NewStyle(), ""
	}
}
