package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles used for text output.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Path    lipgloss.Style

	// Status icons, rendered with String().
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusWarning lipgloss.Style
	StatusSkipped lipgloss.Style
}

var (
	colorGreen  = lipgloss.AdaptiveColor{Light: "28", Dark: "42"}
	colorYellow = lipgloss.AdaptiveColor{Light: "136", Dark: "220"}
	colorRed    = lipgloss.AdaptiveColor{Light: "124", Dark: "203"}
	colorBlue   = lipgloss.AdaptiveColor{Light: "25", Dark: "75"}
	colorGray   = lipgloss.AdaptiveColor{Light: "244", Dark: "245"}
	colorAccent = lipgloss.AdaptiveColor{Light: "56", Dark: "141"}
)

// NewStyles creates styles bound to a lipgloss renderer. With a renderer
// whose color profile is Ascii every style renders plain text.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: r.NewStyle().Bold(true).Foreground(colorAccent),
		Header2: r.NewStyle().Bold(true).Foreground(colorBlue),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(colorGray),
		Success: r.NewStyle().Foreground(colorGreen),
		Warning: r.NewStyle().Foreground(colorYellow),
		Error:   r.NewStyle().Foreground(colorRed).Bold(true),
		Info:    r.NewStyle().Foreground(colorBlue),
		Path:    r.NewStyle().Foreground(colorAccent),

		StatusSuccess: r.NewStyle().Foreground(colorGreen).SetString("✓"),
		StatusFailed:  r.NewStyle().Foreground(colorRed).SetString("✗"),
		StatusWarning: r.NewStyle().Foreground(colorYellow).SetString("!"),
		StatusSkipped: r.NewStyle().Foreground(colorGray).SetString("-"),
	}
}

// StatusIcon returns the icon style for a status string.
func (s *Styles) StatusIcon(status string) lipgloss.Style {
	switch status {
	case StatusSuccess, "pass", "ok", "completed":
		return s.StatusSuccess
	case StatusFailed, "error", "fail":
		return s.StatusFailed
	case StatusWarning, "warn":
		return s.StatusWarning
	default:
		return s.StatusSkipped
	}
}
