package ui

import (
	"github.com/aegisai/aegisdash/internal/policy"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	ColorCyan    = lipgloss.Color("#00D4FF")
	ColorViolet  = lipgloss.Color("#7C3AED")
	ColorGreen   = lipgloss.Color("#10B981")
	ColorYellow  = lipgloss.Color("#F59E0B")
	ColorRed     = lipgloss.Color("#EF4444")
	ColorOrange  = lipgloss.Color("#FF8800")

	ColorHeaderBg   = lipgloss.Color("#16213E")
	ColorText       = lipgloss.Color("#E0E0E0")
	ColorDimText    = lipgloss.Color("#666666")
	ColorBrightText = lipgloss.Color("#FFFFFF")
)

// Style definitions
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorViolet).
			Background(ColorHeaderBg).
			Padding(0, 2)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorCyan).
			Padding(0, 1)

	UrgentPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorRed).
				Padding(0, 1)

	StatsPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorViolet).
			Padding(0, 1)

	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorYellow).
			Padding(1, 2)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorDimText).
			Width(12)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorBrightText).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	NavStyle = lipgloss.NewStyle().
			Foreground(ColorDimText).
			Padding(0, 1)

	NavActiveStyle = lipgloss.NewStyle().
			Foreground(ColorBrightText).
			Background(ColorViolet).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorDimText).
			MarginTop(1)

	KeyStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorDimText)

	RiskFullStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	RiskEmptyStyle = lipgloss.NewStyle().
			Foreground(ColorDimText)

	CriticalStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	HighStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	SafeStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	// Spinner chars for animation
	SpinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

// TierStyle returns the style for an email risk tier
func TierStyle(t policy.Tier) lipgloss.Style {
	switch t {
	case policy.TierCritical:
		return CriticalStyle
	case policy.TierHigh:
		return HighStyle
	default:
		return SafeStyle
	}
}

// TableStyles returns the bubbles table styles used for every feed
func TableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorDimText).
		BorderBottom(true).
		Foreground(ColorCyan).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(ColorBrightText).
		Background(ColorViolet).
		Bold(false)
	return s
}

// RenderLabelValue renders a label-value pair
func RenderLabelValue(label, value string) string {
	return LabelStyle.Render(label+":") + " " + ValueStyle.Render(value)
}

// RenderKey renders a keyboard key
func RenderKey(key string) string {
	return KeyStyle.Render("[" + key + "]")
}

// RenderHelp renders help text
func RenderHelp(key, description string) string {
	return RenderKey(key) + " " + HelpStyle.Render(description)
}

// MiniBanner is the header title
const MiniBanner = "🛡 AegisAI"
