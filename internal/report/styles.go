package report

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#A78BFA") // Purple
	secondaryColor = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#F87171") // Red
	mutedColor     = lipgloss.Color("#9CA3AF") // Gray

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(mutedColor)

	passStyle  = lipgloss.NewStyle().Bold(true).Foreground(secondaryColor)
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	warnStyle  = lipgloss.NewStyle().Foreground(warningColor)
	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

// column pads s to width cells, right-aligning numeric columns.
func column(s string, width int, right bool) string {
	style := lipgloss.NewStyle().Width(width)
	if right {
		style = style.Align(lipgloss.Right)
	}
	return style.Render(s)
}
