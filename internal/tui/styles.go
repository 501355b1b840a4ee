package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#cba6f7")
	colorDone    = lipgloss.Color("#a6e3a1")
	colorError   = lipgloss.Color("#f38ba8")
	colorMuted   = lipgloss.Color("#6c7086")
	colorText    = lipgloss.Color("#cdd6f4")
)

var (
	styleTitle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true).
			MarginBottom(1)

	styleStepCurrent = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	styleStepDone = lipgloss.NewStyle().
			Foreground(colorDone)

	styleStepUpcoming = lipgloss.NewStyle().
				Foreground(colorMuted)

	styleLabel = lipgloss.NewStyle().
			Foreground(colorText)

	styleError = lipgloss.NewStyle().
			Foreground(colorError).
			PaddingLeft(2)

	styleHint = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)

	styleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(1, 2)
)

// hintBar renders key and description pairs: "enter next • esc quit".
func hintBar(pairs ...string) string {
	var out string
	for i := 0; i+1 < len(pairs); i += 2 {
		if i > 0 {
			out += " • "
		}
		out += pairs[i] + " " + pairs[i+1]
	}
	return styleHint.Render(out)
}
