package color

import (
	"github.com/charmbracelet/lipgloss"
)

// Adaptive palette shared by every style below. Light/Dark values are picked
// so both terminal backgrounds stay readable.
var (
	successColor = lipgloss.AdaptiveColor{Light: "28", Dark: "42"}
	errorColor   = lipgloss.AdaptiveColor{Light: "124", Dark: "196"}
	warningColor = lipgloss.AdaptiveColor{Light: "130", Dark: "214"}
	infoColor    = lipgloss.AdaptiveColor{Light: "25", Dark: "39"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "243", Dark: "245"}
)

// Semantic styles for command output. Passed/failed/skipped markers and the
// summary tables render through these so every command colors results the
// same way.
var (
	SuccessStyle = lipgloss.NewStyle().Foreground(successColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(warningColor)
	InfoStyle    = lipgloss.NewStyle().Foreground(infoColor)
	MutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	HeaderStyle  = lipgloss.NewStyle().Bold(true)
)

// Initialize sets the terminal background assumption for adaptive colors.
// Call it once at startup before rendering any styled output.
func Initialize(isDarkMode bool) {
	lipgloss.SetHasDarkBackground(isDarkMode)
}

// Passed renders s in the success style.
func Passed(s string) string { return SuccessStyle.Render(s) }

// Failed renders s in the error style.
func Failed(s string) string { return ErrorStyle.Render(s) }

// Skipped renders s in the warning style.
func Skipped(s string) string { return WarningStyle.Render(s) }
