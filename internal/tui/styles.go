package tui

import "github.com/charmbracelet/lipgloss"

// Palette shared by the dashboard widgets. Adaptive pairs keep the output
// readable on light and dark terminals.
var (
	colorAccent  = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7B78FF"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#16A34A", Dark: "#4ADE80"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}
	colorError   = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	versionStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	activityStyle = lipgloss.NewStyle().Foreground(colorWarning)
	spinnerStyle  = lipgloss.NewStyle().Foreground(colorWarning)
	scoreStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	hintStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	tooSmallStyle = lipgloss.NewStyle().Bold(true).Foreground(colorWarning)

	logTimeStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	logInfoStyle    = lipgloss.NewStyle().Foreground(colorAccent)
	logSuccessStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	logWarningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	logErrorStyle   = lipgloss.NewStyle().Foreground(colorError)
)
