package shared

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/stagegate/stagegate/pkg/status"
)

// CLI styles.
var (
	StatusOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // green
	StatusWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange
	StatusError = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red
	StatusInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))  // blue
	Muted       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	Bold        = lipgloss.NewStyle().Bold(true)
	Header      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
)

// Symbols for status indicators.
const (
	SymbolOK    = "✓"
	SymbolWarn  = "⚠"
	SymbolError = "✗"
	SymbolInfo  = "•"
)

// RenderOK renders a success line.
func RenderOK(msg string) string {
	return StatusOK.Render(SymbolOK) + " " + msg
}

// RenderWarn renders a warning line.
func RenderWarn(msg string) string {
	return StatusWarn.Render(SymbolWarn) + " " + msg
}

// RenderError renders an error line.
func RenderError(msg string) string {
	return StatusError.Render(SymbolError) + " " + msg
}

// RenderLabel renders a dim label for key: value pairs.
func RenderLabel(label string) string {
	return Muted.Render(label)
}

// RenderState renders an evaluation state with the color that matches its
// meaning: completed green, awaiting blue, regressing and scoping red, the
// in-progress states orange.
func RenderState(s status.State) string {
	label := "[" + string(s) + "]"
	switch s {
	case status.StateCompleted:
		return StatusOK.Render(label)
	case status.StateAwaiting:
		return StatusInfo.Render(label)
	case status.StateRegressing, status.StateScoping:
		return StatusError.Render(label)
	default:
		return StatusWarn.Render(label)
	}
}

// RenderPriority renders an action priority marker.
func RenderPriority(p status.Priority) string {
	label := "(" + string(p) + ")"
	switch p {
	case status.PriorityCritical, status.PriorityHigh:
		return StatusError.Render(label)
	case status.PriorityLow:
		return Muted.Render(label)
	default:
		return Muted.Render(label)
	}
}
