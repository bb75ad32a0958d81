package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Lingsync theme (CLI + TUI).
// Kept intentionally small: reusable styles and a few emojis.

const (
	IconBook    = "📚"
	IconSparkle = "✨"
	IconDone    = "✅"
	IconFlame   = "🔥"
	IconBolt    = "⚡"
	IconWarn    = "⚠️"
	IconError   = "🧨"
	IconCloud   = "☁️"
	IconOffline = "📴"
	IconSync    = "🔄"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	Gold  = lipgloss.NewStyle().Bold(true).Foreground(cGold)

	Panel = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)

	BadgeLevelUp = lipgloss.NewStyle().Bold(true).Foreground(cGold).Render("LEVEL UP")
)

func Heading(icon string, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// LevelBar renders progress within the current level as a fixed-width bar.
func LevelBar(fraction float64, width int) string {
	if width < 4 {
		width = 4
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * float64(width))
	if filled > width {
		filled = width
	}
	return Gold.Render(strings.Repeat("█", filled)) +
		Muted.Render(strings.Repeat("░", width-filled)) +
		Muted.Render(fmt.Sprintf(" %3.0f%%", fraction*100))
}

// SyncStatus renders the connectivity/queue state for status lines.
func SyncStatus(reachable bool, pending int, syncing bool) string {
	switch {
	case syncing:
		return Warn.Render(IconSync + " syncing")
	case pending > 0 && !reachable:
		return Bad.Render(fmt.Sprintf("%s offline, %d pending", IconOffline, pending))
	case pending > 0:
		return Warn.Render(fmt.Sprintf("%s %d pending", IconCloud, pending))
	case !reachable:
		return Muted.Render(IconOffline + " offline")
	default:
		return Good.Render(IconCloud + " synced")
	}
}
