package ui

import (
	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	rtruncate "github.com/muesli/reflow/truncate"
)

const ellipsis = "…"

var (
	fuchsia   = lipgloss.Color("#EE6FF8")
	cream     = lipgloss.AdaptiveColor{Light: "#FFFDF5", Dark: "#FFFDF5"}
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	green     = lipgloss.Color("#04B575")
	subtleFg  = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	cursorBg  = lipgloss.AdaptiveColor{Light: "#F1F1F1", Dark: "#2B2B2B"}
	warningBg = lipgloss.AdaptiveColor{Light: "#FFE8A3", Dark: "#6B5300"}

	titleStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(fuchsia).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(subtleFg)

	selectedStyle = lipgloss.NewStyle().
			Foreground(fuchsia).
			Background(cursorBg)

	labelStyle = lipgloss.NewStyle().
			Width(12).
			Foreground(subtleFg)

	focusedLabelStyle = labelStyle.
				Foreground(fuchsia)

	hintStyle = lipgloss.NewStyle().
			Foreground(subtleFg).
			Render

	errorStyle = lipgloss.NewStyle().
			Foreground(red).
			Render

	okStyle = lipgloss.NewStyle().
		Foreground(green).
		Render

	bannerStyle = lipgloss.NewStyle().
			Background(warningBg).
			Padding(0, 1).
			Render
)

// truncate cuts s to the given display width
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return rtruncate.StringWithTail(s, uint(width), ellipsis)
}

// displayWidth returns the width of s in terminal cells
func displayWidth(s string) int {
	return runewidth.StringWidth(s)
}

// pad right-pads s to the given display width
func pad(s string, width int) string {
	return runewidth.FillRight(s, width)
}
