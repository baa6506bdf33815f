// Package tui implements the terminal window of Proxy Tray.
// This file contains the lipgloss styles.
package tui

import "github.com/charmbracelet/lipgloss"

// Colors using AdaptiveColor for light/dark terminal support.
var (
	colorWhite  = lipgloss.AdaptiveColor{Light: "0", Dark: "15"}
	colorDim    = lipgloss.AdaptiveColor{Light: "242", Dark: "240"}
	colorGreen  = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
	colorRed    = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	colorOrange = lipgloss.AdaptiveColor{Light: "166", Dark: "208"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "30", Dark: "45"}
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Background(lipgloss.AdaptiveColor{Light: "254", Dark: "236"})

	errorBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "15", Dark: "15"}).
			Background(colorRed).
			Bold(true)

	noticeBarStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Background(lipgloss.AdaptiveColor{Light: "254", Dark: "236"})

	confirmBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "0", Dark: "0"}).
			Background(colorOrange).
			Bold(true)
)

// Configuration list styles.
var (
	cursorStyle = lipgloss.NewStyle().
			Background(lipgloss.AdaptiveColor{Light: "254", Dark: "237"})

	selectedConfigStyle = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	configStyle         = lipgloss.NewStyle().Foreground(colorWhite)
	dimStyle            = lipgloss.NewStyle().Foreground(colorDim)

	runningBadgeStyle = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	faultBadgeStyle   = lipgloss.NewStyle().Foreground(colorOrange).Bold(true)
	offBadgeStyle     = lipgloss.NewStyle().Foreground(colorDim)
)

// Form styles.
var (
	formStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorWhite).
			Padding(1, 2)

	formTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Width(12).
			Foreground(colorDim)

	focusedLabelStyle = lipgloss.NewStyle().
				Width(12).
				Bold(true).
				Foreground(colorWhite)
)

// Key hint styles for the status bar.
var (
	keyStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	hintStyle = lipgloss.NewStyle().Foreground(colorDim)
)
