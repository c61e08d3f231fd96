// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui is the terminal front end: a Bubble Tea program over the
// session registry, the mode selector, and the send orchestrator.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/duetchat/duet-tui/internal/model"
)

// =============================================================================
// PALETTE
// =============================================================================

var (
	colorText   = lipgloss.AdaptiveColor{Light: "#1F2328", Dark: "#E6E6E6"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#6E7781", Dark: "#8B949E"}
	colorOnline = lipgloss.Color("#4ADE80")
	colorError  = lipgloss.Color("#F87171")
	colorRule   = lipgloss.AdaptiveColor{Light: "#D0D7DE", Dark: "#3B4048"}
)

// AccentColor returns the persona's accent as a lipgloss color.
func AccentColor(kind model.Kind) lipgloss.Color {
	return lipgloss.Color(model.PersonaFor(kind).AccentColor)
}

// =============================================================================
// STYLES
// =============================================================================

var (
	styleAppFrame = lipgloss.NewStyle().Padding(0, 1)

	styleTab = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	styleTabActive = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true).
			Padding(0, 1).
			Underline(true)

	styleUserLabel = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	styleTimestamp = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleStatusBar = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleStatusOnline = lipgloss.NewStyle().
				Foreground(colorOnline)

	styleStatusOffline = lipgloss.NewStyle().
				Foreground(colorError)

	styleErrorTurn = lipgloss.NewStyle().
			Foreground(colorError)

	styleWelcomeTitle = lipgloss.NewStyle().
				Bold(true)

	styleSuggestion = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	styleThinkingHeader = lipgloss.NewStyle().
				Foreground(colorMuted).
				Italic(true)

	styleAttachment = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)
)

// personaLabelStyle renders a persona's name in its accent color.
func personaLabelStyle(kind model.Kind) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(AccentColor(kind)).Bold(true)
}

// accentTextStyle colors text with a raw accent hex value.
func accentTextStyle(hex string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
}

// init pins the color profile so styling degrades sanely on dumb terminals.
func init() {
	lipgloss.SetColorProfile(termenv.ColorProfile())
}
