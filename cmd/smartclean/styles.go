package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/JonMunkholm/smartclean/internal/core"
)

var (
	primaryColor = lipgloss.Color("#4ECDC4")
	warningColor = lipgloss.Color("#FFE66D")
	errorColor   = lipgloss.Color("#FF6B6B")
	subtleColor  = lipgloss.Color("#666666")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#333"))

	labelStyle   = lipgloss.NewStyle().Foreground(subtleColor).Width(16)
	subtleStyle  = lipgloss.NewStyle().Foreground(subtleColor)
	successStyle = lipgloss.NewStyle().Foreground(primaryColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(0, 1)
)

// severityStyle colors an issue by severity.
func severityStyle(s core.Severity) lipgloss.Style {
	switch s {
	case core.SeverityHigh:
		return errorStyle
	case core.SeverityMedium:
		return warningStyle
	default:
		return subtleStyle
	}
}

// scoreStyle colors a quality score: green from 90, yellow from 70, red below.
func scoreStyle(score float64) lipgloss.Style {
	switch {
	case score >= 90:
		return successStyle
	case score >= 70:
		return warningStyle
	default:
		return errorStyle
	}
}
