package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mdp/qrterminal/v3"
	"github.com/muesli/termenv"
)

// darkBackground queries the terminal once at startup, before the
// TUI takes over the screen; the palette below keys off it.
var darkBackground = termenv.HasDarkBackground()

func adaptiveColor(dark, light string) lipgloss.Color {
	if darkBackground {
		return lipgloss.Color(dark)
	}
	return lipgloss.Color(light)
}

// Colors
var (
	colorPrimary   = adaptiveColor("#7B68EE", "#5A4FCF")
	colorSecondary = adaptiveColor("#5B5682", "#8B86B0")
	colorMuted     = adaptiveColor("#636363", "#8A8A8A")
	colorHighlight = adaptiveColor("#E0DAFF", "#2E2860")
	colorStatusBg  = adaptiveColor("#24283B", "#D5D6E0")
	colorText      = adaptiveColor("#C0CAF5", "#343B58")
	colorGreen     = adaptiveColor("#9ECE6A", "#485E30")
	colorRed       = adaptiveColor("#F7768E", "#8C4351")
	colorYellow    = adaptiveColor("#E0AF68", "#8F5E15")
)

// Layout constants
const (
	sidebarPadding  = 4
	minSidebarWidth = 14
)

// Styles
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Padding(0, 1)

	sidebarStyle = lipgloss.NewStyle().
			BorderRight(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(colorSecondary)

	sidebarItemStyle = lipgloss.NewStyle().
				Foreground(colorText).
				Padding(0, 1)

	sidebarSelectedStyle = lipgloss.NewStyle().
				Foreground(colorHighlight).
				Background(colorSecondary).
				Bold(true).
				Padding(0, 1)

	sidebarListeningStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Padding(0, 1)

	chatAuthorStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	chatOwnAuthorStyle = lipgloss.NewStyle().
				Foreground(colorGreen).
				Bold(true)

	chatActionStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Italic(true)

	chatTimestampStyle = lipgloss.NewStyle().
				Foreground(colorMuted)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorStatusBg).
			Padding(0, 1)

	statusConnectedStyle = lipgloss.NewStyle().
				Foreground(colorGreen)

	statusDownStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	chatSystemStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	qrTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)
)

// renderQR renders a QR code with a title line above it.
func renderQR(title, content string) string {
	var buf strings.Builder
	buf.WriteString(qrTitleStyle.Render(title))
	buf.WriteString("\n\n")
	qrterminal.GenerateWithConfig(content, qrterminal.Config{
		Level:          qrterminal.M,
		Writer:         &buf,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		QuietZone:      1,
	})
	return buf.String()
}
