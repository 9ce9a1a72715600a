package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true).
			Align(lipgloss.Center).
			Width(80)

	taglineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Italic(true).
			Align(lipgloss.Center).
			Width(80).
			MarginBottom(1)

	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
)

func DisplayWelcomeBanner(w io.Writer) {
	fmt.Fprintln(w, bannerStyle.Render("S T O C K P I L O T"))
	fmt.Fprintln(w, taglineStyle.Render("Market scanning and LLM-assisted stock recommendations"))
}

func DisplayError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("Error: "+err.Error()))
}

func DisplayInfo(w io.Writer, message string) {
	fmt.Fprintln(w, infoStyle.Render(message))
}

func DisplaySuccess(w io.Writer, message string) {
	fmt.Fprintln(w, successStyle.Render(message))
}
