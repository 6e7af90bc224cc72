package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFA500"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5F5F"))

	activeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	verdictStyle = lipgloss.NewStyle().
			Bold(true).
			PaddingLeft(1).
			PaddingRight(1)

	// Note colors
	noteColors = map[string]string{
		"C": "#E8D6B0", // Beige
		"D": "#A020F0", // Purple
		"E": "#FFFF00", // Yellow
		"F": "#FFA500", // Orange
		"G": "#00FF00", // Green
		"A": "#FF0000", // Red
		"B": "#0000FF", // Blue
	}
)

// nextLetter is the natural note above letter; sharps are drawn half in
// each color.
func nextLetter(letter string) string {
	switch letter {
	case "C":
		return "D"
	case "D":
		return "E"
	case "E":
		return "F"
	case "F":
		return "G"
	case "G":
		return "A"
	case "A":
		return "B"
	default:
		return "C"
	}
}

func noteBox(color string) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(color)).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333"))
}

// renderNote draws a colored box for a note name such as "A4" or "F#3"
func renderNote(name string) string {
	if name == "" {
		return dimStyle.Render("--")
	}
	letter := name[:1]
	if !strings.Contains(name, "#") {
		return noteBox(noteColors[letter]).Padding(1, 3).Render(name)
	}

	rest := strings.TrimPrefix(name, letter)
	left := noteBox(noteColors[letter]).
		BorderLeft(true).
		BorderTop(true).
		BorderBottom(true).
		BorderRight(false).
		PaddingLeft(2).
		PaddingRight(1).
		PaddingTop(1).
		PaddingBottom(1)
	right := noteBox(noteColors[nextLetter(letter)]).
		BorderLeft(false).
		BorderTop(true).
		BorderBottom(true).
		BorderRight(true).
		PaddingLeft(1).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)
	return lipgloss.JoinHorizontal(lipgloss.Top, left.Render(letter), right.Render(rest))
}
