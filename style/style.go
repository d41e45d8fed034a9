// Package style provides a functional API for composing lipgloss-based CLI styles.
package style

import "github.com/charmbracelet/lipgloss"

// Color initializes a lipgloss.Color from a string value.
func Color(value string) lipgloss.Color {
	return lipgloss.Color(value)
}

// Standard ANSI palette.
var (
	Red    = Color("1")
	Green  = Color("2")
	Yellow = Color("3")
	Blue   = Color("4")
	Purple = Color("5")
	Cyan   = Color("6")
	Gray   = Color("#808080")
	Orange = Color("#ffb703")
)

// New returns an empty lipgloss.Style used as a foundation for visual composition.
func New() lipgloss.Style {
	return lipgloss.NewStyle()
}

// Colored initializes a new style with the specified foreground and background colors.
func Colored(fg, bg lipgloss.Color) lipgloss.Style {
	return New().Foreground(fg).Background(bg)
}

// Fg returns a rendering function that applies the specified foreground color to a string.
func Fg(c lipgloss.Color) func(string) string {
	return func(s string) string { return Colored(c, "").Render(s) }
}

var (
	Faint     = func(s string) string { return New().Faint(true).Render(s) }
	Bold      = func(s string) string { return New().Bold(true).Render(s) }
	Italic    = func(s string) string { return New().Italic(true).Render(s) }
	Underline = func(s string) string { return New().Underline(true).Render(s) }
)

// Tag returns a rendering function that encapsulates a string in a colored, padded tag block.
func Tag(fg, bg lipgloss.Color) func(string) string {
	return func(s string) string { return Colored(fg, bg).Padding(0, 1).Render(s) }
}

// Tier colors a fetch tier name by its cost: cheap tiers green, expensive ones orange and red.
func Tier(name string) string {
	switch name {
	case "direct":
		return Fg(Green)(name)
	case "proxy":
		return Fg(Cyan)(name)
	case "browser":
		return Fg(Orange)(name)
	case "render":
		return Fg(Red)(name)
	default:
		return Faint(name)
	}
}

// Provenance highlights synthetic output so it never passes for scraped data in a terminal.
func Provenance(p string) string {
	if p == "synthetic" {
		return Tag(Color("230"), Red)(p)
	}
	return Fg(Green)(p)
}
