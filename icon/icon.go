// Package icon provides a multi-variant rendering engine for CLI symbols and feedback indicators.
//
// Icons can be displayed as emoji, nerd-font glyphs, plain ASCII, kaomoji,
// or Unicode squares depending on user preference.
package icon

import (
	"github.com/reelscout/reelscout/key"
	"github.com/spf13/viper"
)

// Visual Variant Constants - these define the supported aesthetic styles for icon rendering.
const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	kaomoji = "kaomoji"
	squares = "squares"
)

// AvailableVariants returns a slice of all registered icon style identifiers.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, kaomoji, squares}
}

// Icon identifies a symbol in the registry.
type Icon int

const (
	Success Icon = iota
	Fail
	Mock
	Warn
	Source
	Stream
)

type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	kaomoji string
	squares string
}

// Get retrieves the visual representation for the receiver based on the global icons variant configuration.
func (d *iconDef) Get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	case kaomoji:
		return d.kaomoji
	case squares:
		return d.squares
	default:
		return ""
	}
}

var icons = map[Icon]*iconDef{
	Success: {emoji: "✅", nerd: "", plain: "+", kaomoji: "(=^･ω･^=)", squares: "🟩"},
	Fail:    {emoji: "❌", nerd: "", plain: "x", kaomoji: "(×_×)", squares: "🟥"},
	Mock:    {emoji: "🧪", nerd: "", plain: "~", kaomoji: "(・_・;)", squares: "🟪"},
	Warn:    {emoji: "⚠️", nerd: "", plain: "!", kaomoji: "(°ロ°)", squares: "🟨"},
	Source:  {emoji: "🌐", nerd: "", plain: "@", kaomoji: "(￣▽￣)", squares: "🟦"},
	Stream:  {emoji: "🎬", nerd: "", plain: ">", kaomoji: "(▰˘◡˘▰)", squares: "🟧"},
}

// Get returns the rendered string for a specified Icon identifier from the global registry.
func Get(i Icon) string {
	def, ok := icons[i]
	if !ok {
		return ""
	}
	return def.Get()
}
