package engine

import "github.com/bloeys/gputerm/glyphs"

// Cell is one source character the external high-level character-cell API
// hands to TransformLine — spec.md §6 treats that API as an external
// collaborator; this is the shape it is expected to hand cells in.
type Cell struct {
	Code rune
	Attr CellAttr
}

// CellAttr is the per-cell attribute word TransformLine splits runs on.
// Bold/Italic/Blink only take effect when the corresponding bit is also
// set in the engine's GlobalAttrs (spec.md §6: "system-wide attribute
// mask (which of bold/italic/blink are actually active)").
type CellAttr struct {
	Bold, Italic, Blink, Reverse    bool
	Underline, Overline, Strikeout bool
	Left, Right                     bool
	FgIndex, BgIndex                int
}

func styleFromAttr(a CellAttr, globalBold, globalItalic bool) glyphs.Style {
	bold := a.Bold && globalBold
	italic := a.Italic && globalItalic
	switch {
	case bold && italic:
		return glyphs.StyleBoldItalic
	case bold:
		return glyphs.StyleBold
	case italic:
		return glyphs.StyleItalic
	default:
		return glyphs.StylePlain
	}
}
