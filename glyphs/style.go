package glyphs

// Style selects among the four rasterizations of a code point the atlas
// caches independently: plain, bold, italic, bold+italic.
type Style uint8

const (
	StylePlain Style = iota
	StyleBold
	StyleItalic
	StyleBoldItalic
)

// PendingCell is the packed 32-bit word a screen layer stores per cell
// before it is resolved to an atlas coordinate: code:30 | style_index:2.
// The zero value means "erased".
type PendingCell uint32

func NewPendingCell(code rune, style Style) PendingCell {
	return PendingCell(uint32(code)&0x3FFFFFFF | uint32(style&0x3)<<30)
}

func (p PendingCell) Code() rune   { return rune(uint32(p) & 0x3FFFFFFF) }
func (p PendingCell) Style() Style { return Style(uint32(p) >> 30) }
func (p PendingCell) Empty() bool  { return p.Code() == 0 }
