package frame

import (
	"encoding/binary"

	"github.com/bloeys/gputerm/glyphs"
	"github.com/bloeys/gputerm/screen"
)

// encodeColors serializes a color grid into the tightly packed
// little-endian byte stream the GPU-facing color buffer expects (two
// uint32 words per cell: bg, fg), per spec.md §4.3 step 3.
func encodeColors(colors []screen.ColorRecord) []byte {
	buf := make([]byte, len(colors)*8)
	for i, c := range colors {
		binary.LittleEndian.PutUint32(buf[i*8:], c.Bg())
		binary.LittleEndian.PutUint32(buf[i*8+4:], uint32(c>>32))
	}
	return buf
}

// encodeGlyphs serializes a resolved atlas-coordinate grid into the
// packed little-endian byte stream the GPU-facing glyph buffer expects
// (one uint32 word per cell).
func encodeGlyphs(resolved []glyphs.AtlasCoord) []byte {
	buf := make([]byte, len(resolved)*4)
	for i, c := range resolved {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(c))
	}
	return buf
}
