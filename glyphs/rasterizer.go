package glyphs

import (
	"image"
	"image/draw"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Rasterizer is the external capability the atlas uses to turn a (code
// point, style) pair into a single-channel alpha bitmap. Kept as an
// interface (spec.md §1: "font loading and glyph rasterization... are
// treated as interfaces consumed by the core") so the atlas can be tested
// against a fake rasterizer without a real font file.
type Rasterizer interface {
	// Rasterize returns the glyph's alpha-only bitmap (row-major, one byte
	// per pixel) and its pixel dimensions, or ok=false on failure (missing
	// glyph, parse error, etc — non-fatal per spec.md §7).
	Rasterize(code rune, style Style) (pix []byte, w, h int, ok bool)
}

// FreetypeRasterizer rasterizes code points on demand from a single
// TrueType font, holding one font.Face per Style. It does not synthesize
// bold or italic glyphs: NewFreetypeRasterizer puts the same face in all
// four slots, and SetFace replaces one of them. Grounded in the teacher's
// glyphs/font_atlas.go, which parses with truetype.Parse and draws glyphs
// with a golang.org/x/image/font.Drawer — but rasterizes one glyph per
// call instead of the whole font up front, matching the atlas's
// lookup-or-insert contract.
type FreetypeRasterizer struct {
	font  *truetype.Font
	faces [4]font.Face
}

// NewFreetypeRasterizer builds a rasterizer for one parsed font at a fixed
// point size. The same face backs all four styles; a host embedding actual
// distinct bold/italic font files can instead construct four
// FreetypeRasterizers and select between them before calling Rasterize.
func NewFreetypeRasterizer(f *truetype.Font, size float64, dpi float64) *FreetypeRasterizer {
	opts := truetype.Options{Size: size, DPI: dpi, Hinting: font.HintingFull}
	face := truetype.NewFace(f, &opts)

	r := &FreetypeRasterizer{font: f}
	for s := Style(0); s < 4; s++ {
		r.faces[s] = face
	}
	return r
}

// SetFace overrides the face used for a given style, letting a caller wire
// in a real bold/italic font file instead of reusing the plain face.
func (r *FreetypeRasterizer) SetFace(style Style, face font.Face) {
	r.faces[style&0x3] = face
}

func (r *FreetypeRasterizer) Rasterize(code rune, style Style) (pix []byte, w, h int, ok bool) {
	face := r.faces[style&0x3]
	if face == nil {
		return nil, 0, 0, false
	}

	dr, mask, maskp, _, glyphOk := face.Glyph(fixed.P(0, 0), code)
	if !glyphOk {
		return nil, 0, 0, false
	}

	w, h = dr.Dx(), dr.Dy()
	if w <= 0 || h <= 0 {
		return nil, 0, 0, false
	}

	alpha := image.NewAlpha(image.Rect(0, 0, w, h))
	draw.Draw(alpha, alpha.Bounds(), mask, maskp, draw.Src)
	return alpha.Pix, w, h, true
}

// I26_6ToF32 converts a 26.6 fixed-point value to float32, as used when
// translating font metrics (advance widths, bearings) into cell-space
// quantities. Carried over from the teacher's glyphs package.
func I26_6ToF32(x fixed.Int26_6) float32 {
	return float32(x) / 64
}
