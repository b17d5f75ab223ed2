package glyphs

import (
	"math/bits"

	"github.com/bloeys/gputerm/assert"
	"github.com/bloeys/gputerm/gpu"
)

// LiveSetProvider exposes the renderer-side snapshot's resolved atlas
// coordinates to the atlas during live-set compaction (spec.md §4.1,
// "Build used = set of atlas coordinates referenced by any cell in any
// layer of the current snapshot"). Implemented by frame.Snapshot; declared
// here (rather than imported from frame) to avoid a glyphs<->frame import
// cycle — the same accept-an-interface shape the teacher uses for
// nmage/buffers.Buffer.
type LiveSetProvider interface {
	// ForEachResolvedCell calls fn once per live (layer, cellIndex, coord)
	// whose coord is not the empty sentinel.
	ForEachResolvedCell(fn func(layer, cellIndex int, coord AtlasCoord))
	// RewriteResolvedCell repoints a single cell at a glyph's new slot,
	// used when compaction moves a still-live glyph.
	RewriteResolvedCell(layer, cellIndex int, coord AtlasCoord)
}

// Atlas is the glyph atlas of spec.md §2.2/§4.1: a single GPU texture of
// size (Wa, Ha) packing rasterized glyphs into fixed-height rows, grown by
// doubling and, once at the GPU's maximum, compacted in place.
type Atlas struct {
	backend    gpu.AtlasBackend
	rasterizer Rasterizer
	liveSet    LiveSetProvider

	texture    gpu.TextureHandle
	texW, texH int // Wa, Ha

	fw, fh int // cell width/height; row height is fh

	rowCursor   []int32
	rowCapacity int
	colCapacity int

	caches [4]*glyphCache
}

// NewAtlas builds an atlas for a fixed cell size. liveSet is consulted only
// during compaction (when growth has hit the GPU's maximum texture size).
func NewAtlas(backend gpu.AtlasBackend, rasterizer Rasterizer, liveSet LiveSetProvider, cellW, cellH int) *Atlas {
	assert.T(cellW > 0 && cellH > 0, "glyphs.NewAtlas: cell size must be positive, got %dx%d", cellW, cellH)

	return &Atlas{
		backend:    backend,
		rasterizer: rasterizer,
		liveSet:    liveSet,
		fw:         cellW,
		fh:         cellH,
		caches:     [4]*glyphCache{newGlyphCache(), newGlyphCache(), newGlyphCache(), newGlyphCache()},
	}
}

// Texture returns the current atlas texture handle, for a frame pipeline to
// bind as the glyph sampler.
func (a *Atlas) Texture() gpu.TextureHandle { return a.texture }

// TextureSize returns the current atlas texture's pixel dimensions (Wa, Ha),
// for normalizing atlas coordinates into the [0,1] sampler UV range.
func (a *Atlas) TextureSize() (w, h int) { return a.texW, a.texH }

// Lookup implements spec.md §4.1's lookup(code, style) contract.
func (a *Atlas) Lookup(code rune, style Style) AtlasCoord {
	if code == 0 || code == FullWidthFillerRune {
		return EmptyAtlasCoord
	}

	cache := a.caches[style&0x3]
	if coord, ok := cache.get(code); ok {
		return coord
	}

	pix, w, h, ok := a.rasterizer.Rasterize(code, style)
	if !ok {
		// Rasterization failure: non-fatal per spec.md §7, render blank.
		return EmptyAtlasCoord
	}

	advance := uint8(1)
	if w > a.fw {
		advance = 2
	}

	coord := a.allocAndUpload(advance, pix, w, h)
	if coord == EmptyAtlasCoord {
		// Atlas exhausted even after compaction: non-fatal, drop the glyph.
		return EmptyAtlasCoord
	}

	cache.set(code, coord)
	return coord
}

// ResetCaches drops all cached code-point->coordinate maps, for use when
// the atlas texture is replaced wholesale (e.g. a font change).
func (a *Atlas) ResetCaches() {
	for _, c := range a.caches {
		c.reset()
	}
}

func (a *Atlas) allocSlot(w int) (col, row int, ok bool) {
	for r := 0; r < a.rowCapacity; r++ {
		if int(a.rowCursor[r])+w <= a.colCapacity {
			col = int(a.rowCursor[r])
			row = r
			a.rowCursor[r] += int32(w)
			return col, row, true
		}
	}
	return 0, 0, false
}

func (a *Atlas) allocAndUpload(advance uint8, pix []byte, w, h int) AtlasCoord {
	if col, row, ok := a.allocSlot(int(advance)); ok {
		a.backend.UploadAlphaSubImage(a.texture, col*a.fw, row*a.fh, w, h, pix)
		return NewAtlasCoord(col, row, advance)
	}

	a.growOrEvict()

	if col, row, ok := a.allocSlot(int(advance)); ok {
		a.backend.UploadAlphaSubImage(a.texture, col*a.fw, row*a.fh, w, h, pix)
		return NewAtlasCoord(col, row, advance)
	}

	return EmptyAtlasCoord
}

// growOrEvict implements spec.md §4.1's grow-or-evict step.
func (a *Atlas) growOrEvict() {
	maxSize := a.backend.MaxTextureSize()

	newW, newH := a.texW*2, a.texH*2
	if newW == 0 || newH == 0 {
		cell := a.fw
		if a.fh > cell {
			cell = a.fh
		}
		size := nextPowerOfTwo(cell * 16)
		newW, newH = size, size
	}
	if newW > maxSize {
		newW = maxSize
	}
	if newH > maxSize {
		newH = maxSize
	}

	if newW != a.texW || newH != a.texH {
		a.growTexture(newW, newH)
		return
	}

	a.compact()
}

func (a *Atlas) growTexture(newW, newH int) {
	newTex := a.backend.CreateAlphaTexture(newW, newH)
	if a.texture != 0 {
		a.backend.CopyAlphaRegion(newTex, 0, 0, a.texture, 0, 0, a.texW, a.texH)
		a.backend.DeleteTexture(a.texture)
	}

	newRowCapacity := newH / a.fh
	newRowCursor := make([]int32, newRowCapacity)
	copy(newRowCursor, a.rowCursor)
	if len(a.rowCursor) == 0 && newRowCapacity > 0 {
		// Row 0 reserves column 0 for the empty sentinel.
		newRowCursor[0] = 1
	}

	a.texture = newTex
	a.texW, a.texH = newW, newH
	a.rowCursor = newRowCursor
	a.rowCapacity = newRowCapacity
	a.colCapacity = newW / a.fw
}

// compact performs spec.md §4.1's live-set compaction.
func (a *Atlas) compact() {
	live := make(map[AtlasCoord]struct{})
	a.liveSet.ForEachResolvedCell(func(layer, cellIndex int, coord AtlasCoord) {
		live[coord] = struct{}{}
	})

	for r := range a.rowCursor {
		if r == 0 {
			a.rowCursor[r] = 1
		} else {
			a.rowCursor[r] = 0
		}
	}

	for _, cache := range a.caches {
		cache.forEach(func(code rune, oldCoord AtlasCoord) {
			if _, ok := live[oldCoord]; !ok {
				cache.delete(code)
				return
			}

			w := int(oldCoord.Advance())
			newCol, newRow, ok := a.allocSlot(w)
			if !ok {
				// Even a previously-live glyph no longer fits: drop it.
				cache.delete(code)
				return
			}

			newCoord := NewAtlasCoord(newCol, newRow, oldCoord.Advance())
			a.backend.CopyAlphaRegion(a.texture, newCol*a.fw, newRow*a.fh, a.texture, oldCoord.Col()*a.fw, oldCoord.Row()*a.fh, w*a.fw, a.fh)
			cache.set(code, newCoord)

			a.liveSet.ForEachResolvedCell(func(layer, cellIndex int, coord AtlasCoord) {
				if coord == oldCoord {
					a.liveSet.RewriteResolvedCell(layer, cellIndex, newCoord)
				}
			})
		})
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
