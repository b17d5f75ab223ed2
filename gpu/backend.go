// Package gpu abstracts the GL-facing operations the glyph atlas and the
// frame pipeline need, the same way the teacher repo accepts
// nmage/buffers.Buffer and nmage/materials.Material instead of calling
// go-gl directly from glyphs.GlyphRend. Isolating the real GPU calls
// behind an interface is what lets the core (glyphs, frame) be exercised
// by tests without a live GL context.
package gpu

// TextureHandle identifies a GPU texture owned by a Backend.
type TextureHandle uint32

// Rect is an integer viewport/content rectangle.
type Rect struct {
	X, Y, W, H int
}

// AtlasBackend is the subset of GPU operations the glyph atlas needs to
// grow, evict, and populate its texture.
type AtlasBackend interface {
	// MaxTextureSize reports Mt, the GPU's maximum single-dimension
	// texture size (GL_MAX_TEXTURE_SIZE).
	MaxTextureSize() int

	// CreateAlphaTexture allocates a new single-channel texture of the
	// given size, cleared to zero.
	CreateAlphaTexture(w, h int) TextureHandle

	DeleteTexture(tex TextureHandle)

	// CopyAlphaRegion blits a w×h region from src at (srcX, srcY) to dst
	// at (dstX, dstY). src and dst may be the same texture (used during
	// live-set compaction, which blits within the one texture at Mt).
	CopyAlphaRegion(dst TextureHandle, dstX, dstY int, src TextureHandle, srcX, srcY, w, h int)

	// UploadAlphaSubImage uploads a w×h alpha bitmap into dst at (x, y).
	UploadAlphaSubImage(dst TextureHandle, x, y, w, h int, pixels []byte)
}

// FrameBackend is the subset of GPU operations the frame pipeline needs to
// execute one frame per spec.md §4.3.
type FrameBackend interface {
	UploadColorBuffer(data []byte)
	UploadGlyphBuffer(layer int, data []byte)

	// BindIntermediateTarget binds an off-screen RGBA color target of the
	// given content size (used for the bilinear scaling path).
	BindIntermediateTarget(contentW, contentH int)
	BindDefaultFramebuffer()
	SetViewport(r Rect)
	Clear()

	SetBackgroundUniforms(screenW, screenH, glyphW, glyphH int)
	SetForegroundUniforms(screenW, screenH, glyphW, glyphH, fthick int, lineColor [3]float32)

	// BindGlyphAtlas binds the glyph atlas texture (and its pixel
	// dimensions, for UV normalization) as the foreground program's
	// sampler, per spec.md §4.3 step 8.
	BindGlyphAtlas(tex TextureHandle, texW, texH int)

	// DrawInstancedCells issues the instanced draw described in spec.md
	// §4.3 step 6/8: 6 vertices, cellCount instances, geometry synthesized
	// from the instance ID in the vertex stage.
	DrawInstancedCells(cellCount int)

	BlitIntermediateToDefault(viewport Rect)
	SwapBuffers()
}

// Backend is the full GPU surface consumed by this module.
type Backend interface {
	AtlasBackend
	FrameBackend
}
