package gpu

// FakeBackend is an in-memory Backend used by package tests across glyphs,
// frame, and engine — it never touches a real GL context, mirroring the
// accept-interfaces pattern the teacher already relies on for
// nmage/buffers.Buffer so glyph-rendering logic is unit-testable.
type FakeBackend struct {
	MaxTexSize int

	textures   map[TextureHandle][]byte
	texW, texH map[TextureHandle]int
	nextTex    TextureHandle

	ColorBuffer  []byte
	GlyphBuffers map[int][]byte

	Viewport           Rect
	IntermediateBound  bool
	IntermediateW      int
	IntermediateH      int
	Cleared            int
	Draws              int
	Blits              int
	Swaps              int
	LastBackgroundSize [2]int
	LastForegroundSize [2]int
	LastLineColor      [3]float32

	BoundAtlasTex  TextureHandle
	BoundAtlasW    int
	BoundAtlasH    int
	AtlasBindCount int
}

func NewFakeBackend(maxTexSize int) *FakeBackend {
	return &FakeBackend{
		MaxTexSize:   maxTexSize,
		textures:     make(map[TextureHandle][]byte),
		texW:         make(map[TextureHandle]int),
		texH:         make(map[TextureHandle]int),
		GlyphBuffers: make(map[int][]byte),
	}
}

func (f *FakeBackend) MaxTextureSize() int { return f.MaxTexSize }

func (f *FakeBackend) CreateAlphaTexture(w, h int) TextureHandle {
	f.nextTex++
	tex := f.nextTex
	f.textures[tex] = make([]byte, w*h)
	f.texW[tex] = w
	f.texH[tex] = h
	return tex
}

func (f *FakeBackend) DeleteTexture(tex TextureHandle) {
	delete(f.textures, tex)
	delete(f.texW, tex)
	delete(f.texH, tex)
}

func (f *FakeBackend) CopyAlphaRegion(dst TextureHandle, dstX, dstY int, src TextureHandle, srcX, srcY, w, h int) {
	dstPix := f.textures[dst]
	srcPix := f.textures[src]
	dstW := f.texW[dst]
	srcW := f.texW[src]

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			dstPix[(dstY+row)*dstW+(dstX+col)] = srcPix[(srcY+row)*srcW+(srcX+col)]
		}
	}
}

func (f *FakeBackend) UploadAlphaSubImage(dst TextureHandle, x, y, w, h int, pixels []byte) {
	pix := f.textures[dst]
	dstW := f.texW[dst]

	for row := 0; row < h; row++ {
		copy(pix[(y+row)*dstW+x:(y+row)*dstW+x+w], pixels[row*w:row*w+w])
	}
}

// TexturePixel reads back one pixel, for assertions in tests.
func (f *FakeBackend) TexturePixel(tex TextureHandle, x, y int) byte {
	return f.textures[tex][y*f.texW[tex]+x]
}

func (f *FakeBackend) UploadColorBuffer(data []byte) { f.ColorBuffer = append([]byte(nil), data...) }

func (f *FakeBackend) UploadGlyphBuffer(layer int, data []byte) {
	f.GlyphBuffers[layer] = append([]byte(nil), data...)
}

func (f *FakeBackend) BindIntermediateTarget(contentW, contentH int) {
	f.IntermediateBound = true
	f.IntermediateW, f.IntermediateH = contentW, contentH
}

func (f *FakeBackend) BindDefaultFramebuffer() { f.IntermediateBound = false }

func (f *FakeBackend) SetViewport(r Rect) { f.Viewport = r }

func (f *FakeBackend) Clear() { f.Cleared++ }

func (f *FakeBackend) SetBackgroundUniforms(screenW, screenH, glyphW, glyphH int) {
	f.LastBackgroundSize = [2]int{screenW, screenH}
}

func (f *FakeBackend) SetForegroundUniforms(screenW, screenH, glyphW, glyphH, fthick int, lineColor [3]float32) {
	f.LastForegroundSize = [2]int{screenW, screenH}
	f.LastLineColor = lineColor
}

func (f *FakeBackend) BindGlyphAtlas(tex TextureHandle, texW, texH int) {
	f.BoundAtlasTex, f.BoundAtlasW, f.BoundAtlasH = tex, texW, texH
	f.AtlasBindCount++
}

func (f *FakeBackend) DrawInstancedCells(cellCount int) { f.Draws++ }

func (f *FakeBackend) BlitIntermediateToDefault(viewport Rect) { f.Blits++ }

func (f *FakeBackend) SwapBuffers() { f.Swaps++ }
