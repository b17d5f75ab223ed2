package frame_test

import (
	"testing"
	"time"

	"github.com/bloeys/gputerm/frame"
	"github.com/bloeys/gputerm/glyphs"
	"github.com/bloeys/gputerm/gpu"
	"github.com/bloeys/gputerm/screen"
)

type fakeRasterizer struct{}

func (fakeRasterizer) Rasterize(code rune, style glyphs.Style) (pix []byte, w, h int, ok bool) {
	return []byte{0xFF}, 1, 1, true
}

// nopLiveSet satisfies glyphs.LiveSetProvider for tests where the atlas
// never needs to compact (the fake backend's max texture size is large
// enough that every glyph fits).
type nopLiveSet struct{}

func (nopLiveSet) ForEachResolvedCell(fn func(layer, cellIndex int, coord glyphs.AtlasCoord)) {}
func (nopLiveSet) RewriteResolvedCell(layer, cellIndex int, coord glyphs.AtlasCoord)           {}

// TestBasicRenderProducesOneDrawPerLayerPlusBackground exercises S1: a
// 4x1 grid of distinct code points, all single-width, single layer.
func TestBasicRenderProducesOneDrawPerLayerPlusBackground(t *testing.T) {
	s := screen.NewScreen()
	s.EnsureGrid(4, 1, 1)
	for i, r := range []rune{'A', 'B', 'C', 'D'} {
		s.WriteCell(0, i, r, glyphs.StylePlain, 0x000000, 0xFFFFFF, screen.LineAttrs{})
	}

	h := frame.NewHandoff(frame.ModeSingleThreaded)
	h.Commit(s, frame.Rect{W: 4, H: 1}, -1, [3]float32{})

	backend := gpu.NewFakeBackend(64)
	p := &frame.Pipeline{
		Atlas:   glyphs.NewAtlas(backend, fakeRasterizer{}, nopLiveSet{}, 1, 1),
		Backend: backend,
		CellW:   1, CellH: 1,
	}

	p.RenderFrame(h)

	// One background draw plus one foreground draw (single layer).
	if backend.Draws != 2 {
		t.Fatalf("expected 2 draws (1 background + 1 layer foreground), got %d", backend.Draws)
	}
	if backend.Swaps != 1 {
		t.Fatalf("expected exactly one swap, got %d", backend.Swaps)
	}
	if len(backend.ColorBuffer) != 4*8 {
		t.Fatalf("expected 4 cells * 8 bytes of color data, got %d", len(backend.ColorBuffer))
	}
	if backend.AtlasBindCount != 1 {
		t.Fatalf("expected the glyph atlas texture to be bound once, got %d", backend.AtlasBindCount)
	}
	if backend.BoundAtlasTex != p.Atlas.Texture() {
		t.Fatalf("expected the bound texture to be the atlas's own texture handle")
	}
}

func TestRenderFrameReturnsWithoutDrawingOnShutdown(t *testing.T) {
	h := frame.NewHandoff(frame.ModeTwoThread)
	backend := gpu.NewFakeBackend(64)
	p := &frame.Pipeline{
		Atlas:   glyphs.NewAtlas(backend, fakeRasterizer{}, nopLiveSet{}, 1, 1),
		Backend: backend,
		CellW:   1, CellH: 1,
	}

	done := make(chan struct{})
	go func() {
		p.RenderFrame(h)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond) // give RenderFrame time to start waiting
	h.Shutdown()
	<-done

	if backend.Draws != 0 {
		t.Fatalf("expected no draws on shutdown, got %d", backend.Draws)
	}
}
