package frame

import (
	"github.com/bloeys/gputerm/glyphs"
	"github.com/bloeys/gputerm/gpu"
)

// Interpolation selects the sampling mode used when a bilinear
// intermediate target is in play (spec.md §4.3 step 4).
type Interpolation int

const (
	InterpolationNearest Interpolation = iota
	InterpolationBilinear
)

// ResizeMode selects whether the viewport tracks the grid 1:1 or scales
// through an intermediate target.
type ResizeMode int

const (
	ResizeNormal ResizeMode = iota
	ResizeScaling
)

// Pipeline is the Frame Pipeline of spec.md §2.5/§4.3.
type Pipeline struct {
	Atlas         *glyphs.Atlas
	Backend       gpu.FrameBackend
	CellW, CellH  int
	Interpolation Interpolation
	ResizeMode    ResizeMode
	Fthick        int
}

// RenderFrame implements spec.md §4.3's ten-step per-frame sequence. It
// acquires a snapshot from h; if none is available (shutdown signal with
// nothing pending), it returns without drawing.
func (p *Pipeline) RenderFrame(h *Handoff) {
	snap, ok := h.Acquire()
	if !ok {
		return
	}

	// Step 2: resolve each layer's pending code+style grid to atlas
	// coordinates.
	for li := range snap.Layers {
		layer := &snap.Layers[li]
		if len(layer.Resolved) != len(layer.Pending) {
			layer.Resolved = make([]glyphs.AtlasCoord, len(layer.Pending))
		}
		for i, pending := range layer.Pending {
			layer.Resolved[i] = p.Atlas.Lookup(pending.Code(), pending.Style())
		}
	}

	// Step 3: stream-upload the color grid and layer 0's resolved grid.
	p.Backend.UploadColorBuffer(encodeColors(snap.Colors))
	if len(snap.Layers) > 0 {
		p.Backend.UploadGlyphBuffer(0, encodeGlyphs(snap.Layers[0].Resolved))
	}

	// Step 4/5: bind the render target and clear.
	useIntermediate := p.Interpolation == InterpolationBilinear && p.ResizeMode == ResizeScaling
	if useIntermediate {
		p.Backend.BindIntermediateTarget(snap.W*p.CellW, snap.H*p.CellH)
	} else {
		p.Backend.BindDefaultFramebuffer()
		p.Backend.SetViewport(gpu.Rect(snap.Viewport))
	}
	p.Backend.Clear()

	cellCount := snap.W * snap.H

	// Step 6: background draw.
	p.Backend.SetBackgroundUniforms(snap.W, snap.H, p.CellW, p.CellH)
	p.Backend.DrawInstancedCells(cellCount)

	// Step 7/8: foreground draws, one per layer.
	lineColor := [3]float32{-1, -1, -1}
	if snap.HighlightIndex >= 0 {
		lineColor = snap.HighlightRGB
	}
	atlasW, atlasH := p.Atlas.TextureSize()
	p.Backend.BindGlyphAtlas(p.Atlas.Texture(), atlasW, atlasH)
	p.Backend.SetForegroundUniforms(snap.W, snap.H, p.CellW, p.CellH, p.Fthick, lineColor)

	for li := range snap.Layers {
		if li != 0 {
			p.Backend.UploadGlyphBuffer(li, encodeGlyphs(snap.Layers[li].Resolved))
		}
		p.Backend.DrawInstancedCells(cellCount)
	}

	// Step 9: blit the intermediate target if used.
	if useIntermediate {
		p.Backend.BlitIntermediateToDefault(gpu.Rect(snap.Viewport))
	}

	// Step 10: present.
	p.Backend.SwapBuffers()
}
