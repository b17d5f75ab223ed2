// Package screen implements spec.md §2.3/§2.4 and §4.2: the Screen Model
// and Layer Manager. It owns the dense color grid plus a stack of glyph
// layers (layer 0 is the base text; layers ≥1 hold combining marks), with
// resize/write/shrink operations that preserve content and occupancy
// bookkeeping exactly per spec.
package screen

import (
	"github.com/bloeys/gputerm/assert"
	"github.com/bloeys/gputerm/glyphs"
)

// Layer is one parallel grid of pending code points at the screen's cell
// resolution, plus how many of its cells are non-empty.
type Layer struct {
	Pending   []glyphs.PendingCell
	Occupancy int
}

// Screen is the dense W×H grid of color records plus L≥1 glyph layers.
type Screen struct {
	W, H   int
	Colors []ColorRecord
	Layers []*Layer
}

func NewScreen() *Screen {
	s := &Screen{}
	s.EnsureGrid(0, 0, 1)
	return s
}

// EnsureGrid implements spec.md §4.2's ensure_grid: if dimensions or layer
// count change, allocates new arrays, copies the overlapping rectangle,
// and leaves the rest zeroed (I4). Layers are extended but never
// truncated here — that is ShrinkLayers' job.
func (s *Screen) EnsureGrid(w, h, minLayers int) {
	assert.T(w >= 0 && h >= 0, "screen.EnsureGrid: negative size %dx%d", w, h)
	assert.T(minLayers >= 1, "screen.EnsureGrid: minLayers must be >= 1, got %d", minLayers)

	layerCount := len(s.Layers)
	if layerCount < minLayers {
		layerCount = minLayers
	}

	if w == s.W && h == s.H && len(s.Layers) == layerCount {
		return
	}

	copyW := min(s.W, w)
	copyH := min(s.H, h)

	// make() zero-initializes; only the overlapping rectangle is copied,
	// so newly exposed cells are zero by construction (fixes the
	// single-threaded resize bug noted in spec.md §9: the original zeroes
	// min(old,new) instead of the [old,new) region).
	newColors := make([]ColorRecord, w*h)
	for y := 0; y < copyH; y++ {
		copy(newColors[y*w:y*w+copyW], s.Colors[y*s.W:y*s.W+copyW])
	}

	newLayers := make([]*Layer, layerCount)
	for i := 0; i < layerCount; i++ {
		var old *Layer
		if i < len(s.Layers) {
			old = s.Layers[i]
		}

		newPending := make([]glyphs.PendingCell, w*h)
		if old != nil {
			for y := 0; y < copyH; y++ {
				copy(newPending[y*w:y*w+copyW], old.Pending[y*s.W:y*s.W+copyW])
			}
		}

		occ := 0
		if old != nil {
			occ = old.Occupancy
			if copyW < s.W || copyH < s.H {
				// Cells outside the preserved rectangle are dropped; recount
				// occupancy over the surviving region rather than trust the
				// stale counter.
				occ = countOccupied(newPending)
			}
		}

		newLayers[i] = &Layer{Pending: newPending, Occupancy: occ}
	}

	s.Colors = newColors
	s.Layers = newLayers
	s.W, s.H = w, h
}

func countOccupied(pending []glyphs.PendingCell) int {
	n := 0
	for _, p := range pending {
		if !p.Empty() {
			n++
		}
	}
	return n
}

func (s *Screen) index(y, x int) (int, bool) {
	if y < 0 || y >= s.H || x < 0 || x >= s.W {
		return 0, false
	}
	return y*s.W + x, true
}

// WriteCell implements spec.md §4.2's write_cell: bounds-check, write the
// color record, clear all non-base layers at (y,x) (decrementing their
// occupancy), then write the base layer's pending word.
func (s *Screen) WriteCell(y, x int, code rune, style glyphs.Style, bg, fg uint32, attrs LineAttrs) {
	i, ok := s.index(y, x)
	if !ok {
		// Invalid cell coordinate: silently ignored per spec.md §7.
		return
	}

	s.Colors[i] = NewColorRecord(bg, fg, attrs)

	for l := 1; l < len(s.Layers); l++ {
		layer := s.Layers[l]
		if !layer.Pending[i].Empty() {
			layer.Occupancy--
			layer.Pending[i] = 0
		}
	}

	s.Layers[0].Pending[i] = glyphs.NewPendingCell(code, style)
}

// WriteCombining implements spec.md §4.2's write_combining: ensure the
// layer exists, set the pending word, and adjust occupancy.
func (s *Screen) WriteCombining(y, x, layer int, code rune, style glyphs.Style) {
	assert.T(layer >= 1, "screen.WriteCombining: layer must be >= 1, got %d", layer)

	if layer >= len(s.Layers) {
		s.EnsureGrid(s.W, s.H, layer+1)
	}

	i, ok := s.index(y, x)
	if !ok {
		return
	}

	l := s.Layers[layer]
	was := !l.Pending[i].Empty()
	pending := glyphs.NewPendingCell(code, style)
	is := !pending.Empty()

	if was && !is {
		l.Occupancy--
	} else if !was && is {
		l.Occupancy++
	}

	l.Pending[i] = pending
}

// WriteCursor implements spec.md §4.2's write_cursor: OR the visibility
// bits into the existing foreground byte of that cell.
func (s *Screen) WriteCursor(y, x int, visibility uint8) {
	i, ok := s.index(y, x)
	if !ok {
		return
	}
	s.Colors[i] = s.Colors[i].WithCursor(visibility)
}

// ClearCursor clears the cursor-visibility bits at (y,x), used by
// engine.GotoYX when re-transforming the previously occupied cell.
func (s *Screen) ClearCursor(y, x int) {
	i, ok := s.index(y, x)
	if !ok {
		return
	}
	s.Colors[i] = s.Colors[i].ClearCursor()
}

// ShrinkLayers implements spec.md §4.2's shrink_layers: pop non-base
// layers whose occupancy is 0. Never removes layer 0. Rebuilding the
// slice with append (rather than the original's memmove-based
// removal-from-the-middle, spec.md §9) is both correct and idempotent
// (P4): a second call with nothing left to drop is a no-op.
func (s *Screen) ShrinkLayers() {
	if len(s.Layers) <= 1 {
		return
	}

	kept := s.Layers[:1]
	for i := 1; i < len(s.Layers); i++ {
		if s.Layers[i].Occupancy == 0 {
			continue
		}
		kept = append(kept, s.Layers[i])
	}
	s.Layers = kept
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
