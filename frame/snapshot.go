// Package frame implements spec.md §2.5/§2.6 and §4.3/§5: the Render
// Handoff (two-buffer producer/consumer protocol, collapsing to a direct
// call in single-threaded mode) and the Frame Pipeline that turns a
// snapshot into GPU draw calls.
package frame

import (
	"github.com/bloeys/gputerm/glyphs"
	"github.com/bloeys/gputerm/screen"
)

// Rect is a viewport/content rectangle in pixels.
type Rect struct {
	X, Y, W, H int
}

// LayerSnapshot is one layer's pending and resolved grids inside a
// Snapshot.
type LayerSnapshot struct {
	Pending  []glyphs.PendingCell
	Resolved []glyphs.AtlasCoord
}

// Snapshot is one of the two exchangeable frame-state buffers (submitted,
// locked) of spec.md §3/§5.
type Snapshot struct {
	W, H   int
	Colors []screen.ColorRecord
	Layers []LayerSnapshot

	Viewport Rect

	// HighlightIndex is the palette index for the underline/overline/
	// strikeout highlight color; -1 means "use per-cell fg" (pdcdisp.c's
	// line_color = (-1,-1,-1) sentinel).
	HighlightIndex int32
	HighlightRGB   [3]float32

	Updated bool
}

// ForEachResolvedCell implements glyphs.LiveSetProvider.
func (s *Snapshot) ForEachResolvedCell(fn func(layer, cellIndex int, coord glyphs.AtlasCoord)) {
	for li := range s.Layers {
		for ci, c := range s.Layers[li].Resolved {
			if c != glyphs.EmptyAtlasCoord {
				fn(li, ci, c)
			}
		}
	}
}

// RewriteResolvedCell implements glyphs.LiveSetProvider.
func (s *Snapshot) RewriteResolvedCell(layer, cellIndex int, coord glyphs.AtlasCoord) {
	s.Layers[layer].Resolved[cellIndex] = coord
}

// reconcileLayers implements the "reconcile layer count... free/allocate/
// realloc per-layer arrays" step of spec.md §5's commit(). Go's make()
// zero-initializes, so newly exposed elements are zero by construction —
// this fixes the multi-thread reconcile bug noted in spec.md §9 (a memset
// of "old_grid_size - old_grid_size", definitionally zero) without needing
// any manual zeroing step at all.
func reconcileLayers(s *Snapshot, w, h, layerCount int) {
	size := w * h

	if len(s.Layers) > layerCount {
		s.Layers = s.Layers[:layerCount]
	}
	for len(s.Layers) < layerCount {
		s.Layers = append(s.Layers, LayerSnapshot{})
	}

	for i := range s.Layers {
		if len(s.Layers[i].Pending) != size {
			s.Layers[i].Pending = make([]glyphs.PendingCell, size)
		}
		if len(s.Layers[i].Resolved) != size {
			s.Layers[i].Resolved = make([]glyphs.AtlasCoord, size)
		}
	}

	if len(s.Colors) != size {
		s.Colors = make([]screen.ColorRecord, size)
	}
}
