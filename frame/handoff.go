package frame

import (
	"sync"

	"github.com/bloeys/gputerm/screen"
)

// Mode selects the scheduling model of spec.md §5.
type Mode int

const (
	ModeSingleThreaded Mode = iota
	ModeTwoThread
)

// Handoff is the two-buffer producer/consumer protocol of spec.md §5. In
// ModeTwoThread, a mutex M and condition variable C guard submitted; the
// renderer additionally owns locked exclusively. In ModeSingleThreaded it
// collapses to a direct call with no suspension points.
type Handoff struct {
	mode Mode

	mu   sync.Mutex
	cond *sync.Cond

	submitted *Snapshot
	locked    *Snapshot
}

// Mode reports the scheduling model this Handoff was built with.
func (h *Handoff) Mode() Mode { return h.mode }

// Locked exposes the snapshot the Frame Pipeline reads from, so it can
// double as a glyphs.LiveSetProvider in single-threaded mode, where
// commitDirect keeps it continuously aliased onto the live screen arrays.
func (h *Handoff) Locked() *Snapshot { return h.locked }

func NewHandoff(mode Mode) *Handoff {
	h := &Handoff{
		mode:      mode,
		submitted: &Snapshot{HighlightIndex: -1},
		locked:    &Snapshot{HighlightIndex: -1},
	}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Commit implements spec.md §5's commit(). highlightIndex < 0 means "use
// per-cell fg" (the line_color sentinel).
func (h *Handoff) Commit(s *screen.Screen, viewport Rect, highlightIndex int32, highlightRGB [3]float32) {
	if h.mode == ModeSingleThreaded {
		h.commitDirect(s, viewport, highlightIndex, highlightRGB)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	reconcileLayers(h.submitted, s.W, s.H, len(s.Layers))
	for i, l := range s.Layers {
		copy(h.submitted.Layers[i].Pending, l.Pending)
	}
	copy(h.submitted.Colors, s.Colors)

	h.submitted.W, h.submitted.H = s.W, s.H
	h.submitted.Viewport = viewport
	h.submitted.HighlightIndex = highlightIndex
	h.submitted.HighlightRGB = highlightRGB
	h.submitted.Updated = true

	h.cond.Broadcast()
}

func (h *Handoff) commitDirect(s *screen.Screen, viewport Rect, highlightIndex int32, highlightRGB [3]float32) {
	reconcileLayers(h.locked, s.W, s.H, len(s.Layers))
	for i, l := range s.Layers {
		// Single-threaded: no suspension point exists between commit and
		// render, so aliasing the live arrays by reference (rather than
		// copying) is safe and matches spec.md §5's "copies the live grids
		// by reference into locked".
		h.locked.Layers[i].Pending = l.Pending
	}
	h.locked.Colors = s.Colors

	h.locked.W, h.locked.H = s.W, s.H
	h.locked.Viewport = viewport
	h.locked.HighlightIndex = highlightIndex
	h.locked.HighlightRGB = highlightRGB
	h.locked.Updated = true
}

// Acquire blocks (in two-thread mode) until a committed snapshot is ready,
// swaps submitted/locked, and returns locked for the Frame Pipeline to
// read. ok=false means a shutdown broadcast was received with no pending
// submission.
func (h *Handoff) Acquire() (locked *Snapshot, ok bool) {
	if h.mode == ModeSingleThreaded {
		return h.locked, h.locked.Updated
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.submitted.Updated {
		h.cond.Wait()
		if !h.submitted.Updated {
			// Woken without a new submission: the shutdown signal.
			return nil, false
		}
	}

	h.submitted, h.locked = h.locked, h.submitted
	h.submitted.Updated = false
	return h.locked, true
}

// Shutdown wakes a waiting renderer without marking an update, signalling
// it to return from Acquire without drawing.
func (h *Handoff) Shutdown() {
	h.mu.Lock()
	h.cond.Broadcast()
	h.mu.Unlock()
}
