package screen_test

import (
	"testing"

	"github.com/bloeys/gputerm/glyphs"
	"github.com/bloeys/gputerm/screen"
)

func Check[T comparable](t *testing.T, expected, got T) {
	t.Helper()
	if got != expected {
		t.Fatalf("Expected %v but got %v\n", expected, got)
	}
}

// TestResizeGrow exercises S2: start at 2x1 with 'X','Y'; grow to 4x1;
// expect cells 0,1 unchanged and cells 2,3 zeroed (P3).
func TestResizeGrow(t *testing.T) {
	s := screen.NewScreen()
	s.EnsureGrid(2, 1, 1)

	s.WriteCell(0, 0, 'X', glyphs.StylePlain, 0x000000, 0xFFFFFF, screen.LineAttrs{})
	s.WriteCell(0, 1, 'Y', glyphs.StylePlain, 0x000000, 0xFFFFFF, screen.LineAttrs{})

	s.EnsureGrid(4, 1, 1)

	Check(t, 'X', s.Layers[0].Pending[0].Code())
	Check(t, 'Y', s.Layers[0].Pending[1].Code())
	Check(t, rune(0), s.Layers[0].Pending[2].Code())
	Check(t, rune(0), s.Layers[0].Pending[3].Code())
	Check(t, screen.ColorRecord(0), s.Colors[2])
	Check(t, screen.ColorRecord(0), s.Colors[3])
}

// TestResizeShrinkPreservesOverlap exercises P3 in the other direction.
func TestResizeShrinkPreservesOverlap(t *testing.T) {
	s := screen.NewScreen()
	s.EnsureGrid(4, 2, 1)

	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			s.WriteCell(y, x, rune('A'+y*4+x), glyphs.StylePlain, 0, 0xFFFFFF, screen.LineAttrs{})
		}
	}

	s.EnsureGrid(2, 1, 1)

	Check(t, 'A', s.Layers[0].Pending[0].Code())
	Check(t, 'B', s.Layers[0].Pending[1].Code())
}

// TestCombiningLayerLifecycle exercises S3.
func TestCombiningLayerLifecycle(t *testing.T) {
	s := screen.NewScreen()
	s.EnsureGrid(1, 1, 1)

	s.WriteCell(0, 0, 'e', glyphs.StylePlain, 0, 0xFFFFFF, screen.LineAttrs{})
	s.WriteCombining(0, 0, 1, 0x0301, glyphs.StylePlain)

	Check(t, 2, len(s.Layers))
	Check(t, 1, s.Layers[1].Occupancy)

	s.WriteCell(0, 0, 'f', glyphs.StylePlain, 0, 0xFFFFFF, screen.LineAttrs{})
	Check(t, 2, len(s.Layers))
	Check(t, 0, s.Layers[1].Occupancy)

	s.ShrinkLayers()
	Check(t, 1, len(s.Layers))

	// Idempotent (P4).
	s.ShrinkLayers()
	Check(t, 1, len(s.Layers))
}

func TestShrinkLayersNeverRemovesBase(t *testing.T) {
	s := screen.NewScreen()
	s.ShrinkLayers()
	Check(t, 1, len(s.Layers))
}

// TestCursorOverlay exercises S6.
func TestCursorOverlay(t *testing.T) {
	s := screen.NewScreen()
	s.EnsureGrid(2, 1, 1)

	s.WriteCell(0, 0, 'k', glyphs.StylePlain, 0, 0xFFFFFF, screen.LineAttrs{})
	s.WriteCursor(0, 0, 2)

	Check(t, uint8(2), s.Colors[0].CursorVisibility())

	s.ClearCursor(0, 0)
	Check(t, uint8(0), s.Colors[0].CursorVisibility())
}

func TestWriteCellInvalidCoordinateIgnored(t *testing.T) {
	s := screen.NewScreen()
	s.EnsureGrid(1, 1, 1)
	s.WriteCell(5, 5, 'x', glyphs.StylePlain, 0, 0, screen.LineAttrs{})
	s.WriteCursor(-1, 0, 1)
}
