// Package engine bundles the Glyph Atlas, Screen Model, Render Handoff,
// Frame Pipeline, and Blink Scheduler into the External Interfaces of
// spec.md §6, replacing the teacher/original's global mutable singletons
// (current fg/bg, blink phase, style index, atlas state) with state on an
// explicit context passed by reference, per the Design Notes.
package engine

import (
	"github.com/bloeys/gputerm/assert"
	"github.com/bloeys/gputerm/blink"
	"github.com/bloeys/gputerm/frame"
	"github.com/bloeys/gputerm/glyphs"
	"github.com/bloeys/gputerm/screen"
)

// Palette is the consumed "Palette" capability of spec.md §6.
type Palette interface {
	ColorOf(index int) uint32
}

// ViewportProvider is the consumed "Viewport provider" capability.
type ViewportProvider interface {
	Viewport() frame.Rect
}

// LineSource is part of the consumed "Global screen descriptor"
// capability: a per-cell source buffer, used by GotoYX to re-transform the
// cell the cursor is leaving.
type LineSource interface {
	CellAt(line, x int) Cell
}

// BlinkSource is the other half of the "Global screen descriptor"
// capability: lets the blink scheduler find the runs that need
// re-transforming on each tick.
type BlinkSource interface {
	ForEachBlinkingRun(fn func(line, x int, cells []Cell))
}

// GlobalAttrs is the "system-wide attribute mask" of spec.md §6.
type GlobalAttrs struct {
	Bold, Italic, Blink bool
}

// Engine is the explicit context spec.md's Design Notes call for in place
// of the original's global mutable singletons.
type Engine struct {
	Screen   *screen.Screen
	Atlas    *glyphs.Atlas
	Handoff  *frame.Handoff
	Pipeline *frame.Pipeline
	Blink    *blink.Scheduler

	Palette  Palette
	Viewport ViewportProvider
	Source   LineSource
	BlinkSrc BlinkSource

	Attrs GlobalAttrs

	// LineColorIndex selects the highlight color for underline/overline/
	// strikeout; <0 means "use per-cell fg" (the line_color sentinel).
	LineColorIndex int

	cursorRow, cursorCol int
	cursorVisibility     uint8
}

// New wires a complete Engine. mode selects single- vs two-thread
// scheduling (spec.md §5).
func New(atlas *glyphs.Atlas, pipeline *frame.Pipeline, mode frame.Mode) *Engine {
	return &Engine{
		Screen:         screen.NewScreen(),
		Atlas:          atlas,
		Handoff:        frame.NewHandoff(mode),
		Pipeline:       pipeline,
		Blink:          blink.NewScheduler(64),
		LineColorIndex: -1,
	}
}

// TransformLine implements spec.md §6's transform_line: split cells into
// runs of identical attribute words and commit each run through
// newPacket, mirroring pdcdisp.c's PDC_transform_line/_new_packet split.
func (e *Engine) TransformLine(line, x int, cells []Cell) {
	if len(cells) == 0 {
		return
	}

	runStart := 0
	for i := 1; i <= len(cells); i++ {
		if i < len(cells) && cells[i].Attr == cells[runStart].Attr {
			continue
		}
		e.newPacket(line, x+runStart, cells[runStart:i])
		runStart = i
	}
}

// newPacket writes one run of cells sharing an attribute word, mirroring
// pdcdisp.c's _new_packet: resolve colors once for the run, then write
// each cell (applying blink substitution per cell).
func (e *Engine) newPacket(line, x int, cells []Cell) {
	assert.T(len(cells) > 0, "engine.newPacket: empty run")

	attr := cells[0].Attr
	blinking := attr.Blink && e.Attrs.Blink
	style := styleFromAttr(attr, e.Attrs.Bold, e.Attrs.Italic)

	fgIdx, bgIdx := attr.FgIndex, attr.BgIndex
	if attr.Reverse {
		fgIdx, bgIdx = bgIdx, fgIdx
	}

	var fg, bg uint32
	if e.Palette != nil {
		fg = e.Palette.ColorOf(fgIdx)
		bg = e.Palette.ColorOf(bgIdx)
	}

	lineAttrs := screen.LineAttrs{
		Underline: attr.Underline,
		Overline:  attr.Overline,
		Strikeout: attr.Strikeout,
		Left:      attr.Left,
		Right:     attr.Right,
	}

	off := e.Blink.Off()
	for j, cell := range cells {
		code := blink.ApplyBlink(cell.Code, blinking, off)
		e.Screen.WriteCell(line, x+j, code, style, bg, fg, lineAttrs)
	}
}

// WriteCombiningRun attaches len(codes) combining marks to the base cell
// at (line, x), one per layer starting at layer 1 — an ergonomic wrapper
// around repeated screen.Screen.WriteCombining calls, grounded in
// pdcdisp.c's PDC_expand_combined_characters walk in draw_glyph.
func (e *Engine) WriteCombiningRun(line, x int, codes []rune, style glyphs.Style) {
	for i, code := range codes {
		e.Screen.WriteCombining(line, x, i+1, code, style)
	}
}

// GotoYX implements spec.md §6's goto_yx: re-transform the previously
// occupied cell to clear the old cursor, then mark the new cell with
// visibility bits, then do_update.
func (e *Engine) GotoYX(row, col int, visibility uint8) {
	oldRow, oldCol := e.cursorRow, e.cursorCol

	if e.Source != nil {
		e.TransformLine(oldRow, oldCol, []Cell{e.Source.CellAt(oldRow, oldCol)})
	} else {
		e.Screen.ClearCursor(oldRow, oldCol)
	}

	if visibility > 0 {
		e.Screen.WriteCursor(row, col, visibility)
	}

	e.cursorRow, e.cursorCol, e.cursorVisibility = row, col, visibility
	e.DoUpdate()
}

// DoUpdate implements spec.md §6's do_update: ensure layers, shrink empty
// layers, then either submit the snapshot (two-thread mode) or render
// directly (single-thread mode, via the Pipeline on this same goroutine).
func (e *Engine) DoUpdate() {
	e.Screen.EnsureGrid(e.Screen.W, e.Screen.H, 1)
	e.Screen.ShrinkLayers()

	var viewport frame.Rect
	if e.Viewport != nil {
		viewport = e.Viewport.Viewport()
	}

	var highlightRGB [3]float32
	highlightIdx := int32(-1)
	if e.LineColorIndex >= 0 {
		highlightIdx = int32(e.LineColorIndex)
		if e.Palette != nil {
			highlightRGB = rgbToFloat3(e.Palette.ColorOf(e.LineColorIndex))
		}
	}

	e.Handoff.Commit(e.Screen, viewport, highlightIdx, highlightRGB)

	// Single-threaded mode has no separate renderer goroutine: the
	// producer drives the pipeline directly, matching spec.md §5. In
	// two-thread mode the dedicated renderer goroutine calls RenderFrame
	// itself, blocking on Acquire until this Commit wakes it.
	if e.Pipeline != nil && e.Handoff.Mode() == frame.ModeSingleThreaded {
		e.Pipeline.RenderFrame(e.Handoff)
	}
}

// RenderFrame implements spec.md §6's render_frame: enter the Frame
// Pipeline (two-thread mode's dedicated renderer goroutine calls this in
// a loop).
func (e *Engine) RenderFrame() {
	e.Pipeline.RenderFrame(e.Handoff)
}

// ExternalEvent is the minimal event classification PumpAndPeep needs from
// the host's window/event loop (out of the core's scope per spec.md §1;
// the host maps its real event type down to this).
type ExternalEvent int

const (
	EventNone ExternalEvent = iota
	EventExpose
	EventRestore
)

// PumpAndPeep implements spec.md §6's pump_and_peep: poll one external
// event via peek; if it is an expose/restore notification, force a
// redraw.
func (e *Engine) PumpAndPeep(peek func() ExternalEvent) {
	if peek == nil {
		return
	}

	switch peek() {
	case EventExpose, EventRestore:
		e.DoUpdate()
	}
}

// StartBlink begins the blink scheduler's 500ms ticker (spec.md §4.4).
// The ticker goroutine only flips the phase and enqueues a redraw
// request; the caller must also drive PumpBlink from its own update loop
// (the producer's goroutine, not the ticker's) to actually pick up queued
// requests and redraw.
func (e *Engine) StartBlink() {
	e.Blink.Start()
}

// PumpBlink drains any blink redraw requests queued since the last call
// and, if any were pending, re-transforms every blinking run and forces a
// redraw, mirroring pdcdisp.c's PDC_blink_text — but run from the
// producer's own goroutine, per spec.md's Design Notes ("do not wedge it
// into the render mutex").
func (e *Engine) PumpBlink() {
	if !e.Blink.Drain() {
		return
	}

	if e.BlinkSrc != nil {
		e.BlinkSrc.ForEachBlinkingRun(func(line, x int, cells []Cell) {
			e.TransformLine(line, x, cells)
		})
	}
	e.DoUpdate()
}

func rgbToFloat3(rgb uint32) [3]float32 {
	return [3]float32{
		float32((rgb>>16)&0xFF) / 255,
		float32((rgb>>8)&0xFF) / 255,
		float32(rgb&0xFF) / 255,
	}
}
