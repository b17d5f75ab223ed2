// Command gputermdemo exercises the core engine end to end against a real
// SDL2/OpenGL window, the way the teacher's root main.go drove its
// glyphs.GlyphRend: an nmage engine.Game loop that creates the window,
// feeds some ANSI-colored demo text through the core, and lets the Frame
// Pipeline draw it every frame.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/gputerm/ansi"
	gputerm "github.com/bloeys/gputerm/engine"
	"github.com/bloeys/gputerm/frame"
	"github.com/bloeys/gputerm/glyphs"
	"github.com/bloeys/gputerm/gpu"
	nengine "github.com/bloeys/nmage/engine"
	"github.com/bloeys/nmage/input"
	"github.com/bloeys/nmage/renderer/rend3dgl"
	"github.com/bloeys/nmage/timing"
	nmageimgui "github.com/bloeys/nmage/ui/imgui"
	"github.com/golang/freetype/truetype"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	fontPath = "./res/fonts/CascadiaMono-Regular.ttf"
	fontSize = 18
	cellW    = 11
	cellH    = 22

	maxFps   = 120
	limitFps = true
)

// rgbPalette treats the "index" as an already-packed 24-bit RGB value
// rather than a lookup key — ansi.ColorFromSgrCode hands back packed RGB
// directly, so no indirection table is needed here.
type rgbPalette struct{}

func (rgbPalette) ColorOf(index int) uint32 { return uint32(index) }

var _ nengine.Game = &demo{}

type demo struct {
	win       *nengine.Window
	rend      *rend3dgl.Rend3DGL
	imguiInfo nmageimgui.ImguiInfo

	eng *gputerm.Engine

	// cellPx is the DPI-scaled glyph cell size in pixels, derived once in
	// Init from the display's reported DPI against the 96-DPI baseline
	// cellW/cellH.
	cellPx *gglm.Vec2

	frameStartTime time.Time
}

type fixedViewport struct{ r frame.Rect }

func (v fixedViewport) Viewport() frame.Rect { return v.r }

func main() {
	err := nengine.Init()
	if err != nil {
		panic("Failed to init engine. Err: " + err.Error())
	}

	rend := rend3dgl.NewRend3DGL()
	win, err := nengine.CreateOpenGLWindowCentered("gputerm demo", 1280, 720, nengine.WindowFlags_ALLOW_HIGHDPI|nengine.WindowFlags_RESIZABLE, rend)
	if err != nil {
		panic("Failed to create window. Err: " + err.Error())
	}

	// Same rationale as the teacher: some drivers vsync by busy-looping and
	// spiking a core to 100%, so we do our own sleep-based fps limiting.
	nengine.SetVSync(false)

	d := &demo{
		win:       win,
		rend:      rend,
		imguiInfo: nmageimgui.NewImGUI(),
	}

	d.win.EventCallbacks = append(d.win.EventCallbacks, d.handleSDLEvent)
	d.win.SDLWin.GLSwap()

	nengine.Run(d, d.win, d.imguiInfo)
}

func (d *demo) handleSDLEvent(e sdl.Event) {
	switch e := e.(type) {
	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			d.handleWindowResize()
		}
	}
}

func (d *demo) Init() {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		panic("Failed to read font file. Err: " + err.Error())
	}

	font, err := truetype.Parse(fontBytes)
	if err != nil {
		panic("Failed to parse font. Err: " + err.Error())
	}

	dpi, _, _, err := sdl.GetDisplayDPI(0)
	if err != nil {
		panic("Failed to get display DPI. Err: " + err.Error())
	}

	backend := gpu.NewGLBackend()
	rasterizer := glyphs.NewFreetypeRasterizer(font, fontSize, dpi)

	// Scale the baseline cell size by the display's DPI against the
	// standard 96-DPI reference, the way the teacher's main.go scaled its
	// own layout metrics by GetDisplayDPI.
	dpiScale := dpi / 96
	d.cellPx = gglm.NewVec2(float32(cellW)*dpiScale, float32(cellH)*dpiScale)
	scaledCellW, scaledCellH := int(d.cellPx.X()), int(d.cellPx.Y())

	// The Handoff's locked snapshot doubles as the atlas's live set in
	// single-threaded mode: commitDirect keeps its pending and color arrays
	// aliased onto the screen's own, and its resolved arrays are the ones
	// the pipeline fills and reads, so compaction rewrites land exactly
	// where the pipeline reads them.
	handoff := frame.NewHandoff(frame.ModeSingleThreaded)
	atlas := glyphs.NewAtlas(backend, rasterizer, handoff.Locked(), scaledCellW, scaledCellH)
	pipeline := &frame.Pipeline{
		Atlas:   atlas,
		Backend: backend,
		CellW:   scaledCellW, CellH: scaledCellH,
		Interpolation: frame.InterpolationNearest,
		ResizeMode:    frame.ResizeNormal,
		Fthick:        1,
	}

	d.eng = gputerm.New(atlas, pipeline, frame.ModeSingleThreaded)
	d.eng.Handoff = handoff

	d.eng.Palette = rgbPalette{}
	d.eng.Viewport = fixedViewport{}
	d.eng.Attrs = gputerm.GlobalAttrs{Bold: true, Italic: true, Blink: true}
	d.eng.StartBlink()

	d.handleWindowResize()
	d.writeDemoText()
}

func (d *demo) writeDemoText() {
	lines := []string{
		"\x1b[1;32mgputerm\x1b[0m demo window",
		"\x1b[4munderlined\x1b[0m and \x1b[31mred\x1b[0m text",
		"combining: é (precomposed e + acute)",
	}

	const defaultFg, defaultBg = 0xFFFFFF, 0x000000

	for y, line := range lines {
		fg, bg := defaultFg, defaultBg
		x := 0
		bs := []byte(line)
		for {
			index, code := ansi.NextAnsiCode(bs)
			text := bs
			if index != -1 {
				text = bs[:index]
			}

			for _, r := range string(text) {
				d.eng.TransformLine(y, x, []gputerm.Cell{{Code: r, Attr: gputerm.CellAttr{FgIndex: fg, BgIndex: bg}}})
				x++
			}

			if index == -1 {
				break
			}

			info := ansi.InfoFromAnsiCode(code)
			for i := range info.Payload {
				p := &info.Payload[i]
				if p.Type.HasOption(ansi.AnsiCodePayloadType_Reset) {
					fg, bg = defaultFg, defaultBg
				} else if p.Type.HasOption(ansi.AnsiCodePayloadType_ColorFg) {
					fg = int(p.Info)
				} else if p.Type.HasOption(ansi.AnsiCodePayloadType_ColorBg) {
					bg = int(p.Info)
				}
			}

			bs = bs[index+len(code):]
		}
	}

	d.eng.DoUpdate()
}

func (d *demo) Update() {
	d.frameStartTime = time.Now()

	if input.IsQuitClicked() || input.KeyClicked(sdl.K_ESCAPE) {
		nengine.Quit()
	}

	// Drains the blink scheduler's redraw queue on this, the producer's own
	// goroutine — the scheduler's ticker goroutine only flips the phase and
	// enqueues a marker.
	d.eng.PumpBlink()

	d.win.SDLWin.SetTitle(fmt.Sprintf("gputerm demo - FPS: %d", int(timing.GetAvgFPS())))
}

func (d *demo) Render() {
	d.eng.RenderFrame()
}

func (d *demo) FrameEnd() {
	if !limitFps {
		return
	}

	elapsed := time.Since(d.frameStartTime)
	microSecondsPerFrame := int64(1.0 / float32(maxFps) * 1_000_000)
	timeToSleep := time.Duration(microSecondsPerFrame-elapsed.Microseconds()) * time.Microsecond
	timeToSleep -= time.Millisecond

	if timeToSleep > 0 {
		time.Sleep(timeToSleep)
	}
}

func (d *demo) DeInit() {
	d.eng.Blink.Stop()
}

func (d *demo) handleWindowResize() {
	w, h := d.win.SDLWin.GetSize()
	gridW, gridH := int(w)/int(d.cellPx.X()), int(h)/int(d.cellPx.Y())

	d.eng.Viewport = fixedViewport{r: frame.Rect{W: int(w), H: int(h)}}
	d.eng.Screen.EnsureGrid(gridW, gridH, 1)
}
