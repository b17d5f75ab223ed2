package frame_test

import (
	"testing"
	"time"

	"github.com/bloeys/gputerm/frame"
	"github.com/bloeys/gputerm/glyphs"
	"github.com/bloeys/gputerm/screen"
)

func Check[T comparable](t *testing.T, expected, got T) {
	t.Helper()
	if got != expected {
		t.Fatalf("Expected %v but got %v\n", expected, got)
	}
}

func TestSingleThreadedCommitIsDirect(t *testing.T) {
	h := frame.NewHandoff(frame.ModeSingleThreaded)
	s := screen.NewScreen()
	s.EnsureGrid(2, 1, 1)
	s.WriteCell(0, 0, 'X', glyphs.StylePlain, 0, 0xFFFFFF, screen.LineAttrs{})

	h.Commit(s, frame.Rect{W: 2, H: 1}, -1, [3]float32{})

	snap, ok := h.Acquire()
	if !ok {
		t.Fatalf("expected a ready snapshot")
	}
	Check(t, 2, snap.W)
	Check(t, 'X', snap.Layers[0].Pending[0].Code())
}

func TestTwoThreadHandoffDeliversOneCommitPerRender(t *testing.T) {
	h := frame.NewHandoff(frame.ModeTwoThread)
	s := screen.NewScreen()
	s.EnsureGrid(1, 1, 1)
	s.WriteCell(0, 0, 'A', glyphs.StylePlain, 0, 0xFFFFFF, screen.LineAttrs{})

	done := make(chan *frame.Snapshot, 1)
	go func() {
		snap, ok := h.Acquire()
		if !ok {
			done <- nil
			return
		}
		done <- snap
	}()

	time.Sleep(10 * time.Millisecond) // give the goroutine time to start waiting
	h.Commit(s, frame.Rect{W: 1, H: 1}, -1, [3]float32{})

	select {
	case snap := <-done:
		if snap == nil {
			t.Fatalf("expected a snapshot, got shutdown")
		}
		Check(t, 'A', snap.Layers[0].Pending[0].Code())
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for render_frame to observe the commit")
	}
}

func TestShutdownWakesRendererWithoutUpdate(t *testing.T) {
	h := frame.NewHandoff(frame.ModeTwoThread)

	done := make(chan bool, 1)
	go func() {
		_, ok := h.Acquire()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	h.Shutdown()

	select {
	case ok := <-done:
		if ok {
			t.Fatalf("expected shutdown signal (ok=false)")
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for shutdown to wake the renderer")
	}
}
