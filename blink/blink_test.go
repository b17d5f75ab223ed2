package blink_test

import (
	"testing"
	"time"

	"github.com/bloeys/gputerm/blink"
)

func Check[T comparable](t *testing.T, expected, got T) {
	t.Helper()
	if got != expected {
		t.Fatalf("Expected %v but got %v\n", expected, got)
	}
}

// TestBlinkToggle exercises S5: the applied code alternates between the
// space code point and the real code point as the phase flips, with the
// color record untouched by this package entirely (ApplyBlink only ever
// sees/returns a rune).
func TestBlinkToggle(t *testing.T) {
	Check(t, rune(' '), blink.ApplyBlink('Z', true, true))
	Check(t, rune('Z'), blink.ApplyBlink('Z', true, false))
	Check(t, rune('Z'), blink.ApplyBlink('Z', false, true))
}

// TestSchedulerTicksAndEnqueues exercises the Design Notes' "set the flag
// and enqueue a redraw request" split: the ticker goroutine only flips the
// phase and queues a marker; this test polls Drain from the test's own
// goroutine, the way engine.Engine.PumpBlink does from the producer's.
func TestSchedulerTicksAndEnqueues(t *testing.T) {
	s := blink.NewScheduler(8)

	start := time.Now()
	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(blink.Interval * 3)
	for {
		if s.Drain() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for the first blink tick")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if time.Since(start) < blink.Interval/2 {
		t.Fatalf("tick fired suspiciously early")
	}
	Check(t, true, s.Off())

	if s.Drain() {
		t.Fatalf("expected Drain to empty the queue, but a second Drain still found pending requests")
	}
}

func TestStopIsIdempotentWhenNeverStarted(t *testing.T) {
	s := blink.NewScheduler(4)
	s.Stop()
}
