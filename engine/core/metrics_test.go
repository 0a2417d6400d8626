package core

import "testing"

func TestMetrics(t *testing.T) {
	if err := MetricsInitialize(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	// A full averaging window of 10ms frames.
	for i := uint8(0); i < AVG_COUNT; i++ {
		MetricsUpdate(0.010)
	}
	if got := MetricsFrameTime(); got < 9.99 || got > 10.01 {
		t.Fatalf("expected frame time ~10ms; got %f", got)
	}

	// Keep feeding 10ms frames until a full second has accumulated.
	for i := 0; i < 71; i++ {
		MetricsUpdate(0.010)
	}
	fps, avg := MetricsFrame()
	if fps != 100 {
		t.Fatalf("expected 100 fps; got %f", fps)
	}
	if avg < 9.99 || avg > 10.01 {
		t.Fatalf("expected frame time ~10ms; got %f", avg)
	}
}

func TestClock(t *testing.T) {
	c := NewClock()

	// Non-started clocks never accumulate.
	c.Update()
	if got := c.Elapsed(); got != 0 {
		t.Fatalf("expected 0 elapsed; got %f", got)
	}

	c.Start()
	c.Update()
	if got := c.Elapsed(); got < 0 {
		t.Fatalf("expected non-negative elapsed; got %f", got)
	}

	c.Stop()
	before := c.Elapsed()
	c.Update()
	if got := c.Elapsed(); got != before {
		t.Fatalf("expected elapsed to freeze after stop; got %f", got)
	}
}
