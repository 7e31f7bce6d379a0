package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerLine(t *testing.T) {
	s := newSpinner(context.Background(), &syncBuffer{}, "Replaying autopatch")

	if got := s.line("⠋"); !strings.Contains(got, "Replaying autopatch") || strings.Contains(got, "/") {
		t.Errorf("line before progress = %q", got)
	}

	s.Progress(3, 4)
	if got := s.line("⠋"); !strings.Contains(got, "Replaying autopatch 3/4") {
		t.Errorf("line = %q, want step counter", got)
	}

	s.SetLabel("Rendering 3 nodes as svg")
	got := s.line("⠋")
	if !strings.Contains(got, "Rendering 3 nodes as svg") || strings.Contains(got, "3/4") {
		t.Errorf("line after SetLabel = %q", got)
	}
}

func TestSpinnerDrawsReplayProgress(t *testing.T) {
	var out syncBuffer
	s := newSpinner(context.Background(), &out, "Replaying")
	s.Progress(2, 5)
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	got := out.String()
	if !strings.Contains(got, "Replaying 2/5") {
		t.Errorf("output %q does not show the step counter", got)
	}
	if !strings.HasSuffix(got, "\r") {
		t.Errorf("line was not cleared: %q", got)
	}
	if s.Cancelled() {
		t.Error("a stopped spinner is not cancelled")
	}
}

func TestSpinnerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSpinner(ctx, &syncBuffer{}, "Replaying")
	s.Start()
	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("spinner should report cancellation")
	}
	s.Stop()
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner(context.Background(), &syncBuffer{}, "Replaying")
	s.Stop() // before Start
	s.Start()
	s.Stop()
	s.Stop()
}
