package aggregate

import (
	"context"
	"testing"
	"time"
)

func TestWatchElapsed_EmitsImmediatelyAndStopsOnCancel(t *testing.T) {
	clockIn := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	now := func() time.Time { return clockIn.Add(90 * time.Second) }

	ctx, cancel := context.WithCancel(context.Background())
	ch := WatchElapsed(ctx, clockIn, 10*time.Millisecond, now)

	select {
	case got := <-ch:
		if got != "00:01:30" {
			t.Fatalf("expected 00:01:30, got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no initial value")
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no value after first tick")
	}

	cancel()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}
