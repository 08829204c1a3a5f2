package aggregate

import (
	"context"
	"time"
)

// WatchElapsed emits the formatted time since clockIn right away and then on
// every interval tick. The channel is closed once ctx is done.
func WatchElapsed(ctx context.Context, clockIn time.Time, interval time.Duration, now func() time.Time) <-chan string {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = time.Second
	}
	out := make(chan string, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case out <- FormatElapsed(now().Sub(clockIn)):
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
