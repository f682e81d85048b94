package pipeline

import (
	"context"
	"errors"
	"time"
)

// Watch runs a cycle immediately and then one per interval until ctx is
// done or maxCycles cycles have run (0 means no limit). fn, if set, gets
// every successful report. Only a failed first fetch ends the watch with an
// error; other cycle failures are logged and the next tick tries again.
func (r *Runner) Watch(ctx context.Context, interval time.Duration, maxCycles int, fn func(Report)) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; maxCycles == 0 || n < maxCycles; n++ {
		if n > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C():
			}
		}
		rep, err := r.Cycle(ctx)
		switch {
		case err == nil:
			if fn != nil {
				fn(rep)
			}
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrNoInitialData):
			return err
		default:
			opsf("cycle %d failed: %v", rep.Seq, err)
		}
	}
	return nil
}
