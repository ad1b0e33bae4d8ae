package txpipeline

import (
	"context"
	"time"
)

const defaultPollInterval = time.Second

// pollEvery calls fn once per interval until it reports done, returns an
// error, or ctx ends.
func pollEvery(ctx context.Context, interval time.Duration, fn func(context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = defaultPollInterval
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		timer.Reset(interval)
	}
}
