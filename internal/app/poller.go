package app

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"

	"github.com/five82/quire/internal/api"
	"github.com/five82/quire/internal/cache"
	"github.com/five82/quire/internal/library"
)

const (
	defaultPollInterval = 15 * time.Second
	maxBackoff          = 30 * time.Second
)

// rootLister is the part of library.Tree the poller needs.
type rootLister interface {
	Roots(ctx context.Context) ([]library.Node, error)
}

// StartPoller launches a background goroutine that refreshes the library
// root into store. Consecutive failures stretch the wait exponentially up to
// maxBackoff. It returns immediately.
func StartPoller(ctx context.Context, store *cache.Store, tree rootLister, interval time.Duration, log logr.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			_ = refresh(ctx, store, tree, log)

			wait := interval
			if failures := store.Snapshot().ConsecutiveFailures; failures > 0 {
				wait = calculateBackoff(failures, interval)
			}
			timer.Reset(wait)
		}
	}()
}

// refresh lists the library root once. Cancellation leaves the store as it
// was; every other failure is recorded so the UI can show it.
func refresh(ctx context.Context, store *cache.Store, tree rootLister, log logr.Logger) error {
	roots, err := tree.Roots(ctx)
	if api.IsCancelled(err) || ctx.Err() != nil {
		return err
	}
	if err != nil {
		log.Error(err, "library poll failed")
	}
	store.Update(roots, err)
	return err
}

// calculateBackoff returns the wait after the given number of consecutive
// failures: base doubled per failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxBackoff,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	wait := b.NextBackOff()
	for i := 0; i < failures; i++ {
		wait = b.NextBackOff()
	}
	if wait > maxBackoff {
		wait = maxBackoff
	}
	return wait
}
