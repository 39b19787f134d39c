package api

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

var (
	DefaultRetry    = Retry{Base: time.Second, Cap: 16 * time.Second, Tries: 6}
	ErrOutOfRetries = errors.New("tried too many times")
)

// Retry is a capped exponential backoff with full jitter.
type Retry struct {
	Base  time.Duration // Min amount of time to sleep per iteration
	Cap   time.Duration // Max amount of time to sleep per iteration
	Tries int           // Number of attempts
}

// Sleep waits a random duration up to min(Cap, Base*2^i), returning early
// with ctx.Err() when ctx is done.
func (r Retry) Sleep(ctx context.Context, i int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ceiling := r.Base << uint(i)
	if ceiling <= 0 || ceiling > r.Cap {
		ceiling = r.Cap
	}

	var sleepFor time.Duration
	if ceiling > 0 {
		sleepFor = time.Duration(rand.Int63n(int64(ceiling)))
	}

	timer := time.NewTimer(sleepFor)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do calls f until it succeeds, shouldRetry rejects its error, or the
// attempts run out.
func (r Retry) Do(ctx context.Context, f func(ctx context.Context) error, shouldRetry func(error) bool) error {
	tries := r.Tries
	if tries < 1 {
		tries = 1
	}

	var err error
	for i := 0; i < tries; i++ {
		err = f(ctx)
		if err == nil {
			return nil
		}

		if !shouldRetry(err) {
			return err
		}

		if i == tries-1 {
			break
		}
		if sleepErr := r.Sleep(ctx, i); sleepErr != nil {
			return sleepErr
		}
	}
	return errors.Join(ErrOutOfRetries, err)
}
