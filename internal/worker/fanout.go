package worker

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Gather runs every fn concurrently and returns the successful results in fn
// order. Failed and panicking fns are logged and dropped; the rest of the
// batch is unaffected.
func Gather[T any](ctx context.Context, log *logrus.Entry, fns []func(context.Context) (T, error)) []T {
	results := make([]*T, len(fns))

	var wg sync.WaitGroup
	for i, fn := range fns {
		wg.Add(1)
		go func(i int, fn func(context.Context) (T, error)) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithField("panic", r).Error("gathered task panicked")
				}
			}()

			result, err := fn(ctx)
			if err != nil {
				log.WithError(err).Warn("gathered task failed")
				return
			}
			results[i] = &result
		}(i, fn)
	}
	wg.Wait()

	out := make([]T, 0, len(fns))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
