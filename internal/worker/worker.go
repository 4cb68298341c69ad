// Package worker runs the periodic ingestion cycles. A worker owns one cycle
// function and re-runs it on a fixed interval until stopped; a panicking
// cycle is logged and the loop keeps going.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/azero-feed/internal/logging"
)

// CycleFunc is one poll iteration. The entry carries the cycle correlation id.
type CycleFunc func(ctx context.Context, log *logrus.Entry) error

// Worker drives a CycleFunc on an interval.
type Worker struct {
	name     string
	interval time.Duration
	cycle    CycleFunc
	log      *logrus.Entry

	cancel context.CancelFunc
	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a worker; call Start to begin polling.
func New(name string, interval time.Duration, log *logrus.Logger, cycle CycleFunc) *Worker {
	return &Worker{
		name:     name,
		interval: interval,
		cycle:    cycle,
		log:      logging.Component(log, name),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the poll loop.
func (w *Worker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	go func() {
		defer close(w.doneCh)
		w.log.Info("worker started")
		for {
			w.runCycle(ctx)

			select {
			case <-w.stopCh:
				w.log.Info("worker stopped")
				return
			case <-time.After(w.interval):
			}
		}
	}()
}

// Stop cancels the in-flight cycle and waits for the loop to exit.
func (w *Worker) Stop() {
	close(w.stopCh)
	if w.cancel != nil {
		w.cancel()
	}
	<-w.doneCh
}

func (w *Worker) runCycle(ctx context.Context) {
	log := w.log.WithField("cycle_id", uuid.NewString())

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("cycle panicked")
		}
	}()

	started := time.Now()
	if err := w.cycle(ctx, log); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.WithError(err).Error("cycle failed")
		return
	}
	log.WithField("elapsed", time.Since(started).String()).Debug("cycle finished")
}
