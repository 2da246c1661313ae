package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Job runs a function on a fixed interval. Runs never overlap: if a
// run outlasts its interval, the next tick is skipped with a warning
// instead of piling up behind it.
type Job struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	fn       func(ctx context.Context) error
	logger   *zap.Logger

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewJob creates a scheduled job
func NewJob(name string, interval, timeout time.Duration, fn func(ctx context.Context) error, logger *zap.Logger) *Job {
	return &Job{
		name:     name,
		interval: interval,
		timeout:  timeout,
		fn:       fn,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the job immediately, then on every tick until Stop.
func (j *Job) Start(ctx context.Context) {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		j.runOnce(ctx)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				j.runOnce(ctx)
			case <-j.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop waits for any in-flight run to finish.
func (j *Job) Stop() {
	close(j.stopCh)
	j.wg.Wait()
}

func (j *Job) runOnce(ctx context.Context) {
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Warn("Skipping overlapping job run", zap.String("job", j.name))
		return
	}
	defer j.running.Store(false)

	runCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := time.Now()
	if err := j.fn(runCtx); err != nil {
		j.logger.Error("Job run failed",
			zap.String("job", j.name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}

	j.logger.Debug("Job run finished",
		zap.String("job", j.name),
		zap.Duration("elapsed", time.Since(start)),
	)
}
