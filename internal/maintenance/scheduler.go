package maintenance

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval runs maintenance once a day.
const DefaultInterval = 24 * time.Hour

// Job is one maintenance task. It returns the number of records removed.
type Job struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

// Scheduler runs its jobs on a fixed interval until shut down.
type Scheduler struct {
	jobs     []Job
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	start  sync.Once
}

// NewScheduler constructs a Scheduler. Each run of a job is bounded by a
// timeout of one tenth of the interval, at most five minutes.
func NewScheduler(interval time.Duration, logger *slog.Logger, jobs ...Job) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:     jobs,
		interval: interval,
		timeout:  min(interval/10, 5*time.Minute),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the background loop. Later calls do nothing.
func (s *Scheduler) Start() {
	s.start.Do(func() {
		s.wg.Add(1)
		go s.loop()
	})
}

// RunOnce executes every job immediately and returns the total removed.
func (s *Scheduler) RunOnce(ctx context.Context) int64 {
	var total int64
	for _, job := range s.jobs {
		if job.Run == nil {
			continue
		}

		jobCtx, cancel := context.WithTimeout(ctx, s.timeout)
		started := time.Now()
		removed, err := job.Run(jobCtx)
		cancel()

		if err != nil {
			s.logger.Error("maintenance job failed", "job", job.Name, "error", err)
			continue
		}
		total += removed
		s.logger.Info("maintenance job completed", "job", job.Name, "removed", removed, "duration", time.Since(started))
	}
	return total
}

// Shutdown stops the loop and waits for a running pass to finish.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.once.Do(s.cancel)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(s.ctx)
		}
	}
}
