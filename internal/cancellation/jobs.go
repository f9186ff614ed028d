package cancellation

import (
	"context"
	"sync"
	"time"

	"deskly/pkg/logger"
)

// JobProcessor sweeps automatic requests that were created but never processed
type JobProcessor struct {
	repo    Repository
	service Service
	config  *JobConfig
	logger  *logger.Logger
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// JobConfig contains configuration for background jobs
type JobConfig struct {
	SweepInterval time.Duration
	// Requests younger than this are left to the request that created them
	GracePeriod time.Duration
	BatchSize   int
}

// DefaultJobConfig returns default job configuration
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		SweepInterval: 1 * time.Minute,
		GracePeriod:   2 * time.Minute,
		BatchSize:     50,
	}
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(repo Repository, service Service, config *JobConfig, log *logger.Logger) *JobProcessor {
	if config == nil {
		config = DefaultJobConfig()
	}
	if log == nil {
		log = logger.GetDefault()
	}

	return &JobProcessor{
		repo:    repo,
		service: service,
		config:  config,
		logger:  log,
		done:    make(chan struct{}),
	}
}

// Start starts the automatic refund sweeper
func (jp *JobProcessor) Start(ctx context.Context) {
	jp.wg.Add(1)
	go jp.run(ctx)
	jp.logger.Info("automatic refund sweeper started", "interval", jp.config.SweepInterval.String())
}

// Stop stops the sweeper and waits for the current sweep to finish
func (jp *JobProcessor) Stop() {
	jp.once.Do(func() { close(jp.done) })
	jp.wg.Wait()
	jp.logger.Info("automatic refund sweeper stopped")
}

func (jp *JobProcessor) run(ctx context.Context) {
	defer jp.wg.Done()

	ticker := time.NewTicker(jp.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jp.Sweep(ctx, time.Now())
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sweep processes pending automatic requests older than the grace period and returns how many settled
func (jp *JobProcessor) Sweep(ctx context.Context, now time.Time) int {
	requests, err := jp.repo.ListPendingAutomatic(ctx, jp.config.BatchSize)
	if err != nil {
		jp.logger.WithError(err).Error("failed to load pending automatic requests")
		return 0
	}

	processed := 0
	for _, req := range requests {
		if now.Sub(req.CreatedAt) < jp.config.GracePeriod {
			continue
		}

		result, err := jp.service.ProcessAutomaticRefund(ctx, req.ID)
		if err != nil {
			jp.logger.WithError(err).Warn("automatic refund sweep skipped request", "request_id", req.ID.String())
			continue
		}
		processed++
		if !result.Success {
			jp.logger.Warn("automatic refund did not complete", "request_id", req.ID.String(), "status", string(result.Request.Status))
		}
	}

	if processed > 0 {
		jp.logger.InfoWithContext(ctx, "automatic refund sweep finished", map[string]interface{}{
			"processed": processed,
			"batch":     len(requests),
		})
	}
	return processed
}

// GetJobStatus returns the status of background jobs
func (jp *JobProcessor) GetJobStatus() map[string]interface{} {
	return map[string]interface{}{
		"sweep_interval": jp.config.SweepInterval.String(),
		"grace_period":   jp.config.GracePeriod.String(),
		"batch_size":     jp.config.BatchSize,
	}
}
