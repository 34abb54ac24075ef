package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ncmdump/internal/history"
	"ncmdump/internal/logging"
	"ncmdump/internal/services"
)

// ErrBatchLocked reports another batch writing to the same output directory.
var ErrBatchLocked = errors.New("output directory is locked by another batch")

// Run converts inputs, which must already be expanded with CollectInputs.
// Per-file outcomes are reported in the Summary; the returned error is set
// only when the batch itself could not run or was cancelled.
func (m *Manager) Run(ctx context.Context, inputs []string) (*Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	if id, ok := services.RunIDFromContext(ctx); ok {
		runID = id
	}
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, m.logger)
	summary := &Summary{RunID: runID}

	if err := m.cfg.EnsureDirectories(); err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "batch", "create directories", "Failed to create output or state directories", err)
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if err := m.runPreflightChecks(ctx, logger); err != nil {
		return summary, err
	}

	lockPath := filepath.Join(m.cfg.Paths.OutputDir, LockFileName)
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return summary, services.Wrap(services.ErrTransient, "batch", "acquire lock", "Failed to lock output directory", err)
	}
	if !locked {
		return summary, fmt.Errorf("%w: %s", ErrBatchLocked, lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release output lock",
				logging.String("lock", lockPath),
				logging.Error(err),
				logging.String(logging.FieldEventType, "lock_release_failed"),
				logging.String(logging.FieldErrorHint, "remove the lock file if no batch is running"),
			)
		}
	}()

	if m.store != nil {
		reset, err := m.store.ResetRunning(ctx)
		if err != nil {
			return summary, services.Wrap(services.ErrTransient, "batch", "reset history", "Failed to reset interrupted history records", err)
		}
		if reset > 0 {
			logger.Info("marked interrupted conversions as failed",
				logging.Int64("records", reset),
				logging.String(logging.FieldEventType, "history_reset_running"),
			)
		}
	}

	m.resetNames()
	workers := min(m.cfg.WorkerCount(), max(len(inputs), 1))
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("inputs", len(inputs)),
		logging.Int("workers", workers),
		logging.String("output_dir", m.cfg.Paths.OutputDir),
		logging.String("format", m.cfg.Output.Format),
	)

	results := make([]Result, len(inputs))
	started := make([]bool, len(inputs))
	var done atomic.Int64
	var progressMu sync.Mutex
	sampler := logging.NewProgressSampler(10)

	group := new(errgroup.Group)
	group.SetLimit(workers)
	for i, source := range inputs {
		if ctx.Err() != nil {
			break
		}
		started[i] = true
		group.Go(func() error {
			results[i] = m.processFile(ctx, runID, source)
			completed := int(done.Add(1))
			percent := logging.Percent(completed, len(inputs))
			progressMu.Lock()
			emit := sampler.ShouldLog(percent, "convert")
			progressMu.Unlock()
			if emit {
				logger.Info("batch progress",
					logging.String(logging.FieldEventType, "batch_progress"),
					logging.Int("done", completed),
					logging.Int("total", len(inputs)),
					logging.Float64("percent", percent),
				)
			}
			return nil
		})
	}
	_ = group.Wait()

	for i, result := range results {
		if started[i] {
			summary.Results = append(summary.Results, result)
		}
	}
	summary.Elapsed = time.Since(start)

	logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("converted", summary.Count(history.StatusCompleted)),
		logging.Int("skipped", summary.Count(history.StatusSkipped)),
		logging.Int("failed", summary.Failures()),
		logging.Duration("elapsed", summary.Elapsed),
	)
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}
