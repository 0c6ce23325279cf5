package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// RunCleaner deletes old import runs. Implemented by runs.Repository.
type RunCleaner interface {
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// CleanupImportRunsTask removes import runs older than the retention period.
type CleanupImportRunsTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupImportRunsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_import_runs",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupImportRunsProcessor creates a processor function for CleanupImportRunsTask.
func CleanupImportRunsProcessor(cleaner RunCleaner) backlite.QueueProcessor[CleanupImportRunsTask] {
	return func(ctx context.Context, task CleanupImportRunsTask) error {
		if cleaner == nil {
			return fmt.Errorf("import run cleaner not configured")
		}

		retentionDays := task.RetentionDays
		if retentionDays <= 0 {
			retentionDays = 90
		}
		cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

		deleted, err := cleaner.DeleteOlderThan(cutoff)
		if err != nil {
			return fmt.Errorf("cleanup import runs: %w", err)
		}

		log.Printf("[TASK] Cleaned up %d import runs older than %d days", deleted, retentionDays)
		return nil
	}
}

func NewCleanupImportRunsQueue(cleaner RunCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupImportRunsProcessor(cleaner))
}
