package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/xmlimport/internal/entities"
	"github.com/mrlokans/xmlimport/internal/importer"
	"github.com/mrlokans/xmlimport/internal/services"
)

// ImportFileTask imports one XML file into a target in the background.
// ItemTag, PKFrom and FieldMap override the target options for this run.
type ImportFileTask struct {
	Target        string            `json:"target"`
	File          string            `json:"file"`
	DryRun        bool              `json:"dry_run,omitempty"`
	SkipUnchanged bool              `json:"skip_unchanged,omitempty"`
	ItemTag       string            `json:"item_tag,omitempty"`
	PKFrom        string            `json:"pk_from,omitempty"`
	FieldMap      map[string]string `json:"field_map,omitempty"`
}

// Config returns the queue configuration for import tasks. Imports are not
// retried: a failed run is recorded and left for an operator.
func (t ImportFileTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import_file",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Hour,
		Retention: &backlite.Retention{
			Duration:   72 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ImportFileProcessor creates a processor function for ImportFileTask.
// A zero timeout leaves the run bounded only by the queue timeout.
func ImportFileProcessor(svc services.Importer, timeout time.Duration) backlite.QueueProcessor[ImportFileTask] {
	return func(ctx context.Context, task ImportFileTask) error {
		if svc == nil {
			return fmt.Errorf("import service not configured")
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		report, err := svc.Import(ctx, services.Request{
			Target:        task.Target,
			File:          task.File,
			DryRun:        task.DryRun,
			SkipUnchanged: task.SkipUnchanged,
			Trigger:       entities.ImportTriggerTask,
			Options: importer.Options{
				ItemTag:  task.ItemTag,
				PKFrom:   task.PKFrom,
				FieldMap: task.FieldMap,
			},
		})
		if err != nil {
			return fmt.Errorf("import %s into %s: %w", task.File, task.Target, err)
		}

		if report.Skipped {
			log.Printf("[TASK] Import of %s into %s skipped, file unchanged", task.File, task.Target)
			return nil
		}
		log.Printf("[TASK] Imported %s into %s (run %d): %d inserted, %d duplicates, %d errors",
			task.File, task.Target, report.Run.ID, report.Result.Inserted, report.Result.Duplicates, report.Result.Errors)
		return nil
	}
}

// NewImportFileQueue creates a backlite queue for import tasks.
func NewImportFileQueue(svc services.Importer, timeout time.Duration) backlite.Queue {
	return backlite.NewQueue(ImportFileProcessor(svc, timeout))
}
