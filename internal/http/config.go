package http

import (
	"context"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/xmlimport/internal/catalog"
	"github.com/mrlokans/xmlimport/internal/database"
	"github.com/mrlokans/xmlimport/internal/services"
)

// TaskQueue enqueues background imports. Implemented by tasks.Client.
type TaskQueue interface {
	Enqueue(task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// SchedulerStatus reports the scheduled import state.
// Implemented by scheduler.ImportScheduler.
type SchedulerStatus interface {
	IsRunning() bool
	NextRun() *time.Time
}

// RouterConfig contains all dependencies needed to create the HTTP router.
type RouterConfig struct {
	Database *database.Database
	Importer services.Importer
	Runs     services.RunReader
	Registry *catalog.Registry

	// Optional: async imports are rejected when nil
	Tasks TaskQueue
	// Optional
	Scheduler SchedulerStatus

	Version string
}
