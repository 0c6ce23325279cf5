package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/xmlimport/internal/database"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	db        *database.Database
	version   string
	scheduler SchedulerStatus
}

func NewHealthController(db *database.Database, version string, scheduler SchedulerStatus) *HealthController {
	return &HealthController{
		db:        db,
		version:   version,
		scheduler: scheduler,
	}
}

// Status handles GET /health. Only the database decides the overall status.
func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	switch {
	case h.scheduler == nil || !h.scheduler.IsRunning():
		checks["scheduler"] = "disabled"
	case h.scheduler.NextRun() != nil:
		checks["scheduler"] = "next run " + h.scheduler.NextRun().Format(time.RFC3339)
	default:
		checks["scheduler"] = "running"
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
