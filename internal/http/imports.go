package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/xmlimport/internal/catalog"
	"github.com/mrlokans/xmlimport/internal/entities"
	"github.com/mrlokans/xmlimport/internal/importer"
	"github.com/mrlokans/xmlimport/internal/services"
	"github.com/mrlokans/xmlimport/internal/tasks"
)

type ImportsController struct {
	importer services.Importer
	runs     services.RunReader
	queue    TaskQueue
}

func NewImportsController(imp services.Importer, runs services.RunReader, queue TaskQueue) *ImportsController {
	return &ImportsController{importer: imp, runs: runs, queue: queue}
}

// ImportRequest is the body of POST /api/imports.
type ImportRequest struct {
	Target        string            `json:"target" binding:"required"`
	File          string            `json:"file" binding:"required"`
	DryRun        bool              `json:"dry_run"`
	SkipUnchanged bool              `json:"skip_unchanged"`
	ItemTag       string            `json:"item_tag"`
	PKFrom        string            `json:"pk_from"`
	FieldMap      map[string]string `json:"field_map"`
}

type ImportResponse struct {
	Run        *entities.ImportRun `json:"run"`
	Skipped    bool                `json:"skipped"`
	Records    int                 `json:"records"`
	Inserted   int                 `json:"inserted"`
	Duplicates int                 `json:"duplicates"`
	Errors     int                 `json:"errors"`
}

// List handles GET /api/imports
func (ic *ImportsController) List(c *gin.Context) {
	limit, offset, ok := parsePagination(c)
	if !ok {
		return
	}

	runs, total, err := ic.runs.List(c.Query("target"), limit, offset)
	if err != nil {
		respondInternalError(c, err, "list import runs")
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(runs, total, limit, offset))
}

// Get handles GET /api/imports/:id and includes the rejected records.
func (ic *ImportsController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	run, err := ic.runs.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "import run")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get import run")
		return
	}
	c.JSON(http.StatusOK, run)
}

// Create handles POST /api/imports. The import runs within the request
// unless async=true, which enqueues it and answers 202 with the task id.
func (ic *ImportsController) Create(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request: "+err.Error())
		return
	}

	if c.Query("async") == "true" {
		ic.enqueue(c, req)
		return
	}

	report, err := ic.importer.Import(c.Request.Context(), services.Request{
		Target:        req.Target,
		File:          req.File,
		DryRun:        req.DryRun,
		SkipUnchanged: req.SkipUnchanged,
		Trigger:       entities.ImportTriggerAPI,
		Options: importer.Options{
			ItemTag:  req.ItemTag,
			PKFrom:   req.PKFrom,
			FieldMap: req.FieldMap,
		},
	})
	if err != nil {
		ic.respondImportError(c, report, err)
		return
	}

	c.JSON(http.StatusOK, ImportResponse{
		Run:        report.Run,
		Skipped:    report.Skipped,
		Records:    report.Result.Records,
		Inserted:   report.Result.Inserted,
		Duplicates: report.Result.Duplicates,
		Errors:     report.Result.Errors,
	})
}

func (ic *ImportsController) enqueue(c *gin.Context, req ImportRequest) {
	if ic.queue == nil {
		respondError(c, http.StatusServiceUnavailable, "background imports are disabled")
		return
	}

	taskID, err := ic.queue.Enqueue(tasks.ImportFileTask{
		Target:        req.Target,
		File:          req.File,
		DryRun:        req.DryRun,
		SkipUnchanged: req.SkipUnchanged,
		ItemTag:       req.ItemTag,
		PKFrom:        req.PKFrom,
		FieldMap:      req.FieldMap,
	})
	if err != nil {
		respondInternalError(c, err, "enqueue import")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task_id": taskID,
		"type":    "import_file",
		"message": "import enqueued",
	})
}

// respondImportError maps run-level failures to status codes. The failed run,
// when one was recorded, is returned in the details.
func (ic *ImportsController) respondImportError(c *gin.Context, report *services.Report, err error) {
	resp := ErrorResponse{Error: err.Error()}
	if report != nil {
		resp.Details = report.Run
	}

	switch {
	case errors.Is(err, catalog.ErrUnknownTarget):
		resp.Code = "unknown_target"
		c.JSON(http.StatusNotFound, resp)
	case errors.Is(err, importer.ErrFileNotFound):
		resp.Code = "file_not_found"
		c.JSON(http.StatusNotFound, resp)
	case errors.Is(err, importer.ErrParse):
		resp.Code = "parse_error"
		c.JSON(http.StatusUnprocessableEntity, resp)
	case errors.Is(err, importer.ErrUnknownField):
		resp.Code = "unknown_field"
		c.JSON(http.StatusBadRequest, resp)
	default:
		respondInternalError(c, err, "import")
	}
}
