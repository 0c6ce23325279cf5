package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	healthController := NewHealthController(cfg.Database, cfg.Version, cfg.Scheduler)
	router.GET("/health", healthController.Status)

	api := router.Group("/api")

	targetsController := NewTargetsController(cfg.Registry)
	api.GET("/targets", targetsController.List)
	api.GET("/targets/:name", targetsController.Get)

	importsController := NewImportsController(cfg.Importer, cfg.Runs, cfg.Tasks)
	api.GET("/imports", importsController.List)
	api.GET("/imports/:id", importsController.Get)
	api.POST("/imports", importsController.Create)

	if cfg.Tasks != nil {
		tasksController := NewTasksController(cfg.Tasks)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
	}

	return router
}
