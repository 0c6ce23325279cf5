package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/xmlimport/internal/catalog"
	"github.com/mrlokans/xmlimport/internal/config"
	"github.com/mrlokans/xmlimport/internal/database"
	http_controllers "github.com/mrlokans/xmlimport/internal/http"
	"github.com/mrlokans/xmlimport/internal/scheduler"
	"github.com/mrlokans/xmlimport/internal/services"
	"github.com/mrlokans/xmlimport/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background imports before the server so no new work is accepted
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting xmlimport v%s", version)

	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	registry := catalog.Default()
	mappings, err := config.LoadMappings(cfg.Import.MappingsFile)
	if err != nil {
		log.Fatalf("Failed to load mappings: %v", err)
	}
	if err := catalog.ApplyMappings(registry, mappings); err != nil {
		log.Fatalf("Invalid mappings file %s: %v", cfg.Import.MappingsFile, err)
	}
	log.Printf("Import targets: %v", registry.Names())

	importService := services.NewImportService(db.DB, registry, cfg.Import)

	routerCfg := http_controllers.RouterConfig{
		Database: db,
		Importer: importService,
		Runs:     importService.Runs(),
		Registry: registry,
		Version:  version,
	}

	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.FromConfig(cfg.Tasks)
		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewImportFileQueue(importService, taskCfg.TaskTimeout),
			tasks.NewCleanupImportRunsQueue(importService.Runs()),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		if cfg.Import.RunRetention > 0 {
			if _, err := taskClient.Enqueue(tasks.CleanupImportRunsTask{RetentionDays: cfg.Import.RunRetention}); err != nil {
				log.Printf("Failed to enqueue import run cleanup: %v", err)
			}
		}
		routerCfg.Tasks = taskClient
	}

	var importScheduler *scheduler.ImportScheduler
	if cfg.Schedule.Enabled {
		importScheduler, err = scheduler.NewImportScheduler(importService, cfg.Schedule)
		if err != nil {
			log.Fatalf("Failed to configure import scheduler: %v", err)
		}
		if cfg.Import.RunRetention > 0 {
			importScheduler.WithRunCleanup(importService.Runs(), time.Duration(cfg.Import.RunRetention)*24*time.Hour)
		}
		if err := importScheduler.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start import scheduler: %v", err)
		}
		routerCfg.Scheduler = importScheduler
	} else {
		log.Printf("Import scheduler: disabled")
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if importScheduler != nil {
			if err := importScheduler.Stop(ctx); err != nil {
				log.Printf("Scheduler shutdown: %v", err)
			}
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
