package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/xmlimport/internal/config"
	"github.com/mrlokans/xmlimport/internal/entities"
	"github.com/mrlokans/xmlimport/internal/services"
)

// Cleanup of old import runs happens once a day at 04:15.
const cleanupSchedule = "15 4 * * *"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Job is one file imported on every tick.
type Job struct {
	Target string
	File   string
}

func (j Job) String() string {
	return j.Target + ":" + j.File
}

// ParseJobs parses "target:file" entries.
func ParseJobs(entries []string) ([]Job, error) {
	jobs := make([]Job, 0, len(entries))
	for _, entry := range entries {
		target, file, ok := strings.Cut(entry, ":")
		target, file = strings.TrimSpace(target), strings.TrimSpace(file)
		if !ok || target == "" || file == "" {
			return nil, fmt.Errorf("invalid scheduled import %q, expected target:file", entry)
		}
		jobs = append(jobs, Job{Target: target, File: file})
	}
	return jobs, nil
}

// ValidateCronSchedule checks a standard five field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// NextRunTime returns the next activation of schedule after now.
func NextRunTime(schedule string) (*time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(time.Now())
	return &next, nil
}

// RunCleaner deletes old import runs. Implemented by runs.Repository.
type RunCleaner interface {
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// ImportScheduler imports the configured files periodically. Files that did
// not change since their last completed import are skipped, and a tick is
// dropped while the previous one is still importing.
type ImportScheduler struct {
	importer services.Importer
	schedule string
	jobs     []Job

	cleaner   RunCleaner
	retention time.Duration

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewImportScheduler validates the schedule and the scheduled files.
func NewImportScheduler(importer services.Importer, cfg config.Schedule) (*ImportScheduler, error) {
	if err := ValidateCronSchedule(cfg.Cron); err != nil {
		return nil, fmt.Errorf("invalid cron schedule '%s': %w", cfg.Cron, err)
	}
	jobs, err := ParseJobs(cfg.Files)
	if err != nil {
		return nil, err
	}

	logger := cron.PrintfLogger(log.New(os.Stderr, "cron: ", log.LstdFlags))
	return &ImportScheduler{
		importer: importer,
		schedule: cfg.Cron,
		jobs:     jobs,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}, nil
}

// WithRunCleanup deletes runs older than retention once a day.
func (s *ImportScheduler) WithRunCleanup(cleaner RunCleaner, retention time.Duration) *ImportScheduler {
	s.cleaner = cleaner
	s.retention = retention
	return s
}

func (s *ImportScheduler) Jobs() []Job {
	return s.jobs
}

// Start registers the jobs and starts the cron loop. It stops when ctx ends.
func (s *ImportScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if len(s.jobs) == 0 {
		log.Printf("Import scheduler: no files configured, skipping")
		return nil
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.RunOnce(cancelCtx)
	})
	if err != nil {
		s.cancelFunc()
		return fmt.Errorf("failed to schedule import job: %w", err)
	}
	s.entryID = entryID

	if s.cleaner != nil && s.retention > 0 {
		if _, err := s.cron.AddFunc(cleanupSchedule, s.cleanup); err != nil {
			s.cancelFunc()
			return fmt.Errorf("failed to schedule run cleanup: %w", err)
		}
	}

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := NextRunTime(s.schedule)
	log.Printf("Import scheduler: started with schedule '%s' for %d files. Next run: %v",
		s.schedule, len(s.jobs), nextRun)

	go func() {
		<-cancelCtx.Done()
		s.Stop(context.Background())
	}()

	return nil
}

// Stop stops the scheduler and waits for a running tick to finish. When ctx
// ends first the running imports are cancelled and ctx's error is returned.
func (s *ImportScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	var err error
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		err = ctx.Err()
		log.Printf("Import scheduler: running import did not finish in time: %v", err)
	}

	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("Import scheduler: stopped")
	return err
}

func (s *ImportScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the next tick will occur, or nil when stopped.
func (s *ImportScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// RunOnce imports every scheduled file in order. A failing file does not
// stop the others; the joined errors are returned.
func (s *ImportScheduler) RunOnce(ctx context.Context) error {
	var errs []error
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		report, err := s.importer.Import(ctx, services.Request{
			Target:        job.Target,
			File:          job.File,
			SkipUnchanged: true,
			Trigger:       entities.ImportTriggerSchedule,
		})
		if err != nil {
			log.Printf("Import scheduler: %s failed: %v", job, err)
			errs = append(errs, fmt.Errorf("%s: %w", job, err))
			continue
		}
		if report.Skipped {
			log.Printf("Import scheduler: %s unchanged, skipped", job)
			continue
		}
		log.Printf("Import scheduler: %s imported, %d inserted, %d duplicates, %d errors",
			job, report.Result.Inserted, report.Result.Duplicates, report.Result.Errors)
	}
	return errors.Join(errs...)
}

func (s *ImportScheduler) cleanup() {
	deleted, err := s.cleaner.DeleteOlderThan(time.Now().Add(-s.retention))
	if err != nil {
		log.Printf("Import scheduler: run cleanup failed: %v", err)
		return
	}
	log.Printf("Import scheduler: deleted %d import runs older than %v", deleted, s.retention)
}
