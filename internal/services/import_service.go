package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"
	"gorm.io/gorm"

	"github.com/mrlokans/xmlimport/internal/catalog"
	"github.com/mrlokans/xmlimport/internal/config"
	"github.com/mrlokans/xmlimport/internal/database/runs"
	"github.com/mrlokans/xmlimport/internal/entities"
	"github.com/mrlokans/xmlimport/internal/importer"
)

// Request describes one import of an XML file into a target.
type Request struct {
	Target        string
	File          string // Absolute path, or a name inside the archive directory
	DryRun        bool
	SkipUnchanged bool // Skip when the file has not changed since the last completed run
	Trigger       entities.ImportTrigger
	Options       importer.Options // Per-request overrides of the target options
}

// Report is the outcome of an import request.
type Report struct {
	Run     *entities.ImportRun
	Result  importer.Result
	Skipped bool
}

// ImportService runs imports one at a time and records every run.
type ImportService struct {
	db       *gorm.DB
	registry *catalog.Registry
	runs     *runs.Repository
	cfg      config.Import
	logger   *log.Logger

	mu sync.Mutex
}

// NewImportService creates a new ImportService.
func NewImportService(db *gorm.DB, registry *catalog.Registry, cfg config.Import) *ImportService {
	return &ImportService{
		db:       db,
		registry: registry,
		runs:     runs.NewRepository(db),
		cfg:      cfg,
		logger:   log.Default(),
	}
}

// WithLogger sets the logger that receives per-record progress lines.
func (s *ImportService) WithLogger(l *log.Logger) *ImportService {
	s.logger = l
	return s
}

// Runs exposes the run history.
func (s *ImportService) Runs() *runs.Repository {
	return s.runs
}

func (s *ImportService) Registry() *catalog.Registry {
	return s.registry
}

// Import resolves the target and file, records a run and executes it.
// Calls are serialized: a second caller waits until the running import ends.
// Unknown targets and unresolvable names fail before a run is recorded.
func (s *ImportService) Import(ctx context.Context, req Request) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.registry.Get(req.Target)
	if err != nil {
		return nil, err
	}
	tableSchema, err := target.Schema()
	if err != nil {
		return nil, fmt.Errorf("failed to describe target %s: %w", target.Name, err)
	}
	path, err := importer.ResolvePath(s.cfg.BaseDir, s.cfg.ArchiveDir, req.File)
	if err != nil {
		return nil, err
	}

	if req.Trigger == "" {
		req.Trigger = entities.ImportTriggerCLI
	}
	run := &entities.ImportRun{
		Target:  target.Name,
		File:    path,
		Trigger: req.Trigger,
		DryRun:  req.DryRun,
	}
	if err := s.runs.Create(run); err != nil {
		return nil, fmt.Errorf("failed to record import run: %w", err)
	}
	report := &Report{Run: run, Result: importer.Result{File: path, Table: tableSchema.Table}}

	hash, err := fingerprint(path)
	if err != nil {
		return report, s.fail(run, err)
	}
	run.FileHash = hash

	if req.SkipUnchanged && !req.DryRun {
		last, err := s.runs.LastCompleted(target.Name, path)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return report, s.fail(run, fmt.Errorf("failed to look up previous runs: %w", err))
		}
		if last != nil && last.FileHash == hash {
			log.Printf("Skipping %s import of %s: unchanged since run %d", target.Name, path, last.ID)
			report.Skipped = true
			if err := s.runs.Finish(run, entities.ImportStatusSkipped); err != nil {
				return report, fmt.Errorf("failed to record import run: %w", err)
			}
			return report, nil
		}
	}

	if err := s.runs.Start(run); err != nil {
		return report, fmt.Errorf("failed to record import run: %w", err)
	}

	opts := s.options(target, req)
	result, importErr := importer.New(s.db).WithLogger(s.logger).Import(ctx, path, tableSchema, opts)
	report.Result = result

	run.Inserted = result.Inserted
	run.Duplicates = result.Duplicates
	run.Errors = result.Errors
	run.Issues = toIssues(result.Issues)

	if importErr != nil {
		return report, s.fail(run, importErr)
	}
	if err := s.runs.Finish(run, entities.ImportStatusCompleted); err != nil {
		return report, fmt.Errorf("failed to record import run: %w", err)
	}

	log.Printf("Import run %d (%s) finished: %d inserted, %d duplicates, %d errors",
		run.ID, target.Name, run.Inserted, run.Duplicates, run.Errors)
	return report, nil
}

// options layers the configured item tag, the target defaults and the
// request overrides, in that order.
func (s *ImportService) options(target catalog.Target, req Request) importer.Options {
	opts := importer.Options{ItemTag: s.cfg.ItemTag}.Merge(target.Options).Merge(req.Options)
	opts.DryRun = req.DryRun || req.Options.DryRun
	return opts
}

// fail records the run as failed and returns cause.
func (s *ImportService) fail(run *entities.ImportRun, cause error) error {
	run.ErrorMsg = truncate(cause.Error(), 500)
	if err := s.runs.Finish(run, entities.ImportStatusFailed); err != nil {
		log.Printf("Failed to record failed import run %d: %v", run.ID, err)
	}
	log.Printf("Import run %d (%s) failed: %v", run.ID, run.Target, cause)
	return cause
}

// fingerprint returns the hex encoded xxh3-128 hash of the file contents.
func fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", importer.ErrFileNotFound, path)
		}
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:]), nil
}

func toIssues(issues []importer.RecordIssue) []entities.ImportIssue {
	if len(issues) == 0 {
		return nil
	}
	out := make([]entities.ImportIssue, len(issues))
	for i, issue := range issues {
		out[i] = entities.ImportIssue{
			Position: issue.Position,
			Kind:     issue.Kind,
			Message:  truncate(issue.Err.Error(), 500),
		}
		if issue.PK != nil {
			out[i].PK = truncate(fmt.Sprint(issue.PK), 256)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
