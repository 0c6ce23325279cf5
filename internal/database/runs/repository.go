package runs

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/xmlimport/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create saves a new run.
func (r *Repository) Create(run *entities.ImportRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = entities.ImportStatusPending
	}
	return r.db.Create(run).Error
}

// Start marks a run as running.
func (r *Repository) Start(run *entities.ImportRun) error {
	run.Status = entities.ImportStatusRunning
	return r.db.Omit("Issues").Save(run).Error
}

// Finish stores the final state of a run together with its rejected records.
func (r *Repository) Finish(run *entities.ImportRun, status entities.ImportStatus) error {
	now := time.Now()
	run.Status = status
	run.CompletedAt = &now

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Issues").Save(run).Error; err != nil {
			return err
		}
		if len(run.Issues) == 0 {
			return nil
		}
		for i := range run.Issues {
			run.Issues[i].RunID = run.ID
		}
		return tx.CreateInBatches(run.Issues, 200).Error
	})
}

// GetByID retrieves a run with its issues.
func (r *Repository) GetByID(id uint) (*entities.ImportRun, error) {
	var run entities.ImportRun
	err := r.db.Preload("Issues", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&run, id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List retrieves paginated runs, most recent first. An empty target lists all.
func (r *Repository) List(target string, limit, offset int) ([]entities.ImportRun, int64, error) {
	var runs []entities.ImportRun
	var total int64

	query := r.db.Model(&entities.ImportRun{})
	if target != "" {
		query = query.Where("target = ?", target)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&runs).Error
	return runs, total, err
}

// LastCompleted returns the most recent completed, non dry-run import of a
// file into a target.
func (r *Repository) LastCompleted(target, file string) (*entities.ImportRun, error) {
	var run entities.ImportRun
	err := r.db.Where("target = ? AND file = ? AND status = ? AND dry_run = ?",
		target, file, entities.ImportStatusCompleted, false).
		Order("id DESC").
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// DeleteOlderThan removes runs created before the cutoff and their issues.
// Returns the number of deleted runs.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		old := tx.Model(&entities.ImportRun{}).Select("id").Where("created_at < ?", cutoff)
		if err := tx.Where("run_id IN (?)", old).Delete(&entities.ImportIssue{}).Error; err != nil {
			return err
		}
		result := tx.Where("created_at < ?", cutoff).Delete(&entities.ImportRun{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}
