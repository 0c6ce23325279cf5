package services

import (
	"context"

	"github.com/mrlokans/xmlimport/internal/database/runs"
	"github.com/mrlokans/xmlimport/internal/entities"
)

// Importer runs import requests. Implemented by ImportService.
type Importer interface {
	Import(ctx context.Context, req Request) (*Report, error)
}

// RunReader provides read-only access to the run history.
type RunReader interface {
	GetByID(id uint) (*entities.ImportRun, error)
	List(target string, limit, offset int) ([]entities.ImportRun, int64, error)
}

var (
	_ Importer  = (*ImportService)(nil)
	_ RunReader = (*runs.Repository)(nil)
)
