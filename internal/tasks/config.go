package tasks

import (
	"time"

	"github.com/mrlokans/xmlimport/internal/config"
)

// Config holds configuration for the import queue.
type Config struct {
	// DBPath overrides the queue database location.
	DBPath string

	// Workers is the number of concurrent workers. Imports are serialized by
	// the import service anyway, so more than one only queues up. Default: 1
	Workers int

	// TaskTimeout bounds a single background import. Default: 20m
	TaskTimeout time.Duration

	// ReleaseAfter is when stuck tasks are released back to queue. Default: 30m
	ReleaseAfter time.Duration

	// CleanupInterval is how often finished tasks are purged. Default: 1h
	CleanupInterval time.Duration

	// RetentionDuration is how long finished tasks are kept. Default: 72h
	RetentionDuration time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:           1,
		TaskTimeout:       20 * time.Minute,
		ReleaseAfter:      30 * time.Minute,
		CleanupInterval:   1 * time.Hour,
		RetentionDuration: 72 * time.Hour,
	}
}

// FromConfig converts the application settings, keeping defaults for unset values.
func FromConfig(cfg config.Tasks) Config {
	c := DefaultConfig()
	c.DBPath = cfg.DBPath
	if cfg.Workers > 0 {
		c.Workers = cfg.Workers
	}
	if cfg.TaskTimeout > 0 {
		c.TaskTimeout = cfg.TaskTimeout
	}
	if cfg.ReleaseAfter > 0 {
		c.ReleaseAfter = cfg.ReleaseAfter
	}
	if cfg.CleanupInterval > 0 {
		c.CleanupInterval = cfg.CleanupInterval
	}
	if cfg.RetentionDuration > 0 {
		c.RetentionDuration = cfg.RetentionDuration
	}
	return c
}
