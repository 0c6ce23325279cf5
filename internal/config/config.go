package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Import
		Schedule
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Driver   string // sqlite, postgres, mysql or sqlserver
		Path     string // sqlite file path
		DSN      string // connection string for the server drivers
		LogLevel string // silent, error, warn or info
	}
	Import struct {
		BaseDir      string // Root that relative archive paths are resolved against
		ArchiveDir   string // Directory holding the XML files, relative to BaseDir
		ItemTag      string // Default record element name
		MappingsFile string // Optional YAML/TOML/JSON file with per-target overrides
		RunRetention int    // Days import runs are kept, 0 keeps them forever
	}
	Schedule struct {
		Enabled bool
		Cron    string   // Cron format: "0 3 * * *" = daily at 03:00
		Files   []string // "target:file" pairs imported on every tick
	}
	Tasks struct {
		Enabled           bool
		DBPath            string // Defaults to "<database>-tasks.db" next to the main database
		Workers           int
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
		TaskTimeout       time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("database_driver", DriverSQLite)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("database_log_level", "warn")

	v.SetDefault("import_base_dir", ".")
	v.SetDefault("import_archive_dir", DefaultArchiveDir)
	v.SetDefault("import_item_tag", DefaultItemTag)
	v.SetDefault("import_mappings_file", "")
	v.SetDefault("import_run_retention_days", 90)

	// Scheduled imports are off unless both a schedule and files are given
	v.SetDefault("import_schedule_enabled", false)
	v.SetDefault("import_schedule", "0 3 * * *")
	v.SetDefault("import_scheduled_files", "")

	// Task queue defaults. One worker keeps imports strictly sequential.
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("tasks_db_path", "")
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_release_after", "30m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "72h")
	v.SetDefault("task_timeout", "20m")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver:   strings.ToLower(v.GetString("DATABASE_DRIVER")),
			Path:     v.GetString("DATABASE_PATH"),
			DSN:      v.GetString("DATABASE_DSN"),
			LogLevel: strings.ToLower(v.GetString("DATABASE_LOG_LEVEL")),
		},
		Import: Import{
			BaseDir:      v.GetString("IMPORT_BASE_DIR"),
			ArchiveDir:   v.GetString("IMPORT_ARCHIVE_DIR"),
			ItemTag:      v.GetString("IMPORT_ITEM_TAG"),
			MappingsFile: v.GetString("IMPORT_MAPPINGS_FILE"),
			RunRetention: v.GetInt("IMPORT_RUN_RETENTION_DAYS"),
		},
		Schedule: Schedule{
			Enabled: v.GetBool("IMPORT_SCHEDULE_ENABLED"),
			Cron:    v.GetString("IMPORT_SCHEDULE"),
			Files:   splitList(v.GetString("IMPORT_SCHEDULED_FILES")),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			DBPath:            v.GetString("TASKS_DB_PATH"),
			Workers:           v.GetInt("TASK_WORKERS"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
		},
	}
}

// splitList splits a comma separated env value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
