package entities

import "time"

type ImportStatus string

const (
	ImportStatusPending   ImportStatus = "pending"
	ImportStatusRunning   ImportStatus = "running"
	ImportStatusCompleted ImportStatus = "completed"
	ImportStatusFailed    ImportStatus = "failed"
	ImportStatusSkipped   ImportStatus = "skipped" // File unchanged since the last completed run
)

type ImportTrigger string

const (
	ImportTriggerCLI      ImportTrigger = "cli"
	ImportTriggerAPI      ImportTrigger = "api"
	ImportTriggerTask     ImportTrigger = "task"
	ImportTriggerSchedule ImportTrigger = "schedule"
)

type IssueKind string

const (
	IssueKindValidation IssueKind = "validation"
	IssueKindIntegrity  IssueKind = "integrity"
	IssueKindOther      IssueKind = "other"
)

// ImportRun records one execution of an XML import against a target table.
type ImportRun struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Target      string        `gorm:"index;size:100" json:"target"`
	File        string        `gorm:"index;size:1024" json:"file"`
	FileHash    string        `gorm:"size:32" json:"file_hash,omitempty"` // xxh3-128, hex encoded
	Status      ImportStatus  `gorm:"index;size:20" json:"status"`
	Trigger     ImportTrigger `gorm:"size:20" json:"trigger"`
	DryRun      bool          `json:"dry_run"`
	Inserted    int           `json:"inserted"`
	Duplicates  int           `json:"duplicates"`
	Errors      int           `json:"errors"`
	ErrorMsg    string        `gorm:"size:500" json:"error_msg,omitempty"`
	Issues      []ImportIssue `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"issues,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CreatedAt   time.Time     `gorm:"index" json:"created_at"`
}

func (ImportRun) TableName() string {
	return "import_runs"
}

// ImportIssue is a record that was rejected during a run.
type ImportIssue struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	RunID    uint      `gorm:"index" json:"run_id"`
	Position int       `json:"position"` // Position of the record element, starting at 1
	PK       string    `gorm:"size:256" json:"pk,omitempty"`
	Kind     IssueKind `gorm:"size:20" json:"kind"`
	Message  string    `gorm:"size:500" json:"message"`
}

func (ImportIssue) TableName() string {
	return "import_issues"
}

// Models lists every table the application migrates on startup.
func Models() []any {
	return []any{
		&ImportRun{},
		&ImportIssue{},
		&Province{},
		&Locality{},
	}
}
