package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/xmlimport/internal/coerce"
	"github.com/mrlokans/xmlimport/internal/database"
	"github.com/mrlokans/xmlimport/internal/entities"
	"github.com/mrlokans/xmlimport/internal/schema"
)

// DefaultItemTag is the record element name used when Options.ItemTag is empty.
const DefaultItemTag = "_exportar"

var (
	// Run-level failures: nothing is imported.
	ErrFileNotFound = errors.New("xml file not found")
	ErrParse        = errors.New("failed to parse xml file")
	ErrUnknownField = errors.New("unknown field")

	// ErrMissingPrimaryKey rejects a single record.
	ErrMissingPrimaryKey = errors.New("record has no primary key")
)

// Options controls how record elements map onto the target columns.
type Options struct {
	ItemTag    string                      // Record element name, DefaultItemTag if empty
	FieldMap   map[string]string           // column -> source tag
	PKFrom     string                      // Source tag for the primary key column
	Transforms map[string]coerce.Transform // column -> converter replacing type coercion
	DryRun     bool                        // Validate and dedup without writing
}

// Merge returns o with the non-empty settings of over applied on top.
func (o Options) Merge(over Options) Options {
	merged := o
	if over.ItemTag != "" {
		merged.ItemTag = over.ItemTag
	}
	if over.PKFrom != "" {
		merged.PKFrom = over.PKFrom
	}
	if len(over.FieldMap) > 0 {
		merged.FieldMap = make(map[string]string, len(o.FieldMap)+len(over.FieldMap))
		for k, v := range o.FieldMap {
			merged.FieldMap[k] = v
		}
		for k, v := range over.FieldMap {
			merged.FieldMap[k] = v
		}
	}
	if len(over.Transforms) > 0 {
		merged.Transforms = make(map[string]coerce.Transform, len(o.Transforms)+len(over.Transforms))
		for k, v := range o.Transforms {
			merged.Transforms[k] = v
		}
		for k, v := range over.Transforms {
			merged.Transforms[k] = v
		}
	}
	merged.DryRun = o.DryRun || over.DryRun
	return merged
}

// RecordIssue describes a rejected record.
type RecordIssue struct {
	Position int // 1-based position among the record elements
	PK       any // nil when the primary key could not be resolved
	Kind     entities.IssueKind
	Err      error
}

// Result holds the running totals of an import.
type Result struct {
	File       string
	Table      string
	Records    int // Record elements found in the document
	Inserted   int
	Duplicates int
	Errors     int
	Issues     []RecordIssue
}

// Summary returns the end-of-run report printed by the command line.
func (r Result) Summary() string {
	return fmt.Sprintf("Import finished (%s):\n- Records inserted: %d\n- Duplicate records: %d\n- Records with errors: %d\n",
		r.Table, r.Inserted, r.Duplicates, r.Errors)
}

// Importer loads XML records into a table, one transaction per record.
// It must not be used for two imports at the same time.
type Importer struct {
	db  *gorm.DB
	log *log.Logger
}

func New(db *gorm.DB) *Importer {
	return &Importer{db: db, log: log.Default()}
}

// WithLogger returns a copy of the importer writing progress to l.
func (imp *Importer) WithLogger(l *log.Logger) *Importer {
	c := *imp
	c.log = l
	return &c
}

// Import reads the XML file at path and inserts every record element into the
// table described by s. A missing file, a malformed document or an invalid
// option aborts the run with zero counts. Failures of single records are
// counted in the result and never stop the loop.
func (imp *Importer) Import(ctx context.Context, path string, s *schema.Schema, opts Options) (Result, error) {
	result := Result{File: path, Table: s.Table}
	if opts.ItemTag == "" {
		opts.ItemTag = DefaultItemTag
	}

	plan, err := NewPlan(s, opts)
	if err != nil {
		return result, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return result, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	label := s.Name
	if label == "" {
		label = s.Table
	}
	imp.log.Printf("Importing %s from: %s", label, path)

	root, err := parseDocument(f)
	if err != nil {
		return result, fmt.Errorf("%w %s: %w", ErrParse, path, err)
	}

	items := root.items(opts.ItemTag)
	result.Records = len(items)

	// Keys already accepted in this run, only needed when nothing is written.
	var pending map[string]struct{}
	if opts.DryRun {
		pending = make(map[string]struct{})
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		pk, duplicate, err := imp.importRecord(ctx, plan, item, pending)
		switch {
		case err != nil:
			issue := RecordIssue{Position: i + 1, PK: pk, Kind: classify(err), Err: err}
			result.Errors++
			result.Issues = append(result.Issues, issue)
			imp.logIssue(issue)
		case duplicate:
			result.Duplicates++
			imp.log.Printf("Duplicate id %v", pk)
		default:
			result.Inserted++
		}
	}

	return result, nil
}

// importRecord converts, validates and stores one record. The existence check
// and the insert share a transaction that is rolled back on any error.
func (imp *Importer) importRecord(ctx context.Context, plan *Plan, item *element, pending map[string]struct{}) (pk any, duplicate bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing record: %v", r)
		}
	}()

	row, err := plan.row(item)
	pk = row[plan.PrimaryKey]
	if err != nil {
		return pk, false, err
	}
	if pk == nil {
		return nil, false, fmt.Errorf("%w %q", ErrMissingPrimaryKey, plan.PrimaryKey)
	}

	err = imp.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Table(plan.Table).
			Where(clause.Eq{Column: clause.Column{Name: plan.PrimaryKey}, Value: pk}).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			duplicate = true
			return nil
		}

		if pending != nil {
			key := fmt.Sprint(pk)
			if _, seen := pending[key]; seen {
				duplicate = true
			}
			pending[key] = struct{}{}
			return nil
		}

		return tx.Table(plan.Table).Create(row).Error
	})
	return pk, duplicate, err
}

func (imp *Importer) logIssue(issue RecordIssue) {
	switch issue.Kind {
	case entities.IssueKindValidation:
		imp.log.Printf("Value error: %v", issue.Err)
	case entities.IssueKindIntegrity:
		imp.log.Printf("Integrity error inserting id %v: %v", issue.PK, issue.Err)
	default:
		imp.log.Printf("Error processing record %d: %v", issue.Position, issue.Err)
	}
}

func classify(err error) entities.IssueKind {
	switch {
	case errors.Is(err, ErrMissingPrimaryKey), errors.Is(err, coerce.ErrInvalidValue):
		return entities.IssueKindValidation
	case database.IsIntegrityConflict(err):
		return entities.IssueKindIntegrity
	default:
		return entities.IssueKindOther
	}
}
