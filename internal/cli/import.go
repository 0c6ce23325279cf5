package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/mrlokans/xmlimport/internal/catalog"
	"github.com/mrlokans/xmlimport/internal/coerce"
	"github.com/mrlokans/xmlimport/internal/config"
	"github.com/mrlokans/xmlimport/internal/database"
	"github.com/mrlokans/xmlimport/internal/entities"
	"github.com/mrlokans/xmlimport/internal/importer"
	"github.com/mrlokans/xmlimport/internal/services"
)

// ImportCommand imports one XML file into a target table.
type ImportCommand struct {
	Target       string
	File         string
	ItemTag      string
	PKFrom       string
	FieldMap     pairsFlag
	Transforms   pairsFlag
	DatabasePath string
	MappingsFile string
	DryRun       bool
	Verbose      bool

	cfg *config.Config
	out io.Writer
}

func NewImportCommand(cfg *config.Config) *ImportCommand {
	return &ImportCommand{
		FieldMap:   pairsFlag{},
		Transforms: pairsFlag{},
		cfg:        cfg,
		out:        os.Stdout,
	}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)

	fs.StringVar(&cmd.Target, "target", "", "Target to import into, see the targets command (required)")
	fs.StringVar(&cmd.File, "file", "", "XML file, absolute or relative to the archive directory (required)")
	fs.StringVar(&cmd.ItemTag, "item-tag", "", "Record element name (default from target or IMPORT_ITEM_TAG)")
	fs.StringVar(&cmd.PKFrom, "pk-from", "", "Element holding the primary key")
	fs.Var(cmd.FieldMap, "map", "Column to element mapping as field=tag, repeatable")
	fs.Var(cmd.Transforms, "transform", "Named transform for a column as field=name, repeatable")
	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the sqlite database (default DATABASE_PATH)")
	fs.StringVar(&cmd.MappingsFile, "mappings", "", "Mappings file with per-target overrides (default IMPORT_MAPPINGS_FILE)")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Validate and count records without writing")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Log SQL statements and list rejected records")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import -target <name> -file <xml> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import the records of an XML export into a database table.\n")
		fmt.Fprintf(os.Stderr, "Records already present (same primary key) are counted as duplicates.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nTransforms: %v\n", coerce.Names())
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import -target localities -file localidades.xml\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import -target provinces -file /tmp/prov.xml -map name=denominacion -transform name=title -dry-run\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Target == "" {
		return fmt.Errorf("required flag -target not provided")
	}
	if cmd.File == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	for field, name := range cmd.Transforms {
		if _, err := coerce.Lookup(name); err != nil {
			return fmt.Errorf("-transform %s: %w", field, err)
		}
	}
	return nil
}

func (cmd *ImportCommand) Run() error {
	cfg := *cmd.cfg
	if cmd.DatabasePath != "" {
		absDBPath, err := filepath.Abs(cmd.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to get absolute path for database: %w", err)
		}
		cfg.Database.Path = absDBPath
	}
	if cmd.MappingsFile != "" {
		cfg.Import.MappingsFile = cmd.MappingsFile
	}
	if cmd.Verbose {
		cfg.Database.LogLevel = "info"
	}

	if cmd.DryRun {
		fmt.Fprintln(cmd.out, "DRY RUN MODE - No changes will be made")
	}

	registry, err := loadRegistry(cfg.Import.MappingsFile)
	if err != nil {
		return err
	}

	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	opts, err := cmd.options()
	if err != nil {
		return err
	}

	service := services.NewImportService(db.DB, registry, cfg.Import).
		WithLogger(log.New(cmd.out, "", 0))

	report, err := service.Import(context.Background(), services.Request{
		Target:  cmd.Target,
		File:    cmd.File,
		DryRun:  cmd.DryRun,
		Trigger: entities.ImportTriggerCLI,
		Options: opts,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.out)
	fmt.Fprint(cmd.out, report.Result.Summary())

	if cmd.Verbose && len(report.Result.Issues) > 0 {
		fmt.Fprintf(cmd.out, "\n=== Rejected Records ===\n")
		for _, issue := range report.Result.Issues {
			pk := "-"
			if issue.PK != nil {
				pk = fmt.Sprint(issue.PK)
			}
			fmt.Fprintf(cmd.out, "  #%d id=%s [%s] %v\n", issue.Position, pk, issue.Kind, issue.Err)
		}
	}
	if cmd.DryRun {
		fmt.Fprintln(cmd.out, "\nDry run complete. Use without -dry-run to import.")
	}
	return nil
}

func (cmd *ImportCommand) options() (importer.Options, error) {
	opts := importer.Options{
		ItemTag:  cmd.ItemTag,
		PKFrom:   cmd.PKFrom,
		FieldMap: cmd.FieldMap,
	}
	if len(cmd.Transforms) > 0 {
		opts.Transforms = make(map[string]coerce.Transform, len(cmd.Transforms))
		for field, name := range cmd.Transforms {
			fn, err := coerce.Lookup(name)
			if err != nil {
				return opts, err
			}
			opts.Transforms[field] = fn
		}
	}
	return opts, nil
}

// loadRegistry returns the built-in targets with the mappings file applied.
func loadRegistry(mappingsFile string) (*catalog.Registry, error) {
	registry := catalog.Default()
	mappings, err := config.LoadMappings(mappingsFile)
	if err != nil {
		return nil, err
	}
	if err := catalog.ApplyMappings(registry, mappings); err != nil {
		return nil, fmt.Errorf("invalid mappings file %s: %w", mappingsFile, err)
	}
	return registry, nil
}
