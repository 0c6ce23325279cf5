package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mrlokans/xmlimport/internal/coerce"
	"github.com/mrlokans/xmlimport/internal/config"
	"github.com/mrlokans/xmlimport/internal/importer"
)

// TargetsCommand lists the import targets and how their columns are read.
type TargetsCommand struct {
	MappingsFile string

	cfg *config.Config
	out io.Writer
}

func NewTargetsCommand(cfg *config.Config) *TargetsCommand {
	return &TargetsCommand{cfg: cfg, out: os.Stdout}
}

func (cmd *TargetsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("targets", flag.ContinueOnError)
	fs.StringVar(&cmd.MappingsFile, "mappings", cmd.cfg.Import.MappingsFile, "Mappings file with per-target overrides")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s targets [-mappings <file>]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List import targets with their columns and source elements.\n\n")
		fs.PrintDefaults()
	}
	return fs.Parse(args)
}

func (cmd *TargetsCommand) Run() error {
	registry, err := loadRegistry(cmd.MappingsFile)
	if err != nil {
		return err
	}

	for i, name := range registry.Names() {
		target, err := registry.Get(name)
		if err != nil {
			return err
		}
		s, err := target.Schema()
		if err != nil {
			return err
		}
		opts := importer.Options{ItemTag: cmd.cfg.Import.ItemTag}.Merge(target.Options)
		plan, err := importer.NewPlan(s, opts)
		if err != nil {
			return fmt.Errorf("target %s: %w", name, err)
		}

		if i > 0 {
			fmt.Fprintln(cmd.out)
		}
		fmt.Fprintf(cmd.out, "%s (table %s, records <%s>)\n", name, s.Table, opts.ItemTag)
		if target.Description != "" {
			fmt.Fprintf(cmd.out, "  %s\n", target.Description)
		}

		w := tabwriter.NewWriter(cmd.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  COLUMN\tTYPE\tELEMENT\tTRANSFORM")
		for _, d := range plan.Descriptors {
			column := d.Field.Name
			if column == s.PrimaryKey {
				column += " (pk)"
			}
			transform := "-"
			if _, ok := opts.Transforms[d.Field.Name]; ok {
				transform = "custom"
			}
			fmt.Fprintf(w, "  %s\t%s\t<%s>\t%s\n", column, d.Field.Type, d.SourceTag, transform)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.out, "\nNamed transforms: %s\n", strings.Join(coerce.Names(), ", "))
	return nil
}
