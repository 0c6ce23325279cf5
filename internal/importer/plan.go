package importer

import (
	"fmt"

	"github.com/mrlokans/xmlimport/internal/coerce"
	"github.com/mrlokans/xmlimport/internal/schema"
)

// Descriptor tells how one column is read from a record element.
type Descriptor struct {
	Field     schema.Field
	SourceTag string
	Convert   coerce.Transform
}

// Plan is the per-import list of column descriptors, built once before the
// record loop.
type Plan struct {
	Table       string
	PrimaryKey  string
	Descriptors []Descriptor
}

// NewPlan resolves source tags and converters for every column of s.
// The source tag is the field map entry, or the primary key redirect when the
// column is the primary key, or the column name itself.
func NewPlan(s *schema.Schema, opts Options) (*Plan, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	for name := range opts.FieldMap {
		if _, ok := s.Field(name); !ok {
			return nil, fmt.Errorf("%w: field map refers to %q, not a field of %s", ErrUnknownField, name, s.Table)
		}
	}
	for name := range opts.Transforms {
		if _, ok := s.Field(name); !ok {
			return nil, fmt.Errorf("%w: transform registered for %q, not a field of %s", ErrUnknownField, name, s.Table)
		}
	}

	plan := &Plan{
		Table:       s.Table,
		PrimaryKey:  s.PrimaryKey,
		Descriptors: make([]Descriptor, 0, len(s.Fields)),
	}
	for _, f := range s.Fields {
		tag := f.Name
		if mapped, ok := opts.FieldMap[f.Name]; ok && mapped != "" {
			tag = mapped
		}
		if f.Name == s.PrimaryKey && opts.PKFrom != "" {
			tag = opts.PKFrom
		}

		convert := coerce.Default(f.Type)
		if custom, ok := opts.Transforms[f.Name]; ok && custom != nil {
			convert = custom
		}

		plan.Descriptors = append(plan.Descriptors, Descriptor{
			Field:     f,
			SourceTag: tag,
			Convert:   convert,
		})
	}
	return plan, nil
}

// row converts one record element into column values.
func (p *Plan) row(item *element) (map[string]any, error) {
	row := make(map[string]any, len(p.Descriptors))
	for _, d := range p.Descriptors {
		v, err := d.Convert(item.text(d.SourceTag))
		if err != nil {
			return row, fmt.Errorf("field %s: %w", d.Field.Name, err)
		}
		row[d.Field.Name] = v
	}
	return row, nil
}
