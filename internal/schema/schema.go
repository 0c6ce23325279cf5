// Package schema describes the target tables an XML import writes into.
//
// A Schema is an ordered list of columns with their primitive type and the
// primary key column. Schemas are either declared directly or reflected once
// from a gorm model with FromModel; the import loop never inspects model
// types at runtime.
package schema

import (
	"errors"
	"fmt"
	"sync"

	gormschema "gorm.io/gorm/schema"
)

// Type is the primitive type of a column as far as text coercion is concerned.
type Type string

const (
	Text    Type = "text"
	Integer Type = "integer"
	Float   Type = "float"
	Boolean Type = "boolean"
	Unknown Type = "unknown" // Stored as raw text
)

// DefaultPrimaryKey is used when a model declares no primary key.
const DefaultPrimaryKey = "id"

var ErrInvalidSchema = errors.New("invalid schema")

type Field struct {
	Name string
	Type Type
}

type Schema struct {
	Name       string // Model or target name, used in messages
	Table      string
	PrimaryKey string
	Fields     []Field
}

// Field returns the column with the given name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns column names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func (s *Schema) Validate() error {
	if s.Table == "" {
		return fmt.Errorf("%w: table name is empty", ErrInvalidSchema)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: table %s has no fields", ErrInvalidSchema, s.Table)
	}

	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: table %s has an unnamed field", ErrInvalidSchema, s.Table)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: table %s declares field %s twice", ErrInvalidSchema, s.Table, f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	if _, ok := seen[s.PrimaryKey]; !ok {
		return fmt.Errorf("%w: primary key %q is not a field of %s", ErrInvalidSchema, s.PrimaryKey, s.Table)
	}
	return nil
}

var cache sync.Map

// FromModel reflects a gorm model into a Schema. Column names follow the
// naming strategy (pass nil for gorm's default snake_case naming).
// Association fields and fields without a column are skipped.
func FromModel(model any, namer gormschema.Namer) (*Schema, error) {
	if namer == nil {
		namer = gormschema.NamingStrategy{}
	}

	parsed, err := gormschema.Parse(model, &cache, namer)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
	}

	s := &Schema{
		Name:       parsed.Name,
		Table:      parsed.Table,
		PrimaryKey: DefaultPrimaryKey,
	}
	if parsed.PrioritizedPrimaryField != nil {
		s.PrimaryKey = parsed.PrioritizedPrimaryField.DBName
	} else if len(parsed.PrimaryFields) > 0 {
		s.PrimaryKey = parsed.PrimaryFields[0].DBName
	}

	for _, f := range parsed.Fields {
		if f.DBName == "" || !f.Creatable {
			continue
		}
		s.Fields = append(s.Fields, Field{Name: f.DBName, Type: typeOf(f.DataType)})
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func typeOf(dt gormschema.DataType) Type {
	switch dt {
	case gormschema.String:
		return Text
	case gormschema.Int, gormschema.Uint:
		return Integer
	case gormschema.Float:
		return Float
	case gormschema.Bool:
		return Boolean
	default:
		return Unknown
	}
}
