// Package catalog holds the import targets: which table a file is loaded
// into and how record elements map onto its columns.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mrlokans/xmlimport/internal/coerce"
	"github.com/mrlokans/xmlimport/internal/config"
	"github.com/mrlokans/xmlimport/internal/entities"
	"github.com/mrlokans/xmlimport/internal/importer"
	"github.com/mrlokans/xmlimport/internal/schema"
)

var ErrUnknownTarget = errors.New("unknown import target")

// Target is a named destination table with its default read options.
type Target struct {
	Name        string
	Description string
	Model       any // gorm model the table schema is reflected from
	Options     importer.Options
}

// Schema reflects the target model.
func (t Target) Schema() (*schema.Schema, error) {
	return schema.FromModel(t.Model, nil)
}

type Registry struct {
	mu      sync.RWMutex
	targets map[string]Target
}

func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]Target)}
}

// Default returns a registry with the built-in catalog targets.
func Default() *Registry {
	r := NewRegistry()
	r.Register(Provinces())
	r.Register(Localities())
	return r
}

// Register adds a target, replacing any target with the same name.
func (r *Registry) Register(t Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[t.Name] = t
}

func (r *Registry) Get(name string) (Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[name]
	if !ok {
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
	}
	return t, nil
}

// Names returns the registered target names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.targets))
	for name := range r.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Provinces reads the provincias export. Codes come from the source system.
func Provinces() Target {
	return Target{
		Name:        "provinces",
		Description: "Provinces with their ISO 3166-2 code",
		Model:       &entities.Province{},
		Options: importer.Options{
			PKFrom: "codigo",
			FieldMap: map[string]string{
				"name":     "nombre",
				"iso_code": "iso",
				"active":   "activo",
			},
		},
	}
}

// Localities reads the localidades export, where coordinates use a decimal
// comma.
func Localities() Target {
	decimalComma := mustLookup("decimal-comma")
	return Target{
		Name:        "localities",
		Description: "Localities with postal code and coordinates",
		Model:       &entities.Locality{},
		Options: importer.Options{
			PKFrom: "codigo",
			FieldMap: map[string]string{
				"name":        "nombre",
				"province_id": "provincia",
				"postal_code": "codigo_postal",
				"latitude":    "latitud",
				"longitude":   "longitud",
				"active":      "activo",
			},
			Transforms: map[string]coerce.Transform{
				"latitude":  decimalComma,
				"longitude": decimalComma,
			},
		},
	}
}

// ApplyMappings overlays the mappings file on the registered targets. Every
// mapping must name a registered target, fields of its table and known
// transforms.
func ApplyMappings(r *Registry, mappings map[string]config.TargetMapping) error {
	for name, m := range mappings {
		t, err := r.Get(name)
		if err != nil {
			return err
		}

		over := importer.Options{
			ItemTag:  m.ItemTag,
			PKFrom:   m.PKFrom,
			FieldMap: m.FieldMap,
		}
		if len(m.Transforms) > 0 {
			over.Transforms = make(map[string]coerce.Transform, len(m.Transforms))
			for field, transformName := range m.Transforms {
				fn, err := coerce.Lookup(transformName)
				if err != nil {
					return fmt.Errorf("target %s, field %s: %w", name, field, err)
				}
				over.Transforms[field] = fn
			}
		}

		t.Options = t.Options.Merge(over)

		s, err := t.Schema()
		if err != nil {
			return fmt.Errorf("target %s: %w", name, err)
		}
		if _, err := importer.NewPlan(s, t.Options); err != nil {
			return fmt.Errorf("target %s: %w", name, err)
		}
		r.Register(t)
	}
	return nil
}

func mustLookup(name string) coerce.Transform {
	fn, err := coerce.Lookup(name)
	if err != nil {
		panic(err)
	}
	return fn
}
