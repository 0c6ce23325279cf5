package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// TargetMapping overrides how records of one import target are read from XML.
// Keys of FieldMap and Transforms are column names; viper lowercases them.
type TargetMapping struct {
	ItemTag    string            `mapstructure:"item_tag"`
	PKFrom     string            `mapstructure:"pk_from"`
	FieldMap   map[string]string `mapstructure:"field_map"`
	Transforms map[string]string `mapstructure:"transforms"` // column -> named transform
}

// LoadMappings reads the "targets" section of a mappings file.
// The format is picked from the file extension (yaml, toml, json).
//
//	targets:
//	  localities:
//	    pk_from: codigo
//	    field_map:
//	      name: nombre
//	    transforms:
//	      postal_code: trim-zeros
func LoadMappings(path string) (map[string]TargetMapping, error) {
	if path == "" {
		return nil, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read mappings file %s: %w", path, err)
	}

	mappings := make(map[string]TargetMapping)
	if err := v.UnmarshalKey("targets", &mappings); err != nil {
		return nil, fmt.Errorf("failed to decode mappings file %s: %w", path, err)
	}
	return mappings, nil
}
