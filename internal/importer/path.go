package importer

import (
	"fmt"
	"path/filepath"
)

// ResolvePath returns the absolute location of an XML file. Absolute names are
// used as given; relative names are looked up in archiveDir under baseDir.
func ResolvePath(baseDir, archiveDir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("xml file name is empty")
	}
	if filepath.IsAbs(name) {
		return filepath.Clean(name), nil
	}
	abs, err := filepath.Abs(filepath.Join(baseDir, archiveDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	return abs, nil
}
