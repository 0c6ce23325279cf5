package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/xmlimport/internal/config"
	"github.com/mrlokans/xmlimport/internal/importer"
)

const localitiesXML = `<?xml version="1.0" encoding="UTF-8"?>
<localidades>
  <_exportar><codigo>1</codigo><nombre>Humahuaca</nombre><provincia>38</provincia><latitud>-23,2</latitud></_exportar>
  <_exportar><codigo>2</codigo><nombre>Tilcara</nombre><provincia>38</provincia></_exportar>
  <_exportar><codigo>2</codigo><nombre>Tilcara</nombre><provincia>38</provincia></_exportar>
  <_exportar><nombre>Sin código</nombre></_exportar>
</localidades>
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Database: config.Database{
			Driver:   config.DriverSQLite,
			Path:     filepath.Join(dir, "cli.db"),
			LogLevel: "silent",
		},
		Import: config.Import{
			BaseDir:    dir,
			ArchiveDir: config.DefaultArchiveDir,
			ItemTag:    config.DefaultItemTag,
		},
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "localidades.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runImport(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	cmd := NewImportCommand(cfg)
	out := &bytes.Buffer{}
	cmd.out = out
	require.NoError(t, cmd.ParseFlags(args))
	err := cmd.Run()
	return out.String(), err
}

func TestImportCommand_ParseFlags(t *testing.T) {
	cmd := NewImportCommand(testConfig(t))
	err := cmd.ParseFlags([]string{
		"-target", "localities", "-file", "x.xml",
		"-map", "name=denominacion", "-map", "province_id=prov",
		"-transform", "postal_code=trim-zeros",
		"-pk-from", "cod", "-item-tag", "row", "-dry-run",
	})
	require.NoError(t, err)
	assert.Equal(t, "denominacion", cmd.FieldMap["name"])
	assert.Equal(t, "prov", cmd.FieldMap["province_id"])
	assert.Equal(t, "trim-zeros", cmd.Transforms["postal_code"])
	assert.Equal(t, "cod", cmd.PKFrom)
	assert.Equal(t, "row", cmd.ItemTag)
	assert.True(t, cmd.DryRun)

	opts, err := cmd.options()
	require.NoError(t, err)
	assert.Contains(t, opts.Transforms, "postal_code")
}

func TestImportCommand_ParseFlagsErrors(t *testing.T) {
	tests := map[string][]string{
		"missing target":    {"-file", "x.xml"},
		"missing file":      {"-target", "localities"},
		"bad map":           {"-target", "localities", "-file", "x.xml", "-map", "name"},
		"unknown transform": {"-target", "localities", "-file", "x.xml", "-transform", "name=reverse"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := NewImportCommand(testConfig(t))
			assert.Error(t, cmd.ParseFlags(args))
		})
	}
}

func TestImportCommand_Run(t *testing.T) {
	cfg := testConfig(t)
	path := writeFile(t, localitiesXML)

	out, err := runImport(t, cfg, "-target", "localities", "-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Importing Locality from: "+path)
	assert.Contains(t, out, "Duplicate id 2")
	assert.Contains(t, out, "Records inserted: 2")
	assert.Contains(t, out, "Duplicate records: 1")
	assert.Contains(t, out, "Records with errors: 1")

	out, err = runImport(t, cfg, "-target", "localities", "-file", path, "-verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "Records inserted: 0")
	assert.Contains(t, out, "Duplicate records: 3")
	assert.Contains(t, out, "=== Rejected Records ===")
	assert.Contains(t, out, "#4 id=-")
}

func TestImportCommand_DryRun(t *testing.T) {
	cfg := testConfig(t)
	path := writeFile(t, localitiesXML)

	out, err := runImport(t, cfg, "-target", "localities", "-file", path, "-dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "DRY RUN MODE")
	assert.Contains(t, out, "Records inserted: 2")

	out, err = runImport(t, cfg, "-target", "localities", "-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Records inserted: 2", "dry run wrote nothing")
}

func TestImportCommand_Overrides(t *testing.T) {
	cfg := testConfig(t)
	path := writeFile(t, `<root><fila><cod>9</cod><denominacion>usHUAIA</denominacion></fila></root>`)

	out, err := runImport(t, cfg,
		"-target", "localities", "-file", path,
		"-item-tag", "fila", "-pk-from", "cod",
		"-map", "name=denominacion", "-transform", "name=title")
	require.NoError(t, err)
	assert.Contains(t, out, "Records inserted: 1")
}

func TestImportCommand_RunFailures(t *testing.T) {
	cfg := testConfig(t)

	_, err := runImport(t, cfg, "-target", "localities", "-file", filepath.Join(t.TempDir(), "none.xml"))
	assert.ErrorIs(t, err, importer.ErrFileNotFound)

	_, err = runImport(t, cfg, "-target", "localities", "-file", writeFile(t, "<localidades>"))
	assert.ErrorIs(t, err, importer.ErrParse)

	_, err = runImport(t, cfg, "-target", "countries", "-file", "x.xml")
	assert.Error(t, err)
}

func TestImportCommand_MappingsFile(t *testing.T) {
	cfg := testConfig(t)
	mappings := filepath.Join(t.TempDir(), "mappings.yaml")
	require.NoError(t, os.WriteFile(mappings, []byte(`targets:
  provinces:
    item_tag: provincia
    field_map:
      name: denominacion
`), 0o644))
	path := writeFile(t, `<root><provincia><codigo>10</codigo><denominacion>Catamarca</denominacion></provincia></root>`)

	out, err := runImport(t, cfg, "-target", "provinces", "-file", path, "-mappings", mappings)
	require.NoError(t, err)
	assert.Contains(t, out, "Records inserted: 1")
}

func TestTargetsCommand(t *testing.T) {
	cmd := NewTargetsCommand(testConfig(t))
	out := &bytes.Buffer{}
	cmd.out = out
	require.NoError(t, cmd.ParseFlags(nil))
	require.NoError(t, cmd.Run())

	text := out.String()
	assert.Contains(t, text, "localities (table localities, records <_exportar>)")
	assert.Contains(t, text, "provinces (table provinces, records <_exportar>)")
	assert.Contains(t, text, "id (pk)")
	assert.Contains(t, text, "<codigo>")
	assert.Contains(t, text, "<latitud>")
	assert.Contains(t, text, "decimal-comma")
}

func TestPairsFlag(t *testing.T) {
	p := pairsFlag{}
	require.NoError(t, p.Set("b=2"))
	require.NoError(t, p.Set(" a = 1 "))
	assert.Equal(t, "a=1,b=2", p.String())

	assert.Error(t, p.Set("novalue="))
	assert.Error(t, p.Set("=x"))
	assert.Error(t, p.Set("plain"))
}
