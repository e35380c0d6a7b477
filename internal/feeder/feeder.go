// Package feeder loads pre-existing pack identifiers from CSV, JSON or YAML files
// so the events scenario can skip creating its own catalog.
package feeder

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Record represents a single row of data with named fields.
type Record map[string]string

// Supported file types.
const (
	TypeCSV  = "csv"
	TypeJSON = "json"
	TypeYAML = "yaml"
)

// DefaultField is the column holding the pack identifier.
const DefaultField = "id"

// LoadRecords reads every record from path. An empty typ is inferred from
// the file extension.
func LoadRecords(path, typ string) ([]Record, error) {
	switch resolveType(path, typ) {
	case TypeCSV:
		return readCSV(path)
	case TypeJSON:
		return readJSON(path)
	case TypeYAML, "yml":
		return readYAML(path)
	default:
		return nil, fmt.Errorf("unsupported seed file type %q (use csv, json or yaml)", typ)
	}
}

// LoadIdentifiers returns the non-empty values of field from every record,
// in file order. Duplicates are kept.
func LoadIdentifiers(path, typ, field string) ([]string, error) {
	if strings.TrimSpace(field) == "" {
		field = DefaultField
	}
	records, err := LoadRecords(path, typ)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for i, rec := range records {
		v, ok := rec[field]
		if !ok {
			return nil, fmt.Errorf("record %d has no field %q", i+1, field)
		}
		if v = strings.TrimSpace(v); v != "" {
			ids = append(ids, v)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s: no identifiers in field %q", path, field)
	}
	return ids, nil
}

func resolveType(path, typ string) string {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ != "" {
		return typ
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
