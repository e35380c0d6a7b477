package feeder

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadIdentifiersCSV(t *testing.T) {
	path := writeFile(t, "packs.csv", `id,recipient
p-1,Alice
p-2,Bob
 ,Nobody
p-3,Charlie`)

	ids, err := LoadIdentifiers(path, "", "")
	if err != nil {
		t.Fatalf("LoadIdentifiers() error = %v", err)
	}
	if want := []string{"p-1", "p-2", "p-3"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
}

func TestLoadIdentifiersJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
		want    []string
	}{
		{"objects", `[{"id":"a","status":"CREATED"},{"id":"b"}]`, "", []string{"a", "b"}},
		{"custom field", `[{"pack_id":"x"},{"pack_id":"y"}]`, "pack_id", []string{"x", "y"}},
		{"strings", `["s1","s2"]`, "", []string{"s1", "s2"}},
		{"numeric ids", `[{"id":7}]`, "", []string{"7"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "packs.json", tt.content)
			ids, err := LoadIdentifiers(path, TypeJSON, tt.field)
			if err != nil {
				t.Fatalf("LoadIdentifiers() error = %v", err)
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Fatalf("ids = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestLoadIdentifiersYAML(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		field   string
		want    []string
	}{
		{"mappings", "packs.yaml", "- id: a\n  status: CREATED\n- id: b\n", "", []string{"a", "b"}},
		{"scalars", "packs.yml", "- s1\n- s2\n", "", []string{"s1", "s2"}},
		{"custom field", "packs.yaml", "- pack_id: x\n", "pack_id", []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			ids, err := LoadIdentifiers(path, "", tt.field)
			if err != nil {
				t.Fatalf("LoadIdentifiers() error = %v", err)
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Fatalf("ids = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestLoadIdentifiersErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		typ     string
		field   string
		wantErr string
	}{
		{"missing field", "a.csv", "name\nalice", "", "id", `no field "id"`},
		{"header only", "b.csv", "id", "", "", "at least one header row"},
		{"ragged row", "c.csv", "id,name\n1", "", "", "row 2 has 1 fields"},
		{"empty array", "d.json", "[]", "", "", "empty array"},
		{"not an array", "e.json", `{"id":"x"}`, "", "", "decode JSON"},
		{"blank ids", "f.csv", "id\n \n\"\"", "", "", "no identifiers"},
		{"unknown type", "g.txt", "x", "", "", "unsupported seed file type"},
		{"empty sequence", "h.yaml", "[]", "", "", "empty sequence"},
		{"nested sequence", "i.yaml", "- [a, b]", "", "", "nested sequences"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			_, err := LoadIdentifiers(path, tt.typ, tt.field)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if _, err := LoadIdentifiers(filepath.Join(t.TempDir(), "missing.csv"), "", ""); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRecordsTypeOverride(t *testing.T) {
	path := writeFile(t, "packs.data", "id\nz")
	records, err := LoadRecords(path, "CSV")
	if err != nil {
		t.Fatalf("LoadRecords() error = %v", err)
	}
	if len(records) != 1 || records[0]["id"] != "z" {
		t.Fatalf("records = %v", records)
	}
}
