package feeder

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// readYAML accepts the same shapes as readJSON: a sequence of mappings or a
// sequence of scalars.
func readYAML(path string) ([]Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open YAML file: %w", err)
	}

	var items []interface{}
	if err := yaml.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode YAML: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("YAML file contains empty sequence")
	}

	records := make([]Record, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case map[string]interface{}:
			if len(v) == 0 {
				return nil, fmt.Errorf("record %d is empty", i)
			}
			record := make(Record, len(v))
			for key, value := range v {
				record[key] = fmt.Sprintf("%v", value)
			}
			records = append(records, record)
		case nil:
			return nil, fmt.Errorf("record %d is empty", i)
		case []interface{}:
			return nil, fmt.Errorf("record %d: nested sequences are not supported", i)
		default:
			records = append(records, Record{DefaultField: fmt.Sprintf("%v", v)})
		}
	}
	return records, nil
}
