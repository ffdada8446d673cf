package dictionary

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// ReadSeedFile reads the static file the store is populated from on first run.
//
// JSON files hold either a list of {keyword, abbreviation, description} objects
// or a {"KEYWORD": "description"} object, where each key doubles as its own abbreviation.
// Files ending in .yml or .yaml hold a list of records.
func ReadSeedFile(path string) ([]Record, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s) > %w", path, err)
	}

	var records []Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		records, err = parseYAMLSeed(contents)
	default:
		records, err = parseJSONSeed(contents)
	}
	if err != nil {
		return nil, fmt.Errorf("parse seed file %s > %w", path, err)
	}

	for i, record := range records {
		if record.Keyword == "" {
			return nil, fmt.Errorf("seed entry %d in %s: keyword is empty", i, path)
		}
		if record.Abbreviation == "" {
			return nil, fmt.Errorf("seed entry %d (%s) in %s: abbreviation is empty", i, record.Keyword, path)
		}
	}
	return records, nil
}

func parseJSONSeed(contents []byte) ([]Record, error) {
	if !gjson.ValidBytes(contents) {
		return nil, fmt.Errorf("invalid JSON")
	}

	root := gjson.ParseBytes(contents)
	var records []Record
	switch {
	case root.IsArray():
		for _, item := range root.Array() {
			if !item.IsObject() {
				return nil, fmt.Errorf("entry %d is not an object: %s", len(records), item.Raw)
			}
			records = append(records, Record{
				Keyword:      strings.TrimSpace(item.Get("keyword").String()),
				Abbreviation: strings.TrimSpace(item.Get("abbreviation").String()),
				Description:  strings.TrimSpace(item.Get("description").String()),
			})
		}
	case root.IsObject():
		root.ForEach(func(key, value gjson.Result) bool {
			keyword := strings.TrimSpace(key.String())
			records = append(records, Record{
				Keyword:      keyword,
				Abbreviation: keyword,
				Description:  strings.TrimSpace(value.String()),
			})
			return true
		})
	default:
		return nil, fmt.Errorf("expected a JSON array or object, got %s", root.Type)
	}
	return records, nil
}

func parseYAMLSeed(contents []byte) ([]Record, error) {
	var records []Record
	if err := yaml.Unmarshal(contents, &records); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal > %w", err)
	}
	for i := range records {
		records[i].Keyword = strings.TrimSpace(records[i].Keyword)
		records[i].Abbreviation = strings.TrimSpace(records[i].Abbreviation)
		records[i].Description = strings.TrimSpace(records[i].Description)
	}
	return records, nil
}
