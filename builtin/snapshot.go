// Package builtin provides the reference snapshot parsers registered
// against vigil.Registry by suffix, plus one reference incremental parser
// (LineKeyValueParser, not registered), grounded on
// parsing/file.py's SUFFIX_PARSERS table and record_json/record_yaml/
// record_csv functions, and parsing/tail.py's default line parser.
package builtin

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arclight-dev/vigil"
)

// JSONParser parses the whole file as a single JSON object.
var JSONParser = vigil.SnapshotParserFunc(func(path string, _ map[string]any) (map[string]any, map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, nil, fmt.Errorf("builtin: parsing %s as json: %w", path, err)
	}
	return nil, payload, nil
})

// YAMLParser parses the whole file as a single YAML document.
var YAMLParser = vigil.SnapshotParserFunc(func(path string, _ map[string]any) (map[string]any, map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	payload := make(map[string]any)
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, nil, fmt.Errorf("builtin: parsing %s as yaml: %w", path, err)
	}
	return nil, payload, nil
})

// CSVParser parses the whole file as delimited content, returning the last
// data row as the payload keyed by the header row. Grounded on
// parsing/file.py's record_csv, which reads the full file and keys every
// row by its header.
var CSVParser = vigil.SnapshotParserFunc(func(path string, kwargs map[string]any) (map[string]any, map[string]any, error) {
	delimiter := ','
	if d, ok := kwargs["delimiter"].(string); ok && len(d) == 1 {
		delimiter = rune(d[0])
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delimiter
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("builtin: parsing %s as csv: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, map[string]any{}, nil
	}

	header := rows[0]
	last := rows[len(rows)-1]
	payload := make(map[string]any, len(header))
	for i, col := range header {
		if i < len(last) {
			payload[col] = last[i]
		}
	}
	return nil, payload, nil
})

// FlatKeyValueParser parses a minimal flat "key = value" file, one
// assignment per line, skipping blank lines and lines starting with "#" or
// "[" (section headers are ignored rather than nested, since no pack
// library provides a TOML parser to reach for). Reference parser for the
// .toml and .conf suffixes.
var FlatKeyValueParser = vigil.SnapshotParserFunc(func(path string, _ map[string]any) (map[string]any, map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	payload := make(map[string]any)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "[") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		payload[key] = value
	}
	return nil, payload, nil
})

func init() {
	vigil.Registry.Register(JSONParser, "json")
	vigil.Registry.Register(YAMLParser, "yaml", "yml")
	vigil.Registry.Register(CSVParser, "csv")
	vigil.Registry.Register(FlatKeyValueParser, "toml", "conf")
}
