package builtin

import (
	"strings"

	"github.com/arclight-dev/vigil"
)

// LineKeyValueParser splits a byte delta into lines and parses each
// "key=value" line into its own payload, so the tailing worker emits one
// Record per line rather than one per tick. Grounded on parsing/tail.py's
// record_with_delimiter, which treats each new line of a delimited log as
// an independent record.
var LineKeyValueParser = vigil.IncrementalParserFunc(func(delta string, _ map[string]any) (map[string]any, []map[string]any, error) {
	var payloads []map[string]any

	for _, line := range strings.Split(delta, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		payloads = append(payloads, map[string]any{
			strings.TrimSpace(key): strings.TrimSpace(value),
		})
	}

	return nil, payloads, nil
})
