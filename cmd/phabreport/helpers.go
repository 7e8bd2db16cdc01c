package main

import (
	"bytes"
	"encoding/json"
	"strings"
)

// parseCommaList splits a comma-separated string and trims whitespace
func parseCommaList(input string) []string {
	if input == "" {
		return []string{}
	}

	parts := strings.Split(input, ",")
	result := make([]string, len(parts))
	for i, part := range parts {
		result[i] = strings.TrimSpace(part)
	}
	return result
}

// prettyJSON re-indents a raw Conduit result for terminal display.
func prettyJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
