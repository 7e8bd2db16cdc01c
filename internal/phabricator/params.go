package phabricator

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParamsFromJSON converts a JSON object of method arguments into the
// flattened form encoding Conduit expects, e.g.
// {"constraints":{"ids":[1,2]}} -> constraints[ids][0]=1&constraints[ids][1]=2.
func ParamsFromJSON(raw string) (url.Values, error) {
	params := url.Values{}
	if strings.TrimSpace(raw) == "" {
		return params, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("failed to parse method args: %w", err)
	}

	for key, value := range args {
		flattenParam(params, key, value)
	}
	return params, nil
}

func flattenParam(params url.Values, key string, value any) {
	switch v := value.(type) {
	case map[string]any:
		for k, nested := range v {
			flattenParam(params, fmt.Sprintf("%s[%s]", key, k), nested)
		}
	case []any:
		for i, nested := range v {
			flattenParam(params, fmt.Sprintf("%s[%d]", key, i), nested)
		}
	case bool:
		if v {
			params.Set(key, "1")
		} else {
			params.Set(key, "0")
		}
	case float64:
		params.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
	case nil:
		// Conduit treats absent and null the same
	default:
		params.Set(key, fmt.Sprint(v))
	}
}
