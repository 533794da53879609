package gateway

import (
	"bytes"
	"encoding/json"
)

// unwrap accepts both `{success, data: {...}}` and bare payloads. With keys,
// the first key found in data, then at the top level, wins; otherwise data
// itself, then the whole body.
func unwrap(raw json.RawMessage, keys ...string) json.RawMessage {
	var env map[string]json.RawMessage
	if json.Unmarshal(raw, &env) != nil {
		return raw
	}

	data, hasData := env["data"]
	if hasData && isNull(data) {
		hasData = false
	}
	if hasData && len(keys) > 0 {
		var inner map[string]json.RawMessage
		if json.Unmarshal(data, &inner) == nil {
			for _, k := range keys {
				if v, ok := inner[k]; ok && !isNull(v) {
					return v
				}
			}
		}
	}
	for _, k := range keys {
		if v, ok := env[k]; ok && !isNull(v) {
			return v
		}
	}
	if hasData {
		return data
	}
	return raw
}

func isNull(v json.RawMessage) bool {
	return len(bytes.TrimSpace(v)) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
