package drift

import (
	"encoding/json"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Normalizer rewrites a document before comparison, typically to drop
// volatile content.
type Normalizer func([]byte) []byte

// StripJSONKeys returns a normalizer that removes provided keys from JSON
// objects at any depth.
func StripJSONKeys(keys ...string) Normalizer {
	if len(keys) == 0 {
		return func(b []byte) []byte { return b }
	}

	keySet := keySetOf(keys)
	return func(b []byte) []byte {
		if len(b) == 0 {
			return b
		}

		var payload interface{}
		if err := json.Unmarshal(b, &payload); err != nil {
			return b
		}

		stripKeys(payload, keySet)

		result, err := json.Marshal(payload)
		if err != nil {
			return b
		}
		return result
	}
}

// StripYAMLKeys is StripJSONKeys for YAML documents. The result is JSON so
// it can be compared structurally.
func StripYAMLKeys(keys ...string) Normalizer {
	keySet := keySetOf(keys)
	return func(b []byte) []byte {
		if len(b) == 0 {
			return b
		}

		var payload interface{}
		if err := yaml.Unmarshal(b, &payload); err != nil {
			return b
		}

		stripKeys(payload, keySet)

		result, err := json.Marshal(payload)
		if err != nil {
			return b
		}
		return result
	}
}

// StripLines returns a normalizer that deletes every match of pattern.
func StripLines(pattern *regexp.Regexp) Normalizer {
	return func(b []byte) []byte {
		return pattern.ReplaceAll(b, nil)
	}
}

func keySetOf(keys []string) map[string]struct{} {
	keySet := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		keySet[key] = struct{}{}
	}
	return keySet
}

func stripKeys(value interface{}, keySet map[string]struct{}) {
	switch v := value.(type) {
	case map[string]interface{}:
		for key := range keySet {
			delete(v, key)
		}
		for _, child := range v {
			stripKeys(child, keySet)
		}
	case []interface{}:
		for _, elem := range v {
			stripKeys(elem, keySet)
		}
	}
}
