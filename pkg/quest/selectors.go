package quest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// SelectorMap resolves dot-path keys (e.g. "joule.chatButton") to an ordered
// list of candidate CSS selectors. Candidates are tried in order so that a
// host UI change only needs a new candidate appended, not a code change.
type SelectorMap struct {
	entries map[string][]string
}

// LoadSelectorMap reads a selector map from a JSON file. The file is a
// nested object whose leaves are either a selector string or an array of
// candidate selector strings.
func LoadSelectorMap(path string) (*SelectorMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read selector file: %w", err)
	}
	return ParseSelectorMap(data)
}

// ParseSelectorMap parses a selector map from raw JSON.
func ParseSelectorMap(data []byte) (*SelectorMap, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode selector file: %w", err)
	}

	m := &SelectorMap{entries: make(map[string][]string)}
	if err := m.flatten("", raw); err != nil {
		return nil, err
	}
	return m, nil
}

// flatten walks the nested object, joining keys with dots.
func (m *SelectorMap) flatten(prefix string, node map[string]interface{}) error {
	for key, value := range node {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		switch v := value.(type) {
		case string:
			m.entries[path] = []string{v}
		case []interface{}:
			candidates := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("selector %q: candidates must be strings", path)
				}
				candidates = append(candidates, s)
			}
			if len(candidates) == 0 {
				return fmt.Errorf("selector %q: empty candidate list", path)
			}
			m.entries[path] = candidates
		case map[string]interface{}:
			if err := m.flatten(path, v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("selector %q: unsupported value type", path)
		}
	}
	return nil
}

// Resolve returns the ordered candidate selectors for the key.
func (m *SelectorMap) Resolve(key string) ([]string, error) {
	candidates, ok := m.entries[key]
	if !ok {
		return nil, fmt.Errorf("unknown selector key %q", key)
	}
	return candidates, nil
}

// Has reports whether the key exists in the map.
func (m *SelectorMap) Has(key string) bool {
	_, ok := m.entries[key]
	return ok
}

// Keys returns all known selector keys, unordered.
func (m *SelectorMap) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// Combined joins all candidates for a key into a single comma-separated
// selector, matching whichever candidate appears first in the document.
func (m *SelectorMap) Combined(key string) (string, error) {
	candidates, err := m.Resolve(key)
	if err != nil {
		return "", err
	}
	return strings.Join(candidates, ", "), nil
}
