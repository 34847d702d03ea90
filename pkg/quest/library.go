package quest

import (
	"encoding/json"
	"fmt"
	"os"
)

// Library holds the loaded quest collection, keyed by quest ID. It is
// loaded once at startup and read-only afterwards.
type Library struct {
	quests []*Quest
	byID   map[string]*Quest
}

// LoadLibrary reads a quest collection from a JSON file. The file holds an
// object with a top-level "quests" array.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quest file: %w", err)
	}
	return ParseLibrary(data)
}

// ParseLibrary parses a quest collection from raw JSON.
func ParseLibrary(data []byte) (*Library, error) {
	var file struct {
		Quests []*Quest `json:"quests"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode quest file: %w", err)
	}

	lib := &Library{
		quests: file.Quests,
		byID:   make(map[string]*Quest, len(file.Quests)),
	}
	for _, q := range file.Quests {
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if _, exists := lib.byID[q.ID]; exists {
			return nil, fmt.Errorf("duplicate quest id %q", q.ID)
		}
		lib.byID[q.ID] = q
	}
	return lib, nil
}

// Get returns the quest with the given ID, or nil if it doesn't exist.
func (l *Library) Get(id string) *Quest {
	return l.byID[id]
}

// All returns the quests in file order.
func (l *Library) All() []*Quest {
	return l.quests
}

// ByCategory returns the quests in the given category, in file order.
func (l *Library) ByCategory(category string) []*Quest {
	var out []*Quest
	for _, q := range l.quests {
		if q.Category == category {
			out = append(out, q)
		}
	}
	return out
}

// MissingPrerequisites returns the prerequisites of the quest that are not
// in the completed set, in definition order. An unknown quest ID returns nil.
func (l *Library) MissingPrerequisites(id string, completed map[string]bool) []string {
	q := l.byID[id]
	if q == nil {
		return nil
	}
	var missing []string
	for _, pre := range q.Prerequisites {
		if !completed[pre] {
			missing = append(missing, pre)
		}
	}
	return missing
}
