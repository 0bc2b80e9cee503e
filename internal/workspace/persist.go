package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// StateManager persists the durable workspace slice to disk as a single
// keyed JSON record.
type StateManager struct {
	filePath string
}

// NewStateManager creates a StateManager using the default path under the
// user's home directory.
func NewStateManager() *StateManager {
	home, _ := os.UserHomeDir()
	return &StateManager{
		filePath: filepath.Join(home, ".revden", "desktop", "workspace.json"),
	}
}

// NewStateManagerAt creates a StateManager writing to an explicit path.
func NewStateManagerAt(path string) *StateManager {
	return &StateManager{filePath: path}
}

// Load reads the persisted state from disk. A missing or corrupt file
// degrades to an empty state rather than an error, so a bad write can never
// wedge startup.
func (m *StateManager) Load() (PersistentState, error) {
	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return PersistentState{}, nil
		}
		return PersistentState{}, err
	}

	var st PersistentState
	if err := json.Unmarshal(data, &st); err != nil {
		// Corrupt file — start fresh, same recovery as the tab state store.
		return PersistentState{}, nil
	}
	if st.TabGroupMap == nil {
		st.TabGroupMap = map[string]string{}
	}
	return st, nil
}

// Save writes the persisted state to disk.
func (m *StateManager) Save(st PersistentState) error {
	dir := filepath.Dir(m.filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(m.filePath, data, 0600)
}
