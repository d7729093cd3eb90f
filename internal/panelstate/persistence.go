package panelstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// PersistedBuildQueues is the on-disk shape of build_queues.json:
// village id (as a string key, since JSON object keys must be strings) to
// its planned build-queue list.
type PersistedBuildQueues map[string][]BuildQueueItem

// PersistedToggles is the on-disk shape of toggle_states.json: feature
// name to enabled bool.
type PersistedToggles map[string]bool

// FileStore handles atomic load/save of the two JSON files spec.md names:
// build_queues.json and toggle_states.json. Adapted from the gamification
// stats store's temp-file-then-rename pattern.
type FileStore struct {
	dir string
}

// NewFileStore constructs a FileStore rooted at dir. The directory is
// created on first Save if it does not exist.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (f *FileStore) buildQueuesPath() string { return filepath.Join(f.dir, "build_queues.json") }
func (f *FileStore) togglesPath() string     { return filepath.Join(f.dir, "toggle_states.json") }

// LoadBuildQueues reads build_queues.json, returning an empty map if the
// file does not yet exist.
func (f *FileStore) LoadBuildQueues() (PersistedBuildQueues, error) {
	data, err := os.ReadFile(f.buildQueuesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return PersistedBuildQueues{}, nil
		}
		return nil, fmt.Errorf("reading build_queues.json: %w", err)
	}
	var out PersistedBuildQueues
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing build_queues.json: %w", err)
	}
	if out == nil {
		out = PersistedBuildQueues{}
	}
	return out, nil
}

// SaveBuildQueues writes build_queues.json atomically.
func (f *FileStore) SaveBuildQueues(queues PersistedBuildQueues) error {
	return f.writeJSON(f.buildQueuesPath(), queues)
}

// LoadToggles reads toggle_states.json, returning an empty map if the
// file does not yet exist.
func (f *FileStore) LoadToggles() (PersistedToggles, error) {
	data, err := os.ReadFile(f.togglesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return PersistedToggles{}, nil
		}
		return nil, fmt.Errorf("reading toggle_states.json: %w", err)
	}
	var out PersistedToggles
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing toggle_states.json: %w", err)
	}
	if out == nil {
		out = PersistedToggles{}
	}
	return out, nil
}

// SaveToggles writes toggle_states.json atomically.
func (f *FileStore) SaveToggles(toggles PersistedToggles) error {
	return f.writeJSON(f.togglesPath(), toggles)
}

// writeJSON marshals v and writes it to path using the
// create-temp-then-rename pattern so readers never observe a partially
// written file.
func (f *FileStore) writeJSON(path string, v any) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(f.dir, ".panelstate-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	committed = true

	return nil
}
