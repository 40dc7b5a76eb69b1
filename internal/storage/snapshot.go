package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/eventhub/backend/internal/models"
)

// snapshot is the on-disk form of a MemoryStore.
type snapshot struct {
	Users         []*models.User         `json:"users"`
	Events        []*models.Event        `json:"events"`
	Messages      []*models.Message      `json:"messages"`
	Notifications []*models.Notification `json:"notifications"`
	Reports       []*models.EventReport  `json:"reports"`
}

// snapshotFile writes snapshots atomically (temp file + rename).
type snapshotFile struct {
	mu   sync.Mutex
	path string
}

func newSnapshotFile(dataDir string) (*snapshotFile, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	return &snapshotFile{path: filepath.Join(dataDir, "eventhub.json")}, nil
}

func (f *snapshotFile) load(out *snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(out)
}

func (f *snapshotFile) save(s *snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp := f.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, f.path)
}
