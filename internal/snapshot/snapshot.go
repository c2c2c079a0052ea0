// Package snapshot is the emergency last-resort persistence: a single
// file written on teardown while edits are unsaved, or when a remote
// write exhausts its retries. Recovery adopts it before trusting the
// cache, then clears it so a clean second boot does not replay it.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
)

const fileName = "emergency-snapshot.json"

// Manager persists the snapshot file.
type Manager interface {
	Save(agg *model.Aggregate) error
	Load() (*model.Aggregate, bool)
	Clear()
}

// FileManager stores the snapshot as JSON under dataDir.
type FileManager struct {
	path   string
	logger *zap.Logger
}

func NewFileManager(dataDir string, logger *zap.Logger) (*FileManager, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileManager{
		path:   filepath.Join(dataDir, fileName),
		logger: logger,
	}, nil
}

// Save writes the aggregate synchronously. Called during teardown, so it
// must not depend on any goroutine still running.
func (m *FileManager) Save(agg *model.Aggregate) error {
	body, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	m.logger.Warn("Emergency snapshot written", zap.String("path", m.path))
	return nil
}

// Load returns the snapshot if one exists. An unreadable or corrupt file
// is treated as absent; there is nothing better to do with it.
func (m *FileManager) Load() (*model.Aggregate, bool) {
	body, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("Failed to read snapshot", zap.Error(err))
		}
		return nil, false
	}

	var agg model.Aggregate
	if err := json.Unmarshal(body, &agg); err != nil {
		m.logger.Warn("Corrupt snapshot file, ignoring", zap.Error(err))
		return nil, false
	}
	if agg.Objective == nil {
		return nil, false
	}
	return &agg, true
}

// Clear removes the snapshot file. Idempotent.
func (m *FileManager) Clear() {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("Failed to clear snapshot", zap.Error(err))
	}
}
