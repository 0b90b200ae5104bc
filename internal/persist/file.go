package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sellerapp/shopchat/internal/models"
)

// FileSlot stores the state snapshot as a single JSON file, written
// atomically (temp file + rename) so a crash mid-save never corrupts the
// previous snapshot.
type FileSlot struct {
	path   string
	logger *slog.Logger
}

// NewFileSlot creates a file-backed slot at path. The parent directory is
// created if needed.
func NewFileSlot(path string, logger *slog.Logger) (*FileSlot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &FileSlot{path: path, logger: logger}, nil
}

// Load reads the snapshot. A missing file yields the default state. A file
// that does not parse is cleared and the default state is returned; the
// process never fails on bad content.
func (f *FileSlot) Load() (models.AppState, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultState(), nil
	}
	if err != nil {
		return DefaultState(), fmt.Errorf("read state file: %w", err)
	}

	state := DefaultState()
	if err := json.Unmarshal(data, &state); err != nil {
		f.logger.Warn("state file corrupt, clearing slot", "path", f.path, "error", err)
		if rmErr := os.Remove(f.path); rmErr != nil {
			f.logger.Warn("failed to clear corrupt state file", "path", f.path, "error", rmErr)
		}
		return DefaultState(), nil
	}
	if state.Sessions == nil {
		state.Sessions = []models.ChatSession{}
	}
	return state, nil
}

// Save writes the snapshot atomically.
func (f *FileSlot) Save(state models.AppState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Close is a no-op for the file slot.
func (f *FileSlot) Close() error { return nil }
