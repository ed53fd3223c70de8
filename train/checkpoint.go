package train

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"specdiff/model"
)

// ============================================================================
// Snapshots
// ============================================================================

const (
	snapshotKind    = "specdiff/snapshot"
	snapshotVersion = 1
)

// Snapshot is the full state of a training run at an epoch boundary: enough
// to resume training or to sample from the checkpointed model.
type Snapshot struct {
	Kind      string         `json:"kind"`
	Version   int            `json:"version"`
	RunID     string         `json:"run_id"`
	Epoch     int            `json:"epoch"` // last completed epoch, 0-based
	Timesteps int            `json:"timesteps"`
	S         float64        `json:"s"`
	Model     *model.State   `json:"model"`
	Optimizer OptimizerState `json:"optimizer"`
	History   History        `json:"history"`
	SavedAt   time.Time      `json:"saved_at"`
}

// SaveSnapshot writes snap to path, stamping the format kind and version.
// The data goes to a temp file in the same directory first and is renamed
// into place, so an interrupted save never clobbers the previous snapshot.
func SaveSnapshot(path string, snap *Snapshot) error {
	stamped := *snap
	stamped.Kind = snapshotKind
	stamped.Version = snapshotVersion

	data, err := json.MarshalIndent(&stamped, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot from path and checks that it is a format this
// package can restore.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if snap.Kind != snapshotKind {
		return nil, fmt.Errorf("unexpected snapshot kind %q", snap.Kind)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	if snap.Model == nil {
		return nil, fmt.Errorf("snapshot has no model state")
	}
	return &snap, nil
}

// EpochSnapshotPath derives the numbered per-epoch variant of a snapshot
// path: "run/ckpt.json" becomes "run/ckpt-epoch007.json" for epoch 7.
func EpochSnapshotPath(path string, epoch int) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s-epoch%03d%s", base, epoch, ext)
}
