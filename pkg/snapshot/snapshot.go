package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"dprcalc/pkg/game"
)

var ErrNoSnapshot = errors.New("no snapshot found")

type Snapshot struct {
	Timestamp time.Time
	Rosters   map[int64]*game.RosterData
}

// SaveSnapshot saves every saved attacker to a JSON file (with .ss extension) in dir
func SaveSnapshot(dir string, m *game.Manager) (string, error) {
	now := time.Now()
	filename := filepath.Join(dir, fmt.Sprintf("snapshot_%s.ss", now.Format("20060102_150405")))

	snap := Snapshot{
		Timestamp: now,
		Rosters:   m.ExportData(),
	}

	file, err := os.Create(filename)
	if err != nil {
		logrus.Errorf("Failed to create snapshot file: %v", err)
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		logrus.Errorf("Failed to encode snapshot: %v", err)
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	return filename, nil
}

func isSnapshotName(name string) bool {
	return len(name) > 12 && strings.HasPrefix(name, "snapshot_") && strings.HasSuffix(name, ".ss")
}

// latestFile returns the newest snapshot in dir, or "" if there is none.
func latestFile(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latest string
	var latestTime time.Time
	for _, f := range files {
		if f.IsDir() || !isSnapshotName(f.Name()) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		// names embed the timestamp, so they break mtime ties
		if info.ModTime().After(latestTime) || (info.ModTime().Equal(latestTime) && f.Name() > filepath.Base(latest)) {
			latestTime = info.ModTime()
			latest = filepath.Join(dir, f.Name())
		}
	}
	return latest, nil
}

// LoadLatestSnapshot finds the latest snapshot file in dir and loads it.
// It returns a nil snapshot and no error when dir holds no snapshot.
func LoadLatestSnapshot(dir string) (*Snapshot, string, error) {
	filename, err := latestFile(dir)
	if err != nil || filename == "" {
		return nil, "", err
	}

	logrus.Infof("Loading snapshot from %s...", filename)
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, filename, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, filename, fmt.Errorf("decode snapshot %s: %w", filename, err)
	}

	return &snap, filename, nil
}

// DeleteLatestSnapshot deletes the most recent snapshot file in dir
func DeleteLatestSnapshot(dir string) (string, error) {
	filename, err := latestFile(dir)
	if err != nil {
		return "", err
	}
	if filename == "" {
		return "", ErrNoSnapshot
	}

	if err := os.Remove(filename); err != nil {
		return filename, err
	}
	return filename, nil
}
