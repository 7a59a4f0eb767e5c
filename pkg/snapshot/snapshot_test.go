package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dprcalc/pkg/game"
)

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	m := game.NewManager()
	m.GetRoster(1001).Add(game.Attacker{Name: "Fighter", AttackBonus: 6, Damage: "1d8+2", Attacks: 2})

	filename, err := SaveSnapshot(dir, m)
	require.NoError(t, err)
	assert.FileExists(t, filename)

	snap, loaded, err := LoadLatestSnapshot(dir)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, filename, loaded)

	restored := game.NewManager()
	restored.ImportData(snap.Rosters)
	got, err := restored.GetRoster(1001).Get("fighter")
	require.NoError(t, err)
	assert.Equal(t, "1d8+2", got.Damage)
	assert.Equal(t, 2, got.Attacks)
}

func TestLoadLatestPicksNewest(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "snapshot_20240101_000000.ss")
	newer := filepath.Join(dir, "snapshot_20250101_000000.ss")
	require.NoError(t, os.WriteFile(old, []byte(`{"Rosters":{}}`), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte(`{"Rosters":{}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	_, filename, err := LoadLatestSnapshot(dir)
	require.NoError(t, err)
	assert.Equal(t, newer, filename)
}

func TestLoadEmptyDir(t *testing.T) {
	snap, filename, err := LoadLatestSnapshot(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.Empty(t, filename)
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snapshot_20250101_000000.ss"), []byte("{"), 0o644))

	_, _, err := LoadLatestSnapshot(dir)
	require.Error(t, err)
}

func TestDeleteLatest(t *testing.T) {
	dir := t.TempDir()

	_, err := DeleteLatestSnapshot(dir)
	require.ErrorIs(t, err, ErrNoSnapshot)

	filename, err := SaveSnapshot(dir, game.NewManager())
	require.NoError(t, err)

	deleted, err := DeleteLatestSnapshot(dir)
	require.NoError(t, err)
	assert.Equal(t, filename, deleted)
	assert.NoFileExists(t, filename)
}

func TestRestoreNullRoster(t *testing.T) {
	dir := t.TempDir()
	data := `{"Timestamp":"2026-01-01T00:00:00Z","Rosters":{"1001":null,"1002":{"GroupID":1002,"Attackers":{"x":null}}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snapshot_20260101_000000.ss"), []byte(data), 0o644))

	snap, _, err := LoadLatestSnapshot(dir)
	require.NoError(t, err)
	require.NotNil(t, snap)

	m := game.NewManager()
	require.NotPanics(t, func() { m.ImportData(snap.Rosters) })
	assert.Empty(t, m.GetRoster(1002).List())
}
