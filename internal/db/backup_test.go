package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbook/internal/session"
)

func TestBackups_SnapshotRestores(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, d.Tokens(5).Save(ctx, session.Tokens{Access: "a", Refresh: "r"}))

	b := NewBackups(d, filepath.Join(t.TempDir(), "backups"), 7, nil)
	b.now = func() time.Time { return time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC) }

	path, err := b.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "salonbook_20240310_080000.db", filepath.Base(path))

	restored, err := Open(path)
	require.NoError(t, err)
	defer restored.Close()
	got, err := restored.Tokens(5).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Tokens{Access: "a", Refresh: "r"}, got)
}

func TestBackups_Prune(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	write := func(name string, age time.Duration) {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		require.NoError(t, os.Chtimes(p, now.Add(-age), now.Add(-age)))
	}
	write("salonbook_old.db", 10*24*time.Hour)
	write("salonbook_new.db", time.Hour)
	write("other.db", 30*24*time.Hour)

	b := NewBackups(nil, dir, 7, nil)
	b.now = func() time.Time { return now }
	assert.Equal(t, 1, b.Prune())

	_, err := os.Stat(filepath.Join(dir, "salonbook_old.db"))
	assert.True(t, os.IsNotExist(err))
	assert.FileExists(t, filepath.Join(dir, "salonbook_new.db"))
	assert.FileExists(t, filepath.Join(dir, "other.db"))

	keepAll := NewBackups(nil, dir, 0, nil)
	assert.Equal(t, 0, keepAll.Prune())
}

func TestBackups_BadSchedule(t *testing.T) {
	b := NewBackups(openTestDB(t), t.TempDir(), 1, nil)
	assert.Error(t, b.Start(context.Background(), "not a cron"))
}
