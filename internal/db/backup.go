package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const backupPrefix = "salonbook_"

// Backups snapshots the token database into a directory and prunes old copies.
type Backups struct {
	db        *DB
	dir       string
	retention time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

func NewBackups(db *DB, dir string, retentionDays int, logger *zerolog.Logger) *Backups {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "backup").Logger()
	}
	return &Backups{
		db:        db,
		dir:       dir,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    l,
		now:       time.Now,
	}
}

// Start runs Run on the cron schedule until ctx is done.
func (b *Backups) Start(ctx context.Context, schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { b.Run(ctx) }); err != nil {
		return fmt.Errorf("backup schedule %q: %w", schedule, err)
	}
	c.Start()
	b.logger.Info().Str("schedule", schedule).Msg("backups scheduled")
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

// Run takes one snapshot and prunes expired ones.
func (b *Backups) Run(ctx context.Context) {
	path, err := b.Snapshot(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("backup failed")
		return
	}
	b.logger.Info().Str("path", path).Msg("backup completed")
	if n := b.Prune(); n > 0 {
		b.logger.Info().Int("removed", n).Msg("old backups removed")
	}
}

// Snapshot writes a consistent copy of the database and returns its path.
func (b *Backups) Snapshot(ctx context.Context) (string, error) {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	path := filepath.Join(b.dir, backupPrefix+b.now().Format("20060102_150405")+".db")
	if _, err := b.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", path, err)
	}
	return path, nil
}

// Prune removes snapshots older than the retention. Zero retention keeps all.
func (b *Backups) Prune() int {
	if b.retention <= 0 {
		return 0
	}
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		b.logger.Warn().Err(err).Msg("read backup dir")
		return 0
	}
	cutoff := b.now().Add(-b.retention)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(b.dir, e.Name())); err != nil {
			b.logger.Warn().Err(err).Str("file", e.Name()).Msg("remove backup")
			continue
		}
		removed++
	}
	return removed
}
