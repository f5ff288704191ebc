// Package cleanup reclaims disk space by deleting artifacts whose age has
// exceeded the retention threshold.
package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/mediafetch/mediafetch/internal/logctx"
	"github.com/mediafetch/mediafetch/internal/storage"
	"github.com/mediafetch/mediafetch/internal/telemetry"
)

// Sweeper scans the storage directory and removes expired artifacts. It
// shares the directory with in-flight fetches without any locking; safety
// rests on the retention threshold (hours) being large relative to fetch
// duration (seconds to minutes).
type Sweeper struct {
	storageDir string
	retention  time.Duration
	history    storage.FetchWriteRepository
	telemetry  *telemetry.Telemetry
	removeFile func(path string) error
}

// NewSweeper wires a sweeper. history and t may be nil.
func NewSweeper(storageDir string, retention time.Duration, history storage.FetchWriteRepository, t *telemetry.Telemetry) *Sweeper {
	return &Sweeper{
		storageDir: storageDir,
		retention:  retention,
		history:    history,
		telemetry:  t,
		removeFile: os.Remove,
	}
}

// Sweep deletes every regular file in the storage directory older than the
// retention threshold and returns the number of files removed. Individual
// failures are logged and skipped; the sweep itself always completes.
func (s *Sweeper) Sweep(ctx context.Context) int {
	logger := logctx.LoggerFromContext(ctx)
	logger.Info("starting retention sweep", "dir", s.storageDir, "retention", s.retention.String())

	now := time.Now()
	deleted := 0

	entries, err := os.ReadDir(s.storageDir)
	if err != nil {
		logger.Error("failed to list storage directory", "dir", s.storageDir, "err", err)

		return 0
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		path := filepath.Join(s.storageDir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			// File vanished between listing and stat.
			logger.Warn("failed to stat file during sweep", "file", path, "err", err)

			continue
		}

		if now.Sub(info.ModTime()) <= s.retention {
			continue
		}

		if err := s.removeFile(path); err != nil {
			// Every deletion failure is logged, including a file that
			// vanished between listing and delete.
			if os.IsNotExist(err) {
				logger.Warn("expired file vanished before deletion", "file", path, "err", err)
			} else {
				logger.Error("failed to delete expired file", "file", path, "err", err)
			}

			continue
		}

		deleted++

		logger.Info("deleted expired file", "file", path)

		s.pruneHistory(ctx, path)
	}

	s.telemetry.RecordSweep(deleted)

	logger.Info("retention sweep completed", "files_deleted", deleted)

	return deleted
}

// Run triggers a sweep once daily at the given wall-clock time until ctx is
// cancelled. It never returns an error; sweep failures stay inside Sweep.
func (s *Sweeper) Run(ctx context.Context, hour, minute int) {
	logger := logctx.LoggerFromContext(ctx)

	for {
		next := nextTrigger(time.Now(), hour, minute)
		logger.Info("scheduling next retention sweep", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("retention sweeper shutting down")

			return
		case <-timer.C:
			s.Sweep(ctx)
		}
	}
}

// nextTrigger returns the next occurrence of hour:minute strictly after now.
func nextTrigger(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

// pruneHistory drops the history row for a deleted artifact, best effort.
func (s *Sweeper) pruneHistory(ctx context.Context, path string) {
	if s.history == nil {
		return
	}

	if err := s.history.DeleteByPath(path); err != nil {
		logctx.LoggerFromContext(ctx).Warn("failed to prune fetch history", "file", path, "err", err)
	}
}
