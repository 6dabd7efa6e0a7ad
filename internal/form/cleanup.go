package form

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
)

// RemoveFiles deletes the file behind every record and returns how many
// were removed. It never stops early: a failed removal is logged and the
// rest are still attempted. Paths that no longer exist count as removed,
// so calling it twice with the same records is harmless.
func RemoveFiles(ctx context.Context, logger *slog.Logger, obs Observer, records []FileRecord) int {
	if logger == nil {
		logger = slog.Default()
	}
	if obs == nil {
		obs = NopObserver{}
	}

	removed := 0
	for _, rec := range records {
		if rec.Path == "" {
			continue
		}
		err := os.Remove(rec.Path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("failed to remove uploaded file",
				"path", rec.Path,
				"field", rec.Field,
				"filename", rec.Filename,
				"error", err,
			)
			continue
		}
		removed++
		obs.FileRemoved(ctx, rec.Path)
	}
	return removed
}
