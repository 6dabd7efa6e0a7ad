// Package journal keeps a Postgres ledger of staged upload files.
//
// Every file the form package writes is recorded when it is stored and
// forgotten when it is removed. Rows that outlive their TTL, either because
// uploads are retained or because the process died mid-request, are
// collected by the Sweeper.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/formstage/internal/config"
	"github.com/JonMunkholm/formstage/internal/form"
)

const schema = `
CREATE TABLE IF NOT EXISTS staged_files (
	path       TEXT PRIMARY KEY,
	field      TEXT NOT NULL,
	filename   TEXT NOT NULL,
	encoding   TEXT NOT NULL,
	mime_type  TEXT NOT NULL,
	size       BIGINT NOT NULL,
	request_id TEXT NOT NULL DEFAULT '',
	stored_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS staged_files_stored_at_idx ON staged_files (stored_at);
`

// DB is the subset of *pgxpool.Pool used by the journal.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Journal records staged files. It implements form.Observer; write
// failures are logged and never fail the upload.
type Journal struct {
	db     DB
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Journal backed by db.
func New(db DB, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{db: db, logger: logger, now: time.Now}
}

// Connect opens a connection pool sized from cfg and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the journal table when it does not exist.
func (j *Journal) Migrate(ctx context.Context) error {
	if _, err := j.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate journal: %w", err)
	}
	return nil
}

// Record stores rec, tagged with the request id carried by ctx.
func (j *Journal) Record(ctx context.Context, rec form.FileRecord) error {
	_, err := j.db.Exec(ctx, `
		INSERT INTO staged_files (path, field, filename, encoding, mime_type, size, request_id, stored_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (path) DO UPDATE SET size = EXCLUDED.size, stored_at = EXCLUDED.stored_at`,
		rec.Path, rec.Field, rec.Filename, rec.Encoding, rec.MimeType, rec.Size,
		middleware.GetReqID(ctx), j.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", rec.Path, err)
	}
	return nil
}

// Expired returns up to limit records stored before the given time, oldest
// first.
func (j *Journal) Expired(ctx context.Context, before time.Time, limit int) ([]form.FileRecord, error) {
	rows, err := j.db.Query(ctx, `
		SELECT path, field, filename, encoding, mime_type, size
		FROM staged_files
		WHERE stored_at < $1
		ORDER BY stored_at
		LIMIT $2`,
		before.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query expired files: %w", err)
	}

	recs, err := pgx.CollectRows(rows, pgx.RowToStructByName[fileRow])
	if err != nil {
		return nil, fmt.Errorf("scan expired files: %w", err)
	}

	out := make([]form.FileRecord, len(recs))
	for i, r := range recs {
		out[i] = r.record()
	}
	return out, nil
}

// Forget deletes the rows for paths and returns how many existed.
func (j *Journal) Forget(ctx context.Context, paths []string) (int64, error) {
	if len(paths) == 0 {
		return 0, nil
	}
	tag, err := j.db.Exec(ctx, `DELETE FROM staged_files WHERE path = ANY($1)`, paths)
	if err != nil {
		return 0, fmt.Errorf("forget files: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (j *Journal) PartRead(context.Context, form.Class) {}

func (j *Journal) FileStored(ctx context.Context, rec form.FileRecord) {
	if err := j.Record(ctx, rec); err != nil {
		j.logger.Error("journal write failed", "path", rec.Path, "error", err)
	}
}

func (j *Journal) FileRemoved(ctx context.Context, path string) {
	if _, err := j.Forget(ctx, []string{path}); err != nil {
		j.logger.Warn("journal delete failed", "path", path, "error", err)
	}
}

func (j *Journal) Failed(context.Context, error) {}

type fileRow struct {
	Path     string `db:"path"`
	Field    string `db:"field"`
	Filename string `db:"filename"`
	Encoding string `db:"encoding"`
	MimeType string `db:"mime_type"`
	Size     int64  `db:"size"`
}

func (r fileRow) record() form.FileRecord {
	return form.FileRecord{
		Field:    r.Field,
		Filename: r.Filename,
		Encoding: r.Encoding,
		MimeType: r.MimeType,
		Path:     r.Path,
		Size:     r.Size,
	}
}

var _ form.Observer = (*Journal)(nil)
