package form

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FileRecord describes a file part copied to disk. The caller owns the file
// at Path once the record is returned.
type FileRecord struct {
	Field    string `json:"field"`
	Filename string `json:"filename"`
	Encoding string `json:"encoding"`
	MimeType string `json:"mime_type"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

// Materializer copies file parts into {base}/{YYYY}/{MM}/{DD}/{HH}/. The
// dated directory is resolved and created on first use and reused for
// every later file, so one Materializer serves exactly one request.
type Materializer struct {
	base    string
	now     func() time.Time
	newName func() string

	dir string
}

// NewMaterializer returns a Materializer rooted at base.
func NewMaterializer(base string) *Materializer {
	return &Materializer{
		base:    base,
		now:     time.Now,
		newName: uuid.NewString,
	}
}

// Materialize writes sp to a new file. When sp exceeds the file size limit
// the returned record still names the partial file and the error is
// ErrFileSizeLimit; removing that file is the caller's job.
func (m *Materializer) Materialize(ctx context.Context, sp *StreamPart) (FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, err
	}

	dir, err := m.ensureDir()
	if err != nil {
		return FileRecord{}, ErrIO.with(sp.FieldName, sp.Filename).wrap(err)
	}

	rec := FileRecord{
		Field:    sp.FieldName,
		Filename: sp.Filename,
		Encoding: sp.Encoding,
		MimeType: sp.MimeType,
		Path:     filepath.Join(dir, m.newName()+filepath.Ext(sp.Filename)),
	}

	f, err := os.OpenFile(rec.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return FileRecord{}, ErrIO.with(sp.FieldName, sp.Filename).wrap(err)
	}

	n, truncated, copyErr := copyPart(f, sp)
	closeErr := f.Close()
	rec.Size = n

	switch {
	case copyErr != nil:
		return rec, copyErr
	case closeErr != nil:
		return rec, ErrIO.with(sp.FieldName, sp.Filename).wrap(closeErr)
	case truncated:
		return rec, ErrFileSizeLimit.with(sp.FieldName, sp.Filename)
	}
	return rec, nil
}

// Dir returns the dated directory, or "" before the first file is written.
func (m *Materializer) Dir() string {
	return m.dir
}

func (m *Materializer) ensureDir() (string, error) {
	if m.dir != "" {
		return m.dir, nil
	}
	t := m.now()
	dir := filepath.Join(m.base, t.Format("2006"), t.Format("01"), t.Format("02"), t.Format("15"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	m.dir = dir
	return dir, nil
}

// copyPart streams sp into dst and reports how many bytes were written and
// whether the part was cut at the file size limit. Read failures come back
// as ErrMalformed, write failures as ErrIO.
func copyPart(dst io.Writer, sp *StreamPart) (int64, bool, error) {
	n, err := io.Copy(tagWriter{dst}, sp)
	if err != nil {
		var we *writeError
		if errors.As(err, &we) {
			return n, sp.Truncated(), ErrIO.with(sp.FieldName, sp.Filename).wrap(we.err)
		}
		return n, sp.Truncated(), ErrMalformed.with(sp.FieldName, sp.Filename).wrap(err)
	}
	return n, sp.Truncated(), nil
}

// writeError marks an error as coming from the destination writer.
type writeError struct{ err error }

func (e *writeError) Error() string { return e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

type tagWriter struct{ w io.Writer }

func (t tagWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		err = &writeError{err: err}
	}
	return n, err
}
