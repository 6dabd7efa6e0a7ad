package form

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// StreamOptions configures Request.FileStream.
type StreamOptions struct {
	// Optional allows a body without any file; an empty stream is returned.
	Optional bool
}

// FileStream is a live file part handed to the caller. Fields holds the
// form fields that preceded the file.
type FileStream struct {
	FieldName string
	Filename  string
	Encoding  string
	MimeType  string
	Fields    FieldMap

	part   *StreamPart
	logger *slog.Logger

	mu       sync.Mutex
	onError  func(error)
	limitErr error
}

// FileStream returns the first file part of the body. Fields before it are
// collected into FileStream.Fields. A body without a file fails with
// ErrNoFile unless opts.Optional is set.
func (r *Request) FileStream(ctx context.Context, opts StreamOptions) (*FileStream, error) {
	parse := r.cfg.Options
	parse.AutoFields = true

	obs := r.cfg.observer()
	src, err := r.open(parse)
	if err != nil {
		obs.Failed(ctx, err)
		return nil, err
	}

	part, err := src.Next(ctx)
	if err != nil && !errors.Is(err, io.EOF) {
		obs.Failed(ctx, err)
		return nil, err
	}

	sp, _ := part.(*StreamPart)
	if sp == nil || sp.Filename == "" {
		if !opts.Optional {
			err := ErrNoFile
			obs.Failed(ctx, err)
			return nil, err
		}
		if sp != nil {
			obs.PartRead(ctx, ClassEmptyFile)
		}
		return &FileStream{Fields: src.Fields().Clone(), logger: r.cfg.logger()}, nil
	}

	if err := checkFile(parse, sp); err != nil {
		obs.Failed(ctx, err)
		return nil, err
	}
	obs.PartRead(ctx, ClassFile)

	fs := &FileStream{
		FieldName: sp.FieldName,
		Filename:  sp.Filename,
		Encoding:  sp.Encoding,
		MimeType:  sp.MimeType,
		Fields:    src.Fields(),
		part:      sp,
		logger:    r.cfg.logger(),
	}
	sp.OnLimit(func() {
		err := fs.limitError()
		obs.Failed(ctx, err)
		fs.deliver(err)
	})
	return fs, nil
}

// OnError registers fn to receive the size limit error. Without a
// registered observer the error is logged at error level instead.
func (s *FileStream) OnError(fn func(error)) {
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

// Read reads file bytes. After the file size limit is crossed the rest of
// the part is drained and Read returns the limit error.
func (s *FileStream) Read(p []byte) (int, error) {
	if s.part == nil {
		return 0, io.EOF
	}
	n, err := s.part.Read(p)
	if s.part.Truncated() {
		s.mu.Lock()
		lerr := s.limitErr
		s.mu.Unlock()
		return n, lerr
	}
	return n, err
}

// Empty reports whether the stream is the placeholder returned for an
// optional file that was not sent.
func (s *FileStream) Empty() bool {
	return s.part == nil
}

// Truncated reports whether the file crossed the size limit.
func (s *FileStream) Truncated() bool {
	return s.part != nil && s.part.Truncated()
}

// Size returns the number of file bytes read so far. Once Read has
// returned io.EOF it is the size of the file.
func (s *FileStream) Size() int64 {
	if s.part == nil {
		return 0
	}
	return s.part.BytesRead()
}

// Close discards any unread bytes of the file.
func (s *FileStream) Close() error {
	if s.part == nil {
		return nil
	}
	return s.part.Discard()
}

func (s *FileStream) limitError() error {
	e := ErrFileSizeLimit.with(s.FieldName, s.Filename)
	e.Fields = s.Fields.Clone()

	s.mu.Lock()
	s.limitErr = e
	s.mu.Unlock()
	return e
}

// deliver hands err to the registered observer, or logs it and installs a
// no-op observer when nobody listens. The part drains itself afterwards.
func (s *FileStream) deliver(err error) {
	s.mu.Lock()
	fn := s.onError
	if fn == nil {
		s.onError = func(error) {}
	}
	s.mu.Unlock()

	if fn != nil {
		s.logger.Warn("uploaded file exceeds size limit",
			"field", s.FieldName,
			"filename", s.Filename,
			"error", err,
		)
		fn(err)
		return
	}
	s.logger.Error("uploaded file exceeds size limit, no error observer registered",
		"field", s.FieldName,
		"filename", s.Filename,
		"error", err,
	)
}
