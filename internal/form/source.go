package form

// source.go turns a multipart/form-data body into a pull sequence of parts.
//
// Source is single-pass and forward-only. Each call to Next yields a
// *FieldPart, a *StreamPart or io.EOF. Count limits (parts, files, fields)
// are terminal as soon as they are crossed; size limits on fields set the
// truncation flags and leave the decision to the caller (or, in auto-fields
// mode, to Source itself). File size is enforced by the StreamPart reader.

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

const (
	defaultEncoding = "7bit"
	defaultMimeType = "text/plain"
)

// IsMultipart reports whether contentType declares a multipart/form-data body.
func IsMultipart(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "multipart/form-data"
}

// Source yields the parts of one multipart body.
type Source struct {
	mr   *multipart.Reader
	opts ParseOptions

	parts, files, fieldCount int
	fields                   FieldMap

	current *StreamPart
	err     error
	done    bool
}

// NewSource parses the boundary from contentType and returns a Source
// reading body.
func NewSource(body io.Reader, contentType string, opts ParseOptions) (*Source, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		return nil, ErrMalformed.wrap(http.ErrNotMultipart)
	}
	boundary, ok := params["boundary"]
	if !ok || boundary == "" {
		return nil, ErrMalformed.wrap(http.ErrMissingBoundary)
	}
	return &Source{
		mr:     multipart.NewReader(body, boundary),
		opts:   opts,
		fields: FieldMap{},
	}, nil
}

// Fields returns the fields collected in auto-fields mode. The map is live:
// fields that arrive later are added as the body is consumed.
func (s *Source) Fields() FieldMap {
	return s.fields
}

// Next returns the next part, or io.EOF once the body is exhausted. An
// unread previous StreamPart is drained first. After a terminal error every
// call returns that error.
func (s *Source) Next(ctx context.Context) (Part, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.done {
		return nil, io.EOF
	}
	if s.current != nil {
		cur := s.current
		s.current = nil
		if err := cur.Discard(); err != nil {
			return nil, s.fail(ErrMalformed.with(cur.FieldName, cur.Filename).wrap(err))
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, s.fail(err)
		}

		raw, err := s.mr.NextRawPart()
		if errors.Is(err, io.EOF) {
			s.done = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, s.fail(ErrMalformed.wrap(err))
		}

		// Every part counts against Limits.Parts, including skipped ones.
		s.parts++
		if s.opts.Limits.Parts > 0 && s.parts > s.opts.Limits.Parts {
			return nil, s.fail(ErrPartsLimit)
		}

		disposition, params, err := mime.ParseMediaType(raw.Header.Get("Content-Disposition"))
		if err != nil || disposition != "form-data" {
			// Not a form-data part; skip it.
			if _, err := io.Copy(io.Discard, raw); err != nil {
				return nil, s.fail(ErrMalformed.wrap(err))
			}
			continue
		}

		name := params["name"]
		if _, isFile := params["filename"]; isFile {
			return s.nextFile(raw, name)
		}

		field, err := s.readField(raw, name)
		if err != nil {
			return nil, s.fail(err)
		}
		if !s.opts.AutoFields {
			return field, nil
		}
		if err := fieldLimitError(field); err != nil {
			return nil, s.fail(err)
		}
		s.fields.Set(field.Name, field.Value)
	}
}

func (s *Source) nextFile(raw *multipart.Part, name string) (Part, error) {
	s.files++
	if s.opts.Limits.Files > 0 && s.files > s.opts.Limits.Files {
		return nil, s.fail(ErrFilesLimit)
	}

	encoding := raw.Header.Get("Content-Transfer-Encoding")
	if encoding == "" {
		encoding = defaultEncoding
	}
	mimeType := raw.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	sp := &StreamPart{
		FieldName: name,
		Filename:  raw.FileName(),
		Encoding:  encoding,
		MimeType:  mimeType,
		r:         newLimitReader(raw, s.opts.Limits.FileSize),
	}
	s.current = sp
	return sp, nil
}

func (s *Source) readField(raw *multipart.Part, name string) (*FieldPart, error) {
	s.fieldCount++
	if s.opts.Limits.Fields > 0 && s.fieldCount > s.opts.Limits.Fields {
		return nil, ErrFieldsLimit
	}

	field := &FieldPart{Name: name}
	if limit := s.opts.Limits.FieldNameSize; limit > 0 && int64(len(name)) > limit {
		field.Name = name[:limit]
		field.NameTruncated = true
	}

	var (
		data []byte
		err  error
	)
	if limit := s.opts.Limits.FieldSize; limit > 0 {
		data, err = io.ReadAll(io.LimitReader(raw, limit+1))
		if err == nil && int64(len(data)) > limit {
			data = data[:limit]
			field.ValueTruncated = true
			_, err = io.Copy(io.Discard, raw)
		}
	} else {
		data, err = io.ReadAll(raw)
	}
	if err != nil {
		return nil, ErrMalformed.with(name, "").wrap(err)
	}

	charset := s.opts.DefCharset
	if _, ctParams, err := mime.ParseMediaType(raw.Header.Get("Content-Type")); err == nil && ctParams["charset"] != "" {
		charset = ctParams["charset"]
	}
	field.Value = decodeCharset(data, charset)
	return field, nil
}

func (s *Source) fail(err error) error {
	s.err = err
	return err
}

// decodeCharset converts data from charset to UTF-8. Unknown charsets leave
// the bytes unchanged.
func decodeCharset(data []byte, charset string) string {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return string(data)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(data)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

// fieldLimitError converts truncation flags into the matching limit error.
// The name is checked first.
func fieldLimitError(f *FieldPart) error {
	switch {
	case f.NameTruncated:
		return ErrFieldNameSizeLimit.with(f.Name, "")
	case f.ValueTruncated:
		return ErrFieldSizeLimit.with(f.Name, "")
	}
	return nil
}
