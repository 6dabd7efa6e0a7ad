package form

import (
	"io"
	"maps"
	"sync"
)

// FieldMap holds field values by name. A later field with the same name
// overwrites an earlier one.
type FieldMap map[string]string

// Set stores value under name, replacing any previous value.
func (m FieldMap) Set(name, value string) {
	m[name] = value
}

// Clone returns an independent copy of m.
func (m FieldMap) Clone() FieldMap {
	if m == nil {
		return FieldMap{}
	}
	return maps.Clone(m)
}

// Part is one section of a multipart body: a *FieldPart or a *StreamPart.
type Part interface {
	FormName() string
}

// FieldPart is a fully read form field.
type FieldPart struct {
	Name  string
	Value string

	NameTruncated  bool
	ValueTruncated bool
}

func (p *FieldPart) FormName() string { return p.Name }

// StreamPart is a part whose Content-Disposition carries a filename
// parameter. Its bytes are read on demand; it must be read to completion or
// discarded before the next part is requested. An empty Filename marks a
// file input that was submitted without a file.
type StreamPart struct {
	FieldName string
	Filename  string
	Encoding  string
	MimeType  string

	r *limitReader
}

func (p *StreamPart) FormName() string { return p.FieldName }

// Read reads file bytes. Once Limits.FileSize is reached the remaining
// bytes are discarded, Truncated reports true and Read returns io.EOF.
func (p *StreamPart) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

// Truncated reports whether the part exceeded the configured file size.
func (p *StreamPart) Truncated() bool {
	return p.r.isTruncated()
}

// BytesRead returns the number of bytes delivered to readers so far.
func (p *StreamPart) BytesRead() int64 {
	return p.r.count()
}

// OnLimit registers fn to run once when the part crosses the file size
// limit. It runs on the goroutine calling Read, before the remaining bytes
// are drained.
func (p *StreamPart) OnLimit(fn func()) {
	p.r.onLimit(fn)
}

// Discard reads and drops whatever is left of the part.
func (p *StreamPart) Discard() error {
	_, err := io.Copy(io.Discard, p.r)
	return err
}

// limitReader wraps a part body, counting delivered bytes and cutting the
// stream at limit. Exceeding the limit marks it truncated, fires the limit
// callbacks once and drains the source so the multipart reader can advance.
type limitReader struct {
	src   io.Reader
	limit int64 // <= 0 means unlimited

	mu        sync.Mutex
	n         int64
	truncated bool
	done      bool
	callbacks []func()
}

func newLimitReader(src io.Reader, limit int64) *limitReader {
	return &limitReader{src: src, limit: limit}
}

func (r *limitReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return 0, io.EOF
	}
	r.mu.Unlock()

	n, err := r.src.Read(p)

	r.mu.Lock()
	if r.limit > 0 && r.n+int64(n) > r.limit {
		keep := int(r.limit - r.n)
		r.n = r.limit
		r.truncated = true
		r.done = true
		callbacks := r.callbacks
		r.callbacks = nil
		r.mu.Unlock()

		for _, fn := range callbacks {
			fn()
		}
		if _, derr := io.Copy(io.Discard, r.src); derr != nil {
			return keep, derr
		}
		return keep, io.EOF
	}
	r.n += int64(n)
	if err != nil {
		r.done = true
	}
	r.mu.Unlock()
	return n, err
}

func (r *limitReader) onLimit(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, fn)
}

func (r *limitReader) isTruncated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.truncated
}

func (r *limitReader) count() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}
