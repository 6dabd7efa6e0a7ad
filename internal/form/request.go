package form

import (
	"context"
	"io"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
)

// Request wraps one multipart body. The body is single-pass: exactly one of
// Collect, FileStream or Parts may be called; any later call fails with
// ErrAlreadyConsumed.
type Request struct {
	body        io.Reader
	contentType string
	cfg         Config

	consumed atomic.Bool

	mu    sync.Mutex
	files []FileRecord
}

// NewRequest returns a Request reading body, whose multipart boundary is
// taken from contentType.
func NewRequest(body io.Reader, contentType string, cfg Config) *Request {
	return &Request{body: body, contentType: contentType, cfg: cfg}
}

// FromHTTP returns a Request for r. It fails with ErrMalformed when r is not
// a multipart/form-data request.
func FromHTTP(r *http.Request, cfg Config) (*Request, error) {
	ct := r.Header.Get("Content-Type")
	if !IsMultipart(ct) {
		return nil, ErrMalformed.wrap(http.ErrNotMultipart)
	}
	return NewRequest(r.Body, ct, cfg), nil
}

// Parts returns the raw part iterator with the request's default options.
// Stream parts are not checked against CheckFile; the caller routes them.
func (r *Request) Parts(ctx context.Context) (*Source, error) {
	return r.open(r.cfg.Options)
}

// Files returns the records stored by the last successful Collect.
func (r *Request) Files() []FileRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.files)
}

// Cleanup removes the given files, or the request's stored files when none
// are given. It is safe to call more than once.
func (r *Request) Cleanup(ctx context.Context, files ...FileRecord) int {
	if len(files) == 0 {
		files = r.Files()
	}
	return RemoveFiles(ctx, r.cfg.logger(), r.cfg.observer(), files)
}

func (r *Request) open(opts ParseOptions) (*Source, error) {
	if !r.consumed.CompareAndSwap(false, true) {
		return nil, ErrAlreadyConsumed
	}
	return NewSource(r.body, r.contentType, opts)
}

func (r *Request) store(files []FileRecord) {
	r.mu.Lock()
	r.files = files
	r.mu.Unlock()
}
