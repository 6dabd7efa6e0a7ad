package form

import (
	"bytes"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type partSpec struct {
	name        string
	filename    string
	file        bool
	contentType string
	content     string
}

func field(name, value string) partSpec {
	return partSpec{name: name, content: value}
}

func file(name, filename, content string) partSpec {
	return partSpec{name: name, filename: filename, file: true, content: content}
}

// buildBody encodes parts as multipart/form-data and returns the body and
// its Content-Type.
func buildBody(t *testing.T, parts ...partSpec) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		if p.file {
			h.Set("Content-Disposition", `form-data; name="`+p.name+`"; filename="`+p.filename+`"`)
			ct := p.contentType
			if ct == "" {
				ct = "application/octet-stream"
			}
			h.Set("Content-Type", ct)
		} else {
			h.Set("Content-Disposition", `form-data; name="`+p.name+`"`)
			if p.contentType != "" {
				h.Set("Content-Type", p.contentType)
			}
		}
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write([]byte(p.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

// listFiles returns every regular file under dir.
func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			out = append(out, path)
		}
		return nil
	})
	require.NoError(t, err)
	return out
}

func newTestRequest(t *testing.T, tmp string, opts ParseOptions, parts ...partSpec) *Request {
	t.Helper()
	body, ct := buildBody(t, parts...)
	return NewRequest(body, ct, Config{TmpDir: tmp, Options: opts, Logger: discardLogger()})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func repeat(n int) string {
	return strings.Repeat("x", n)
}
