package form

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStream_ReturnsFirstFileWithFields(t *testing.T) {
	req := newTestRequest(t, t.TempDir(), ParseOptions{},
		field("title", "report"),
		partSpec{name: "upload", filename: "q3.csv", file: true, contentType: "text/csv", content: "a,b\n1,2\n"},
	)

	fs, err := req.FileStream(context.Background(), StreamOptions{})
	require.NoError(t, err)
	defer fs.Close()

	assert.False(t, fs.Empty())
	assert.Equal(t, "upload", fs.FieldName)
	assert.Equal(t, "q3.csv", fs.Filename)
	assert.Equal(t, "text/csv", fs.MimeType)
	assert.Equal(t, "7bit", fs.Encoding)
	assert.Equal(t, FieldMap{"title": "report"}, fs.Fields)

	assert.Zero(t, fs.Size())
	data, err := io.ReadAll(fs)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
	assert.Equal(t, int64(len(data)), fs.Size())
}

func TestFileStream_RequiredButMissing(t *testing.T) {
	tests := []struct {
		name  string
		parts []partSpec
	}{
		{"only fields", []partSpec{field("a", "1"), field("b", "2")}},
		{"empty file input", []partSpec{field("a", "1"), file("upload", "", "")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newTestRequest(t, t.TempDir(), ParseOptions{}, tt.parts...)

			fs, err := req.FileStream(context.Background(), StreamOptions{})
			assert.Nil(t, fs)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNoFile)
			assert.Equal(t, 400, StatusOf(err))
			assert.False(t, IsLimit(err))
		})
	}
}

func TestFileStream_OptionalAndMissing(t *testing.T) {
	req := newTestRequest(t, t.TempDir(), ParseOptions{}, field("a", "1"), field("b", "2"))

	fs, err := req.FileStream(context.Background(), StreamOptions{Optional: true})
	require.NoError(t, err)

	assert.True(t, fs.Empty())
	assert.Zero(t, fs.Size())
	assert.Equal(t, FieldMap{"a": "1", "b": "2"}, fs.Fields)
	data, err := io.ReadAll(fs)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.NoError(t, fs.Close())
}

func TestFileStream_LimitWithObserver(t *testing.T) {
	logger, buf := bufferLogger()
	body, ct := buildBody(t, field("owner", "ada"), file("upload", "big.bin", repeat(100)))
	req := NewRequest(body, ct, Config{
		TmpDir:  t.TempDir(),
		Options: ParseOptions{Limits: Limits{FileSize: 10}},
		Logger:  logger,
	})

	fs, err := req.FileStream(context.Background(), StreamOptions{})
	require.NoError(t, err)

	var observed []error
	fs.OnError(func(err error) { observed = append(observed, err) })

	data, err := io.ReadAll(fs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileSizeLimit)
	assert.Len(t, data, 10)
	assert.Equal(t, int64(10), fs.Size())
	assert.True(t, fs.Truncated())

	require.Len(t, observed, 1)
	var fe *Error
	require.True(t, errors.As(observed[0], &fe))
	assert.Equal(t, "big.bin", fe.Filename)
	assert.Equal(t, FieldMap{"owner": "ada"}, fe.Fields)
	assert.Equal(t, 413, fe.Status)

	assert.Contains(t, buf.String(), "level=WARN")
	assert.NotContains(t, buf.String(), "level=ERROR")
}

func TestFileStream_LimitWithoutObserver(t *testing.T) {
	logger, buf := bufferLogger()
	body, ct := buildBody(t, file("upload", "big.bin", repeat(100)), field("after", "x"))
	req := NewRequest(body, ct, Config{
		TmpDir:  t.TempDir(),
		Options: ParseOptions{Limits: Limits{FileSize: 10}},
		Logger:  logger,
	})

	fs, err := req.FileStream(context.Background(), StreamOptions{})
	require.NoError(t, err)

	buf1 := make([]byte, 64)
	total := 0
	for {
		n, err := fs.Read(buf1)
		total += n
		if err != nil {
			assert.ErrorIs(t, err, ErrFileSizeLimit)
			break
		}
	}
	assert.Equal(t, 10, total)
	assert.Contains(t, buf.String(), "level=ERROR")

	// Registering an observer after delivery must not replay the error.
	called := false
	fs.OnError(func(error) { called = true })
	assert.False(t, called)
	assert.NoError(t, fs.Close())
}

func TestFileStream_CheckFileRejects(t *testing.T) {
	req := newTestRequest(t, t.TempDir(), ParseOptions{CheckFile: ExtensionFilter("png", "jpg")},
		file("upload", "run.sh", "#!/bin/sh"),
	)
	_, err := req.FileStream(context.Background(), StreamOptions{})
	assert.ErrorIs(t, err, ErrInvalidFilename)
	assert.Equal(t, 400, StatusOf(err))
}

func TestFileStream_LeadingFieldTooLarge(t *testing.T) {
	req := newTestRequest(t, t.TempDir(), ParseOptions{Limits: Limits{FieldSize: 4}},
		field("a", "way too long"),
		file("upload", "x.png", "x"),
	)
	_, err := req.FileStream(context.Background(), StreamOptions{Optional: true})
	assert.ErrorIs(t, err, ErrFieldSizeLimit)
}
