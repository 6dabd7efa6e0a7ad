package form

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	annotated := ErrFileSizeLimit.with("upload", "big.bin")
	wrapped := fmt.Errorf("handler: %w", annotated)

	assert.ErrorIs(t, wrapped, ErrFileSizeLimit)
	assert.NotErrorIs(t, wrapped, ErrFieldSizeLimit)
	assert.Equal(t, http.StatusRequestEntityTooLarge, StatusOf(wrapped))
	assert.Equal(t, CodeFileSizeLimit, CodeOf(wrapped))
	assert.True(t, IsLimit(wrapped))
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"bare", ErrPartsLimit, "Reach parts limit"},
		{"field", ErrFieldSizeLimit.with("note", ""), `Reach fieldSize limit (field "note")`},
		{"file", ErrFileSizeLimit.with("upload", "a.bin"), `Reach fileSize limit (file "a.bin")`},
		{"cause", ErrMalformed.wrap(io.ErrUnexpectedEOF), "malformed multipart body: unexpected EOF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_AnnotationDoesNotMutateSentinel(t *testing.T) {
	_ = ErrFileSizeLimit.with("f", "x.bin").wrap(io.EOF)
	assert.Empty(t, ErrFileSizeLimit.Field)
	assert.Empty(t, ErrFileSizeLimit.Filename)
	assert.Nil(t, ErrFileSizeLimit.Err)
}

func TestStatusOf_UnknownError(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	assert.Empty(t, CodeOf(err))
	assert.False(t, IsLimit(err))
}

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "limit", KindLimit.String())
	assert.Equal(t, "usage", ErrNoFile.Kind.String())
	assert.Equal(t, "protocol", ErrMalformed.Kind.String())
}

func TestExtensionFilter(t *testing.T) {
	check := ExtensionFilter("PNG", ".jpg", " ", "gz")
	tests := []struct {
		filename string
		ok       bool
	}{
		{"a.png", true},
		{"a.PNG", true},
		{"b.jpg", true},
		{"c.tar.gz", true},
		{"d.exe", false},
		{"noext", false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			err := check("f", tt.filename, "7bit", "application/octet-stream")
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidFilename)
			}
		})
	}
}
