package form

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextStreamPart(t *testing.T, limits Limits, ps partSpec) *StreamPart {
	t.Helper()
	body, ct := buildBody(t, ps)
	src, err := NewSource(body, ct, ParseOptions{Limits: limits})
	require.NoError(t, err)
	p, err := src.Next(context.Background())
	require.NoError(t, err)
	return p.(*StreamPart)
}

func TestMaterializer_DatedLayoutAndExtension(t *testing.T) {
	base := t.TempDir()
	m := NewMaterializer(base)
	m.now = func() time.Time { return time.Date(2024, time.March, 7, 9, 30, 0, 0, time.UTC) }
	m.newName = func() string { return "fixed-id" }

	rec, err := m.Materialize(context.Background(), nextStreamPart(t, Limits{}, file("photo", "holiday.PNG", "img")))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "2024", "03", "07", "09", "fixed-id.PNG"), rec.Path)
	assert.Equal(t, "photo", rec.Field)
	assert.Equal(t, "holiday.PNG", rec.Filename)
	assert.Equal(t, int64(3), rec.Size)
}

func TestMaterializer_RoundTrip(t *testing.T) {
	payload := make([]byte, 256<<10)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	m := NewMaterializer(t.TempDir())
	rec, err := m.Materialize(context.Background(), nextStreamPart(t, Limits{}, file("blob", "data.bin", string(payload))))
	require.NoError(t, err)

	got, err := os.ReadFile(rec.Path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, ".bin", filepath.Ext(rec.Path))
	assert.Equal(t, int64(len(payload)), rec.Size)
}

func TestMaterializer_DirectoryResolvedOnce(t *testing.T) {
	m := NewMaterializer(t.TempDir())
	calls := 0
	hour := 10
	m.now = func() time.Time {
		calls++
		hour++
		return time.Date(2024, 1, 1, hour, 0, 0, 0, time.UTC)
	}

	ctx := context.Background()
	a, err := m.Materialize(ctx, nextStreamPart(t, Limits{}, file("a", "a.txt", "a")))
	require.NoError(t, err)
	b, err := m.Materialize(ctx, nextStreamPart(t, Limits{}, file("b", "b.txt", "b")))
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, filepath.Dir(a.Path), filepath.Dir(b.Path))
	assert.Equal(t, filepath.Dir(a.Path), m.Dir())
	assert.NotEqual(t, a.Path, b.Path)
}

func TestMaterializer_TruncatedFile(t *testing.T) {
	m := NewMaterializer(t.TempDir())
	rec, err := m.Materialize(context.Background(),
		nextStreamPart(t, Limits{FileSize: 10}, file("big", "big.txt", repeat(50))))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileSizeLimit)
	assert.Equal(t, 413, StatusOf(err))
	require.NotEmpty(t, rec.Path, "partial file must be reported for cleanup")
	assert.Equal(t, int64(10), rec.Size)

	info, statErr := os.Stat(rec.Path)
	require.NoError(t, statErr)
	assert.Equal(t, int64(10), info.Size())
}

func TestMaterializer_DirectoryCreationFails(t *testing.T) {
	base := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(base, []byte("x"), 0o644))

	m := NewMaterializer(base)
	rec, err := m.Materialize(context.Background(), nextStreamPart(t, Limits{}, file("a", "a.txt", "a")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
	assert.Empty(t, rec.Path)
	assert.Equal(t, 500, StatusOf(err))
}

func TestMaterializer_CancelledContext(t *testing.T) {
	m := NewMaterializer(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Materialize(ctx, nextStreamPart(t, Limits{}, file("a", "a.txt", "a")))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, m.Dir())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, os.ErrPermission }

func TestCopyPart_WriteErrorIsIO(t *testing.T) {
	sp := nextStreamPart(t, Limits{}, file("a", "a.txt", strings.Repeat("z", 64)))
	_, truncated, err := copyPart(failingWriter{}, sp)
	require.Error(t, err)
	assert.False(t, truncated)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrPermission)
}
