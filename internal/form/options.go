package form

import (
	"log/slog"
	"path/filepath"
	"strings"
)

// Limits caps what a single multipart body may contain. A zero value means
// no limit for that dimension.
type Limits struct {
	FieldNameSize int64 // bytes in a field name
	FieldSize     int64 // bytes in a field value
	Fields        int   // number of field parts
	FileSize      int64 // bytes in one file part
	Files         int   // number of file parts
	Parts         int   // number of parts of any kind
}

// DefaultLimits returns the limits used when the host does not configure any.
func DefaultLimits() Limits {
	return Limits{
		FieldNameSize: 100,
		FieldSize:     100 << 10,
		Fields:        10,
		FileSize:      10 << 20,
		Files:         10,
	}
}

// CheckFileFunc inspects a file part before any byte of it is written.
// A non-nil return aborts the request; errors that are not already an
// *Error are reported as ErrInvalidFilename.
type CheckFileFunc func(field, filename, encoding, mimeType string) error

// ParseOptions configures one parse of a multipart body.
type ParseOptions struct {
	// AutoFields makes the Source collect field parts into Source.Fields
	// instead of returning them from Next.
	AutoFields bool

	// DefCharset decodes field values whose part declares no charset.
	// Empty means utf-8.
	DefCharset string

	Limits    Limits
	CheckFile CheckFileFunc
}

// Config is the per-application configuration shared by all requests.
type Config struct {
	// TmpDir is the base directory for materialized files.
	TmpDir  string
	Options ParseOptions

	Logger   *slog.Logger
	Observer Observer
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config) observer() Observer {
	if c.Observer != nil {
		return c.Observer
	}
	return NopObserver{}
}

// DefaultExtensions is the filename whitelist applied by the server when no
// explicit whitelist is configured.
var DefaultExtensions = []string{
	// images
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".wbmp", ".webp", ".tif", ".psd",
	// text
	".svg", ".js", ".jsx", ".json", ".css", ".less", ".html", ".htm", ".xml",
	// archives
	".zip", ".gz", ".tgz", ".gzip",
	// media
	".mp3", ".mp4", ".avi",
}

// ExtensionFilter returns a CheckFileFunc accepting only filenames whose
// extension (case-insensitive) is in exts.
func ExtensionFilter(exts ...string) CheckFileFunc {
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	return func(_, filename, _, _ string) error {
		ext := strings.ToLower(filepath.Ext(filename))
		if _, ok := allowed[ext]; !ok {
			return ErrInvalidFilename.with("", filename)
		}
		return nil
	}
}
