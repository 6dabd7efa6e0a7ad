package web

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/formstage/internal/form"
)

// IndexData feeds the upload page.
type IndexData struct {
	Extensions []string
	Limits     form.Limits
}

// Index renders the upload page. The form posts to the bulk endpoint; the
// stream endpoint is meant for programmatic clients.
func Index(d IndexData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.WriteString(`<title>Upload</title></head><body><main>`)
		b.WriteString(`<h1>Upload files</h1>`)
		b.WriteString(`<form method="post" action="/api/upload" enctype="multipart/form-data">`)
		b.WriteString(`<label>Title <input type="text" name="title"></label>`)
		b.WriteString(`<label>Files <input type="file" name="file" multiple`)
		if len(d.Extensions) > 0 {
			fmt.Fprintf(&b, ` accept="%s"`, templ.EscapeString(strings.Join(d.Extensions, ",")))
		}
		b.WriteString(`></label>`)
		b.WriteString(`<button type="submit">Upload</button></form>`)
		b.WriteString(`<ul class="limits">`)
		writeLimit(&b, "Max file size", d.Limits.FileSize, humanBytes)
		writeLimit(&b, "Max files", int64(d.Limits.Files), countString)
		writeLimit(&b, "Max fields", int64(d.Limits.Fields), countString)
		writeLimit(&b, "Max field size", d.Limits.FieldSize, humanBytes)
		b.WriteString(`</ul></main></body></html>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// UploadResult renders the HTMX fragment shown after a bulk upload.
func UploadResult(res *form.Result, retained bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="upload-result">`)
		fmt.Fprintf(&b, `<p>Received %d file(s) and %d field(s).</p>`, len(res.Files), len(res.Fields))

		if len(res.Files) > 0 {
			b.WriteString(`<table><thead><tr><th>Field</th><th>File</th><th>Type</th><th>Size</th></tr></thead><tbody>`)
			for _, f := range res.Files {
				fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
					templ.EscapeString(f.Field),
					templ.EscapeString(f.Filename),
					templ.EscapeString(f.MimeType),
					humanBytes(f.Size),
				)
			}
			b.WriteString(`</tbody></table>`)
		}

		if len(res.Fields) > 0 {
			b.WriteString(`<dl>`)
			for _, k := range slices.Sorted(maps.Keys(res.Fields)) {
				fmt.Fprintf(&b, `<dt>%s</dt><dd>%s</dd>`, templ.EscapeString(k), templ.EscapeString(res.Fields[k]))
			}
			b.WriteString(`</dl>`)
		}

		if !retained {
			b.WriteString(`<p class="note">Files are not kept after this response.</p>`)
		}
		b.WriteString(`</div>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// ErrorAlert renders an error fragment for HTMX requests.
func ErrorAlert(msg UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="alert alert-error" role="alert">`)
		fmt.Fprintf(&b, `<p class="alert-message">%s</p>`, templ.EscapeString(msg.Message))
		if msg.Action != "" {
			fmt.Fprintf(&b, `<p class="alert-action">%s</p>`, templ.EscapeString(msg.Action))
		}
		if msg.Code != "" {
			fmt.Fprintf(&b, `<p class="alert-code">Code: %s</p>`, templ.EscapeString(msg.Code))
		}
		b.WriteString(`</div>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeLimit(b *strings.Builder, label string, n int64, format func(int64) string) {
	if n <= 0 {
		fmt.Fprintf(b, `<li>%s: unlimited</li>`, label)
		return
	}
	fmt.Fprintf(b, `<li>%s: %s</li>`, label, format(n))
}

func countString(n int64) string {
	return fmt.Sprintf("%d", n)
}

// humanBytes formats n with a binary unit.
func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
