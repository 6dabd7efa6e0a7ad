package config

import (
	"slices"

	"github.com/JonMunkholm/formstage/internal/form"
)

// FormLimits converts the configured limits for the form package.
func (c *LimitsConfig) FormLimits() form.Limits {
	return form.Limits{
		FieldNameSize: c.FieldNameSize.Int64(),
		FieldSize:     c.FieldSize.Int64(),
		Fields:        c.Fields,
		FileSize:      c.FileSize.Int64(),
		Files:         c.Files,
		Parts:         c.Parts,
	}
}

// Extensions returns the accepted filename extensions: the whitelist when
// one is configured, otherwise the defaults plus UPLOAD_FILE_EXTENSIONS.
func (c *UploadConfig) Extensions() []string {
	if len(c.Whitelist) > 0 {
		return slices.Clone(c.Whitelist)
	}
	return append(slices.Clone(form.DefaultExtensions), c.FileExtensions...)
}

// ParseOptions builds the default options for every upload request.
func (c *Config) ParseOptions() form.ParseOptions {
	return form.ParseOptions{
		DefCharset: c.Upload.DefCharset,
		Limits:     c.Limits.FormLimits(),
		CheckFile:  form.ExtensionFilter(c.Upload.Extensions()...),
	}
}
