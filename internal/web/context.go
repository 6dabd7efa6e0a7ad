package web

import (
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/formstage/internal/form"
	"github.com/JonMunkholm/formstage/internal/logging"
)

// requestLogger returns the default logger tagged with the request id.
func requestLogger(r *http.Request) *slog.Logger {
	return logging.FromContext(r.Context())
}

// formConfig is the per-request configuration for the form package. The
// logger carries the request id and route so staged files can be traced
// back to the request that wrote them.
func (s *Server) formConfig(r *http.Request) form.Config {
	return form.Config{
		TmpDir:   s.cfg.Upload.Dir(),
		Options:  s.opts,
		Logger:   logging.ForUpload(s.logger, r),
		Observer: s.observer,
	}
}
