package web

import (
	"net/http"

	"github.com/JonMunkholm/formstage/internal/limiter"
)

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := IndexData{
		Extensions: s.cfg.Upload.Extensions(),
		Limits:     s.opts.Limits,
	}
	if err := Index(data).Render(r.Context(), w); err != nil {
		requestLogger(r).Error("render index", "error", err)
	}
}

type healthResponse struct {
	Status  string         `json:"status"`
	Uploads limiter.Status `json:"uploads"`
}

// handleHealth reports liveness and the parse slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{
		Status:  "ok",
		Uploads: s.limiter.Status(),
	})
}
