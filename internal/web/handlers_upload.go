package web

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/formstage/internal/form"
)

type uploadResponse struct {
	Fields   form.FieldMap     `json:"fields"`
	Files    []form.FileRecord `json:"files"`
	Retained bool              `json:"retained"`
}

// handleUpload drains the body, staging every file part on disk. Unless
// UPLOAD_RETAIN is set the staged files are removed once the response is
// written.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Upload.Timeout)
	defer cancel()

	cfg := s.formConfig(r)
	req, err := form.FromHTTP(r, cfg)
	if err != nil {
		s.observer.Failed(ctx, err)
		s.respondError(w, r, err)
		return
	}

	res, err := req.Collect(ctx)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !s.cfg.Upload.Retain {
		defer req.Cleanup(context.WithoutCancel(ctx))
	}

	cfg.Logger.Info("upload staged",
		"fields", len(res.Fields),
		"files", len(res.Files),
		"retained", s.cfg.Upload.Retain,
	)

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := UploadResult(res, s.cfg.Upload.Retain).Render(r.Context(), w); err != nil {
			cfg.Logger.Error("render upload result", "error", err)
		}
		return
	}

	files := res.Files
	if files == nil {
		files = []form.FileRecord{}
	}
	writeJSON(w, r, http.StatusOK, uploadResponse{
		Fields:   res.Fields,
		Files:    files,
		Retained: s.cfg.Upload.Retain,
	})
}

type streamResponse struct {
	Field    string        `json:"field,omitempty"`
	Filename string        `json:"filename,omitempty"`
	MimeType string        `json:"mime_type,omitempty"`
	Encoding string        `json:"encoding,omitempty"`
	Size     int64         `json:"size"`
	SHA256   string        `json:"sha256,omitempty"`
	Empty    bool          `json:"empty"`
	Fields   form.FieldMap `json:"fields"`
}

// handleUploadStream reads the first file part without touching the disk,
// hashing it as it arrives. ?optional=1 accepts a body without a file.
func (s *Server) handleUploadStream(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Upload.Timeout)
	defer cancel()

	optional, _ := strconv.ParseBool(r.URL.Query().Get("optional"))

	cfg := s.formConfig(r)
	req, err := form.FromHTTP(r, cfg)
	if err != nil {
		s.observer.Failed(ctx, err)
		s.respondError(w, r, err)
		return
	}

	stream, err := req.FileStream(ctx, form.StreamOptions{Optional: optional})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer stream.Close()

	var limitErr error
	stream.OnError(func(err error) { limitErr = err })

	h := sha256.New()
	_, err = io.Copy(h, stream)
	if limitErr != nil {
		err = limitErr
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := streamResponse{
		Field:    stream.FieldName,
		Filename: stream.Filename,
		MimeType: stream.MimeType,
		Encoding: stream.Encoding,
		Size:     stream.Size(),
		Empty:    stream.Empty(),
		Fields:   stream.Fields,
	}
	if !stream.Empty() {
		resp.SHA256 = hex.EncodeToString(h.Sum(nil))
	}

	cfg.Logger.Info("upload streamed",
		"field", resp.Field,
		"filename", resp.Filename,
		"size", resp.Size,
	)
	writeJSON(w, r, http.StatusOK, resp)
}
