package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/ledgerprep/internal/core"
	"github.com/JonMunkholm/ledgerprep/internal/ingest"
)

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// handleStatus reports engine load and open sessions.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"sessions": s.service.SessionCount(),
		"jobs":     s.service.Limiter().Status(),
		"profiles": len(core.All()),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.service.ListSessions())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	sess, err := s.service.CreateSession(req.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, sess.Info())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	render.JSON(w, r, sess.Info())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteSession(chiID(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLoad replaces the session dataset with rows posted as JSON.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if !s.decode(w, r, &req) {
		return
	}
	info, err := s.service.Load(r.Context(), chiID(r), core.NewTable(req.columns(), req.Rows), req.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// handleUpload parses a multipart file (CSV, XLSX or JSON) into the session.
// Form fields: file, sheet (XLSX), raw (keep every cell as text).
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.respondError(w, r, fmt.Errorf("upload: %w", ingest.ErrFileTooLarge))
			return
		}
		respondBadRequest(w, r, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondBadRequest(w, r, "no file provided")
		return
	}
	defer file.Close()

	format, err := ingest.DetectFormat(header.Filename)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Upload.Timeout)
	defer cancel()

	t, err := ingest.Read(file, format, ingest.Options{
		MaxBytes: maxSize,
		Sheet:    r.FormValue("sheet"),
		Raw:      r.FormValue("raw") == "true",
	})
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%s: %w", header.Filename, err))
		return
	}

	info, err := s.service.Load(ctx, chiID(r), t, header.Filename)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// handleTable returns one page of the current table, optionally filtered
// by q.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	page := intQuery(r, "page", 1)
	size := intQuery(r, "size", core.DefaultPageSize)

	var (
		p   core.Page
		err error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		p, err = sess.Search(q, page, size)
	} else {
		p, err = sess.Page(page, size)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, p)
}

// handleExport downloads the current table.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	t, err := sess.Table()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeTable(w, r, t, nameOr(sess.Info().Name, "cleaned"))
}

// ----------------------------------------------------------------------------
// Edits
// ----------------------------------------------------------------------------

func (s *Server) handleEditCell(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req editCellRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := sess.EditCell(*req.Row, req.Column, req.Value); err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, sess.Info())
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	applied := sess.Undo()
	render.JSON(w, r, historyResponse{Applied: applied, Session: sess.Info()})
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	applied := sess.Redo()
	render.JSON(w, r, historyResponse{Applied: applied, Session: sess.Info()})
}

type historyResponse struct {
	Applied bool             `json:"applied"`
	Session core.SessionInfo `json:"session"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	if err := sess.ResetToOriginal(); err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, sess.Info())
}

func (s *Server) handleMoveColumn(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req moveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := sess.MoveColumn(*req.From, *req.To); err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, sess.Info())
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
