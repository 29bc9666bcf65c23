package web

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/ledgerprep/internal/core"
	"github.com/JonMunkholm/ledgerprep/internal/ingest"
	"github.com/JonMunkholm/ledgerprep/internal/logging"
)

// session resolves the {id} URL parameter. On failure it writes the error
// response and returns nil.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *core.Session {
	sess, err := s.service.Session(chiID(r))
	if err != nil {
		s.respondError(w, r, err)
		return nil
	}
	return sess
}

func chiID(r *http.Request) string { return chi.URLParam(r, "id") }

// respondPipeline writes a pipeline result without the full table, which
// callers page through separately.
func respondPipeline(w http.ResponseWriter, r *http.Request, sess *core.Session, res core.PipelineResult) {
	warnings := res.Warnings
	if warnings == nil {
		warnings = []core.StepWarning{}
	}
	render.JSON(w, r, pipelineResponse{
		Session:  sess.Info(),
		Pipeline: sess.Pipeline(),
		Warnings: warnings,
	})
}

type pipelineResponse struct {
	Session  core.SessionInfo   `json:"session"`
	Pipeline core.Pipeline      `json:"pipeline"`
	Warnings []core.StepWarning `json:"warnings"`
}

// writeTable streams t as a download in the format named by the "format"
// query parameter (csv by default).
func (s *Server) writeTable(w http.ResponseWriter, r *http.Request, t *core.Table, base string) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(ingest.FormatCSV)
	}
	format, err := ingest.ParseFormat(name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.%s", safeFilename(base), timestamp, format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	opts := ingest.Options{BOM: boolQuery(r, "bom"), Sheet: r.URL.Query().Get("sheet")}
	if err := ingest.Write(w, t, format, opts); err != nil {
		// Headers are already sent.
		logging.FromContext(r.Context()).Error("export failed", "file", filename, "error", err)
	}
}

// safeFilename strips the extension and anything unsafe in a header value.
func safeFilename(name string) string {
	name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if name == "" || name == "_" || name == "." {
		return "export"
	}
	return name
}
