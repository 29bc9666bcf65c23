package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/ledgerprep/internal/core"
)

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	c, err := sess.Classify()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, c)
}

func (s *Server) handleSuggestScan(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	cfg, err := sess.SuggestScanConfig()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, cfg)
}

func (s *Server) handleSuggestReconcile(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	cols, err := sess.SuggestReconcileColumns()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, cols)
}

// scanConfig reads a scan configuration from the body, or suggests one
// from the classifier when the body is empty. Checks the body leaves out
// stay enabled, and omitted thresholds fall back to the session defaults.
func (s *Server) scanConfig(w http.ResponseWriter, r *http.Request, sess *core.Session) (core.ScanConfig, bool) {
	if r.ContentLength == 0 {
		cfg, err := sess.SuggestScanConfig()
		if err != nil {
			s.respondError(w, r, err)
			return core.ScanConfig{}, false
		}
		return cfg, true
	}
	cfg := core.DefaultScanConfig()
	cfg.ZThreshold, cfg.MostlyEmptyRatio = 0, 0
	if !s.decode(w, r, &cfg) {
		return core.ScanConfig{}, false
	}
	return cfg, true
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	cfg, ok := s.scanConfig(w, r, sess)
	if !ok {
		return
	}
	res, err := s.service.Scan(r.Context(), chiID(r), cfg)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, res)
}

// handleScanExport downloads the flagged rows with their issue summaries.
func (s *Server) handleScanExport(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	cfg, ok := s.scanConfig(w, r, sess)
	if !ok {
		return
	}
	res, err := s.service.Scan(r.Context(), chiID(r), cfg)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeTable(w, r, res.Export, nameOr(sess.Info().Name, "scan")+"_issues")
}

// handleReadiness checks the current columns against a profile
// (?profile=gl_detail) or an explicit list (?required=a,b).
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if key := r.URL.Query().Get("profile"); key != "" {
		rd, err := s.service.ProfileReadiness(chiID(r), key)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		render.JSON(w, r, rd)
		return
	}

	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var required []string
	for _, c := range strings.Split(r.URL.Query().Get("required"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			required = append(required, c)
		}
	}
	if len(required) == 0 {
		respondBadRequest(w, r, "profile or required is required")
		return
	}
	rd, err := sess.Readiness(required)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, rd)
}

// ----------------------------------------------------------------------------
// Reconciliation
// ----------------------------------------------------------------------------

func (s *Server) reconcile(w http.ResponseWriter, r *http.Request) (core.ReconcileResult, bool) {
	var req reconcileRequest
	if !s.decode(w, r, &req) {
		return core.ReconcileResult{}, false
	}
	if req.Tolerance.IsNegative() {
		respondBadRequest(w, r, "tolerance must be non-negative")
		return core.ReconcileResult{}, false
	}
	res, err := s.service.Reconcile(r.Context(), req.GLSession, req.TBSession, req.options())
	if err != nil {
		s.respondError(w, r, err)
		return core.ReconcileResult{}, false
	}
	return res, true
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	res, ok := s.reconcile(w, r)
	if !ok {
		return
	}
	if res.Diffs == nil {
		res.Diffs = []core.ReconciliationDiff{}
	}
	render.JSON(w, r, res)
}

// handleReconcileExport downloads the variance report.
func (s *Server) handleReconcileExport(w http.ResponseWriter, r *http.Request) {
	res, ok := s.reconcile(w, r)
	if !ok {
		return
	}
	s.writeTable(w, r, res.ExportTable(), "reconciliation")
}
