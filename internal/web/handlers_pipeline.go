package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/ledgerprep/internal/core"
)

func (s *Server) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	warnings := sess.Warnings()
	if warnings == nil {
		warnings = []core.StepWarning{}
	}
	render.JSON(w, r, pipelineResponse{Session: sess.Info(), Pipeline: sess.Pipeline(), Warnings: warnings})
}

// handleSetPipeline replaces the whole pipeline and reruns it.
func (s *Server) handleSetPipeline(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var p core.Pipeline
	if !s.decode(w, r, &p) {
		return
	}
	for i, st := range p.Steps {
		if st.Op == "" {
			respondBadRequest(w, r, fmt.Sprintf("pipeline step %d has no op", i))
			return
		}
	}
	res, err := s.service.SetPipeline(r.Context(), chiID(r), p)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondPipeline(w, r, sess, res)
}

func (s *Server) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	res, err := s.service.RunPipeline(r.Context(), chiID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondPipeline(w, r, sess, res)
}

func (s *Server) handleAddStep(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req stepRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.service.AddStep(r.Context(), chiID(r), req.step())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	respondPipeline(w, r, sess, res)
}

func (s *Server) handleUpdateStep(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	i, err := indexParam(r, "index")
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}
	var req stepRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.service.UpdateStep(r.Context(), chiID(r), i, req.step())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondPipeline(w, r, sess, res)
}

func (s *Server) handleRemoveStep(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	i, err := indexParam(r, "index")
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}
	res, err := s.service.RemoveStep(r.Context(), chiID(r), i)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondPipeline(w, r, sess, res)
}

func (s *Server) handleMoveStep(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	from, err := indexParam(r, "index")
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}
	var req moveStepRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.service.MoveStep(r.Context(), chiID(r), from, *req.To)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondPipeline(w, r, sess, res)
}

func (s *Server) handleEnableStep(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	i, err := indexParam(r, "index")
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}
	var req enableStepRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.service.SetStepEnabled(r.Context(), chiID(r), i, *req.Enabled)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondPipeline(w, r, sess, res)
}
