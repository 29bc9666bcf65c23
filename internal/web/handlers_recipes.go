package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/ledgerprep/internal/core"
	"github.com/JonMunkholm/ledgerprep/internal/ingest"
)

// handleExportRecipe downloads the session pipeline as JSON or YAML
// (?format=yaml).
func (s *Server) handleExportRecipe(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	format, err := core.ParseRecipeFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rec := sess.ExportRecipe()
	body, err := rec.Encode(format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	contentType := "application/json"
	if format == core.FormatYAML {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s_recipe.%s"`, safeFilename(nameOr(rec.Name, "pipeline")), format))
	_, _ = w.Write(body)
}

// handleImportRecipe installs a recipe posted as the raw body. The format
// comes from ?format, then Content-Type, then the content itself.
func (s *Server) handleImportRecipe(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.respondError(w, r, fmt.Errorf("recipe: %w", ingest.ErrFileTooLarge))
			return
		}
		respondBadRequest(w, r, "failed to read recipe")
		return
	}

	var rec core.Recipe
	hint := r.URL.Query().Get("format")
	if hint == "" {
		hint = r.Header.Get("Content-Type")
	}
	if format, ferr := core.ParseRecipeFormat(hint); hint != "" && ferr == nil {
		rec, err = core.DecodeRecipe(data, format)
	} else {
		rec, err = core.DetectRecipe(data)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.service.ImportRecipe(r.Context(), chiID(r), rec)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondPipeline(w, r, sess, res)
}

// handleSaveRecipe stores the session pipeline under a name.
func (s *Server) handleSaveRecipe(w http.ResponseWriter, r *http.Request) {
	var req saveRecipeRequest
	if !s.decode(w, r, &req) {
		return
	}
	rec, err := s.service.SaveSessionRecipe(r.Context(), chiID(r), req.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rec)
}

// handleApplyRecipe imports a stored recipe into the session.
func (s *Server) handleApplyRecipe(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	res, err := s.service.ApplyStoredRecipe(r.Context(), chiID(r), chi.URLParam(r, "recipeID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondPipeline(w, r, sess, res)
}

// handleApplyProfile imports the preset pipeline of a profile.
func (s *Server) handleApplyProfile(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	res, err := s.service.ApplyProfilePreset(r.Context(), chiID(r), chi.URLParam(r, "key"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondPipeline(w, r, sess, res)
}

// ----------------------------------------------------------------------------
// Stored recipes
// ----------------------------------------------------------------------------

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.service.Recipes().ListRecipes(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if recipes == nil {
		recipes = []core.Recipe{}
	}
	render.JSON(w, r, recipes)
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Recipes().GetRecipe(r.Context(), chi.URLParam(r, "recipeID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, rec)
}

func (s *Server) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Recipes().DeleteRecipe(r.Context(), chi.URLParam(r, "recipeID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ----------------------------------------------------------------------------
// Profiles
// ----------------------------------------------------------------------------

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	if group := r.URL.Query().Get("group"); group != "" {
		render.JSON(w, r, nonNil(core.ByGroup(group)))
		return
	}
	render.JSON(w, r, nonNil(core.All()))
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	p, ok := core.Get(key)
	if !ok {
		s.respondError(w, r, fmt.Errorf("profile %q: %w", key, core.ErrProfileNotFound))
		return
	}
	render.JSON(w, r, p)
}

func nonNil(ps []core.Profile) []core.Profile {
	if ps == nil {
		return []core.Profile{}
	}
	return ps
}
