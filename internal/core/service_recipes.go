package core

import (
	"context"
	"fmt"
)

// SaveSessionRecipe stores the pipeline of session id under name.
func (s *Service) SaveSessionRecipe(ctx context.Context, id, name string) (Recipe, error) {
	sess, err := s.Session(id)
	if err != nil {
		return Recipe{}, err
	}
	r := sess.ExportRecipe()
	r.Name = name

	saved, err := s.recipes.SaveRecipe(ctx, r)
	if err != nil {
		return Recipe{}, fmt.Errorf("save recipe: %w", err)
	}
	s.logger.Info("recipe saved", "session_id", id, "recipe_id", saved.ID, "name", saved.Name, "steps", len(saved.Steps))
	return saved, nil
}

// ImportRecipe installs r on session id, clears its history and runs it.
// Warnings for unknown operations are returned with the run warnings.
func (s *Service) ImportRecipe(ctx context.Context, id string, r Recipe) (PipelineResult, error) {
	return s.pipelineJob(ctx, id, func(sess *Session) (PipelineResult, error) {
		return sess.ImportRecipe(r)
	})
}

// ApplyStoredRecipe loads a stored recipe and imports it into session id.
func (s *Service) ApplyStoredRecipe(ctx context.Context, id, recipeID string) (PipelineResult, error) {
	r, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return PipelineResult{}, err
	}
	return s.ImportRecipe(ctx, id, r)
}

// ApplyProfilePreset imports the preset recipe of a registered profile.
func (s *Service) ApplyProfilePreset(ctx context.Context, id, profileKey string) (PipelineResult, error) {
	p, ok := Get(profileKey)
	if !ok {
		return PipelineResult{}, fmt.Errorf("profile %q: %w", profileKey, ErrProfileNotFound)
	}
	return s.ImportRecipe(ctx, id, p.PresetRecipe())
}

// ProfileReadiness checks session id against the required columns of a
// registered profile.
func (s *Service) ProfileReadiness(id, profileKey string) (Readiness, error) {
	p, ok := Get(profileKey)
	if !ok {
		return Readiness{}, fmt.Errorf("profile %q: %w", profileKey, ErrProfileNotFound)
	}
	sess, err := s.Session(id)
	if err != nil {
		return Readiness{}, err
	}
	return sess.Readiness(p.RequiredColumns())
}
