package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// RecipeStore persists named recipes.
type RecipeStore interface {
	SaveRecipe(ctx context.Context, r Recipe) (Recipe, error)
	GetRecipe(ctx context.Context, id string) (Recipe, error)
	ListRecipes(ctx context.Context) ([]Recipe, error)
	DeleteRecipe(ctx context.Context, id string) error
}

// prepareRecipe validates r for saving and assigns an ID and timestamps.
func prepareRecipe(r Recipe, now time.Time) (Recipe, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return Recipe{}, fmt.Errorf("%w: recipe name is required", ErrInvalidRecipe)
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	} else if _, err := uuid.Parse(r.ID); err != nil {
		return Recipe{}, fmt.Errorf("%w: invalid recipe ID: %v", ErrInvalidRecipe, err)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	if r.Columns == nil {
		r.Columns = []string{}
	}
	if r.Steps == nil {
		r.Steps = []Step{}
	}
	return r, nil
}

// ----------------------------------------------------------------------------
// In-memory store
// ----------------------------------------------------------------------------

// MemoryRecipeStore keeps recipes in process memory. Used when no database
// is configured and in tests.
type MemoryRecipeStore struct {
	mu      sync.RWMutex
	recipes map[string]Recipe
}

func NewMemoryRecipeStore() *MemoryRecipeStore {
	return &MemoryRecipeStore{recipes: make(map[string]Recipe)}
}

func (m *MemoryRecipeStore) SaveRecipe(_ context.Context, r Recipe) (Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.recipes[r.ID]; ok && r.ID != "" {
		r.CreatedAt = existing.CreatedAt
	}
	r, err := prepareRecipe(r, time.Now())
	if err != nil {
		return Recipe{}, err
	}
	for id, other := range m.recipes {
		if id != r.ID && strings.EqualFold(other.Name, r.Name) {
			return Recipe{}, fmt.Errorf("%w: recipe %q already exists", ErrInvalidRecipe, r.Name)
		}
	}
	m.recipes[r.ID] = cloneRecipe(r)
	return cloneRecipe(r), nil
}

func (m *MemoryRecipeStore) GetRecipe(_ context.Context, id string) (Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.recipes[id]
	if !ok {
		return Recipe{}, fmt.Errorf("%s: %w", id, ErrRecipeNotFound)
	}
	return cloneRecipe(r), nil
}

func (m *MemoryRecipeStore) ListRecipes(_ context.Context) ([]Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Recipe, 0, len(m.recipes))
	for _, r := range m.recipes {
		out = append(out, cloneRecipe(r))
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (m *MemoryRecipeStore) DeleteRecipe(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recipes[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrRecipeNotFound)
	}
	delete(m.recipes, id)
	return nil
}

func cloneRecipe(r Recipe) Recipe {
	out := r
	out.Columns = append([]string{}, r.Columns...)
	out.Steps = make([]Step, len(r.Steps))
	for i, s := range r.Steps {
		out.Steps[i] = s.Clone()
	}
	return out
}

// ----------------------------------------------------------------------------
// PostgreSQL store
// ----------------------------------------------------------------------------

// PgRecipeStore stores recipes in PostgreSQL. The column list and steps are
// kept as one JSONB document.
type PgRecipeStore struct {
	db DBTX
}

// NewPgRecipeStore returns a store using db (a *pgxpool.Pool or pgx.Tx).
func NewPgRecipeStore(db DBTX) *PgRecipeStore {
	return &PgRecipeStore{db: db}
}

const recipeSchema = `
CREATE TABLE IF NOT EXISTS recipes (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	body       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT recipes_name_unique UNIQUE (name)
)`

// EnsureSchema creates the recipes table if it does not exist.
func (p *PgRecipeStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, recipeSchema); err != nil {
		return fmt.Errorf("create recipes table: %w", err)
	}
	return nil
}

// recipeBody is the JSONB payload.
type recipeBody struct {
	Columns []string `json:"columns"`
	Steps   []Step   `json:"pipeline"`
}

func (p *PgRecipeStore) SaveRecipe(ctx context.Context, r Recipe) (Recipe, error) {
	r, err := prepareRecipe(r, time.Now())
	if err != nil {
		return Recipe{}, err
	}
	body, err := json.Marshal(recipeBody{Columns: r.Columns, Steps: r.Steps})
	if err != nil {
		return Recipe{}, fmt.Errorf("marshal recipe: %w", err)
	}
	uid, _ := uuid.Parse(r.ID)

	row := p.db.QueryRow(ctx, `
		INSERT INTO recipes (id, name, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		   SET name = EXCLUDED.name, body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at`,
		pgtype.UUID{Bytes: uid, Valid: true}, r.Name, body, r.CreatedAt, r.UpdatedAt)
	if err := row.Scan(&r.CreatedAt, &r.UpdatedAt); err != nil {
		if strings.Contains(err.Error(), "recipes_name_unique") {
			return Recipe{}, fmt.Errorf("%w: recipe %q already exists", ErrInvalidRecipe, r.Name)
		}
		return Recipe{}, fmt.Errorf("save recipe: %w", err)
	}
	return r, nil
}

func (p *PgRecipeStore) GetRecipe(ctx context.Context, id string) (Recipe, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return Recipe{}, fmt.Errorf("%s: %w", id, ErrRecipeNotFound)
	}
	row := p.db.QueryRow(ctx,
		`SELECT id, name, body, created_at, updated_at FROM recipes WHERE id = $1`,
		pgtype.UUID{Bytes: uid, Valid: true})
	r, err := scanRecipe(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Recipe{}, fmt.Errorf("%s: %w", id, ErrRecipeNotFound)
	}
	if err != nil {
		return Recipe{}, fmt.Errorf("get recipe: %w", err)
	}
	return r, nil
}

func (p *PgRecipeStore) ListRecipes(ctx context.Context) ([]Recipe, error) {
	rows, err := p.db.Query(ctx,
		`SELECT id, name, body, created_at, updated_at FROM recipes ORDER BY lower(name)`)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	out := []Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			continue // Skip unreadable recipes
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return out, nil
}

func (p *PgRecipeStore) DeleteRecipe(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%s: %w", id, ErrRecipeNotFound)
	}
	tag, err := p.db.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, pgtype.UUID{Bytes: uid, Valid: true})
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", id, ErrRecipeNotFound)
	}
	return nil
}

func scanRecipe(row pgx.Row) (Recipe, error) {
	var (
		id   pgtype.UUID
		r    Recipe
		body []byte
	)
	if err := row.Scan(&id, &r.Name, &body, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return Recipe{}, err
	}
	var b recipeBody
	if err := json.Unmarshal(body, &b); err != nil {
		return Recipe{}, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
	}
	r.ID = uuid.UUID(id.Bytes).String()
	r.Columns, r.Steps = b.Columns, b.Steps
	if r.Columns == nil {
		r.Columns = []string{}
	}
	return r, nil
}
