package core

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SessionOptions configures a new Session.
type SessionOptions struct {
	HistoryLimit int
	SampleSize   int
	ScanDefaults ScanConfig
	Logger       *slog.Logger
}

// Session owns one working dataset: the immutable baseline, the editable
// table, the active pipeline and the undo/redo history. Every operation is a
// method on the session; there is no shared package state. Methods lock an
// internal mutex so concurrent callers are serialized.
type Session struct {
	mu sync.Mutex

	id         string
	name       string
	original   *Table
	current    *Table
	pipeline   Pipeline
	history    *History
	warnings   []StepWarning
	classifier *Classifier
	scanCfg    ScanConfig
	logger     *slog.Logger

	createdAt time.Time
	updatedAt time.Time
}

// SessionInfo is a lightweight description of a session's state.
type SessionInfo struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Loaded    bool          `json:"loaded"`
	Rows      int           `json:"rows"`
	Columns   []string      `json:"columns"`
	Steps     int           `json:"steps"`
	CanUndo   bool          `json:"can_undo"`
	CanRedo   bool          `json:"can_redo"`
	UndoDepth int           `json:"undo_depth"`
	RedoDepth int           `json:"redo_depth"`
	Warnings  []StepWarning `json:"warnings"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewSession returns an empty session.
func NewSession(id string, opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	scanCfg := opts.ScanDefaults
	if scanCfg.ZThreshold == 0 && scanCfg.MostlyEmptyRatio == 0 {
		scanCfg = DefaultScanConfig()
	}
	now := time.Now()
	return &Session{
		id:         id,
		history:    NewHistory(opts.HistoryLimit),
		classifier: NewClassifier(opts.SampleSize),
		scanCfg:    scanCfg,
		logger:     logger.With("session_id", id),
		createdAt:  now,
		updatedAt:  now,
	}
}

func (s *Session) ID() string { return s.id }

// LastActive returns the time of the last operation.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) touch() { s.updatedAt = time.Now() }

func (s *Session) loaded() error {
	if s.original == nil {
		return ErrNoData
	}
	return nil
}

// Load replaces the dataset. The baseline and editable copies are deep
// copies of t, the pipeline base columns become t's columns, and history is
// cleared.
func (s *Session) Load(t *Table, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.original = NewTable(t.Columns, t.Clone().Rows)
	s.current = s.original.Clone()
	s.pipeline = Pipeline{BaseColumns: append([]string{}, s.original.Columns...)}
	s.history.Reset()
	s.warnings = nil
	s.name = name
	s.touch()

	s.logger.Debug("dataset loaded", "name", name, "rows", len(s.original.Rows), "columns", len(s.original.Columns))
}

// Info describes the session.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := SessionInfo{
		ID:        s.id,
		Name:      s.name,
		Loaded:    s.original != nil,
		Columns:   []string{},
		Steps:     len(s.pipeline.Steps),
		CanUndo:   s.history.CanUndo(),
		CanRedo:   s.history.CanRedo(),
		UndoDepth: s.history.UndoDepth(),
		RedoDepth: s.history.RedoDepth(),
		Warnings:  append([]StepWarning{}, s.warnings...),
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
	if s.current != nil {
		info.Rows = len(s.current.Rows)
		info.Columns = append(info.Columns, s.current.Columns...)
	}
	return info
}

// Table returns a deep copy of the current table.
func (s *Session) Table() (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return nil, err
	}
	return s.current.Clone(), nil
}

// Original returns a deep copy of the baseline.
func (s *Session) Original() (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return nil, err
	}
	return s.original.Clone(), nil
}

// ----------------------------------------------------------------------------
// Mutations
// ----------------------------------------------------------------------------

// EditCell sets one cell, recording the previous state for undo.
func (s *Session) EditCell(row int, col string, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return err
	}
	if row < 0 || row >= len(s.current.Rows) {
		return fmt.Errorf("row %d: %w", row, ErrRowOutOfRange)
	}
	if !s.current.HasColumn(col) {
		return fmt.Errorf("column %q: %w", col, ErrUnknownColumn)
	}

	s.history.Push(s.current)
	s.current.Rows[row][col] = v
	s.touch()

	s.logger.Debug("cell edited", "row", row, "col", col)
	return nil
}

// ResetToOriginal replaces the editable table with the baseline. The prior
// state goes on the undo stack.
func (s *Session) ResetToOriginal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return err
	}
	s.history.Push(s.current)
	s.current = s.original.Clone()
	s.warnings = nil
	s.touch()
	return nil
}

// Undo restores the previous snapshot. It reports false, without error,
// when there is nothing to undo.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return false
	}
	prev, ok := s.history.Undo(s.current)
	if !ok {
		return false
	}
	s.current = prev
	s.touch()
	return true
}

// Redo re-applies the most recently undone state.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return false
	}
	next, ok := s.history.Redo(s.current)
	if !ok {
		return false
	}
	s.current = next
	s.touch()
	return true
}

// MoveColumn moves the column at index from to index to in the current
// table, recording history. The pipeline's base columns are not changed, so
// the next pipeline run restores the base order.
func (s *Session) MoveColumn(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return err
	}
	n := len(s.current.Columns)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move %d to %d: %w", from, to, ErrColumnIndex)
	}
	if from == to {
		return nil
	}
	s.history.Push(s.current)
	s.current.Columns = moveItem(s.current.Columns, from, to)
	s.touch()
	return nil
}

func moveItem[T any](items []T, from, to int) []T {
	item := items[from]
	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	out = append(out[:to], append([]T{item}, out[to:]...)...)
	return out
}

// ----------------------------------------------------------------------------
// Pipeline
// ----------------------------------------------------------------------------

// Pipeline returns a copy of the active pipeline.
func (s *Session) Pipeline() Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipeline.Clone()
}

// Warnings returns the warnings of the last pipeline run.
func (s *Session) Warnings() []StepWarning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StepWarning{}, s.warnings...)
}

// RunPipeline rebuilds the current table from the baseline using the active
// pipeline. The prior state goes on the undo stack.
func (s *Session) RunPipeline() (PipelineResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(true)
}

func (s *Session) run(pushHistory bool) (PipelineResult, error) {
	if err := s.loaded(); err != nil {
		return PipelineResult{}, err
	}
	if pushHistory {
		s.history.Push(s.current)
	}
	res := ApplyPipeline(s.original, s.pipeline)
	s.current = res.Table
	s.warnings = res.Warnings
	s.touch()

	for _, w := range res.Warnings {
		s.logger.Warn("pipeline step skipped or degraded",
			"step", w.Step, "op", w.Op, "col", w.Column, "kind", w.Kind, "reason", w.Message)
	}
	s.logger.Debug("pipeline applied",
		"steps", len(s.pipeline.Steps), "enabled", s.pipeline.EnabledCount(),
		"rows", len(res.Table.Rows), "columns", len(res.Table.Columns))

	return PipelineResult{Table: res.Table.Clone(), Warnings: append([]StepWarning{}, res.Warnings...)}, nil
}

// editPipeline applies f to the pipeline and reruns it. If f fails the
// pipeline is left as it was.
func (s *Session) editPipeline(f func(p *Pipeline) error) (PipelineResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return PipelineResult{}, err
	}
	p := s.pipeline.Clone()
	if err := f(&p); err != nil {
		return PipelineResult{}, err
	}
	s.pipeline = p
	return s.run(true)
}

func checkStepIndex(p *Pipeline, i int) error {
	if i < 0 || i >= len(p.Steps) {
		return fmt.Errorf("step %d: %w", i, ErrStepIndex)
	}
	return nil
}

// SetPipeline replaces the whole pipeline and reruns it. A nil BaseColumns
// keeps the current base columns.
func (s *Session) SetPipeline(np Pipeline) (PipelineResult, error) {
	return s.editPipeline(func(p *Pipeline) error {
		base := p.BaseColumns
		*p = np.Clone()
		if p.BaseColumns == nil {
			p.BaseColumns = base
		}
		for i := range p.Steps {
			p.Steps[i] = p.Steps[i].normalize()
		}
		return nil
	})
}

// AddStep appends a step and reruns the pipeline.
func (s *Session) AddStep(step Step) (PipelineResult, error) {
	return s.editPipeline(func(p *Pipeline) error {
		p.Steps = append(p.Steps, step.Clone().normalize())
		return nil
	})
}

// UpdateStep replaces step i and reruns the pipeline.
func (s *Session) UpdateStep(i int, step Step) (PipelineResult, error) {
	return s.editPipeline(func(p *Pipeline) error {
		if err := checkStepIndex(p, i); err != nil {
			return err
		}
		p.Steps[i] = step.Clone().normalize()
		return nil
	})
}

// RemoveStep deletes step i and reruns the pipeline.
func (s *Session) RemoveStep(i int) (PipelineResult, error) {
	return s.editPipeline(func(p *Pipeline) error {
		if err := checkStepIndex(p, i); err != nil {
			return err
		}
		p.Steps = append(p.Steps[:i], p.Steps[i+1:]...)
		return nil
	})
}

// MoveStep moves step from to position to and reruns the pipeline.
func (s *Session) MoveStep(from, to int) (PipelineResult, error) {
	return s.editPipeline(func(p *Pipeline) error {
		if err := checkStepIndex(p, from); err != nil {
			return err
		}
		if err := checkStepIndex(p, to); err != nil {
			return err
		}
		p.Steps = moveItem(p.Steps, from, to)
		return nil
	})
}

// SetStepEnabled toggles step i and reruns the pipeline.
func (s *Session) SetStepEnabled(i int, enabled bool) (PipelineResult, error) {
	return s.editPipeline(func(p *Pipeline) error {
		if err := checkStepIndex(p, i); err != nil {
			return err
		}
		p.Steps[i].Enabled = enabled
		return nil
	})
}

// ExportRecipe returns the active pipeline as a recipe.
func (s *Session) ExportRecipe() Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := RecipeFromPipeline(s.pipeline)
	r.Name = s.name
	return r
}

// ImportRecipe installs r as the active pipeline, clears history and runs
// it. Recipe columns that the baseline does not have are dropped; an empty
// column list selects the baseline columns.
func (s *Session) ImportRecipe(r Recipe) (PipelineResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return PipelineResult{}, err
	}

	p := r.Pipeline()
	if len(p.BaseColumns) == 0 {
		p.BaseColumns = append([]string{}, s.original.Columns...)
	} else {
		kept := p.BaseColumns[:0:0]
		for _, c := range p.BaseColumns {
			if s.original.HasColumn(c) {
				kept = append(kept, c)
			} else {
				s.logger.Warn("recipe column not in dataset", "col", c)
			}
		}
		p.BaseColumns = kept
	}

	s.pipeline = p
	s.history.Reset()
	return s.run(false)
}

// ----------------------------------------------------------------------------
// Views and analysis
// ----------------------------------------------------------------------------

// Page returns one page of the current table.
func (s *Session) Page(page, size int) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return Page{}, err
	}
	return PageOf(s.current, nil, page, size), nil
}

// Search returns one page of the rows containing query in any column
// (case-insensitive). State is not modified.
func (s *Session) Search(query string, page, size int) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return Page{}, err
	}
	return PageOf(s.current, Filter(s.current, query), page, size), nil
}

// Readiness checks the current columns against required.
func (s *Session) Readiness(required []string) (Readiness, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return Readiness{}, err
	}
	return CheckReadiness(s.current.Columns, required), nil
}

// Classify profiles the current table.
func (s *Session) Classify() (Classification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return Classification{}, err
	}
	return s.classifier.Classify(s.current), nil
}

// SuggestScanConfig returns a scan configuration pre-populated from the
// classifier, using the session's thresholds.
func (s *Session) SuggestScanConfig() (ScanConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return ScanConfig{}, err
	}
	cfg := s.classifier.SuggestScanConfig(s.current)
	cfg.ZThreshold = s.scanCfg.ZThreshold
	cfg.MostlyEmptyRatio = s.scanCfg.MostlyEmptyRatio
	return cfg, nil
}

// SuggestReconcileColumns suggests account, amount and entity columns.
func (s *Session) SuggestReconcileColumns() (ReconcileColumns, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return ReconcileColumns{}, err
	}
	return s.classifier.SuggestReconcileColumns(s.current), nil
}

// Scan runs the anomaly scanner over the current table. Zero thresholds in
// cfg take the session defaults.
func (s *Session) Scan(cfg ScanConfig) (ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return ScanResult{}, err
	}
	if cfg.ZThreshold <= 0 {
		cfg.ZThreshold = s.scanCfg.ZThreshold
	}
	if cfg.MostlyEmptyRatio <= 0 {
		cfg.MostlyEmptyRatio = s.scanCfg.MostlyEmptyRatio
	}
	res := Scan(s.current, cfg)
	s.logger.Debug("scan complete", "flagged_rows", len(res.Issues), "duplicates", res.Counts.Duplicates,
		"outliers", res.Counts.Outliers, "bad_dates", res.Counts.BadDates)
	return res, nil
}
