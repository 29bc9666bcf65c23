package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Load replaces the dataset of session id.
func (s *Service) Load(ctx context.Context, id string, t *Table, name string) (SessionInfo, error) {
	var info SessionInfo
	err := s.job(ctx, id, func(sess *Session) error {
		sess.Load(t, name)
		info = sess.Info()
		return nil
	})
	return info, err
}

// pipelineJob runs a pipeline-editing operation and records its metrics.
func (s *Service) pipelineJob(ctx context.Context, id string, fn func(*Session) (PipelineResult, error)) (PipelineResult, error) {
	var res PipelineResult
	err := s.job(ctx, id, func(sess *Session) error {
		start := time.Now()
		r, err := fn(sess)
		if err != nil {
			return err
		}
		s.metrics.PipelineRun(time.Since(start), r.Warnings)
		res = r
		return nil
	})
	return res, err
}

// RunPipeline rebuilds the session table from its baseline.
func (s *Service) RunPipeline(ctx context.Context, id string) (PipelineResult, error) {
	return s.pipelineJob(ctx, id, (*Session).RunPipeline)
}

// SetPipeline replaces the session pipeline.
func (s *Service) SetPipeline(ctx context.Context, id string, p Pipeline) (PipelineResult, error) {
	return s.pipelineJob(ctx, id, func(sess *Session) (PipelineResult, error) {
		return sess.SetPipeline(p)
	})
}

// AddStep appends a step to the session pipeline.
func (s *Service) AddStep(ctx context.Context, id string, step Step) (PipelineResult, error) {
	return s.pipelineJob(ctx, id, func(sess *Session) (PipelineResult, error) {
		return sess.AddStep(step)
	})
}

// UpdateStep replaces step i.
func (s *Service) UpdateStep(ctx context.Context, id string, i int, step Step) (PipelineResult, error) {
	return s.pipelineJob(ctx, id, func(sess *Session) (PipelineResult, error) {
		return sess.UpdateStep(i, step)
	})
}

// RemoveStep deletes step i.
func (s *Service) RemoveStep(ctx context.Context, id string, i int) (PipelineResult, error) {
	return s.pipelineJob(ctx, id, func(sess *Session) (PipelineResult, error) {
		return sess.RemoveStep(i)
	})
}

// MoveStep reorders the pipeline.
func (s *Service) MoveStep(ctx context.Context, id string, from, to int) (PipelineResult, error) {
	return s.pipelineJob(ctx, id, func(sess *Session) (PipelineResult, error) {
		return sess.MoveStep(from, to)
	})
}

// SetStepEnabled toggles step i.
func (s *Service) SetStepEnabled(ctx context.Context, id string, i int, enabled bool) (PipelineResult, error) {
	return s.pipelineJob(ctx, id, func(sess *Session) (PipelineResult, error) {
		return sess.SetStepEnabled(i, enabled)
	})
}

// Scan runs the anomaly scanner on the session table.
func (s *Service) Scan(ctx context.Context, id string, cfg ScanConfig) (ScanResult, error) {
	var res ScanResult
	err := s.job(ctx, id, func(sess *Session) error {
		start := time.Now()
		r, err := sess.Scan(cfg)
		if err != nil {
			return err
		}
		s.metrics.ScanCompleted(time.Since(start), r)
		res = r
		return nil
	})
	return res, err
}

// Reconcile compares the current table of the GL session against the
// current table of the TB session.
func (s *Service) Reconcile(ctx context.Context, glID, tbID string, opts ReconcileOptions) (ReconcileResult, error) {
	gl, err := s.Session(glID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("gl: %w", err)
	}
	tb, err := s.Session(tbID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("tb: %w", err)
	}

	glTable, err := gl.Table()
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("gl: %w", err)
	}
	tbTable, err := tb.Table()
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("tb: %w", err)
	}

	var res ReconcileResult
	err = s.limiter.Do(ctx, func() error {
		start := time.Now()
		r, err := Reconcile(glTable, tbTable, opts)
		if err != nil {
			return err
		}
		s.metrics.ReconcileCompleted(time.Since(start), r.Verdict)
		res = r
		return nil
	})
	if errors.Is(err, ErrTooManyJobs) {
		s.metrics.JobRejected()
	}
	if err != nil {
		return ReconcileResult{}, err
	}

	s.logger.Info("reconciliation complete",
		"gl_session", glID, "tb_session", tbID,
		"diffs", len(res.Diffs), "verdict", res.Verdict,
		"total_variance", res.TotalVariance.String())
	return res, nil
}
