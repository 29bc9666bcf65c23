package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("session limit reached")
	ErrNoData          = errors.New("no data loaded")
	ErrRowOutOfRange   = errors.New("row index out of range")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrColumnIndex     = errors.New("column position out of range")
	ErrStepIndex       = errors.New("step index out of range")
	ErrRecipeNotFound  = errors.New("recipe not found")
	ErrInvalidRecipe   = errors.New("invalid recipe")
	ErrTooManyJobs     = errors.New("too many concurrent jobs")
	ErrProfileNotFound = errors.New("profile not found")
)

// Default service limits.
const (
	DefaultMaxSessions = 64
	DefaultIdleTTL     = 2 * time.Hour
)

// ServiceConfig holds the limits of a Service. Zero values take defaults.
type ServiceConfig struct {
	MaxSessions       int
	IdleTTL           time.Duration
	MaxConcurrentJobs int
	MaxJobWait        time.Duration
	Session           SessionOptions
}

// Metrics receives engine events. The metrics package provides the
// Prometheus implementation.
type Metrics interface {
	PipelineRun(d time.Duration, warnings []StepWarning)
	ScanCompleted(d time.Duration, res ScanResult)
	ReconcileCompleted(d time.Duration, verdict string)
	SessionsActive(n int)
	JobRejected()
}

type nopMetrics struct{}

func (nopMetrics) PipelineRun(time.Duration, []StepWarning) {}
func (nopMetrics) ScanCompleted(time.Duration, ScanResult) {}
func (nopMetrics) ReconcileCompleted(time.Duration, string) {}
func (nopMetrics) SessionsActive(int) {}
func (nopMetrics) JobRejected() {}

// Service hosts many independent sessions. Heavy operations (loads,
// pipeline runs, scans, reconciliations) go through a JobLimiter.
type Service struct {
	cfg     ServiceConfig
	limiter *JobLimiter
	recipes RecipeStore
	metrics Metrics
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service. A nil store selects an in-memory recipe
// store.
func NewService(cfg ServiceConfig, recipes RecipeStore, opts ...ServiceOption) *Service {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if recipes == nil {
		recipes = NewMemoryRecipeStore()
	}

	s := &Service{
		cfg:      cfg,
		limiter:  NewJobLimiter(cfg.MaxConcurrentJobs, cfg.MaxJobWait),
		recipes:  recipes,
		metrics:  nopMetrics{},
		logger:   slog.Default(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limiter exposes the job limiter for status reporting.
func (s *Service) Limiter() *JobLimiter { return s.limiter }

// Recipes returns the recipe store.
func (s *Service) Recipes() RecipeStore { return s.recipes }

// ----------------------------------------------------------------------------
// Session registry
// ----------------------------------------------------------------------------

// CreateSession registers a new empty session.
func (s *Service) CreateSession(name string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.cfg.MaxSessions {
		return nil, fmt.Errorf("%d sessions open: %w", len(s.sessions), ErrTooManySessions)
	}

	opts := s.cfg.Session
	opts.Logger = s.logger
	sess := NewSession(uuid.NewString(), opts)
	sess.name = name
	s.sessions[sess.ID()] = sess
	s.metrics.SessionsActive(len(s.sessions))

	s.logger.Info("session created", "session_id", sess.ID(), "name", name)
	return sess, nil
}

// Session returns the session with the given id.
func (s *Service) Session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	return sess, nil
}

// DeleteSession removes a session.
func (s *Service) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	delete(s.sessions, id)
	s.metrics.SessionsActive(len(s.sessions))

	s.logger.Info("session deleted", "session_id", id)
	return nil
}

// ListSessions describes every session, oldest first.
func (s *Service) ListSessions() []SessionInfo {
	s.mu.RLock()
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.mu.RUnlock()

	infos := make([]SessionInfo, len(list))
	for i, sess := range list {
		infos[i] = sess.Info()
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// SessionCount returns the number of open sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictIdle removes sessions not used since now minus the idle TTL and
// returns how many were removed.
func (s *Service) EvictIdle(now time.Time) int {
	cutoff := now.Add(-s.cfg.IdleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if sess.LastActive().Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.metrics.SessionsActive(len(s.sessions))
	}
	return evicted
}

// Close waits for running jobs to finish and drops every session.
func (s *Service) Close(ctx context.Context) error {
	err := s.limiter.WaitForDrain(ctx)

	s.mu.Lock()
	n := len(s.sessions)
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()
	s.metrics.SessionsActive(0)

	s.logger.Info("service closed", "sessions_dropped", n)
	return err
}

// job looks up a session and runs fn under the limiter.
func (s *Service) job(ctx context.Context, id string, fn func(*Session) error) error {
	sess, err := s.Session(id)
	if err != nil {
		return err
	}
	err = s.limiter.Do(ctx, func() error { return fn(sess) })
	if errors.Is(err, ErrTooManyJobs) {
		s.metrics.JobRejected()
	}
	return err
}
