package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/models"
	"github.com/devduo/studio-backend/persistence"
	"github.com/rs/zerolog"
)

// Persistence is the adapter the store writes through
type Persistence interface {
	persistence.Backend
	Available() bool
}

// Notifier receives one notification per store operation
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// Observer receives operation outcomes and the list size after each change
type Observer interface {
	ObserveOperation(op, outcome string, elapsed time.Duration)
	SetProjectCount(n int)
}

const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
)

// Store owns the in-memory project list for the lifetime of the process. The mutex keeps the list
// memory safe; operations are not serialised end to end, so concurrent writers race and the last
// one wins.
type Store struct {
	backend  Persistence
	notifier Notifier
	observer Observer
	logger   zerolog.Logger
	now      func() time.Time
	seeds    func() []models.Project

	mu       sync.RWMutex
	projects []models.Project
	lastErr  string

	inFlight atomic.Int32
}

type Option func(*Store)

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSeeds replaces the default seed set used by Load and ResetProjects
func WithSeeds(seeds func() []models.Project) Option {
	return func(s *Store) { s.seeds = seeds }
}

func New(backend Persistence, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		notifier: nopNotifier{},
		observer: nopObserver{},
		logger:   zerolog.Nop(),
		now:      time.Now,
		seeds:    models.SeedProjects,
		projects: []models.Project{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load seeds an empty backend and reads the list. When anything in the sequence fails the error is
// recorded, and an empty list is replaced with the seed set so readers always have something to show.
func (s *Store) Load(ctx context.Context) error {
	start := s.begin()
	defer s.end()

	if s.backend.Available() {
		s.logger.Info().Msg("Using remote database for data storage")
	} else {
		s.logger.Info().Msg("Using local storage for data storage")
	}

	var loadErr error
	if err := s.backend.InitializeIfEmpty(ctx, s.seeds()); err != nil {
		s.logger.Error().Err(err).Msg("Error initializing projects")
		loadErr = err
	}

	projects, err := s.backend.FetchAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error loading projects")
		loadErr = err
	}

	s.mu.Lock()
	if err == nil {
		s.projects = projects
	}
	if loadErr != nil {
		s.lastErr = "Failed to load projects"
		if len(s.projects) == 0 {
			s.projects = s.seeds()
		}
	} else {
		s.lastErr = ""
	}
	n := len(s.projects)
	s.mu.Unlock()

	s.observer.SetProjectCount(n)
	if loadErr != nil {
		s.observer.ObserveOperation("load", OutcomeDegraded, time.Since(start))
		return errs.NewDegradedError("load", loadErr)
	}
	s.observer.ObserveOperation("load", OutcomeOK, time.Since(start))
	return nil
}

// mutation describes one write for reconcile
type mutation struct {
	op       string
	subject  string
	persist  func(ctx context.Context) (models.Project, error)
	fallback func() models.Project
	apply    func(list []models.Project, p models.Project) []models.Project
}

// reconcile persists a change and applies its result to the list. When persisting fails the
// fallback record is applied instead, the error is recorded and a degraded error is returned next to
// the record. The list change is never rolled back. A backend that reports the record as missing
// leaves the list and the last error alone.
func (s *Store) reconcile(ctx context.Context, m mutation) (models.Project, error) {
	start := s.begin()
	defer s.end()

	p, err := m.persist(ctx)
	if errs.IsNotFound(err) {
		s.logger.Warn().Err(err).Str("operation", m.op).Str("subject", m.subject).Msg("Nothing to change")
		s.observer.ObserveOperation(m.op, OutcomeNotFound, time.Since(start))
		return models.Project{}, err
	}
	if err != nil {
		s.logger.Error().Err(err).Str("operation", m.op).Msg("Persisting change failed, applying locally")
		p = m.fallback()
	}

	s.mu.Lock()
	s.projects = m.apply(s.projects, p)
	if err != nil {
		s.lastErr = err.Error()
	}
	n := len(s.projects)
	s.mu.Unlock()

	s.observer.SetProjectCount(n)
	if err != nil {
		s.observer.ObserveOperation(m.op, OutcomeDegraded, time.Since(start))
		s.notifier.Notify(ctx, models.Notification{
			Title:       "Error",
			Description: "Failed to " + m.op + " " + m.subject + ". Using local storage as fallback.",
			Destructive: true,
			Operation:   m.op,
		})
		return p, errs.NewDegradedError(m.op, err)
	}

	s.observer.ObserveOperation(m.op, OutcomeOK, time.Since(start))
	s.notifier.Notify(ctx, models.Notification{
		Title:       "Success!",
		Description: "Project " + pastTense(m.op) + " successfully.",
		Operation:   m.op,
	})
	return p, nil
}

func pastTense(op string) string {
	switch op {
	case "add":
		return "added"
	case "update":
		return "updated"
	case "delete":
		return "deleted"
	}
	return op
}

// AddProject normalises and validates in, persists it and prepends the result. Validation errors
// leave the list untouched. When persisting fails a locally stamped record is prepended and returned
// along with a degraded error.
func (s *Store) AddProject(ctx context.Context, in models.ProjectInput) (models.Project, error) {
	prepared, err := s.prepare("add", in)
	if err != nil {
		return models.Project{}, err
	}

	return s.reconcile(ctx, mutation{
		op:      "add",
		subject: "project",
		persist: func(ctx context.Context) (models.Project, error) {
			return s.backend.Create(ctx, prepared)
		},
		fallback: func() models.Project {
			now := s.now()
			s.mu.RLock()
			id := persistence.NewLocalID(now, s.projects)
			s.mu.RUnlock()
			return prepared.WithID(id).Stamped(now)
		},
		apply: func(list []models.Project, p models.Project) []models.Project {
			return append([]models.Project{p}, list...)
		},
	})
}

// UpdateProject replaces the domain fields of the project with p.ID. An id missing from the list
// leaves the list unchanged.
func (s *Store) UpdateProject(ctx context.Context, p models.Project) (models.Project, error) {
	prepared, err := s.prepare("update", p.Input())
	if err != nil {
		return models.Project{}, err
	}
	next := p.WithInput(prepared)

	return s.reconcile(ctx, mutation{
		op:      "update",
		subject: "project",
		persist: func(ctx context.Context) (models.Project, error) {
			return s.backend.Update(ctx, next)
		},
		fallback: func() models.Project {
			return next.Touched(s.now())
		},
		apply: func(list []models.Project, updated models.Project) []models.Project {
			out := make([]models.Project, len(list))
			for i, existing := range list {
				if existing.ID == updated.ID {
					out[i] = updated
				} else {
					out[i] = existing
				}
			}
			return out
		},
	})
}

// DeleteProject removes id from the list whether or not the backend delete succeeded
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	_, err := s.reconcile(ctx, mutation{
		op:      "delete",
		subject: "project",
		persist: func(ctx context.Context) (models.Project, error) {
			return models.Project{ID: id}, s.backend.Delete(ctx, id)
		},
		fallback: func() models.Project {
			return models.Project{ID: id}
		},
		apply: func(list []models.Project, removed models.Project) []models.Project {
			out := make([]models.Project, 0, len(list))
			for _, existing := range list {
				if existing.ID != removed.ID {
					out = append(out, existing)
				}
			}
			return out
		},
	})
	return err
}

// ResetProjects restores the seed set through the backend. On failure the list still becomes the
// seed set.
func (s *Store) ResetProjects(ctx context.Context) ([]models.Project, error) {
	start := s.begin()
	defer s.end()

	projects, err := s.backend.Reset(ctx, s.seeds())
	if err != nil {
		s.logger.Error().Err(err).Msg("Error resetting projects")
		projects = s.seeds()
	}

	s.mu.Lock()
	s.projects = projects
	if err != nil {
		s.lastErr = err.Error()
	}
	s.mu.Unlock()
	s.observer.SetProjectCount(len(projects))

	if err != nil {
		s.observer.ObserveOperation("reset", OutcomeDegraded, time.Since(start))
		s.notifier.Notify(ctx, models.Notification{
			Title:       "Error",
			Description: "Failed to reset projects.",
			Destructive: true,
			Operation:   "reset",
		})
		return cloneList(projects), errs.NewDegradedError("reset", err)
	}

	s.observer.ObserveOperation("reset", OutcomeOK, time.Since(start))
	s.notifier.Notify(ctx, models.Notification{
		Title:       "Success!",
		Description: "Projects reset successfully.",
		Operation:   "reset",
	})
	return cloneList(projects), nil
}

// GetProject looks id up in the in-memory list
func (s *Store) GetProject(id string) (models.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.projects {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return models.Project{}, false
}

// Projects returns a copy of the current list
func (s *Store) Projects() []models.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneList(s.projects)
}

// Loading reports whether any operation is in flight
func (s *Store) Loading() bool {
	return s.inFlight.Load() > 0
}

// Err returns the message of the last failure, or "" when none was recorded
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// UsingRemote reports whether the backend selected at startup is the remote one
func (s *Store) UsingRemote() bool {
	return s.backend.Available()
}

func (s *Store) prepare(op string, in models.ProjectInput) (models.ProjectInput, error) {
	prepared, err := in.Prepare()
	if err != nil {
		s.observer.ObserveOperation(op, OutcomeInvalid, 0)
		return models.ProjectInput{}, err
	}
	return prepared, nil
}

func (s *Store) begin() time.Time {
	s.inFlight.Add(1)
	return time.Now()
}

func (s *Store) end() {
	s.inFlight.Add(-1)
}

func cloneList(list []models.Project) []models.Project {
	out := make([]models.Project, len(list))
	for i, p := range list {
		out[i] = p.Clone()
	}
	return out
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, models.Notification) {}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, string, time.Duration) {}
func (nopObserver) SetProjectCount(int)                            {}
