package persistence

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RemoteRepository is the hosted table of projects. database.ProjectRepository satisfies it.
type RemoteRepository interface {
	FindAll(ctx context.Context) ([]models.Project, error)
	Count(ctx context.Context) (int64, error)
	Insert(ctx context.Context, in models.ProjectInput) (models.Project, error)
	InsertMany(ctx context.Context, inputs []models.ProjectInput) error
	Update(ctx context.Context, p models.Project) (models.Project, error)
	Delete(ctx context.Context, id string) error
}

// Backend is one persistence strategy. Reads degrade to local data, writes return their errors.
type Backend interface {
	FetchAll(ctx context.Context) ([]models.Project, error)
	Create(ctx context.Context, in models.ProjectInput) (models.Project, error)
	Update(ctx context.Context, p models.Project) (models.Project, error)
	Delete(ctx context.Context, id string) error
	InitializeIfEmpty(ctx context.Context, seeds []models.Project) error
	Reset(ctx context.Context, seeds []models.Project) ([]models.Project, error)
}

// resetConcurrency bounds the parallel deletes issued by a remote reset
const resetConcurrency = 4

// Adapter picks the remote or the local backend once, at construction
type Adapter struct {
	Backend
	remote bool
	local  *LocalRepository
}

type Option func(*options)

type options struct {
	logger     zerolog.Logger
	now        func() time.Time
	onFallback func(error)
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock replaces time.Now for local stamping
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithFallbackHook is called each time a remote read falls back to local data
func WithFallbackHook(fn func(error)) Option {
	return func(o *options) { o.onFallback = fn }
}

// NewAdapter uses remote when it is non-nil and local otherwise
func NewAdapter(remote RemoteRepository, local *LocalRepository, opts ...Option) *Adapter {
	o := options{logger: zerolog.Nop(), now: time.Now, onFallback: func(error) {}}
	for _, opt := range opts {
		opt(&o)
	}

	lb := &localBackend{repo: local, now: o.now}
	if remote == nil {
		o.logger.Info().Msg("Using local storage for project data")
		return &Adapter{Backend: lb, local: local}
	}

	o.logger.Info().Msg("Using remote database for project data")
	return &Adapter{
		Backend: &remoteBackend{
			repo:       remote,
			local:      lb,
			logger:     o.logger,
			onFallback: o.onFallback,
		},
		remote: true,
		local:  local,
	}
}

// Available reports whether the remote backend was selected
func (a *Adapter) Available() bool {
	return a.remote
}

// Local returns the local repository backing the adapter
func (a *Adapter) Local() *LocalRepository {
	return a.local
}

type remoteBackend struct {
	repo       RemoteRepository
	local      *localBackend
	logger     zerolog.Logger
	onFallback func(error)
}

func (b *remoteBackend) FetchAll(ctx context.Context) ([]models.Project, error) {
	projects, err := b.repo.FindAll(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("Error fetching projects from remote, falling back to local storage")
		b.onFallback(err)
		return b.local.FetchAll(ctx)
	}
	SortByRecency(projects)
	return projects, nil
}

func (b *remoteBackend) Create(ctx context.Context, in models.ProjectInput) (models.Project, error) {
	return b.repo.Insert(ctx, in)
}

func (b *remoteBackend) Update(ctx context.Context, p models.Project) (models.Project, error) {
	return b.repo.Update(ctx, p)
}

func (b *remoteBackend) Delete(ctx context.Context, id string) error {
	return b.repo.Delete(ctx, id)
}

// InitializeIfEmpty seeds an empty remote table. Failures are logged only; the read that follows
// decides whether loading worked.
func (b *remoteBackend) InitializeIfEmpty(ctx context.Context, seeds []models.Project) error {
	n, err := b.repo.Count(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("Error counting remote projects, skipping seeding")
		return nil
	}
	if n > 0 {
		return nil
	}
	inputs := make([]models.ProjectInput, 0, len(seeds))
	for _, s := range seeds {
		inputs = append(inputs, s.Input())
	}
	if err := b.repo.InsertMany(ctx, inputs); err != nil {
		b.logger.Error().Err(err).Int("seeds", len(inputs)).Msg("Error seeding remote projects")
	}
	return nil
}

// Reset deletes every remote row, inserts the seeds and reads the table back. Individual delete and
// insert failures are logged and do not stop the reset.
func (b *remoteBackend) Reset(ctx context.Context, seeds []models.Project) ([]models.Project, error) {
	current, err := b.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		failed []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resetConcurrency)
	for _, p := range current {
		id := p.ID
		g.Go(func() error {
			if err := b.repo.Delete(gctx, id); err != nil {
				b.logger.Error().Err(err).Str("projectID", id).Msg("Error deleting project during reset")
				mu.Lock()
				failed = append(failed, "delete "+id)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, s := range seeds {
		if _, err := b.repo.Insert(ctx, s.Input()); err != nil {
			b.logger.Error().Err(err).Str("title", s.Title).Msg("Error creating seed project during reset")
			failed = append(failed, "insert "+s.Title)
		}
	}
	if len(failed) > 0 {
		b.logger.Warn().Strs("failed", failed).Msg("Reset finished with failures")
	}

	projects, err := b.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	SortByRecency(projects)
	return projects, nil
}

type localBackend struct {
	repo *LocalRepository
	now  func() time.Time
}

func (b *localBackend) FetchAll(ctx context.Context) ([]models.Project, error) {
	projects, err := b.repo.Load(ctx)
	if err != nil {
		b.repo.logger.Error().Err(err).Msg("Error reading local projects")
		return []models.Project{}, nil
	}
	return projects, nil
}

func (b *localBackend) Create(ctx context.Context, in models.ProjectInput) (models.Project, error) {
	var created models.Project
	err := b.repo.Mutate(ctx, func(projects []models.Project) ([]models.Project, error) {
		now := b.now()
		created = in.WithID(NewLocalID(now, projects)).Stamped(now)
		return append([]models.Project{created}, projects...), nil
	})
	if err != nil {
		return models.Project{}, err
	}
	return created, nil
}

func (b *localBackend) Update(ctx context.Context, p models.Project) (models.Project, error) {
	var updated models.Project
	err := b.repo.Mutate(ctx, func(projects []models.Project) ([]models.Project, error) {
		for i := range projects {
			if projects[i].ID != p.ID {
				continue
			}
			next := p.Clone()
			next.CreatedAt = projects[i].CreatedAt
			next.CreatedAtSnake = projects[i].CreatedAtSnake
			next.UpdatedAtSnake = projects[i].UpdatedAtSnake
			updated = next.Touched(b.now())
			projects[i] = updated
			return projects, nil
		}
		return nil, errs.NewNotFound("project")
	})
	if err != nil {
		return models.Project{}, err
	}
	return updated, nil
}

func (b *localBackend) Delete(ctx context.Context, id string) error {
	return b.repo.Mutate(ctx, func(projects []models.Project) ([]models.Project, error) {
		kept := projects[:0]
		for _, p := range projects {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		return kept, nil
	})
}

func (b *localBackend) InitializeIfEmpty(ctx context.Context, seeds []models.Project) error {
	return b.repo.Mutate(ctx, func(projects []models.Project) ([]models.Project, error) {
		if len(projects) > 0 {
			return projects, nil
		}
		return b.stamp(seeds), nil
	})
}

func (b *localBackend) Reset(ctx context.Context, seeds []models.Project) ([]models.Project, error) {
	stamped := b.stamp(seeds)
	if err := b.repo.Save(ctx, stamped); err != nil {
		return nil, err
	}
	return stamped, nil
}

func (b *localBackend) stamp(seeds []models.Project) []models.Project {
	now := b.now()
	out := make([]models.Project, 0, len(seeds))
	for _, s := range seeds {
		out = append(out, s.Clone().Stamped(now))
	}
	return out
}

// SortByRecency orders projects newest first using created_at, then createdAt, then the id read as
// a millisecond timestamp. Records with none of these sort last.
func SortByRecency(projects []models.Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		return recency(projects[i]) > recency(projects[j])
	})
}

func recency(p models.Project) int64 {
	switch {
	case p.CreatedAtSnake != nil:
		return p.CreatedAtSnake.UnixMilli()
	case p.CreatedAt != nil:
		return p.CreatedAt.UnixMilli()
	}
	if n, err := strconv.ParseInt(p.ID, 10, 64); err == nil {
		return n
	}
	return 0
}
