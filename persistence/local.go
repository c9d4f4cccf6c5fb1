package persistence

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/kvstore"
	"github.com/devduo/studio-backend/models"
	"github.com/rs/zerolog"
)

const (
	// StorageKey holds the JSON array of projects in the local store
	StorageKey = "devduo-projects"
	// LegacyStorageKey is the older spelling still found in existing stores. It is read once and
	// migrated to StorageKey.
	LegacyStorageKey = "devduo_projects"
)

// LocalRepository keeps the project list as one JSON array under StorageKey
type LocalRepository struct {
	kv     kvstore.Store
	logger zerolog.Logger

	// serialises read-modify-write cycles on the array
	mu sync.Mutex
}

func NewLocalRepository(kv kvstore.Store, logger zerolog.Logger) *LocalRepository {
	return &LocalRepository{kv: kv, logger: logger}
}

// Store returns the underlying key-value store
func (r *LocalRepository) Store() kvstore.Store {
	return r.kv
}

// Load returns the stored projects. A missing key yields an empty list. Content that does not parse
// is logged and treated as empty, so a corrupt entry never blocks reads.
func (r *LocalRepository) Load(ctx context.Context) ([]models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

func (r *LocalRepository) load(ctx context.Context) ([]models.Project, error) {
	raw, ok, err := r.kv.Get(ctx, StorageKey)
	if err != nil {
		return nil, errs.NewLocalStorageError("read", err)
	}
	if !ok {
		return r.migrateLegacy(ctx)
	}
	return r.decode(raw, StorageKey), nil
}

func (r *LocalRepository) migrateLegacy(ctx context.Context) ([]models.Project, error) {
	raw, ok, err := r.kv.Get(ctx, LegacyStorageKey)
	if err != nil {
		return nil, errs.NewLocalStorageError("read", err)
	}
	if !ok {
		return []models.Project{}, nil
	}

	projects := r.decode(raw, LegacyStorageKey)
	if err := r.save(ctx, projects); err != nil {
		return nil, err
	}
	if err := r.kv.Delete(ctx, LegacyStorageKey); err != nil {
		r.logger.Warn().Err(err).Msg("Could not remove legacy project key after migration")
	}
	r.logger.Info().Int("projects", len(projects)).Str("from", LegacyStorageKey).Str("to", StorageKey).
		Msg("Migrated local projects to the current key")
	return projects, nil
}

func (r *LocalRepository) decode(raw []byte, key string) []models.Project {
	var projects []models.Project
	if err := json.Unmarshal(raw, &projects); err != nil {
		r.logger.Error().Err(err).Str("key", key).Msg("Error reading projects from local storage")
		return []models.Project{}
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects
}

// Save replaces the stored list
func (r *LocalRepository) Save(ctx context.Context, projects []models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, projects)
}

func (r *LocalRepository) save(ctx context.Context, projects []models.Project) error {
	if projects == nil {
		projects = []models.Project{}
	}
	raw, err := json.Marshal(projects)
	if err != nil {
		return errs.NewLocalStorageError("encode", err)
	}
	if err := r.kv.Set(ctx, StorageKey, raw); err != nil {
		return errs.NewLocalStorageError("write", err)
	}
	return nil
}

// Mutate loads the list, applies fn and stores the result, holding the repository lock throughout
func (r *LocalRepository) Mutate(ctx context.Context, fn func([]models.Project) ([]models.Project, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects, err := r.load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(projects)
	if err != nil {
		return err
	}
	return r.save(ctx, next)
}

// NewLocalID returns a millisecond timestamp id that is not already used in projects
func NewLocalID(now time.Time, projects []models.Project) string {
	taken := make(map[string]bool, len(projects))
	for _, p := range projects {
		taken[p.ID] = true
	}
	ms := now.UnixMilli()
	for taken[strconv.FormatInt(ms, 10)] {
		ms++
	}
	return strconv.FormatInt(ms, 10)
}
