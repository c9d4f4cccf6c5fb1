package database

import (
	"context"
	"time"

	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// projectRow is the SQL shape of a project. tech and features are stored as JSON arrays.
type projectRow struct {
	ID          string                      `gorm:"column:id;primaryKey;size:64"`
	Title       string                      `gorm:"column:title;not null"`
	Description string                      `gorm:"column:description;not null"`
	Image       string                      `gorm:"column:image"`
	Tech        datatypes.JSONSlice[string] `gorm:"column:tech"`
	Color       string                      `gorm:"column:color"`
	Demo        string                      `gorm:"column:demo"`
	Category    string                      `gorm:"column:category"`
	Features    datatypes.JSONSlice[string] `gorm:"column:features"`
	Progress    int                         `gorm:"column:progress;default:0"`
	CreatedAt   time.Time                   `gorm:"column:created_at"`
	UpdatedAt   time.Time                   `gorm:"column:updated_at"`
}

func (projectRow) TableName() string {
	return "projects"
}

// BeforeCreate assigns the id when the caller did not provide one
func (r *projectRow) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func rowFromInput(in models.ProjectInput) projectRow {
	return projectRow{
		Title:       in.Title,
		Description: in.Description,
		Image:       in.Image,
		Tech:        datatypes.JSONSlice[string](nonNil(in.Tech)),
		Color:       in.Color,
		Demo:        in.Demo,
		Category:    in.Category,
		Features:    datatypes.JSONSlice[string](nonNil(in.Features)),
		Progress:    in.Progress,
	}
}

func (r projectRow) project() models.Project {
	createdAt, updatedAt := r.CreatedAt, r.UpdatedAt
	p := models.Project{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Image:       r.Image,
		Tech:        nonNil([]string(r.Tech)),
		Color:       r.Color,
		Demo:        r.Demo,
		Category:    r.Category,
		Features:    nonNil([]string(r.Features)),
		Progress:    r.Progress,
	}
	if !createdAt.IsZero() {
		p.CreatedAtSnake = &createdAt
	}
	if !updatedAt.IsZero() {
		p.UpdatedAtSnake = &updatedAt
	}
	return p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type ProjectRepo struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db}
}

// FindAll returns every project row, unordered
func (r *ProjectRepo) FindAll(ctx context.Context) ([]models.Project, error) {
	var rows []projectRow
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, errs.NewDatabaseError("fetch", "projects", err)
	}
	projects := make([]models.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, row.project())
	}
	return projects, nil
}

// Count returns the exact number of project rows
func (r *ProjectRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&projectRow{}).Count(&n).Error; err != nil {
		return 0, errs.NewDatabaseError("count", "projects", err)
	}
	return n, nil
}

// Insert creates a row from the domain fields and returns it with the generated id and timestamps
func (r *ProjectRepo) Insert(ctx context.Context, in models.ProjectInput) (models.Project, error) {
	row := rowFromInput(in)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Project{}, errs.NewDatabaseError("create", "project", err)
	}
	return row.project(), nil
}

// InsertMany creates all rows in a single batch
func (r *ProjectRepo) InsertMany(ctx context.Context, inputs []models.ProjectInput) error {
	if len(inputs) == 0 {
		return nil
	}
	rows := make([]projectRow, 0, len(inputs))
	for _, in := range inputs {
		rows = append(rows, rowFromInput(in))
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return errs.NewDatabaseError("create", "projects", err)
	}
	return nil
}

// Update writes the domain fields of p to the row with p.ID and returns the stored row
func (r *ProjectRepo) Update(ctx context.Context, p models.Project) (models.Project, error) {
	in := p.Input()
	db := r.db.WithContext(ctx)

	res := db.Model(&projectRow{}).Where("id = ?", p.ID).Updates(map[string]any{
		"title":       in.Title,
		"description": in.Description,
		"image":       in.Image,
		"tech":        datatypes.JSONSlice[string](nonNil(in.Tech)),
		"color":       in.Color,
		"demo":        in.Demo,
		"category":    in.Category,
		"features":    datatypes.JSONSlice[string](nonNil(in.Features)),
		"progress":    in.Progress,
	})
	if res.Error != nil {
		return models.Project{}, errs.NewDatabaseError("update", "project", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Project{}, errs.NewNotFound("project")
	}

	var row projectRow
	if err := db.Where("id = ?", p.ID).First(&row).Error; err != nil {
		return models.Project{}, errs.NewDatabaseError("reload", "project", err)
	}
	return row.project(), nil
}

// Delete removes the row with id. Deleting a missing id is not an error.
func (r *ProjectRepo) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&projectRow{}).Error; err != nil {
		return errs.NewDatabaseError("delete", "project", err)
	}
	return nil
}
