package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/models"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxProjectBodyBytes = 1 << 20

// projectStore is the part of store.Store the handlers drive
type projectStore interface {
	Projects() []models.Project
	GetProject(id string) (models.Project, bool)
	AddProject(ctx context.Context, in models.ProjectInput) (models.Project, error)
	UpdateProject(ctx context.Context, p models.Project) (models.Project, error)
	DeleteProject(ctx context.Context, id string) error
	ResetProjects(ctx context.Context) ([]models.Project, error)
	UsingRemote() bool
	Loading() bool
	Err() string
}

type projectHandler struct {
	responder Responder
	logger    zerolog.Logger
	store     projectStore
}

func newProjectHandler(store projectStore, alerts alertNotifier) projectHandler {
	logger := log.With().Str("handlerName", "projectHandler").Logger()

	return projectHandler{
		responder: NewResponder(logger).WithAlerts(alerts),
		logger:    logger,
		store:     store,
	}
}

// ProjectCollection is the public project list
type ProjectCollection struct {
	Success     bool             `json:"success"`
	Projects    []models.Project `json:"projects"`
	Total       int              `json:"total"`
	UsingRemote bool             `json:"usingRemote"`
	Loading     bool             `json:"loading"`
	Error       string           `json:"error,omitempty"`
}

// ProjectResponse carries one project
type ProjectResponse struct {
	Success bool           `json:"success"`
	Project models.Project `json:"project"`
}

// MutationResponse reports a write. Persisted is false when the change only reached memory.
type MutationResponse struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message,omitempty"`
	Project   *models.Project  `json:"project,omitempty"`
	Projects  []models.Project `json:"projects,omitempty"`
	Persisted bool             `json:"persisted"`
	Warning   string           `json:"warning,omitempty"`
}

// CatalogResponse lists the choices offered by the admin form
type CatalogResponse struct {
	Success    bool              `json:"success"`
	Palette    []models.Gradient `json:"palette"`
	Categories []string          `json:"categories"`
	Defaults   map[string]string `json:"defaults"`

	// ProgressStep is the increment of the progress slider
	ProgressStep int `json:"progressStep"`
}

// getAllProjects returns the store's list, newest first
// @Summary Get all projects
// @Tags Projects
// @Produce json
// @Success 200 {object} ProjectCollection
// @Router /api/projects [get]
func (h projectHandler) getAllProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects := h.store.Projects()
		h.responder.WriteJSON(w, ProjectCollection{
			Success:     true,
			Projects:    projects,
			Total:       len(projects),
			UsingRemote: h.store.UsingRemote(),
			Loading:     h.store.Loading(),
			Error:       h.store.Err(),
		})
	}
}

// getProject looks a project up in the loaded list
// @Summary Get project
// @Tags Projects
// @Produce json
// @Param projectID path string true "Project ID"
// @Success 200 {object} ProjectResponse
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Router /api/projects/{projectID} [get]
func (h projectHandler) getProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, ok := h.store.GetProject(chi.URLParam(r, "projectID"))
		if !ok {
			h.responder.WriteError(w, errs.NewNotFoundError("project not found"))
			return
		}
		h.responder.WriteJSON(w, ProjectResponse{Success: true, Project: project})
	}
}

// createProject adds a project from the admin form
// @Summary Create project
// @Tags Projects
// @Accept json
// @Produce json
// @Param project body models.ProjectInput true "Project data"
// @Success 201 {object} MutationResponse "Created project; persisted=false when only kept in memory"
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid project data"
// @Router /api/projects [post]
func (h projectHandler) createProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.ProjectInput
		if err := decodeJSON(w, r, maxProjectBodyBytes, &in); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to decode project request body")
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.store.AddProject(r.Context(), in)
		if writeValidationError(h.responder, w, err) {
			return
		}

		resp := MutationResponse{Success: true, Project: &project, Persisted: err == nil}
		if !h.degraded(w, &resp, err, "Failed to add project. Using local storage as fallback.") {
			return
		}
		if resp.Persisted {
			resp.Message = "Project added successfully."
		}
		h.logger.Info().Str("projectID", project.ID).Str("admin", ctxGetUsername(r.Context())).Msg("Project created")
		h.responder.WriteJSONStatus(w, http.StatusCreated, resp)
	}
}

// updateProject replaces the fields of an existing project
// @Summary Update project
// @Tags Projects
// @Accept json
// @Produce json
// @Param projectID path string true "Project ID"
// @Param project body models.ProjectInput true "Updated project data"
// @Success 200 {object} MutationResponse
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid project data"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Router /api/projects/{projectID} [put]
func (h projectHandler) updateProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		existing, ok := h.store.GetProject(projectID)
		if !ok {
			h.responder.WriteError(w, errs.NewNotFoundError("project not found"))
			return
		}

		var in models.ProjectInput
		if err := decodeJSON(w, r, maxProjectBodyBytes, &in); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to decode project request body")
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.store.UpdateProject(r.Context(), existing.WithInput(in))
		if writeValidationError(h.responder, w, err) {
			return
		}

		resp := MutationResponse{Success: true, Project: &project, Persisted: err == nil}
		if !h.degraded(w, &resp, err, "Failed to update project. Using local storage as fallback.") {
			return
		}
		if resp.Persisted {
			resp.Message = "Project updated successfully."
		}
		h.logger.Info().Str("projectID", project.ID).Str("admin", ctxGetUsername(r.Context())).Msg("Project updated")
		h.responder.WriteJSON(w, resp)
	}
}

// deleteProject removes a project. The project leaves the list even when the backend delete fails.
// @Summary Delete project
// @Tags Projects
// @Produce json
// @Param projectID path string true "Project ID"
// @Success 200 {object} MutationResponse
// @Router /api/projects/{projectID} [delete]
func (h projectHandler) deleteProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		err := h.store.DeleteProject(r.Context(), projectID)

		resp := MutationResponse{Success: true, Persisted: err == nil}
		if !h.degraded(w, &resp, err, "Failed to delete project. Using local storage as fallback.") {
			return
		}
		if resp.Persisted {
			resp.Message = "Project deleted successfully."
		}
		h.logger.Info().Str("projectID", projectID).Str("admin", ctxGetUsername(r.Context())).Msg("Project deleted")
		h.responder.WriteJSON(w, resp)
	}
}

// resetProjects restores the default portfolio
// @Summary Reset projects
// @Tags Projects
// @Produce json
// @Success 200 {object} MutationResponse
// @Router /api/projects/reset [post]
func (h projectHandler) resetProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := h.store.ResetProjects(r.Context())

		resp := MutationResponse{Success: true, Projects: projects, Persisted: err == nil}
		if !h.degraded(w, &resp, err, "Failed to reset projects.") {
			return
		}
		if resp.Persisted {
			resp.Message = "Projects reset successfully."
		}
		h.logger.Warn().Int("total", len(projects)).Str("admin", ctxGetUsername(r.Context())).Msg("Projects reset to defaults")
		h.responder.WriteJSON(w, resp)
	}
}

// getCatalog returns the palette, category suggestions and form defaults
func (h projectHandler) getCatalog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.responder.WriteJSON(w, CatalogResponse{
			Success:    true,
			Palette:    models.Palette,
			Categories: models.Categories,
			Defaults: map[string]string{
				"image": models.DefaultImage,
				"color": models.DefaultColor,
				"demo":  models.NoDemo,
			},
			ProgressStep: models.ProgressStep,
		})
	}
}

// degraded fills the warning for a write that only reached memory. It writes the error response
// and returns false for any other failure.
func (h projectHandler) degraded(w http.ResponseWriter, resp *MutationResponse, err error, warning string) bool {
	switch {
	case err == nil:
		return true
	case errs.IsDegraded(err):
		resp.Warning = warning
		return true
	default:
		h.responder.WriteError(w, err)
		return false
	}
}

// writeValidationError writes a 400 with per-field messages when err is a form validation failure
func writeValidationError(responder Responder, w http.ResponseWriter, err error) bool {
	var verrs errs.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	responder.WriteError(w, verrs.ApiErr())
	return true
}
