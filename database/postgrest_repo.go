package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/models"
)

// PostgrestRepo talks to the Supabase REST endpoint for the projects table using the anon key
type PostgrestRepo struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewPostgrestRepo(supabaseURL, apiKey string, timeout time.Duration) *PostgrestRepo {
	return &PostgrestRepo{
		endpoint: strings.TrimRight(supabaseURL, "/") + "/rest/v1/projects",
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// restRow is a projects row as PostgREST returns it
type restRow struct {
	ID          rowID      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Image       string     `json:"image"`
	Tech        []string   `json:"tech"`
	Color       string     `json:"color"`
	Demo        string     `json:"demo"`
	Category    string     `json:"category"`
	Features    []string   `json:"features"`
	Progress    float64    `json:"progress"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// rowID accepts both text and numeric primary keys
type rowID string

func (id *rowID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = rowID(s)
		return nil
	}
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = rowID(n.String())
	return nil
}

func (r restRow) project() models.Project {
	return models.Project{
		ID:             string(r.ID),
		Title:          r.Title,
		Description:    r.Description,
		Image:          r.Image,
		Tech:           nonNil(r.Tech),
		Color:          r.Color,
		Demo:           r.Demo,
		Category:       r.Category,
		Features:       nonNil(r.Features),
		Progress:       int(r.Progress),
		CreatedAtSnake: r.CreatedAt,
		UpdatedAtSnake: r.UpdatedAt,
	}
}

func (r *PostgrestRepo) newRequest(ctx context.Context, method, query string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal projects payload: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	target := r.endpoint
	if query != "" {
		target += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create projects request: %w", err)
	}

	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends the request and decodes a JSON array response into rows when rows is non-nil
func (r *PostgrestRepo) do(req *http.Request, operation string, rows *[]restRow) (*http.Response, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errs.NewServiceUnreachableError("supabase", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.NewRemoteRequestError(operation, resp.StatusCode, string(bodyBytes))
	}

	if rows != nil && len(bodyBytes) > 0 {
		if err := json.Unmarshal(bodyBytes, rows); err != nil {
			return nil, errs.NewMalformedPayloadError(operation+" response", err)
		}
	}
	return resp, nil
}

func (r *PostgrestRepo) FindAll(ctx context.Context) ([]models.Project, error) {
	req, err := r.newRequest(ctx, http.MethodGet, "select=*", nil)
	if err != nil {
		return nil, err
	}
	var rows []restRow
	if _, err := r.do(req, "fetch projects", &rows); err != nil {
		return nil, err
	}
	projects := make([]models.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, row.project())
	}
	return projects, nil
}

// Count asks for an exact count and reads it from the Content-Range header ("0-2/3" or "*/0")
func (r *PostgrestRepo) Count(ctx context.Context) (int64, error) {
	req, err := r.newRequest(ctx, http.MethodHead, "select=*", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Prefer", "count=exact")

	resp, err := r.do(req, "count projects", nil)
	if err != nil {
		return 0, err
	}
	return parseContentRangeTotal(resp.Header.Get("Content-Range"))
}

func parseContentRangeTotal(header string) (int64, error) {
	_, total, ok := strings.Cut(header, "/")
	if !ok || total == "*" {
		return 0, errs.NewMalformedPayloadError("content-range header", fmt.Errorf("no total in %q", header))
	}
	n, err := strconv.ParseInt(strings.TrimSpace(total), 10, 64)
	if err != nil {
		return 0, errs.NewMalformedPayloadError("content-range header", err)
	}
	return n, nil
}

func (r *PostgrestRepo) Insert(ctx context.Context, in models.ProjectInput) (models.Project, error) {
	req, err := r.newRequest(ctx, http.MethodPost, "", []models.ProjectInput{in})
	if err != nil {
		return models.Project{}, err
	}
	req.Header.Set("Prefer", "return=representation")

	var rows []restRow
	if _, err := r.do(req, "insert project", &rows); err != nil {
		return models.Project{}, err
	}
	if len(rows) == 0 {
		return models.Project{}, errs.NewRemoteRequestError("insert project", http.StatusOK, "no row returned")
	}
	return rows[0].project(), nil
}

func (r *PostgrestRepo) InsertMany(ctx context.Context, inputs []models.ProjectInput) error {
	if len(inputs) == 0 {
		return nil
	}
	req, err := r.newRequest(ctx, http.MethodPost, "", inputs)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=minimal")
	_, err = r.do(req, "insert projects", nil)
	return err
}

// Update patches the domain fields of the row matching p.ID. A patch that matches no row is reported
// as not found.
func (r *PostgrestRepo) Update(ctx context.Context, p models.Project) (models.Project, error) {
	req, err := r.newRequest(ctx, http.MethodPatch, idFilter(p.ID), p.Input())
	if err != nil {
		return models.Project{}, err
	}
	req.Header.Set("Prefer", "return=representation")

	var rows []restRow
	if _, err := r.do(req, "update project", &rows); err != nil {
		return models.Project{}, err
	}
	if len(rows) == 0 {
		return models.Project{}, errs.NewNotFound("project")
	}
	return rows[0].project(), nil
}

func (r *PostgrestRepo) Delete(ctx context.Context, id string) error {
	req, err := r.newRequest(ctx, http.MethodDelete, idFilter(id), nil)
	if err != nil {
		return err
	}
	_, err = r.do(req, "delete project", nil)
	return err
}

func idFilter(id string) string {
	return "id=eq." + url.QueryEscape(id)
}
