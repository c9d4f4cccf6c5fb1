package models

import "time"

// Project represents one portfolio item shown on the landing page and managed from the admin panel
type Project struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Tech        []string `json:"tech"`
	Color       string   `json:"color"`
	Demo        string   `json:"demo"`
	Category    string   `json:"category"`
	Features    []string `json:"features"`
	Progress    int      `json:"progress"`

	// Local records carry camelCase timestamps, remote rows carry snake_case ones.
	// Neither pair is guaranteed to be present.
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
	CreatedAtSnake *time.Time `json:"created_at,omitempty"`
	UpdatedAtSnake *time.Time `json:"updated_at,omitempty"`
}

// ProjectInput is a project without its identity, as submitted by the creation form
type ProjectInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Tech        []string `json:"tech"`
	Color       string   `json:"color"`
	Demo        string   `json:"demo"`
	Category    string   `json:"category"`
	Features    []string `json:"features"`
	Progress    int      `json:"progress"`
}

// Input returns the domain fields of the project, dropping identity and timestamps
func (p Project) Input() ProjectInput {
	return ProjectInput{
		Title:       p.Title,
		Description: p.Description,
		Image:       p.Image,
		Tech:        cloneStrings(p.Tech),
		Color:       p.Color,
		Demo:        p.Demo,
		Category:    p.Category,
		Features:    cloneStrings(p.Features),
		Progress:    p.Progress,
	}
}

// WithID builds a project from the input under the given id
func (in ProjectInput) WithID(id string) Project {
	return Project{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Image:       in.Image,
		Tech:        cloneStrings(in.Tech),
		Color:       in.Color,
		Demo:        in.Demo,
		Category:    in.Category,
		Features:    cloneStrings(in.Features),
		Progress:    in.Progress,
	}
}

// WithInput replaces the domain fields of p, keeping its id and timestamps
func (p Project) WithInput(in ProjectInput) Project {
	next := in.WithID(p.ID)
	next.CreatedAt, next.UpdatedAt = p.CreatedAt, p.UpdatedAt
	next.CreatedAtSnake, next.UpdatedAtSnake = p.CreatedAtSnake, p.UpdatedAtSnake
	return next
}

// Stamped returns a copy of the project with local createdAt/updatedAt set to now
func (p Project) Stamped(now time.Time) Project {
	created, updated := now, now
	p.CreatedAt = &created
	p.UpdatedAt = &updated
	return p
}

// Touched returns a copy of the project with the local updatedAt set to now
func (p Project) Touched(now time.Time) Project {
	updated := now
	p.UpdatedAt = &updated
	return p
}

// HasDemo reports whether the project links to a live demo
func (p Project) HasDemo() bool {
	return p.Demo != "" && p.Demo != NoDemo
}

// Clone returns a deep copy of the project
func (p Project) Clone() Project {
	p.Tech = cloneStrings(p.Tech)
	p.Features = cloneStrings(p.Features)
	return p
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
