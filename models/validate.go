package models

import (
	"strings"

	"github.com/devduo/studio-backend/errs"
)

// Normalize trims text fields, strips blank tech/feature entries and fills form defaults
func (in ProjectInput) Normalize() ProjectInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Image = strings.TrimSpace(in.Image)
	in.Demo = strings.TrimSpace(in.Demo)
	in.Color = strings.TrimSpace(in.Color)
	in.Tech = nonBlank(in.Tech)
	in.Features = nonBlank(in.Features)

	if in.Image == "" {
		in.Image = DefaultImage
	}
	if in.Demo == "" {
		in.Demo = NoDemo
	}
	if in.Color == "" {
		in.Color = DefaultColor
	}
	return in
}

// Validate runs the required-field checks of the admin form.
// It expects a normalised input and returns errs.ValidationErrors on failure.
func (in ProjectInput) Validate() error {
	v := errs.ValidationErrors{}
	if in.Title == "" {
		v.Add("title", "title is required")
	}
	if in.Description == "" {
		v.Add("description", "description is required")
	}
	if in.Category == "" {
		v.Add("category", "category is required")
	}
	if len(nonBlank(in.Tech)) == 0 {
		v.Add("tech", "at least one technology is required")
	}
	if len(nonBlank(in.Features)) == 0 {
		v.Add("features", "at least one feature is required")
	}
	if in.Progress < MinProgress || in.Progress > MaxProgress {
		v.Add("progress", "progress must be between 0 and 100")
	}
	return v.Err()
}

// Prepare normalises and validates in one step, the way a form submission does
func (in ProjectInput) Prepare() (ProjectInput, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return in, err
	}
	return in, nil
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
