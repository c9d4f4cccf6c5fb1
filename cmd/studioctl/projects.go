package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/models"
)

// projectFlags are the form fields shared by add and update
type projectFlags struct {
	file        string
	title       string
	description string
	image       string
	color       string
	demo        string
	category    string
	tech        []string
	features    []string
	progress    int
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "read the project as JSON from a file (- for stdin)")
	cmd.Flags().StringVar(&f.title, "title", "", "project title")
	cmd.Flags().StringVar(&f.description, "description", "", "project description")
	cmd.Flags().StringVar(&f.image, "image", "", "image URL")
	cmd.Flags().StringVar(&f.color, "color", "", "card gradient, e.g. "+models.DefaultColor)
	cmd.Flags().StringVar(&f.demo, "demo", "", "demo URL")
	cmd.Flags().StringVar(&f.category, "category", "", "category")
	cmd.Flags().StringSliceVar(&f.tech, "tech", nil, "technologies (repeatable or comma separated)")
	cmd.Flags().StringArrayVar(&f.features, "feature", nil, "feature (repeatable)")
	cmd.Flags().IntVar(&f.progress, "progress", 0, "completion percentage, 0-100")
}

// apply overlays the flags the user set on in. A --file is read first, flags win over it.
func (f *projectFlags) apply(cmd *cobra.Command, in models.ProjectInput) (models.ProjectInput, error) {
	if f.file != "" {
		var r io.Reader = cmd.InOrStdin()
		if f.file != "-" {
			file, err := os.Open(f.file)
			if err != nil {
				return in, err
			}
			defer file.Close()
			r = file
		}
		if err := json.NewDecoder(r).Decode(&in); err != nil {
			return in, errs.NewInvalidJSONError(err)
		}
	}

	changed := cmd.Flags().Changed
	if changed("title") {
		in.Title = f.title
	}
	if changed("description") {
		in.Description = f.description
	}
	if changed("image") {
		in.Image = f.image
	}
	if changed("color") {
		in.Color = f.color
	}
	if changed("demo") {
		in.Demo = f.demo
	}
	if changed("category") {
		in.Category = f.category
	}
	if changed("tech") {
		in.Tech = f.tech
	}
	if changed("feature") {
		in.Features = f.features
	}
	if changed("progress") {
		in.Progress = f.progress
	}

	if in.Color != "" && !models.IsPaletteColor(in.Color) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %q is not one of the palette gradients\n", in.Color)
	}
	if in.Progress%models.ProgressStep != 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: the admin form moves progress in steps of %d\n", models.ProgressStep)
	}
	return in, nil
}

func (s *cli) projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project", "p"},
		Short:   "List and edit portfolio projects",
		Long: `List and edit the projects shown on the landing page.

Examples:
  studioctl projects list
  studioctl projects add --title "Portal" --description "..." --category "Sistema Web" \
    --tech Next.js,Supabase --feature "Login" --progress 40
  studioctl projects update 1712345678901 --progress 100
  studioctl projects delete 1712345678901 --yes`,
	}
	cmd.AddCommand(
		s.projectsListCmd(),
		s.projectsGetCmd(),
		s.projectsAddCmd(),
		s.projectsUpdateCmd(),
		s.projectsDeleteCmd(),
		s.projectsResetCmd(),
	)
	return cmd
}

func (s *cli) projectsListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.open(cmd.Context()); err != nil {
				return err
			}
			projects := s.app.Store.Projects()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), projects)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tPROGRESS\tDEMO")
			for _, p := range projects {
				demo := "-"
				if p.HasDemo() {
					demo = p.Demo
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\n", p.ID, p.Title, p.Category, p.Progress, demo)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (s *cli) projectsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print one project as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.open(cmd.Context()); err != nil {
				return err
			}
			p, ok := s.app.Store.GetProject(args[0])
			if !ok {
				return errs.NewNotFoundError("project not found")
			}
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}
}

func (s *cli) projectsAddCmd() *cobra.Command {
	var f projectFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.openAdmin(cmd.Context()); err != nil {
				return err
			}
			in, err := f.apply(cmd, models.ProjectInput{})
			if err != nil {
				return err
			}

			p, err := s.app.Store.AddProject(cmd.Context(), in)
			if errs.IsDegraded(err) {
				return s.notSaved(cmd, err, "project "+in.Title)
			}
			if err != nil {
				return formatValidation(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added project %s (%s)\n", p.ID, p.Title)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (s *cli) projectsUpdateCmd() *cobra.Command {
	var f projectFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.openAdmin(cmd.Context()); err != nil {
				return err
			}
			existing, ok := s.app.Store.GetProject(args[0])
			if !ok {
				return errs.NewNotFoundError("project not found")
			}
			in, err := f.apply(cmd, existing.Input())
			if err != nil {
				return err
			}

			p, err := s.app.Store.UpdateProject(cmd.Context(), existing.WithInput(in))
			if errs.IsDegraded(err) {
				return s.notSaved(cmd, err, "update of project "+existing.ID)
			}
			if err != nil {
				return formatValidation(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated project %s (%s)\n", p.ID, p.Title)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (s *cli) projectsDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.openAdmin(cmd.Context()); err != nil {
				return err
			}
			id := args[0]
			label := id
			if p, ok := s.app.Store.GetProject(id); ok {
				label = p.Title
			}
			if !yes && !s.confirm(cmd.OutOrStdout(), fmt.Sprintf("Delete project %q?", label)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}

			err := s.app.Store.DeleteProject(cmd.Context(), id)
			if errs.IsDegraded(err) {
				return s.notSaved(cmd, err, "deletion of project "+id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (s *cli) projectsResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace all projects with the default portfolio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.openAdmin(cmd.Context()); err != nil {
				return err
			}
			if !yes && !s.confirm(cmd.OutOrStdout(), "Replace every project with the default portfolio?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}

			projects, err := s.app.Store.ResetProjects(cmd.Context())
			if errs.IsDegraded(err) {
				return s.notSaved(cmd, err, "reset")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset to %d projects\n", len(projects))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// notSaved reports a degraded write. The store's in-memory fallback ends with the process, so for
// the CLI the change reached neither the remote database nor local storage.
func (s *cli) notSaved(cmd *cobra.Command, err error, what string) error {
	target := "Local storage"
	if s.app.Store.UsingRemote() {
		target = "The remote database"
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s rejected the change. Nothing was saved.\n", target)

	cause := err
	var apiErr *errs.ApiErr
	if errors.As(err, &apiErr) && apiErr.Cause != nil {
		cause = apiErr.Cause
	}
	return fmt.Errorf("%s was not saved: %w", what, cause)
}

// formatValidation lists every failing field on its own line
func formatValidation(err error) error {
	var v errs.ValidationErrors
	if !errs.IsValidationError(err) || !errors.As(err, &v) {
		return err
	}
	lines := make([]string, 0, len(v))
	for field, msg := range v {
		lines = append(lines, fmt.Sprintf("  %s: %s", field, msg))
	}
	sort.Strings(lines)
	return fmt.Errorf("invalid project:\n%s", strings.Join(lines, "\n"))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
