// Package main implements studioctl, the admin panel for the project store as a command line tool.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/devduo/studio-backend/app"
	"github.com/devduo/studio-backend/auth"
	"github.com/devduo/studio-backend/config"
	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/kvstore"
	"github.com/rs/zerolog/log"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	if err := newCLI(config.New()).execute(context.Background(), os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// cli holds what the commands share for one invocation
type cli struct {
	config map[string]string
	// stdin, stdout and stderr replace the process streams when set
	stdin          io.Reader
	stdout, stderr io.Writer

	in      *bufio.Reader
	session kvstore.Store
	app     *app.App
	gate    *auth.Gate
}

func newCLI(c map[string]string) *cli {
	return &cli{config: c}
}

// execute runs one command line and releases the stores afterwards, also when the command failed
func (s *cli) execute(ctx context.Context, args []string) error {
	root := s.rootCmd()
	root.SetArgs(args)
	if s.stdin != nil {
		root.SetIn(s.stdin)
	}
	if s.stdout != nil {
		root.SetOut(s.stdout)
	}
	if s.stderr != nil {
		root.SetErr(s.stderr)
	}
	err := root.ExecuteContext(ctx)
	if closeErr := s.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func (s *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "studioctl",
		Short: "Manage the studio portfolio projects",
		Long: `studioctl manages the projects shown on the studio landing page.

It reads the same configuration as the server (.env, environment, SSM) and works on the same
remote database or local storage. Admin commands need a session opened with "studioctl login".`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.setup(cmd)
		},
	}

	root.AddCommand(
		s.loginCmd(),
		s.logoutCmd(),
		s.whoamiCmd(),
		s.projectsCmd(),
		s.statusCmd(),
		s.dbCmd(),
		s.hashPasswordCmd(),
	)
	return root
}

func (s *cli) setup(cmd *cobra.Command) error {
	if s.config["LOG_LEVEL"] == "" {
		s.config["LOG_LEVEL"] = "warn"
	}
	if s.config["LOG_FORMAT"] == "" {
		s.config["LOG_FORMAT"] = "console"
	}
	app.SetupLogger(s.config, cmd.ErrOrStderr())
	s.in = bufio.NewReader(cmd.InOrStdin())

	if _, err := config.OverlaySSM(cmd.Context(), s.config); err != nil {
		return fmt.Errorf("load SSM parameters: %w", err)
	}

	home := config.GetString(s.config, "STUDIOCTL_HOME", "")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		home = filepath.Join(userHome, ".studioctl")
	}
	session, err := kvstore.OpenBadger(filepath.Join(home, "session"))
	if err != nil {
		return errs.NewLocalStorageError("open session", err)
	}
	s.session = session
	return nil
}

// open builds the app and loads the project list. The gate is built here too since it needs the
// configured verifiers.
func (s *cli) open(ctx context.Context) error {
	if s.app != nil {
		return nil
	}
	a, err := app.Build(ctx, s.config, app.WithSyncNotifications())
	if err != nil {
		return err
	}
	s.app = a
	s.gate = auth.NewGate(a.Verifier, s.session, log.With().Str("component", "gate").Logger())

	if err := a.Store.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("Projects loaded with errors")
	}
	return nil
}

// openAdmin is open plus the route guard
func (s *cli) openAdmin(ctx context.Context) error {
	if err := s.open(ctx); err != nil {
		return err
	}
	return s.gate.Require(ctx)
}

// sessionGate reads the session without building the app
func (s *cli) sessionGate() *auth.Gate {
	if s.gate != nil {
		return s.gate
	}
	return auth.NewGate(auth.Multi{}, s.session, log.With().Str("component", "gate").Logger())
}

func (s *cli) close() error {
	var firstErr error
	if s.app != nil {
		firstErr = s.app.Close()
		s.app = nil
	}
	if s.session != nil {
		if err := s.session.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.session = nil
	}
	s.gate = nil
	return firstErr
}

// confirm asks a yes/no question, defaulting to no
func (s *cli) confirm(out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, _ := s.in.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// readLine prompts for a single line
func (s *cli) readLine(out io.Writer, prompt string) string {
	fmt.Fprint(out, prompt)
	line, _ := s.in.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

func (s *cli) loginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Open an admin session",
		Long: `Open an admin session. The password is read from standard input when --password is omitted.

Examples:
  studioctl login -u brenno.om
  echo "$PASSWORD" | studioctl login -u brenno.om`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.open(cmd.Context()); err != nil {
				return err
			}
			if username == "" {
				username = s.readLine(cmd.OutOrStdout(), "Username: ")
			}
			if !cmd.Flags().Changed("password") {
				password = s.readLine(cmd.OutOrStdout(), "Password: ")
			}

			ok := s.gate.Login(cmd.Context(), username, password)
			s.app.Metrics.RecordLogin(ok)
			if !ok {
				return errs.NewInvalidCredentialsError()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "admin username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "admin password")
	return cmd
}

func (s *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Close the admin session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.sessionGate().Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (s *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user := s.sessionGate().User(cmd.Context())
			if user == "" {
				user = "anonymous"
			}
			fmt.Fprintln(cmd.OutOrStdout(), user)
			return nil
		},
	}
}

func (s *cli) hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print an argon2id hash for ADMIN_PASSWORD_HASHES",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ""
			if len(args) == 1 {
				password = args[0]
			} else {
				password = s.readLine(cmd.ErrOrStderr(), "Password: ")
			}
			if password == "" {
				return errs.NewMissingRequiredFieldError("password")
			}
			hash, err := auth.HashPassword(password, auth.DefaultArgon2Params())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
