// Package app assembles the service from configuration: local store, remote repository, persistence
// adapter, project store, credential verifiers, notifications and metrics. The HTTP server and the
// admin CLI both start from Build.
package app

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/devduo/studio-backend/auth"
	"github.com/devduo/studio-backend/config"
	"github.com/devduo/studio-backend/database"
	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/kvstore"
	"github.com/devduo/studio-backend/metrics"
	"github.com/devduo/studio-backend/persistence"
	"github.com/devduo/studio-backend/services"
	"github.com/devduo/studio-backend/store"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type App struct {
	Config   map[string]string
	Local    kvstore.Store
	Database *database.Database
	// RemoteErr is set when a remote backend was configured but could not be opened
	RemoteErr error
	Adapter   *persistence.Adapter
	Store     *store.Store
	Verifier  auth.Verifier
	Tokens    *auth.Tokens
	Notifier  services.Notifier
	Uploader  *services.ImageUploader
	Metrics   *metrics.Collector
	Registry  *prometheus.Registry
}

type options struct {
	syncNotifications bool
	processMetrics    bool
}

type Option func(*options)

// WithSyncNotifications delivers notifications before store operations return. Short-lived
// processes use it so nothing is lost on exit.
func WithSyncNotifications() Option {
	return func(o *options) { o.syncNotifications = true }
}

// WithProcessMetrics registers the Go runtime and process collectors next to the service metrics
func WithProcessMetrics() Option {
	return func(o *options) { o.processMetrics = true }
}

// SetupLogger configures the global zerolog logger from LOG_LEVEL and LOG_FORMAT
func SetupLogger(c map[string]string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(config.GetString(c, "LOG_LEVEL", "info")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if config.GetString(c, "LOG_FORMAT", "json") == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}

// Build opens every component described by c. A remote backend that cannot be opened is logged and
// recorded in RemoteErr; the app then runs on local storage.
func Build(ctx context.Context, c map[string]string, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.With().Str("component", "app").Logger()

	local, err := kvstore.Open(kvstore.Config{
		Driver:        kvstore.Driver(config.GetString(c, "LOCAL_STORE", string(kvstore.DriverBadger))),
		Path:          config.GetString(c, "LOCAL_STORE_PATH", "data/local"),
		RedisAddr:     config.GetString(c, "REDIS_ADDR", "localhost:6379"),
		RedisPassword: config.GetString(c, "REDIS_PASSWORD", ""),
		RedisDB:       config.GetInt(c, "REDIS_DB", 0),
		RedisPrefix:   config.GetString(c, "REDIS_PREFIX", "studio:"),
	})
	if err != nil {
		return nil, errs.NewLocalStorageError("open", err)
	}

	a := &App{Config: c, Local: local, Registry: prometheus.NewRegistry()}
	if o.processMetrics {
		a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	a.Metrics = metrics.NewCollector(a.Registry)

	dbCfg := database.ConfigFrom(c)
	var remote persistence.RemoteRepository
	if dbCfg.Driver != database.DriverNone && !dbCfg.Available() {
		logger.Warn().Str("driver", string(dbCfg.Driver)).Msg("Remote database is not fully configured, using local storage")
	}
	db, err := database.Open(dbCfg)
	switch {
	case err != nil:
		a.RemoteErr = errs.NewBackendUnavailableError(string(dbCfg.Driver), err)
		msg := "Could not open remote database, using local storage"
		if errs.IsDatabaseConnectionError(err) {
			msg = "Remote database is unreachable, using local storage"
		}
		logger.Error().Err(err).Str("driver", string(dbCfg.Driver)).Msg(msg)
	case db != nil:
		a.Database = db
		remote = db.ProjectRepo()
	}

	a.Adapter = persistence.NewAdapter(remote,
		persistence.NewLocalRepository(local, log.With().Str("component", "localStorage").Logger()),
		persistence.WithLogger(log.With().Str("component", "persistence").Logger()),
		persistence.WithFallbackHook(a.Metrics.RecordReadFallback),
	)
	a.Metrics.SetRemote(a.Adapter.Available())

	a.Notifier = buildNotifier(c, o.syncNotifications)
	a.Store = store.New(a.Adapter,
		store.WithNotifier(a.Notifier),
		store.WithObserver(a.Metrics),
		store.WithLogger(log.With().Str("component", "store").Logger()),
	)

	a.Verifier = buildVerifier(c)
	a.Tokens = auth.NewTokens(sessionSecret(c), time.Duration(config.GetInt(c, "SESSION_TTL_HOURS", 12))*time.Hour)

	if bucket := config.GetString(c, "S3_BUCKET", ""); bucket != "" {
		uploader, err := services.NewImageUploader(ctx, config.GetString(c, "S3_REGION", ""), bucket,
			config.GetString(c, "S3_PUBLIC_BASE_URL", ""))
		if err != nil {
			logger.Error().Err(err).Msg("Image uploads disabled")
		} else {
			a.Uploader = uploader
		}
	}

	return a, nil
}

// Close releases the local store and the database connection
func (a *App) Close() error {
	return errors.Join(a.Local.Close(), a.Database.Close())
}

func buildNotifier(c map[string]string, synchronous bool) services.Notifier {
	logger := log.With().Str("component", "notifier").Logger()
	sinks := services.FanOut{services.NewLogNotifier(logger)}

	if apiKey := config.GetString(c, "RESEND_API_KEY", ""); apiKey != "" {
		sender, err := services.NewEmailSender(apiKey, config.GetString(c, "RESEND_FROM_EMAIL", ""))
		if err != nil {
			logger.Warn().Err(err).Msg("Email notifications disabled")
		} else {
			sinks = append(sinks, services.NewEmailNotifier(sender, config.GetList(c, "NOTIFY_EMAILS")))
		}
	}

	if sid := config.GetString(c, "TWILIO_ACCOUNT_SID", ""); sid != "" {
		sender, err := services.NewSMSSender(sid, config.GetString(c, "TWILIO_AUTH_TOKEN", ""),
			config.GetString(c, "TWILIO_FROM", ""))
		if err != nil {
			logger.Warn().Err(err).Msg("SMS notifications disabled")
		} else {
			sinks = append(sinks, services.NewSMSNotifier(sender, config.GetList(c, "NOTIFY_PHONES")))
		}
	}

	if synchronous {
		return sinks
	}
	return services.NewBackground(sinks, config.GetSeconds(c, "NOTIFY_TIMEOUT_SECONDS", 10))
}

// buildVerifier chains every configured credential source. Without ADMIN_USERS or
// ADMIN_PASSWORD_HASHES the built-in studio accounts are used.
func buildVerifier(c map[string]string) auth.Verifier {
	logger := log.With().Str("component", "auth").Logger()

	users := config.GetPairs(c, "ADMIN_USERS", ",")
	hashes := config.GetPairs(c, "ADMIN_PASSWORD_HASHES", ";")
	if len(users) == 0 && len(hashes) == 0 {
		logger.Warn().Msg("ADMIN_USERS not set, using the built-in admin accounts")
		users = auth.DefaultUsers()
	}

	var chain auth.Multi
	if len(users) > 0 {
		chain = append(chain, auth.NewStaticVerifier(users))
	}
	if len(hashes) > 0 {
		hashed := auth.NewArgon2Verifier(hashes)
		for user, err := range hashed.Rejected() {
			logger.Error().Err(err).Str("username", user).Msg("Ignoring unusable entry in ADMIN_PASSWORD_HASHES")
		}
		chain = append(chain, hashed)
	}
	if projectID := config.GetString(c, "DESCOPE_PROJECT_ID", ""); projectID != "" {
		descope, err := auth.NewDescopeVerifier(projectID, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Descope sign-in disabled")
		} else {
			chain = append(chain, descope)
		}
	}
	return chain
}

func sessionSecret(c map[string]string) string {
	if secret := config.GetString(c, "JWT_SECRET", ""); secret != "" {
		return secret
	}
	log.Warn().Msg("JWT_SECRET not set, sessions will not survive a restart")
	return uuid.NewString() + uuid.NewString()
}
