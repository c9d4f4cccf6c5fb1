package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/devduo/studio-backend/config"
	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// Driver names the hosted backend selected by DB_TYPE
type Driver string

const (
	DriverNone     Driver = ""
	DriverREST     Driver = "rest"
	DriverSupabase Driver = "supa"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite"
)

// ProjectRepository is the remote side of project persistence. Implementations return rows with
// backend-managed ids and snake_case timestamps.
type ProjectRepository interface {
	FindAll(ctx context.Context) ([]models.Project, error)
	Count(ctx context.Context) (int64, error)
	Insert(ctx context.Context, in models.ProjectInput) (models.Project, error)
	InsertMany(ctx context.Context, inputs []models.ProjectInput) error
	Update(ctx context.Context, p models.Project) (models.Project, error)
	Delete(ctx context.Context, id string) error
}

type Config struct {
	Driver Driver

	// PostgREST
	SupabaseURL string
	AnonKey     string

	// SQL
	DSN        string
	ReplicaDSN string
	SQLitePath string
	Supabase   SupabaseDB

	RequestTimeout time.Duration
}

// SupabaseDB holds the discrete connection settings used when DB_TYPE=supa and no DSN is given
type SupabaseDB struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
}

func (s SupabaseDB) dsn() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=require",
		s.Host, s.User, s.Password, s.Name, s.Port)
}

// ConfigFrom reads the backend settings out of the config map
func ConfigFrom(c map[string]string) Config {
	return Config{
		Driver:      Driver(strings.ToLower(config.GetString(c, "DB_TYPE", ""))),
		SupabaseURL: strings.TrimSpace(config.GetString(c, "SUPABASE_URL", "")),
		AnonKey:     strings.TrimSpace(config.GetString(c, "SUPABASE_ANON_KEY", "")),
		DSN:         config.GetString(c, "DATABASE_DSN", ""),
		ReplicaDSN:  config.GetString(c, "DB_REPLICA_DSN", ""),
		SQLitePath:  config.GetString(c, "SQLITE_PATH", ""),
		Supabase: SupabaseDB{
			Host:     config.GetString(c, "SUPABASE_DB_HOST", ""),
			User:     config.GetString(c, "SUPABASE_DB_USER", ""),
			Password: config.GetString(c, "SUPABASE_DB_PASSWORD", ""),
			Name:     config.GetString(c, "SUPABASE_DB_NAME", "postgres"),
			Port:     config.GetString(c, "SUPABASE_DB_PORT", "5432"),
		},
		RequestTimeout: config.GetSeconds(c, "REMOTE_TIMEOUT_SECONDS", 15),
	}
}

// Available reports whether the configuration looks usable. It is a syntactic check only and never
// touches the network.
func (c Config) Available() bool {
	switch c.Driver {
	case DriverREST:
		u := strings.ToLower(c.SupabaseURL)
		return strings.HasPrefix(u, "http") && c.AnonKey != ""
	case DriverSupabase:
		if c.DSN != "" {
			return true
		}
		return c.Supabase.Host != "" && c.Supabase.User != "" && c.Supabase.Password != ""
	case DriverPostgres, DriverMySQL:
		return c.DSN != ""
	case DriverSQLite:
		return c.SQLitePath != "" || c.DSN != ""
	default:
		return false
	}
}

func (c Config) primaryDSN() string {
	switch c.Driver {
	case DriverSupabase:
		if c.DSN != "" {
			return c.DSN
		}
		return c.Supabase.dsn()
	case DriverSQLite:
		if c.SQLitePath != "" {
			return c.SQLitePath
		}
	}
	return c.DSN
}

func dialector(driver Driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DriverSupabase, DriverPostgres:
		return postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), nil
	case DriverMySQL:
		return mysql.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, errs.NewConfigError("DB_TYPE", fmt.Errorf("unsupported sql driver %q", driver))
	}
}

// Connect opens a gorm connection for the SQL drivers, registering a read replica when configured
func Connect(cfg Config) (*gorm.DB, error) {
	dial, err := dialector(cfg.Driver, cfg.primaryDSN())
	if err != nil {
		return nil, err
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             10 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dial, &gorm.Config{
		PrepareStmt: false,
		Logger:      newLogger,
	})
	if err != nil {
		return nil, errs.NewDatabaseError("connect to", string(cfg.Driver), err)
	}

	if cfg.ReplicaDSN != "" {
		replica, err := dialector(cfg.Driver, cfg.ReplicaDSN)
		if err != nil {
			return nil, err
		}
		if err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: []gorm.Dialector{replica},
			Policy:   dbresolver.RandomPolicy{},
		})); err != nil {
			return nil, fmt.Errorf("register read replica: %w", err)
		}
	}

	var result int
	if err := db.Raw("SELECT 1").Scan(&result).Error; err != nil {
		return nil, errs.NewDatabaseError("ping", string(cfg.Driver), err)
	}

	return db, nil
}

// Database bundles the project repository with the connection it runs on. db is nil for the
// PostgREST backend.
type Database struct {
	db          *gorm.DB
	projectRepo ProjectRepository
}

// Open builds the remote repository described by cfg. It returns nil without error when the
// configuration is not available, which callers treat as "local only".
func Open(cfg Config) (*Database, error) {
	if !cfg.Available() {
		return nil, nil
	}

	if cfg.Driver == DriverREST {
		return &Database{projectRepo: NewPostgrestRepo(cfg.SupabaseURL, cfg.AnonKey, cfg.RequestTimeout)}, nil
	}

	db, err := Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&projectRow{}); err != nil {
		return nil, errs.NewDatabaseError("migrate", "projects", err)
	}
	return New(db), nil
}

// New wraps an open gorm connection
func New(db *gorm.DB) *Database {
	return &Database{
		db:          db,
		projectRepo: NewProjectRepo(db),
	}
}

func (d *Database) ProjectRepo() ProjectRepository {
	return d.projectRepo
}

// DB returns the gorm handle, or nil for the PostgREST backend
func (d *Database) DB() *gorm.DB {
	return d.db
}

func (d *Database) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
