package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-chi/jwtauth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-ledger/pkg/ledger"
	"github.com/tendant/content-ledger/pkg/ledger/metrics"
	repoleveldb "github.com/tendant/content-ledger/pkg/ledger/repo/leveldb"
	"github.com/tendant/content-ledger/pkg/ledger/repo/memory"
	repopg "github.com/tendant/content-ledger/pkg/ledger/repo/postgres"
	reposqlite "github.com/tendant/content-ledger/pkg/ledger/repo/sqlite"
	fsstorage "github.com/tendant/content-ledger/pkg/ledger/storage/fs"
	memorystorage "github.com/tendant/content-ledger/pkg/ledger/storage/memory"
	s3storage "github.com/tendant/content-ledger/pkg/ledger/storage/s3"
)

// Supported database types
const (
	DatabaseMemory   = "memory"
	DatabaseLevelDB  = "leveldb"
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
)

// Supported storage types
const (
	StorageNone   = "none"
	StorageMemory = "memory"
	StorageFS     = "fs"
	StorageS3     = "s3"
)

// developmentJWTSecret signs tokens outside production when JWT_SECRET is unset
const developmentJWTSecret = "development-only-jwt-secret"

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:               "8080",
		Environment:        "development",
		DatabaseType:       DatabaseMemory,
		DBAutoMigrate:      true,
		StorageType:        StorageMemory,
		S3:                 S3Config{Region: "us-east-1", PresignDuration: 3600},
		EnableEventLogging: true,
		EnableMetrics:      true,
	}
}

// ServerConfig represents server configuration for the content ledger
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseType  string // memory, leveldb, sqlite, postgres
	DatabaseURL   string // postgres connection string
	DatabasePath  string // leveldb directory or sqlite file
	DBSchema      string // optional postgres search_path
	DBAutoMigrate bool   // create postgres tables on startup

	// Storage configuration
	StorageType string // none, memory, fs, s3
	FS          FSConfig
	S3          S3Config

	// Authentication
	JWTSecret string

	// Ledger behaviour
	RejectDuplicateIDs bool
	EnableEventLogging bool
	EnableMetrics      bool
}

// FSConfig configures the filesystem blob store
type FSConfig struct {
	BaseDir   string
	URLPrefix string
}

// S3Config configures the S3 blob store
type S3Config struct {
	Bucket                 string
	Region                 string
	AccessKeyID            string
	SecretAccessKey        string
	Endpoint               string
	UsePathStyle           bool
	PresignDuration        int
	CreateBucketIfNotExist bool
}

// IsProduction reports whether the server runs in production mode
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.DatabaseType {
	case DatabaseMemory:
	case DatabaseLevelDB, DatabaseSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("database path is required when using %s", c.DatabaseType)
		}
	case DatabasePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when using postgres")
		}
	default:
		return fmt.Errorf("database_type must be one of memory, leveldb, sqlite, postgres, got %q", c.DatabaseType)
	}

	switch c.StorageType {
	case StorageNone, StorageMemory:
	case StorageFS:
		if c.FS.BaseDir == "" {
			return errors.New("filesystem base directory is required when using fs storage")
		}
	case StorageS3:
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket is required when using s3 storage")
		}
	default:
		return fmt.Errorf("storage_type must be one of none, memory, fs, s3, got %q", c.StorageType)
	}

	if c.IsProduction() && c.JWTSecret == "" {
		return errors.New("jwt_secret is required in production")
	}

	return nil
}

// Runtime bundles a service with the resources backing it
type Runtime struct {
	Service    ledger.Service
	Repository ledger.Repository
	BlobStore  ledger.BlobStore
	TokenAuth  *jwtauth.JWTAuth
	Metrics    *metrics.Metrics // nil unless metrics are enabled
}

// Close releases the repository
func (r *Runtime) Close() error {
	return r.Repository.Close()
}

// Build wires the repository, blob store, event sinks and token verifier
// described by the configuration.
func (c *ServerConfig) Build(logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	repo, err := c.BuildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	store, err := c.buildBlobStore()
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to build storage backend %s: %w", c.StorageType, err)
	}

	rt := &Runtime{
		Repository: repo,
		BlobStore:  store,
		TokenAuth:  c.TokenAuth(logger),
	}

	var sinks []ledger.EventSink
	if c.EnableEventLogging {
		sinks = append(sinks, ledger.NewLogEventSink(logger))
	}
	if c.EnableMetrics {
		rt.Metrics = metrics.New()
		sinks = append(sinks, rt.Metrics)
	}

	options := []ledger.Option{
		ledger.WithRepository(repo),
		ledger.WithLogger(logger),
		ledger.WithEventSink(ledger.NewMultiEventSink(sinks...)),
		ledger.WithRejectDuplicateIDs(c.RejectDuplicateIDs),
	}
	if store != nil {
		options = append(options, ledger.WithBlobStore(store))
	}

	svc, err := ledger.New(options...)
	if err != nil {
		repo.Close()
		return nil, err
	}
	rt.Service = svc

	if rt.Metrics != nil {
		rt.Metrics.TrackStats(svc)
	}
	return rt, nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService() (ledger.Service, error) {
	rt, err := c.Build(nil)
	if err != nil {
		return nil, err
	}
	return rt.Service, nil
}

// TokenAuth returns the HS256 verifier for bearer tokens
func (c *ServerConfig) TokenAuth(logger *slog.Logger) *jwtauth.JWTAuth {
	secret := c.JWTSecret
	if secret == "" {
		if logger != nil {
			logger.Warn("JWT_SECRET not set, using insecure development secret")
		}
		secret = developmentJWTSecret
	}
	return jwtauth.New("HS256", []byte(secret), nil)
}

// BuildRepository opens the repository described by the configuration
func (c *ServerConfig) BuildRepository() (ledger.Repository, error) {
	switch c.DatabaseType {
	case DatabaseMemory:
		return memory.New(), nil
	case DatabaseLevelDB:
		return repoleveldb.Open(c.DatabasePath)
	case DatabaseSQLite:
		return reposqlite.Open(c.DatabasePath)
	case DatabasePostgres:
		return c.buildPostgres()
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func (c *ServerConfig) buildPostgres() (ledger.Repository, error) {
	if c.DatabaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema := c.DBSchema; schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if c.DBAutoMigrate {
		if err := repopg.Migrate(context.Background(), pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return repopg.NewWithPool(pool), nil
}

func (c *ServerConfig) buildBlobStore() (ledger.BlobStore, error) {
	switch c.StorageType {
	case StorageNone:
		return nil, nil
	case StorageMemory:
		return memorystorage.New(), nil
	case StorageFS:
		return fsstorage.New(fsstorage.Config{
			BaseDir:   c.FS.BaseDir,
			URLPrefix: c.FS.URLPrefix,
		})
	case StorageS3:
		return s3storage.New(s3storage.Config{
			Bucket:                 c.S3.Bucket,
			Region:                 c.S3.Region,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			PresignDuration:        c.S3.PresignDuration,
			CreateBucketIfNotExist: c.S3.CreateBucketIfNotExist,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.StorageType)
	}
}
