package config

import (
	"fmt"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend. location is the connection
// string for postgres and the file or directory path for leveldb and sqlite.
func WithDatabase(dbType, location string) Option {
	return func(c *ServerConfig) error {
		switch dbType {
		case DatabaseMemory:
			c.DatabaseURL, c.DatabasePath = "", ""
		case DatabaseLevelDB, DatabaseSQLite:
			if location == "" {
				return fmt.Errorf("%s requires a path", dbType)
			}
			c.DatabasePath = location
		case DatabasePostgres:
			if location == "" {
				return fmt.Errorf("postgres requires a database URL")
			}
			c.DatabaseURL = location
		default:
			return fmt.Errorf("database type must be memory, leveldb, sqlite or postgres, got: %s", dbType)
		}
		c.DatabaseType = dbType
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithoutStorage disables publishing and downloads
func WithoutStorage() Option {
	return func(c *ServerConfig) error {
		c.StorageType = StorageNone
		return nil
	}
}

// WithMemoryStorage keeps published content in memory
func WithMemoryStorage() Option {
	return func(c *ServerConfig) error {
		c.StorageType = StorageMemory
		return nil
	}
}

// WithFilesystemStorage stores published content under baseDir
func WithFilesystemStorage(baseDir, urlPrefix string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.StorageType = StorageFS
		c.FS = FSConfig{BaseDir: baseDir, URLPrefix: urlPrefix}
		return nil
	}
}

// WithS3Storage stores published content in an S3 bucket
func WithS3Storage(bucket, region string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("s3 bucket cannot be empty")
		}
		c.StorageType = StorageS3
		c.S3.Bucket = bucket
		if region != "" {
			c.S3.Region = region
		}
		return nil
	}
}

// WithS3Endpoint points the S3 client at an S3-compatible service such as MinIO
func WithS3Endpoint(endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		c.S3.Endpoint = endpoint
		c.S3.UsePathStyle = usePathStyle
		return nil
	}
}

// WithJWTSecret sets the HS256 secret used to verify bearer tokens
func WithJWTSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.JWTSecret = secret
		return nil
	}
}

// WithRejectDuplicateIDs makes re-registration and payment ID reuse fail
func WithRejectDuplicateIDs(reject bool) Option {
	return func(c *ServerConfig) error {
		c.RejectDuplicateIDs = reject
		return nil
	}
}

// WithEventLogging enables or disables event logging
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}

// WithMetrics enables or disables the Prometheus event sink
func WithMetrics(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableMetrics = enabled
		return nil
	}
}
