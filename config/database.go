package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type DatabaseType string

const (
	DatabaseTypeSQLite     DatabaseType = "sqlite"
	DatabaseTypePostgreSQL DatabaseType = "postgres"
)

// DatabaseConfig selects the gorm dialect and its connection settings.
type DatabaseConfig struct {
	Type     DatabaseType
	SQLite   SQLiteConfig
	Postgres PostgresConfig
}

type SQLiteConfig struct {
	Path string
}

// PostgresConfig holds the connection fields. URL, when set, is used as is and the
// other fields are ignored.
type PostgresConfig struct {
	URL      string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
}

// GetDSN returns the data source name for the configured dialect.
func (c *DatabaseConfig) GetDSN() string {
	if c.IsPostgreSQL() {
		return c.Postgres.dsn()
	}
	// busy_timeout makes concurrent writers wait instead of failing with SQLITE_BUSY.
	return c.SQLite.Path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
}

func (p PostgresConfig) dsn() string {
	if p.URL != "" {
		return p.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.Username, p.Password),
		Host:   p.Host + ":" + strconv.Itoa(p.Port),
		Path:   "/" + p.Database,
	}
	q := url.Values{}
	q.Set("sslmode", p.SSLMode)
	q.Set("TimeZone", "UTC")
	u.RawQuery = q.Encode()
	return u.String()
}

// GetDatabaseConfig builds the database configuration from the environment.
// SQLite under GetDBFolderPath is the default.
func GetDatabaseConfig() *DatabaseConfig {
	c := &DatabaseConfig{
		Type:   DatabaseTypeSQLite,
		SQLite: SQLiteConfig{Path: GetDBPath()},
		Postgres: PostgresConfig{
			URL:      os.Getenv("AUTHGATE_DATABASE_URL"),
			Host:     getEnv("AUTHGATE_PG_HOST", "localhost"),
			Port:     getEnvAsInt("AUTHGATE_PG_PORT", 5432),
			Database: getEnv("AUTHGATE_PG_DATABASE", "authgate"),
			Username: getEnv("AUTHGATE_PG_USER", "authgate"),
			Password: os.Getenv("AUTHGATE_PG_PASSWORD"),
			SSLMode:  getEnv("AUTHGATE_PG_SSLMODE", "disable"),
		},
	}
	if strings.ToLower(os.Getenv("AUTHGATE_DB_TYPE")) == string(DatabaseTypePostgreSQL) {
		c.Type = DatabaseTypePostgreSQL
	}
	return c
}

// ValidateConfig reports every invalid field at once.
func (c *DatabaseConfig) ValidateConfig() error {
	var errs []error
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLite.Path == "" {
			errs = append(errs, errors.New("SQLite path cannot be empty"))
		}
	case DatabaseTypePostgreSQL:
		if c.Postgres.URL != "" {
			break
		}
		if c.Postgres.Host == "" {
			errs = append(errs, errors.New("PostgreSQL host cannot be empty"))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, errors.New("PostgreSQL database name cannot be empty"))
		}
		if c.Postgres.Username == "" {
			errs = append(errs, errors.New("PostgreSQL username cannot be empty"))
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Errorf("PostgreSQL port must be between 1 and 65535, got %d", c.Postgres.Port))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database type: %s", c.Type))
	}
	return errors.Join(errs...)
}

func (c *DatabaseConfig) IsPostgreSQL() bool {
	return c.Type == DatabaseTypePostgreSQL
}

func (c *DatabaseConfig) IsSQLite() bool {
	return c.Type == DatabaseTypeSQLite
}

// EnsureDirectoryExists creates the folder of the SQLite file.
func (c *DatabaseConfig) EnsureDirectoryExists() error {
	if !c.IsSQLite() {
		return nil
	}
	return os.MkdirAll(filepath.Dir(c.SQLite.Path), 0o750)
}
