// Package config reads the authgate settings from the environment. A .env file in the
// working directory (or its parent) is loaded first; variables already set win.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

// SessionStoreType selects where server-side session state lives.
type SessionStoreType string

const (
	SessionStoreRedis    SessionStoreType = "redis"
	SessionStoreDatabase SessionStoreType = "database"
)

const (
	defaultPort          = 3000
	defaultCookieName    = "authgate"
	defaultSessionMaxAge = 7 * 24 * 60 // minutes
	defaultBcryptCost    = 12
	defaultSweepSpec     = "@every 10m"

	// Only accepted while AUTHGATE_DEBUG=true.
	debugSessionSecret = "super-secret-development-key-000"
)

// LoadEnv loads .env from the working directory, falling back to the parent directory.
func LoadEnv() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}
	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}
	_ = godotenv.Load(filepath.Join(parent, ".env"))
}

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("AUTHGATE_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("AUTHGATE_DEBUG") == "true"
}

func GetDBFolderPath() string {
	dbFolderPath := os.Getenv("AUTHGATE_DB_FOLDER")
	if dbFolderPath == "" {
		dbFolderPath = "/etc/authgate"
	}
	return dbFolderPath
}

func GetDBPath() string {
	return fmt.Sprintf("%s/%s.db", GetDBFolderPath(), GetName())
}

// GetLogFolder returns the folder for the file log backend. Empty disables file logging.
func GetLogFolder() string {
	return os.Getenv("AUTHGATE_LOG_FOLDER")
}

func GetListen() string {
	return os.Getenv("AUTHGATE_LISTEN")
}

func GetPort() int {
	return getEnvAsInt("AUTHGATE_PORT", defaultPort)
}

// GetDomain returns the only host name the server answers to; empty accepts any.
func GetDomain() string {
	return os.Getenv("AUTHGATE_DOMAIN")
}

// GetCertFile and GetKeyFile name the TLS key pair. When both load, the server speaks
// HTTPS and redirects plain HTTP on the same port.
func GetCertFile() string {
	return os.Getenv("AUTHGATE_CERT_FILE")
}

func GetKeyFile() string {
	return os.Getenv("AUTHGATE_KEY_FILE")
}

// GetSessionSecret returns the key used to sign session cookies.
func GetSessionSecret() string {
	secret := os.Getenv("AUTHGATE_SESSION_SECRET")
	if secret == "" && IsDebug() {
		return debugSessionSecret
	}
	return secret
}

func GetSessionStore() SessionStoreType {
	switch SessionStoreType(strings.ToLower(os.Getenv("AUTHGATE_SESSION_STORE"))) {
	case SessionStoreDatabase:
		return SessionStoreDatabase
	default:
		return SessionStoreRedis
	}
}

// GetRedisAddr returns the external Redis address; empty means embedded Redis.
func GetRedisAddr() string {
	return os.Getenv("AUTHGATE_REDIS_ADDR")
}

func GetRedisPassword() string {
	return os.Getenv("AUTHGATE_REDIS_PASSWORD")
}

func GetSessionCookieName() string {
	return getEnv("AUTHGATE_SESSION_COOKIE", defaultCookieName)
}

// GetSessionMaxAge returns the cookie and record lifetime in minutes.
func GetSessionMaxAge() int {
	return getEnvAsInt("AUTHGATE_SESSION_MAX_AGE", defaultSessionMaxAge)
}

func IsCookieSecure() bool {
	return os.Getenv("AUTHGATE_COOKIE_SECURE") == "true"
}

func GetBcryptCost() int {
	return getEnvAsInt("AUTHGATE_BCRYPT_COST", defaultBcryptCost)
}

// GetSeedFile returns the optional YAML/JSON file with accounts created at startup.
func GetSeedFile() string {
	return os.Getenv("AUTHGATE_SEED_FILE")
}

// GetSessionSweepSpec returns the cron spec of the expired session sweep.
func GetSessionSweepSpec() string {
	return getEnv("AUTHGATE_SESSION_SWEEP", defaultSweepSpec)
}

// Validate checks the settings that would otherwise fail late or silently.
func Validate() error {
	secret := GetSessionSecret()
	if secret == "" {
		return fmt.Errorf("AUTHGATE_SESSION_SECRET is required")
	}
	if len(secret) < 32 {
		return fmt.Errorf("AUTHGATE_SESSION_SECRET must be at least 32 bytes")
	}
	if port := GetPort(); port <= 0 || port > 65535 {
		return fmt.Errorf("AUTHGATE_PORT is not a valid port: %d", port)
	}
	if cost := GetBcryptCost(); cost < 4 || cost > 31 {
		return fmt.Errorf("AUTHGATE_BCRYPT_COST must be between 4 and 31, got %d", cost)
	}
	if (GetCertFile() == "") != (GetKeyFile() == "") {
		return fmt.Errorf("AUTHGATE_CERT_FILE and AUTHGATE_KEY_FILE must be set together")
	}
	if GetSessionMaxAge() <= 0 {
		return fmt.Errorf("AUTHGATE_SESSION_MAX_AGE must be positive")
	}
	return GetDatabaseConfig().ValidateConfig()
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
