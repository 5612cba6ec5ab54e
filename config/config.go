// Package config loads the store's database connection settings from the
// environment.
//
// Grounded on original_source/common/src/config.rs's Database struct and
// env var table. Two transcription bugs present there — min_conn reading
// TRUSTD_DB_SSLMODE instead of TRUSTD_DB_MIN_CONN, and connect_timeout's
// parse failure falling back to the idle_timeout default instead of its
// own — are deliberately NOT reproduced here; see SPEC_FULL.md's Open
// Questions resolution.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// SSLMode is the PostgreSQL connection SSL mode.
type SSLMode string

const (
	SSLDisable    SSLMode = "disable"
	SSLAllow      SSLMode = "allow"
	SSLPrefer     SSLMode = "prefer"
	SSLRequire    SSLMode = "require"
	SSLVerifyCA   SSLMode = "verify-ca"
	SSLVerifyFull SSLMode = "verify-full"
)

func parseSSLMode(s string) (SSLMode, error) {
	switch SSLMode(s) {
	case SSLDisable, SSLAllow, SSLPrefer, SSLRequire, SSLVerifyCA, SSLVerifyFull:
		return SSLMode(s), nil
	default:
		return "", fmt.Errorf("config: invalid sslmode %q", s)
	}
}

// Defaults, named after the original's DB_* constants.
const (
	defaultName           = "trustd"
	defaultUser            = "postgres"
	defaultPassword        = "trustd"
	defaultHost            = "localhost"
	defaultPort            = 5432
	defaultMaxConn         = 75
	defaultMinConn         = 25
	defaultConnectTimeout  = 8 * time.Second
	defaultAcquireTimeout  = 8 * time.Second
	defaultMaxLifetime     = 7200 * time.Second
	defaultIdleTimeout     = 600 * time.Second
	defaultSSLMode         = SSLPrefer
)

// Env var names, after the original's ENV_DB_* table.
const (
	envURL            = "TRUSTD_DB_URL"
	envName           = "TRUSTD_DB_NAME"
	envUser           = "TRUSTD_DB_USER"
	envPassword       = "TRUSTD_DB_PASSWORD"
	envHost           = "TRUSTD_DB_HOST"
	envPort           = "TRUSTD_DB_PORT"
	envMaxConn        = "TRUSTD_DB_MAX_CONN"
	envMinConn        = "TRUSTD_DB_MIN_CONN"
	envConnectTimeout = "TRUSTD_DB_CONNECT_TIMEOUT"
	envAcquireTimeout = "TRUSTD_DB_ACQUIRE_TIMEOUT"
	envMaxLifetime    = "TRUSTD_DB_MAX_LIFETIME"
	envIdleTimeout    = "TRUSTD_DB_IDLE_TIMEOUT"
	envSSLMode        = "TRUSTD_DB_SSLMODE"
)

// Database holds connection settings for the Postgres store.
type Database struct {
	URL            string // if set, overrides every other field
	Username       string
	Password       string
	Host           string
	Port           int
	Name           string
	MaxConn        int
	MinConn        int
	SSLMode        SSLMode
	ConnectTimeout time.Duration
	AcquireTimeout time.Duration
	MaxLifetime    time.Duration
	IdleTimeout    time.Duration
}

// FromEnv loads a Database from the environment, falling back to defaults
// for anything unset or unparseable, except SSLMode which fails loudly on a
// malformed (but present) value. URL is taken verbatim and not validated.
func FromEnv() (Database, error) {
	d := Database{
		URL:            os.Getenv(envURL),
		Username:       envOr(envUser, defaultUser),
		Password:       envOr(envPassword, defaultPassword),
		Host:           envOr(envHost, defaultHost),
		Port:           envInt(envPort, defaultPort),
		Name:           envOr(envName, defaultName),
		MaxConn:        envInt(envMaxConn, defaultMaxConn),
		MinConn:        envInt(envMinConn, defaultMinConn),
		ConnectTimeout: envDuration(envConnectTimeout, defaultConnectTimeout),
		AcquireTimeout: envDuration(envAcquireTimeout, defaultAcquireTimeout),
		MaxLifetime:    envDuration(envMaxLifetime, defaultMaxLifetime),
		IdleTimeout:    envDuration(envIdleTimeout, defaultIdleTimeout),
		SSLMode:        defaultSSLMode,
	}
	if s, ok := os.LookupEnv(envSSLMode); ok {
		mode, err := parseSSLMode(s)
		if err != nil {
			return Database{}, err
		}
		d.SSLMode = mode
	}
	return d, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(n) * time.Second
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// URLString returns the connection string for this Database, using URL
// verbatim if set.
func (d Database) URLString() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// Ambient process settings the original doesn't model (it only configures
// the database): where source documents land on disk, how large an upload
// may decompress to, and the HTTP listen address. Named and defaulted in
// the same envOr/envInt style as Database's fields above.
const (
	defaultListenAddr  = ":8080"
	defaultStorageDir  = "/var/lib/trustd/documents"
	defaultUploadLimit = 64 << 20 // 64MiB

	envListenAddr  = "TRUSTD_LISTEN_ADDR"
	envStorageDir  = "TRUSTD_STORAGE_DIR"
	envUploadLimit = "TRUSTD_UPLOAD_LIMIT"
)

// Server holds the non-database process settings.
type Server struct {
	ListenAddr  string
	StorageDir  string
	UploadLimit int64
}

// ServerFromEnv loads a Server from the environment, falling back to
// defaults for anything unset or unparseable.
func ServerFromEnv() Server {
	return Server{
		ListenAddr:  envOr(envListenAddr, defaultListenAddr),
		StorageDir:  envOr(envStorageDir, defaultStorageDir),
		UploadLimit: int64(envInt(envUploadLimit, defaultUploadLimit)),
	}
}
