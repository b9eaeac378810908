// Package config provides functionality for managing configuration options
// for the portal client and the development API server.
//
// Values are resolved in this order, later sources winning: built-in
// defaults, the optional JSON config file, a .env file, process environment
// variables. Command-line flags are applied on top by the cmd packages.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ClientOptions holds the configuration of the portal client.
type ClientOptions struct {
	// APIURL is the base URL of the remote campus API, read once at startup.
	APIURL string `json:"api_url" env:"PORTAL_API_URL"`

	// StateDir holds the credential file and the client log.
	StateDir string `json:"state_dir" env:"PORTAL_STATE_DIR"`

	// CAFile is an optional PEM bundle trusted for TLS connections to the API.
	CAFile string `json:"ca_file" env:"PORTAL_CA_FILE"`

	// LogLevel is the zap level for the client log.
	LogLevel string `json:"log_level" env:"PORTAL_LOG_LEVEL"`

	// PollInterval is how often the unread notification count is refreshed.
	PollInterval time.Duration `json:"-" env:"PORTAL_POLL_INTERVAL"`

	// Timeout bounds every HTTP request to the API.
	Timeout time.Duration `json:"-" env:"PORTAL_TIMEOUT"`
}

// ServerOptions holds the configuration of the development API server.
type ServerOptions struct {
	// Address defines the server's listening address (ip:port).
	Address string `json:"address" env:"SERVER_ADDRESS"`

	// DatabaseDSN holds the PostgreSQL connection string.
	DatabaseDSN string `json:"database_dsn" env:"DATABASE_DSN"`

	// JWTSecret signs issued access tokens.
	JWTSecret string `json:"jwt_secret" env:"JWT_SECRET"`

	// LogLevel is the zap level for the server log.
	LogLevel string `json:"log_level" env:"LOG_LEVEL"`

	// TokenTTL is the lifetime of an issued access token.
	TokenTTL time.Duration `json:"-" env:"TOKEN_TTL"`

	// CleanupInterval is how often expired token records are purged.
	CleanupInterval time.Duration `json:"-" env:"CLEANUP_INTERVAL"`

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string `json:"tls_cert_file" env:"TLS_CERT_FILE"`
	TLSKeyFile  string `json:"tls_key_file" env:"TLS_KEY_FILE"`

	// SeedAdminEmail and SeedAdminPassword create an admin account at
	// startup when no user with that email exists.
	SeedAdminEmail    string `json:"seed_admin_email" env:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `json:"-" env:"SEED_ADMIN_PASSWORD"`
}

// DefaultClientOptions returns the client defaults before any file or
// environment overrides.
func DefaultClientOptions() *ClientOptions {
	return &ClientOptions{
		APIURL:       "http://localhost:8080",
		StateDir:     defaultStateDir(),
		LogLevel:     "info",
		PollInterval: time.Minute,
		Timeout:      10 * time.Second,
	}
}

// DefaultServerOptions returns the server defaults before any file or
// environment overrides.
func DefaultServerOptions() *ServerOptions {
	return &ServerOptions{
		Address:         "localhost:8080",
		LogLevel:        "info",
		TokenTTL:        24 * time.Hour,
		CleanupInterval: time.Hour,
	}
}

// LoadClient resolves the client configuration. configPath may be empty; a
// missing file is not an error.
func LoadClient(configPath string) (*ClientOptions, error) {
	opts := DefaultClientOptions()
	if err := load(opts, configPath); err != nil {
		return nil, err
	}
	if opts.APIURL == "" {
		return nil, errors.New("api url must not be empty")
	}
	return opts, nil
}

// LoadServer resolves the server configuration. configPath may be empty; a
// missing file is not an error.
func LoadServer(configPath string) (*ServerOptions, error) {
	opts := DefaultServerOptions()
	if err := load(opts, configPath); err != nil {
		return nil, err
	}
	if opts.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}
	if (opts.TLSCertFile == "") != (opts.TLSKeyFile == "") {
		return nil, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	return opts, nil
}

// TLSEnabled reports whether the server should serve HTTPS.
func (o *ServerOptions) TLSEnabled() bool {
	return o.TLSCertFile != "" && o.TLSKeyFile != ""
}

// CredentialsPath is the file holding the persisted bearer token.
func (o *ClientOptions) CredentialsPath() string {
	return filepath.Join(o.StateDir, "credentials.json")
}

// LogPath is the file the interactive client logs to.
func (o *ClientOptions) LogPath() string {
	return filepath.Join(o.StateDir, "portal.log")
}

func load(target any, configPath string) error {
	// CONFIG overrides the flag value, as for the server binary.
	if p := os.Getenv("CONFIG"); p != "" {
		configPath = p
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, target); err != nil {
				return fmt.Errorf("parse config file %s: %w", configPath, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return fmt.Errorf("read config file %s: %w", configPath, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".campusportal"
	}
	return filepath.Join(dir, "campusportal")
}
