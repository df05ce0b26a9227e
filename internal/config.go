package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/flownote/internal/capability"
	"github.com/starford/flownote/internal/kv"
	"github.com/starford/flownote/internal/watcher"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig holds the local state and directory settings.
//
// StateDir keeps the handle database, the search index and, by default,
// the local fallback database. FallbackDSN selects the fallback key/value store (see
// kv.BuildFromDSN); empty means a SQLite file under StateDir.
type StorageConfig struct {
	StateDir           string        `yaml:"state_dir"`
	HandleDB           string        `yaml:"handle_db"`
	SearchDB           string        `yaml:"search_db"`
	FallbackDSN        string        `yaml:"fallback_dsn"`
	FallbackQuotaBytes int64         `yaml:"fallback_quota_bytes"`
	SuggestedName      string        `yaml:"suggested_name"`
	PickerBase         string        `yaml:"picker_base"`
	RestoreWait        time.Duration `yaml:"restore_wait"`
	RefreshThrottle    time.Duration `yaml:"refresh_throttle"`
	Watch              bool          `yaml:"watch"`
	WatchDebounce      time.Duration `yaml:"watch_debounce"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.StateDir, validation.Required),
		validation.Field(&c.FallbackQuotaBytes, validation.Min(int64(0))),
		validation.Field(&c.RestoreWait, validation.Min(time.Duration(0))),
		validation.Field(&c.RefreshThrottle, validation.Min(time.Duration(0))),
		validation.Field(&c.WatchDebounce, validation.Min(time.Duration(0))),
	)
}

// HandleDBPath returns the handle database path.
func (c *StorageConfig) HandleDBPath() string {
	if c.HandleDB != "" {
		return c.HandleDB
	}
	return filepath.Join(c.StateDir, "handles.db")
}

// SearchDBPath returns the search index database path.
func (c *StorageConfig) SearchDBPath() string {
	if c.SearchDB != "" {
		return c.SearchDB
	}
	return filepath.Join(c.StateDir, "search.db")
}

// FallbackStoreDSN returns the DSN of the fallback key/value store.
func (c *StorageConfig) FallbackStoreDSN() string {
	if c.FallbackDSN != "" {
		return c.FallbackDSN
	}
	return "sqlite:" + filepath.Join(c.StateDir, "local.db")
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			StateDir:           "./.flownote",
			FallbackQuotaBytes: kv.DefaultQuota,
			SuggestedName:      "flownote",
			RestoreWait:        capability.DefaultRestoreWait,
			RefreshThrottle:    250 * time.Millisecond,
			Watch:              true,
			WatchDebounce:      watcher.DefaultDebounce,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
