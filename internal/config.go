package internal

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/whatday/internal/highlight"
	"github.com/starford/whatday/internal/locale"
	"github.com/starford/whatday/internal/scanner"
	"github.com/starford/whatday/internal/schedule"
	"github.com/starford/whatday/internal/watch"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig  `yaml:"app"`
	Pages     PagesConfig        `yaml:"pages"`
	SQLite    SQLiteConfig       `yaml:"sqlite"`
	Auth      AuthConfig         `yaml:"auth"`
	Highlight highlight.Settings `yaml:"highlight"`
	Scan      ScanConfig         `yaml:"scan"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Pages.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Highlight.Validate(); err != nil {
		return fmt.Errorf("highlight: %w", err)
	}
	return c.Scan.Validate()
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

// PagesConfig holds the path to the page directory.
type PagesConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the pages configuration.
func (c *PagesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
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

// ScanConfig tunes highlight passes.
type ScanConfig struct {
	BatchSize   int           `yaml:"batch_size"`
	MaxNodes    int           `yaml:"max_nodes"`
	Strategy    string        `yaml:"strategy"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	StepBudget  time.Duration `yaml:"step_budget"`
	Debounce    time.Duration `yaml:"debounce"`
	// AmbientLocale is used for pages without a language. Defaults to $LANG.
	AmbientLocale string `yaml:"ambient_locale"`
}

// Validate validates the scan configuration.
func (c *ScanConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BatchSize, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxNodes, validation.Min(0)),
		validation.Field(&c.Strategy, validation.Required, validation.In(schedule.Idle, schedule.Timer)),
		validation.Field(&c.IdleTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.StepBudget, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Debounce, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.AmbientLocale, validation.Length(0, 35)),
	)
}

// Scheduler builds the scheduler described by c.
func (c *ScanConfig) Scheduler() (*schedule.Scheduler, error) {
	strategy, err := schedule.NewStrategy(c.Strategy)
	if err != nil {
		return nil, err
	}
	s := schedule.New(strategy)
	s.BatchSize = c.BatchSize
	s.StepBudget = c.StepBudget
	s.IdleTimeout = c.IdleTimeout
	return s, nil
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
		Pages: PagesConfig{
			Path: "./pages",
		},
		SQLite: SQLiteConfig{
			Path: "./whatday.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Highlight: highlight.DefaultSettings(),
		Scan: ScanConfig{
			BatchSize:     schedule.DefaultBatchSize,
			MaxNodes:      scanner.DefaultMaxNodes,
			Strategy:      schedule.Idle,
			IdleTimeout:   schedule.DefaultIdleTimeout,
			StepBudget:    schedule.DefaultStepBudget,
			Debounce:      watch.DefaultQuiet,
			AmbientLocale: locale.FromEnv(os.Getenv("LANG")),
		},
	}
}
