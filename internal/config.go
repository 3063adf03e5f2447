package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/search"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Watch   WatchConfig       `yaml:"watch"`
	Catalog CatalogConfig     `yaml:"catalog"`
	Search  SearchConfig      `yaml:"search"`
	Indexer IndexerConfig     `yaml:"indexer"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := c.Catalog.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.Indexer.Validate(); err != nil {
		return fmt.Errorf("indexer: %w", err)
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

// WatchConfig lists the watched roots and tunes the change queue.
type WatchConfig struct {
	Roots           []string      `yaml:"roots"`
	QueueSize       int           `yaml:"queue_size"`
	ReconcileDelay  time.Duration `yaml:"reconcile_delay"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Roots, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.QueueSize, validation.Min(1)),
		validation.Field(&c.ReconcileDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

// CatalogConfig holds the SQLite catalog location.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SearchConfig holds the search index location and tuning.
type SearchConfig struct {
	Path            string        `yaml:"path"`
	ContentCap      int           `yaml:"content_cap"`
	CommitEvery     int           `yaml:"commit_every"`
	CommitTimeout   time.Duration `yaml:"commit_timeout"`
	SnippetLength   int           `yaml:"snippet_length"`
	DefaultPageSize int           `yaml:"default_page_size"`
	MaxPageSize     int           `yaml:"max_page_size"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.ContentCap, validation.Min(0)),
		validation.Field(&c.CommitEvery, validation.Min(0)),
		validation.Field(&c.SnippetLength, validation.Min(0)),
		validation.Field(&c.DefaultPageSize, validation.Min(0)),
		validation.Field(&c.MaxPageSize, validation.Min(0), validation.Max(models.MaxPageSize)),
	); err != nil {
		return err
	}
	if c.MaxPageSize > 0 && c.DefaultPageSize > c.MaxPageSize {
		return errors.New("default_page_size must not exceed max_page_size")
	}
	return nil
}

// EngineConfig converts the section to search engine settings.
func (c *SearchConfig) EngineConfig() search.Config {
	return search.Config{
		ContentCap:    c.ContentCap,
		CommitEvery:   c.CommitEvery,
		CommitTimeout: c.CommitTimeout,
		SnippetLength: c.SnippetLength,
	}
}

// IndexerConfig tunes the indexing pipeline.
type IndexerConfig struct {
	Concurrency   int  `yaml:"concurrency"`
	SkipUnchanged bool `yaml:"skip_unchanged"`
}

// Validate validates the indexer configuration.
func (c *IndexerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Concurrency, validation.Min(0), validation.Max(64)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
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
		Watch: WatchConfig{
			Roots:           []string{"./data"},
			QueueSize:       4096,
			ReconcileDelay:  200 * time.Millisecond,
			ShutdownTimeout: 10 * time.Second,
		},
		Catalog: CatalogConfig{
			Path: "./sowilo.db",
		},
		Search: SearchConfig{
			Path:            "./sowilo.bleve",
			ContentCap:      search.DefaultContentCap,
			CommitEvery:     search.DefaultCommitEvery,
			CommitTimeout:   search.DefaultCommitTimeout,
			SnippetLength:   search.DefaultSnippetLength,
			DefaultPageSize: models.DefaultPageSize,
			MaxPageSize:     models.MaxPageSize,
		},
		Indexer: IndexerConfig{
			Concurrency:   4,
			SkipUnchanged: true,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
