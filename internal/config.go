package internal

import (
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Taxonomy TaxonomyConfig    `yaml:"taxonomy"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
	Browser  BrowserConfig     `yaml:"browser"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Taxonomy.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Browser.Validate()
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

// TaxonomyConfig locates the ontology source and sets how the tree is presented.
type TaxonomyConfig struct {
	Dir  string `yaml:"dir"`
	File string `yaml:"file"`
	// SkipCategories are shown as pass-through nodes: their children appear in their place.
	SkipCategories []string `yaml:"skip_categories"`
	// GenerationTask, when non-zero, adds the annotate call to action to detail panels.
	GenerationTask int `yaml:"generation_task"`
}

// Validate validates the taxonomy configuration.
func (c *TaxonomyConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.File, validation.Required, validation.By(relativeFile)),
		validation.Field(&c.GenerationTask, validation.Min(0)),
	)
}

func relativeFile(value any) error {
	s, _ := value.(string)
	if filepath.IsAbs(s) || !filepath.IsLocal(s) {
		return fmt.Errorf("must be a path inside the taxonomy dir")
	}
	return nil
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
	// Normalise empty mode to "disabled" for backward compatibility.
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

// BrowserConfig configures the terminal explorer and the locate command.
type BrowserConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
	// Animation is the duration of expand, collapse and panel transitions.
	Animation time.Duration `yaml:"animation"`
	// DetailRate caps detail panel fetches per second; 0 disables the limit.
	DetailRate float64 `yaml:"detail_rate"`
	LogFile    string  `yaml:"log_file"`
}

// Validate validates the browser configuration.
func (c *BrowserConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.Animation, validation.Min(time.Duration(0))),
		validation.Field(&c.DetailRate, validation.Min(0.0)),
	)
}

func httpURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
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
		Taxonomy: TaxonomyConfig{
			Dir:  "./taxonomy",
			File: "ontology.json",
		},
		SQLite: SQLiteConfig{
			Path: "./taxonomy.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Browser: BrowserConfig{
			URL:       "http://localhost:8080",
			Animation: 150 * time.Millisecond,
			LogFile:   "taxonomy-explorer.log",
		},
	}
}
