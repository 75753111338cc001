package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/topograph/pkg/storage"
)

const (
	// DefaultBaseDir is the base configuration directory name
	DefaultBaseDir = ".topograph"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.yaml"
)

// ErrContextNotFound is returned for unknown context names.
var ErrContextNotFound = errors.New("cli: context not found")

// Config is the topograph CLI configuration. It holds named contexts, one
// per deployment, similar to kubectl.
type Config struct {
	// CurrentContext is the name of the currently active context
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts is a map of context name to context configuration
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	configPath string
}

// Context is the configuration of one deployment.
type Context struct {
	// Name is the context name
	Name string `yaml:"name"`

	// Graph is the default entity graph document (YAML or JSON).
	Graph string `yaml:"graph,omitempty"`

	// Templates is where templates come from: a directory of definition
	// files, or a bundle location ("s3://bucket/prefix" or a local
	// directory holding index.yaml).
	Templates string `yaml:"templates,omitempty"`

	// StoreDir holds the badger template cache. Empty means the data
	// directory under the config base dir.
	StoreDir string `yaml:"store_dir,omitempty"`

	// MaxSteps bounds each template match. Zero keeps the matcher default,
	// negative is unlimited.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// Validate enables the exhaustive edge check.
	Validate bool `yaml:"validate,omitempty"`

	// S3 configures bundle access. Values may reference ${ENV} variables.
	S3 *storage.S3Options `yaml:"s3,omitempty"`
}

// LoadConfig loads or creates the configuration. An empty path means
// ~/.topograph/config.yaml.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		p, err := NewPaths()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = p.ConfigFile()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{
		Contexts:   make(map[string]*Context),
		configPath: path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	for name, ctx := range cfg.Contexts {
		if ctx == nil {
			ctx = &Context{}
			cfg.Contexts[name] = ctx
		}
		ctx.Name = name
	}
	cfg.configPath = path
	return cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the config directory path
func (c *Config) Dir() string {
	return filepath.Dir(c.configPath)
}

// AddContext adds or replaces a context
func (c *Config) AddContext(name string, ctx *Context) error {
	ctx.Name = name
	c.Contexts[name] = ctx
	return c.Save()
}

// DeleteContext removes a context
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("%w: %q", ErrContextNotFound, name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("%w: %q", ErrContextNotFound, name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns a specific context
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrContextNotFound, name)
	}
	return ctx, nil
}

// ResolveContext returns the named context, or the current one if name is
// empty. With neither, it returns an empty context so that commands can run
// from flags alone.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name == "" {
		name = c.CurrentContext
	}
	if name == "" {
		return &Context{}, nil
	}
	return c.GetContext(name)
}

// ListContexts returns all context names, sorted.
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// S3Options returns the context's S3 settings with ${ENV} references
// expanded.
func (ctx *Context) S3Options() storage.S3Options {
	if ctx.S3 == nil {
		return storage.S3Options{}
	}
	return storage.S3Options{
		Region:    os.ExpandEnv(ctx.S3.Region),
		Endpoint:  os.ExpandEnv(ctx.S3.Endpoint),
		AccessKey: os.ExpandEnv(ctx.S3.AccessKey),
		SecretKey: os.ExpandEnv(ctx.S3.SecretKey),
	}
}

// MaskSecret masks a credential for display. Unexpanded ${ENV} references
// are shown as is.
func MaskSecret(s string) string {
	if strings.HasPrefix(s, "${") {
		return s
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
