package config

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dshills/inkwell/internal/config/loader"
)

// DefaultIncludeDepth limits nested @include directives.
const DefaultIncludeDepth = 8

// Config is the merged inkwell configuration.
type Config struct {
	mu   sync.RWMutex
	data map[string]any
	file string
}

type options struct {
	file         string
	fs           loader.FileSystem
	env          bool
	envPrefix    string
	overrides    map[string]any
	includeDepth int
}

// Option configures Load.
type Option func(*options)

// WithFile loads the TOML or YAML file at path. The file must exist.
func WithFile(path string) Option {
	return func(o *options) {
		o.file = path
	}
}

// WithFS sets the file system config files are read from.
func WithFS(fs loader.FileSystem) Option {
	return func(o *options) {
		if fs != nil {
			o.fs = fs
		}
	}
}

// WithEnv enables or disables the environment layer.
func WithEnv(enable bool) Option {
	return func(o *options) {
		o.env = enable
	}
}

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = prefix
	}
}

// WithOverride sets path to value above every other layer.
func WithOverride(path string, value any) Option {
	return func(o *options) {
		if o.overrides == nil {
			o.overrides = make(map[string]any)
		}
		o.overrides[path] = value
	}
}

// Defaults returns the built-in defaults layer.
func Defaults() map[string]any {
	return map[string]any{
		"editor": map[string]any{
			"rootBlock":  "p",
			"undoLevels": int64(100),
		},
		"rtc": map[string]any{
			"script":       "",
			"hub":          false,
			"setupTimeout": 10 * time.Second,
			"callTimeout":  5 * time.Second,
		},
		"collab": map[string]any{
			"listen":     "",
			"bufferSize": int64(64),
			"document":   "",
		},
		"plugins": map[string]any{
			"enabled": []any{"lists"},
		},
		"logging": map[string]any{
			"level":  "info",
			"prefix": "inkwell",
		},
	}
}

// New returns a configuration holding only the defaults.
func New() *Config {
	return &Config{data: Defaults()}
}

// Load builds a configuration from defaults, the config file, the
// environment and overrides, then validates it.
func Load(opts ...Option) (*Config, error) {
	o := options{
		fs:           loader.DefaultFS(),
		env:          true,
		envPrefix:    loader.DefaultEnvPrefix,
		includeDepth: DefaultIncludeDepth,
	}
	for _, opt := range opts {
		opt(&o)
	}

	data := Defaults()

	if o.file != "" {
		file, err := loader.LoadWithIncludes(o.fs, o.file, o.includeDepth)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", o.file, err)
		}
		if file == nil {
			return nil, fmt.Errorf("load %s: %w", o.file, ErrFileNotFound)
		}
		data = loader.DeepMerge(data, file)
	}

	if o.env {
		env, err := loader.NewEnvLoader(o.envPrefix).Load()
		if err != nil {
			return nil, fmt.Errorf("load environment: %w", err)
		}
		data = loader.DeepMerge(data, env)
	}

	for path, v := range o.overrides {
		loader.SetPath(data, path, v)
	}

	c := &Config{data: data, file: o.file}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// File returns the config file path, if one was loaded.
func (c *Config) File() string {
	return c.file
}

// Map returns a copy of the merged settings.
func (c *Config) Map() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return loader.Clone(c.data)
}

// Set sets the value at path. It does not validate.
func (c *Config) Set(path string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	loader.SetPath(c.data, path, value)
}

// Get returns the raw value at path.
func (c *Config) Get(path string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := loader.Lookup(c.data, path)
	if !ok {
		return nil, ErrSettingNotFound
	}
	return v, nil
}

// GetString returns the string at path.
func (c *Config) GetString(path string) (string, error) {
	v, err := c.Get(path)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", typeError(path, "string", v)
	}
	return s, nil
}

// GetBool returns the bool at path.
func (c *Config) GetBool(path string) (bool, error) {
	v, err := c.Get(path)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, typeError(path, "bool", v)
	}
	return b, nil
}

// GetInt returns the integer at path. Floats without a fraction are accepted.
func (c *Config) GetInt(path string) (int, error) {
	v, err := c.Get(path)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		if n <= math.MaxInt {
			return int(n), nil
		}
	case float64:
		if n == math.Trunc(n) {
			return int(n), nil
		}
	}
	return 0, typeError(path, "int", v)
}

// GetDuration returns the duration at path. Strings use time.ParseDuration
// syntax and bare integers are seconds.
func (c *Config) GetDuration(path string) (time.Duration, error) {
	v, err := c.Get(path)
	if err != nil {
		return 0, err
	}
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, typeError(path, "duration", v)
		}
		return parsed, nil
	case int64:
		return time.Duration(d) * time.Second, nil
	case int:
		return time.Duration(d) * time.Second, nil
	}
	return 0, typeError(path, "duration", v)
}

// GetStringSlice returns the string list at path. A single string is split
// on commas.
func (c *Config) GetStringSlice(path string) ([]string, error) {
	v, err := c.Get(path)
	if err != nil {
		return nil, err
	}
	switch s := v.(type) {
	case []string:
		return append([]string(nil), s...), nil
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, typeError(path, "[]string", v)
			}
			out = append(out, str)
		}
		return out, nil
	case string:
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
	return nil, typeError(path, "[]string", v)
}

func typeError(path, expected string, v any) error {
	return &TypeError{Path: path, Expected: expected, Actual: fmt.Sprintf("%T", v)}
}
