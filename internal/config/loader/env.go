package loader

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultEnvPrefix is the prefix of inkwell environment variables.
const DefaultEnvPrefix = "INKWELL_"

// EnvLoader loads configuration from environment variables.
type EnvLoader struct {
	prefix  string            // e.g. "INKWELL_"
	mapping map[string]string // env var -> config path
	lookup  func(string) (string, bool)
	environ func() []string
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore (e.g., "INKWELL_").
func NewEnvLoader(prefix string) *EnvLoader {
	return NewEnvLoaderWithMapping(prefix, defaultEnvMapping())
}

// NewEnvLoaderWithMapping creates a loader with custom environment variable mappings.
func NewEnvLoaderWithMapping(prefix string, mapping map[string]string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: mapping,
		lookup:  os.LookupEnv,
		environ: os.Environ,
	}
}

func defaultEnvMapping() map[string]string {
	return map[string]string{
		"INKWELL_LOG_LEVEL":         "logging.level",
		"INKWELL_LOG_PREFIX":        "logging.prefix",
		"INKWELL_ROOT_BLOCK":        "editor.rootBlock",
		"INKWELL_UNDO_LEVELS":       "editor.undoLevels",
		"INKWELL_RTC_SCRIPT":        "rtc.script",
		"INKWELL_RTC_HUB":           "rtc.hub",
		"INKWELL_RTC_SETUP_TIMEOUT": "rtc.setupTimeout",
		"INKWELL_RTC_CALL_TIMEOUT":  "rtc.callTimeout",
		"INKWELL_COLLAB_LISTEN":     "collab.listen",
		"INKWELL_PLUGINS":           "plugins.enabled",
	}
}

// Load reads environment variables and returns a configuration map.
// Empty values are kept; they are not treated as unset.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for env, path := range l.mapping {
		if val, ok := l.lookup(env); ok {
			SetPath(config, path, l.parseValue(val))
		}
	}

	for _, env := range l.environ() {
		if !strings.HasPrefix(env, l.prefix) {
			continue
		}
		name, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if _, mapped := l.mapping[name]; mapped {
			continue
		}
		SetPath(config, l.envToPath(name), l.parseValue(value))
	}

	return config, nil
}

// envToPath converts INKWELL_COLLAB_BUFFER_SIZE to collab.bufferSize.
func (l *EnvLoader) envToPath(env string) string {
	parts := strings.Split(strings.TrimPrefix(env, l.prefix), "_")
	if len(parts) == 1 {
		return strings.ToLower(parts[0])
	}

	setting := strings.ToLower(parts[1])
	for _, part := range parts[2:] {
		if part != "" {
			setting += strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
		}
	}
	return strings.ToLower(parts[0]) + "." + setting
}

// parseValue attempts to parse the string value into an appropriate type.
// "1" and "0" stay integers so counts like undo levels survive.
func (l *EnvLoader) parseValue(s string) any {
	if s == "" {
		return s
	}

	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}

	return s
}

// ExpandEnvInString expands environment variables in a string.
// Supports both $VAR and ${VAR} syntax.
func ExpandEnvInString(s string) string {
	return os.ExpandEnv(s)
}
