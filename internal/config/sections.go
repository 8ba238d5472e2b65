package config

import (
	"errors"
	"time"

	"github.com/dshills/inkwell/internal/config/loader"
	"github.com/dshills/inkwell/internal/logging"
)

// Section accessors return snapshot structs. Values that are missing or
// have the wrong type fall back to the defaults; Validate reports them.

// EditorConfig holds document settings.
type EditorConfig struct {
	// RootBlock is the element wrapping loose top-level content.
	RootBlock string
	// UndoLevels caps the undo history. Zero means unlimited.
	UndoLevels int
}

// RTCConfig selects and bounds the collaboration plugin.
type RTCConfig struct {
	// Script is the path of a Lua collaboration script.
	Script string
	// Hub runs the in-process collaboration hub.
	Hub bool
	// SetupTimeout bounds rtc setup.
	SetupTimeout time.Duration
	// CallTimeout bounds each call into a collaboration script.
	CallTimeout time.Duration
}

// Collaborative reports whether a collaboration plugin is configured.
func (r RTCConfig) Collaborative() bool {
	return r.Script != "" || r.Hub
}

// CollabConfig configures the in-process hub.
type CollabConfig struct {
	// Listen is the address the hub's websocket observers connect to.
	Listen string
	// BufferSize is how many changes a subscriber may queue.
	BufferSize int
	// Document is the hub's initial HTML.
	Document string
}

// PluginsConfig lists the editor plugins to register.
type PluginsConfig struct {
	Enabled []string
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string
	Prefix string
}

// Editor returns the editor settings.
func (c *Config) Editor() EditorConfig {
	return EditorConfig{
		RootBlock:  c.getStringOr("editor.rootBlock", "p"),
		UndoLevels: c.getIntOr("editor.undoLevels", 100),
	}
}

// RTC returns the collaboration plugin settings. Environment variables in
// the script path are expanded.
func (c *Config) RTC() RTCConfig {
	return RTCConfig{
		Script:       loader.ExpandEnvInString(c.getStringOr("rtc.script", "")),
		Hub:          c.getBoolOr("rtc.hub", false),
		SetupTimeout: c.getDurationOr("rtc.setupTimeout", 10*time.Second),
		CallTimeout:  c.getDurationOr("rtc.callTimeout", 5*time.Second),
	}
}

// Collab returns the hub settings.
func (c *Config) Collab() CollabConfig {
	return CollabConfig{
		Listen:     c.getStringOr("collab.listen", ""),
		BufferSize: c.getIntOr("collab.bufferSize", 64),
		Document:   c.getStringOr("collab.document", ""),
	}
}

// Plugins returns the plugin settings.
func (c *Config) Plugins() PluginsConfig {
	return PluginsConfig{
		Enabled: c.getStringSliceOr("plugins.enabled", []string{"lists"}),
	}
}

// Logging returns the logging settings.
func (c *Config) Logging() LoggingConfig {
	return LoggingConfig{
		Level:  c.getStringOr("logging.level", "info"),
		Prefix: c.getStringOr("logging.prefix", "inkwell"),
	}
}

// Validate checks every known setting and returns all failures joined.
// Each failure is a *ValidationError.
func (c *Config) Validate() error {
	var errs []error
	fail := func(path, msg string, v any, code ValidationErrorCode) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: v, Code: code})
	}
	check := func(path string, err error) bool {
		if err == nil {
			return true
		}
		if !errors.Is(err, ErrSettingNotFound) {
			v, _ := c.Get(path)
			fail(path, err.Error(), v, ErrCodeTypeMismatch)
		}
		return false
	}

	if s, err := c.GetString("editor.rootBlock"); check("editor.rootBlock", err) && s == "" {
		fail("editor.rootBlock", "must not be empty", s, ErrCodeOutOfRange)
	}
	if n, err := c.GetInt("editor.undoLevels"); check("editor.undoLevels", err) && n < 0 {
		fail("editor.undoLevels", "must not be negative", n, ErrCodeOutOfRange)
	}

	script, err := c.GetString("rtc.script")
	check("rtc.script", err)
	hub, err := c.GetBool("rtc.hub")
	check("rtc.hub", err)
	if script != "" && hub {
		fail("rtc.script", "cannot be combined with rtc.hub", script, ErrCodeConflict)
	}
	for _, path := range []string{"rtc.setupTimeout", "rtc.callTimeout"} {
		if d, err := c.GetDuration(path); check(path, err) && d <= 0 {
			fail(path, "must be positive", d, ErrCodeOutOfRange)
		}
	}

	if s, err := c.GetString("collab.listen"); check("collab.listen", err) && s != "" && !hub {
		fail("collab.listen", "requires rtc.hub", s, ErrCodeConflict)
	}
	if n, err := c.GetInt("collab.bufferSize"); check("collab.bufferSize", err) && n <= 0 {
		fail("collab.bufferSize", "must be positive", n, ErrCodeOutOfRange)
	}
	_, err = c.GetString("collab.document")
	check("collab.document", err)

	_, err = c.GetStringSlice("plugins.enabled")
	check("plugins.enabled", err)

	if s, err := c.GetString("logging.level"); check("logging.level", err) && !logging.ValidLevel(s) {
		fail("logging.level", "unknown level", s, ErrCodeInvalidEnum)
	}
	_, err = c.GetString("logging.prefix")
	check("logging.prefix", err)

	return errors.Join(errs...)
}

func (c *Config) getStringOr(path string, defaultValue string) string {
	if v, err := c.GetString(path); err == nil {
		return v
	}
	return defaultValue
}

func (c *Config) getIntOr(path string, defaultValue int) int {
	if v, err := c.GetInt(path); err == nil {
		return v
	}
	return defaultValue
}

func (c *Config) getBoolOr(path string, defaultValue bool) bool {
	if v, err := c.GetBool(path); err == nil {
		return v
	}
	return defaultValue
}

func (c *Config) getDurationOr(path string, defaultValue time.Duration) time.Duration {
	if v, err := c.GetDuration(path); err == nil {
		return v
	}
	return defaultValue
}

func (c *Config) getStringSliceOr(path string, defaultValue []string) []string {
	if v, err := c.GetStringSlice(path); err == nil {
		return v
	}
	return append([]string(nil), defaultValue...)
}
