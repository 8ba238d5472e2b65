// Package app wires configuration, logging, the editor and its plugins
// into a runnable inkwell instance.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/inkwell/internal/collab"
	"github.com/dshills/inkwell/internal/config"
	"github.com/dshills/inkwell/internal/config/loader"
	"github.com/dshills/inkwell/internal/editor"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/notify"
	"github.com/dshills/inkwell/internal/plugin"
	"github.com/dshills/inkwell/internal/plugin/lua"
	"github.com/dshills/inkwell/internal/plugins/lists"
)

// shutdownTimeout bounds the observer server shutdown.
const shutdownTimeout = 5 * time.Second

// PluginFactory creates an editor plugin.
type PluginFactory func() plugin.Plugin

// Plugins are the editor plugins that can be enabled by name.
var Plugins = map[string]PluginFactory{
	lists.Name: func() plugin.Plugin { return lists.New() },
}

// Application owns one editor and the services around it.
type Application struct {
	mu sync.Mutex

	config *config.Config
	logger *logging.Logger
	events *notify.Notifier
	editor *editor.Editor

	// Collaboration, at most one of these is set.
	hub    *collab.Hub
	script *lua.CollabPlugin

	server   *http.Server
	listener net.Listener

	running atomic.Bool
	closed  atomic.Bool
}

// Options configures the application.
type Options struct {
	// ConfigPath is the path to a TOML or YAML configuration file.
	ConfigPath string

	// FS is the file system config files are read from.
	FS loader.FileSystem

	// Overrides are applied above every config layer, keyed by setting path.
	Overrides map[string]any

	// NoEnv skips the INKWELL_ environment layer.
	NoEnv bool

	// LogOutput is where logs are written. Defaults to os.Stderr.
	LogOutput io.Writer
}

// New loads configuration and builds the editor with its plugins. The
// editor is not initialized until Start.
func New(opts Options) (*Application, error) {
	app := &Application{}
	if err := app.bootstrap(opts); err != nil {
		return nil, err
	}
	return app, nil
}

// bootstrap initializes components in dependency order.
func (app *Application) bootstrap(opts Options) error {
	// 1. Config
	cfgOpts := []config.Option{config.WithEnv(!opts.NoEnv)}
	if opts.FS != nil {
		cfgOpts = append(cfgOpts, config.WithFS(opts.FS))
	}
	if opts.ConfigPath != "" {
		cfgOpts = append(cfgOpts, config.WithFile(opts.ConfigPath))
	}
	for path, v := range opts.Overrides {
		cfgOpts = append(cfgOpts, config.WithOverride(path, v))
	}
	cfg, err := config.Load(cfgOpts...)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	app.config = cfg

	// 2. Logger
	logCfg := cfg.Logging()
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	app.logger = logging.New(logging.Config{
		Level:  logging.ParseLevel(logCfg.Level),
		Output: out,
		Prefix: logCfg.Prefix,
	})

	// 3. Editor, with its change events logged at debug level off the
	// editing path.
	app.events = notify.New(notify.WithAsync(cfg.Collab().BufferSize))
	eventLog := app.logger.WithComponent("events")
	app.events.Subscribe(func(c notify.Change) {
		eventLog.Debug("%s from %s", c.Path, c.Source)
	})

	edCfg := cfg.Editor()
	rtcCfg := cfg.RTC()
	app.editor = editor.New(
		editor.WithLogger(app.logger),
		editor.WithNotifier(app.events),
		editor.WithRootBlock(edCfg.RootBlock),
		editor.WithUndoLevels(edCfg.UndoLevels),
		editor.WithSetupTimeout(rtcCfg.SetupTimeout),
	)

	// 4. Editor plugins
	for _, name := range cfg.Plugins().Enabled {
		factory, ok := Plugins[name]
		if !ok {
			app.abort()
			return &InitError{Component: "plugins", Err: fmt.Errorf("%w: %s", ErrUnknownPlugin, name)}
		}
		if err := app.editor.RegisterPlugin(factory()); err != nil {
			app.abort()
			return &InitError{Component: "plugins", Err: err}
		}
	}

	// 5. Collaboration plugin
	if err := app.registerCollab(rtcCfg, cfg.Collab()); err != nil {
		app.abort()
		return &InitError{Component: "rtc", Err: err}
	}

	return nil
}

// abort releases what bootstrap built before failing.
func (app *Application) abort() {
	app.editor.Close()
	app.events.Close()
}

func (app *Application) registerCollab(rtcCfg config.RTCConfig, collabCfg config.CollabConfig) error {
	switch {
	case rtcCfg.Script != "":
		app.script = lua.NewCollabPlugin(rtcCfg.Script,
			lua.WithCallTimeout(rtcCfg.CallTimeout),
			lua.WithPluginLogger(app.logger.WithComponent("lua")),
		)
		return app.editor.RegisterPlugin(app.script)
	case rtcCfg.Hub:
		app.hub = collab.NewHub(
			collab.WithLogger(app.logger.WithComponent("hub")),
			collab.WithBufferSize(collabCfg.BufferSize),
			collab.WithDocument(collabCfg.Document),
		)
		return app.editor.RegisterPlugin(app.hub.Plugin())
	}
	return nil
}

// Start opens the hub and observer server when configured, then
// initializes the editor. A collaboration setup failure is returned and
// leaves the application stopped.
func (app *Application) Start(ctx context.Context) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	if app.hub != nil {
		app.hub.Open()
		if listen := app.config.Collab().Listen; listen != "" {
			if err := app.serve(listen); err != nil {
				app.running.Store(false)
				return &InitError{Component: "observer server", Err: err}
			}
		}
	}

	if err := app.editor.Init(ctx); err != nil {
		app.running.Store(false)
		return &InitError{Component: "editor", Err: err}
	}

	app.logger.Info("inkwell started (collaborative=%v)", app.editor.Collaborative())
	return nil
}

// serve starts the websocket observer endpoint of the hub.
func (app *Application) serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/", app.hub.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	app.mu.Lock()
	app.server = srv
	app.listener = ln
	app.mu.Unlock()

	logger := app.logger.WithComponent("server").WithField("addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("observer server: %v", err)
		}
	}()
	logger.Info("serving hub observers")
	return nil
}

// Addr returns the observer server address, or "" when not serving.
func (app *Application) Addr() string {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.listener == nil {
		return ""
	}
	return app.listener.Addr().String()
}

// Shutdown stops the observer server, closes the editor and its plugins,
// then the hub. It is safe to call more than once.
func (app *Application) Shutdown() error {
	if !app.closed.CompareAndSwap(false, true) {
		return nil
	}
	app.running.Store(false)

	var errs []error

	app.mu.Lock()
	srv := app.server
	app.mu.Unlock()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("observer server: %w", err))
		}
	}

	if err := app.editor.Close(); err != nil {
		errs = append(errs, fmt.Errorf("editor: %w", err))
	}
	app.events.Close()
	if app.hub != nil {
		if err := app.hub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("hub: %w", err))
		}
	}
	return errors.Join(errs...)
}

// IsRunning returns true if the application is running.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Config returns the loaded configuration.
func (app *Application) Config() *config.Config {
	return app.config
}

// Logger returns the application logger.
func (app *Application) Logger() *logging.Logger {
	return app.logger
}

// Editor returns the editor.
func (app *Application) Editor() *editor.Editor {
	return app.editor
}

// Hub returns the collaboration hub, or nil when not configured.
func (app *Application) Hub() *collab.Hub {
	return app.hub
}
