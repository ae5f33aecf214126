package core

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/kmdouglass/kpal/pkg/logger"
	"github.com/kmdouglass/kpal/pkg/metrics"
	"github.com/kmdouglass/kpal/pkg/plugin"
)

// Common errors.
var (
	ErrEngineNotStarted = errors.New("engine not started")
	ErrEngineStopped    = errors.New("engine stopped")
	ErrLibraryNotFound  = errors.New("library not found")
)

// Config holds the daemon's configuration. It is what pkg/config loads from
// YAML and validates; Engine itself only ever reads it.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http" json:"http"`
	Libraries LibrariesConfig `yaml:"libraries" json:"libraries"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
}

// HTTPConfig holds the REST API listener settings.
type HTTPConfig struct {
	Address string `yaml:"address" json:"address" validate:"required"`
}

// LibrariesConfig lists the plugin shared objects to load at startup. Every
// entry is loaded in order; an entry that fails to load is logged and
// skipped, and startup continues with the rest.
type LibrariesConfig struct {
	Paths []string `yaml:"paths" json:"paths"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=json text"`
	Output string `yaml:"output" json:"output" validate:"omitempty,oneof=stdout stderr file"`
	File   string `yaml:"file" json:"file"`
}

// MetricsConfig holds Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Endpoint string `yaml:"endpoint" json:"endpoint"`
}

// Engine is the daemon's orchestrator: it loads libraries at startup, owns
// the registries and dispatcher, tracks every running executor so shutdown
// can join them, and exposes the operations the REST layer calls into.
type Engine struct {
	mu sync.RWMutex

	config *Config
	logger *logger.Logger
	elog   *logger.Logger // logger, component-tagged for this engine's own log lines

	libraries   *plugin.Libraries
	libraryReg  *LibraryRegistry
	peripherals *PeripheralRegistry
	dispatcher  *Dispatcher
	factory     *plugin.Factory

	executors []*plugin.Executor

	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewEngine constructs an Engine from config. It does not load any libraries
// or start any background work; call Start for that.
func NewEngine(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}

	logConfig := logger.Config{
		Level:  config.Logging.Level,
		Format: config.Logging.Format,
		Output: config.Logging.Output,
		File:   config.Logging.File,
	}
	if logConfig.Level == "" {
		logConfig.Level = "info"
	}
	if logConfig.Format == "" {
		logConfig.Format = "text"
	}
	l := logger.New(logConfig)

	libraries := plugin.NewLibraries()
	libraryReg := NewLibraryRegistry()
	peripherals := NewPeripheralRegistry()

	return &Engine{
		config:      config,
		logger:      l,
		elog:        l.WithComponent("engine"),
		libraries:   libraries,
		libraryReg:  libraryReg,
		peripherals: peripherals,
		dispatcher:  NewDispatcher(libraryReg, peripherals),
		factory:     plugin.NewFactory(libraries),
	}, nil
}

// Start loads every configured library and marks the engine started. It
// does not start the HTTP listener itself — that is cmd/kpald's job, wired
// against the Engine's Dispatcher and registries.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			e.elog.Error("panic recovered during engine start", "error", r, "stack", string(debug.Stack()))
		}
	}()

	if e.started {
		return nil
	}

	e.ctx, e.cancel = context.WithCancel(ctx)
	e.elog.Info("starting engine", "libraries", len(e.config.Libraries.Paths))

	for _, path := range e.config.Libraries.Paths {
		lib, err := e.libraries.Load(path, "")
		if err != nil {
			e.elog.Error("failed to load library, skipping", "path", path, "error", err)
			continue
		}
		e.libraryReg.Insert(Library{
			ID:         lib.ID,
			Name:       lib.Name,
			Path:       lib.Path,
			ABIVersion: lib.ABIVersion(),
		})
		metrics.LibrariesLoaded.Inc()
		e.elog.Info("library loaded", "id", lib.ID, "name", lib.Name, "path", lib.Path, "abi_version", lib.ABIVersion())
	}

	e.started = true
	return nil
}

// Stop asks every executor to free its plugin instance, waits for them to
// exit, and cancels the engine's context. Libraries are never unloaded.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return nil
	}

	e.elog.Info("stopping engine", "peripherals", len(e.executors))
	e.dispatcher.Shutdown()

	for _, ex := range e.executors {
		<-ex.Done()
	}

	if e.cancel != nil {
		e.cancel()
	}

	e.started = false
	return nil
}

// CreatePeripheral runs the peripheral factory pipeline: resolve the
// library, instantiate the plugin, discover its attributes, spawn its
// executor, and publish it through the registries and dispatcher. It is the
// only path by which a Peripheral comes into existence in this daemon.
func (e *Engine) CreatePeripheral(name string, libraryID uint32, preinit []plugin.PreInitValue) (*Peripheral, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return nil, ErrEngineNotStarted
	}
	if _, ok := e.libraryReg.Get(libraryID); !ok {
		return nil, ErrLibraryNotFound
	}

	inst, err := e.factory.New(libraryID, preinit)
	if err != nil {
		return nil, err
	}

	attrs := make([]Attribute, len(inst.Attributes))
	for i, d := range inst.Attributes {
		attrs[i] = Attribute{ID: d.ID, Name: d.Name, Variant: d.Variant, PreInit: d.PreInit}
	}

	p := &Peripheral{Name: name, LibraryID: libraryID, Attributes: attrs}
	id := e.peripherals.Insert(p)

	e.dispatcher.Register(id, inst.Executor.Transmitter())
	e.executors = append(e.executors, inst.Executor)
	metrics.PeripheralsCreated.Inc()

	return p, nil
}

// Libraries returns the daemon's library registry.
func (e *Engine) Libraries() *LibraryRegistry { return e.libraryReg }

// Peripherals returns the daemon's peripheral registry.
func (e *Engine) Peripherals() *PeripheralRegistry { return e.peripherals }

// Dispatcher returns the engine's dispatcher, the entry point for every
// attribute read or write.
func (e *Engine) Dispatcher() *Dispatcher { return e.dispatcher }

// Logger returns the engine's logger.
func (e *Engine) Logger() *logger.Logger { return e.logger }

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.config
}

// DefaultConfig returns a Config with sane defaults for local development:
// HTTP on :8080, text logging at info level, no libraries preconfigured,
// metrics enabled on /metrics.
func DefaultConfig() *Config {
	return &Config{
		HTTP:      HTTPConfig{Address: ":8080"},
		Libraries: LibrariesConfig{Paths: []string{}},
		Logging:   LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
		Metrics:   MetricsConfig{Enabled: true, Endpoint: "/metrics"},
	}
}

// shutdownGracePeriod bounds how long cmd/kpald waits for the REST server to
// finish in-flight requests during a signal-triggered shutdown. Engine.Stop
// is not bounded by it: Stop waits for every executor to exit.
const shutdownGracePeriod = 10 * time.Second

// ShutdownGracePeriod returns the duration cmd/kpald allows the REST server's
// Stop to drain in-flight requests before treating shutdown as failed.
func ShutdownGracePeriod() time.Duration { return shutdownGracePeriod }
