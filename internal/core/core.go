package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

// DefaultShutdownTimeout bounds the time modules get to stop.
const DefaultShutdownTimeout = 30 * time.Second

// App drives the lifecycle of the loaded modules: they start in load order
// and stop in reverse.
type App struct {
	ctx     *AppContext
	logger  *slog.Logger
	entries []entry

	// ShutdownTimeout bounds Stop. Zero means DefaultShutdownTimeout.
	ShutdownTimeout time.Duration
}

type entry struct {
	id      ModuleID
	module  Module
	running bool
}

// NewApp returns an App whose modules are provisioned against ctx.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:    ctx,
		logger: ctx.Logger.With("component", "core"),
	}
}

// LoadModules configures, provisions and validates the given modules in
// order. On failure every module loaded so far is stopped and dropped.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			a.discard()
			return fmt.Errorf("core: load %s: %w", id, err)
		}
		a.entries = append(a.entries, entry{id: mod.ModuleInfo().ID, module: mod})
		a.logger.Info("module loaded", "module", id)
	}
	return nil
}

// AppendModule adds a module built outside the registry, such as the cron
// scheduler. It starts after everything loaded before it.
func (a *App) AppendModule(id string, mod Module) {
	a.entries = append(a.entries, entry{id: ModuleID(id), module: mod})
}

// Module returns a loaded or appended module by ID.
func (a *App) Module(id string) (Module, bool) {
	for _, e := range a.entries {
		if string(e.id) == id {
			return e.module, true
		}
	}
	return nil, false
}

// Start runs Start on every Starter in order. When one fails, the modules
// already started are stopped in reverse order.
func (a *App) Start() error {
	for i := range a.entries {
		e := &a.entries[i]
		s, ok := e.module.(Starter)
		if !ok {
			continue
		}
		a.logger.Info("starting module", "module", string(e.id))
		if err := s.Start(); err != nil {
			a.logger.Error("module start failed", "module", string(e.id), "error", err)
			_ = a.stopFrom(i - 1)
			return fmt.Errorf("core: start %s: %w", e.id, err)
		}
		e.running = true
	}
	a.logger.Info("all modules started", "count", len(a.entries))
	return nil
}

// Stop stops the running modules in reverse order and returns their
// errors joined.
func (a *App) Stop() error {
	return a.stopFrom(len(a.entries) - 1)
}

func (a *App) shutdownContext() (context.Context, context.CancelFunc) {
	timeout := a.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (a *App) stopFrom(last int) error {
	ctx, cancel := a.shutdownContext()
	defer cancel()

	var errs []error
	for i := last; i >= 0; i-- {
		e := &a.entries[i]
		if !e.running {
			continue
		}
		e.running = false
		s, ok := e.module.(Stopper)
		if !ok {
			continue
		}
		a.logger.Info("stopping module", "module", string(e.id))
		if err := s.Stop(ctx); err != nil {
			a.logger.Error("module stop failed", "module", string(e.id), "error", err)
			errs = append(errs, fmt.Errorf("core: stop %s: %w", e.id, err))
		}
	}
	return errors.Join(errs...)
}

// discard releases modules that were provisioned but never started.
func (a *App) discard() {
	ctx, cancel := a.shutdownContext()
	defer cancel()

	for i := len(a.entries) - 1; i >= 0; i-- {
		if s, ok := a.entries[i].module.(Stopper); ok {
			_ = s.Stop(ctx)
		}
	}
	a.entries = nil
}

// Run starts the modules, waits for ctx to end or for SIGINT/SIGTERM, and
// stops them.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	a.logger.Info("shutdown requested", "cause", context.Cause(sigCtx))

	err := a.Stop()
	a.logger.Info("shutdown complete")
	return err
}
