// Package app assembles the sjobs runtime: configuration, logging, audit,
// telemetry, modules and the jobs service probe.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/flemzord/sjobs/internal/config"
	"github.com/flemzord/sjobs/internal/core"
	"github.com/flemzord/sjobs/internal/cron"
	"github.com/flemzord/sjobs/internal/gateway"
	"github.com/flemzord/sjobs/internal/jobs"
	"github.com/flemzord/sjobs/internal/security"
	"github.com/flemzord/sjobs/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides data_dir from the config and the default location.
	DataDir string

	// LogOutput receives the process log. Defaults to os.Stderr.
	LogOutput io.Writer
}

// Runtime is a fully provisioned application, ready to run.
type Runtime struct {
	App       *core.App
	Context   *core.AppContext
	Logger    *slog.Logger
	Registry  *prometheus.Registry
	Scheduler *cron.Scheduler
	Probe     *jobs.ProbeStatus

	// Callbacks is the gateway's callback dispatcher, nil without a
	// gateway.http module. Embedders register per-process handlers on it.
	Callbacks *gateway.CallbackDispatcher

	closers []func(context.Context) error
}

// Run builds the runtime and blocks until ctx is done or a shutdown signal
// is received.
func Run(ctx context.Context, params RunParams) error {
	rt, err := Build(ctx, params)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(context.WithoutCancel(ctx)); err != nil {
			rt.Logger.Error("shutdown cleanup failed", "error", err)
		}
	}()

	if rt.Probe != nil {
		go func() {
			if _, err := rt.Scheduler.RunNow(ctx, cron.ProbeJobName); err != nil {
				rt.Logger.Debug("initial probe interrupted", "error", err)
			}
		}()
	}
	return rt.App.Run(ctx)
}

// Build loads and validates the configuration, wires the shared services
// and loads every configured module. Nothing is started.
func Build(ctx context.Context, params RunParams) (*Runtime, error) {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	rt := &Runtime{}
	ok := false
	defer func() {
		if !ok {
			_ = rt.Close(context.WithoutCancel(ctx))
		}
	}()

	// Every log line goes through the redactor; modules add their secrets
	// to it while provisioning.
	redactor := security.NewRedactor()
	out := params.LogOutput
	if out == nil {
		out = os.Stderr
	}
	rt.Logger = security.NewLogger(out, cfg.Log.SlogLevel(), cfg.Log.Format, redactor)

	auditLogger, err := rt.auditLogger(cfg, redactor)
	if err != nil {
		return nil, err
	}

	var limits security.RateLimitConfig
	if cfg.Security != nil {
		limits = cfg.Security.RateLimits
	}
	rateLimiter := security.NewRateLimiter(limits)

	rt.Registry = telemetry.NewRegistry()
	tp, err := telemetry.Setup(ctx, telemetryConfig(cfg, params.Version))
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, tp.Shutdown)

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = cfg.DataDir
	}
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	rt.Context = core.NewAppContext(rt.Logger, dataDir).WithModuleConfigs(cfg.Modules)
	rt.Context.RegisterService("config.path", cfgPath)
	rt.Context.RegisterService("metrics.registry", rt.Registry)
	rt.Context.RegisterService("security.redactor", redactor)
	rt.Context.RegisterService("security.audit", auditLogger)
	rt.Context.RegisterService("security.ratelimiter", rateLimiter)

	rt.App = core.NewApp(rt.Context)
	if err := rt.App.LoadModules(config.Resolve(cfg)); err != nil {
		return nil, err
	}

	rt.wireCallbacks()

	rt.Scheduler = cron.NewScheduler(rt.Logger.With("component", "cron"))
	if err := rt.wireProbe(cfg.Probe); err != nil {
		return nil, err
	}
	rt.App.AppendModule("cron.scheduler", rt.Scheduler)

	rt.Logger.Info("sjobs configured",
		"version", params.Version,
		"config", cfgPath,
		"data_dir", dataDir,
	)
	ok = true
	return rt, nil
}

// wireProbe schedules the jobs service health probe when the configured
// client can be probed, and publishes its status as "jobs.probe".
func (rt *Runtime) wireProbe(cfg *config.ProbeConfig) error {
	if cfg != nil && cfg.Disabled {
		rt.Logger.Info("jobs service probe disabled")
		return nil
	}
	svc, ok := rt.Context.Service("jobs.service")
	if !ok {
		return nil
	}
	checker, ok := svc.(jobs.HealthChecker)
	if !ok {
		rt.Logger.Info("jobs service does not support health checks, probe skipped")
		return nil
	}

	rt.Probe = &jobs.ProbeStatus{}
	job := &cron.ServiceProbeJob{
		Checker: checker,
		Status:  rt.Probe,
		Metrics: cron.NewProbeMetrics(rt.Registry),
		Logger:  rt.Logger.With("component", "probe"),
	}
	if cfg != nil {
		job.ScheduleExpr = cfg.Schedule
	}
	if err := rt.Scheduler.RegisterJob(job); err != nil {
		return err
	}
	rt.Context.RegisterService("jobs.probe", rt.Probe)
	return nil
}

// wireCallbacks installs the fallback trigger handler on the gateway's
// callback dispatcher. Without it every callback for a process with no
// dedicated handler would be answered 404 and the remote service would
// record the firing as failed. The dispatcher audits each trigger itself.
func (rt *Runtime) wireCallbacks() {
	svc, ok := rt.Context.Service("gateway.callbacks")
	if !ok {
		return
	}
	d, ok := svc.(*gateway.CallbackDispatcher)
	if !ok {
		return
	}
	rt.Callbacks = d

	logger := rt.Logger.With("component", "callbacks")
	d.Register(gateway.AnyProcess, jobs.TriggerHandlerFunc(func(_ context.Context, t jobs.Trigger) error {
		logger.Info("job fired",
			"job_id", t.JobID,
			"process_id", t.ProcessID,
			"process_instance_id", t.ProcessInstanceID,
			"limit", t.Limit,
			"execution_counter", t.ExecutionCounter,
		)
		return nil
	}))
}

func (rt *Runtime) auditLogger(cfg *config.Config, redactor *security.Redactor) (*security.AuditLogger, error) {
	auditCfg := security.AuditLoggerConfig{Redactor: redactor}
	if cfg.Security != nil && cfg.Security.AuditLog != "" {
		path := cfg.Security.AuditLog
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("audit log: %w", err)
			}
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("audit log: %w", err)
		}
		rt.closers = append(rt.closers, func(context.Context) error { return f.Close() })
		auditCfg.Writer = f
	}
	return security.NewAuditLogger(auditCfg), nil
}

func telemetryConfig(cfg *config.Config, version string) telemetry.Config {
	tc := telemetry.Config{ServiceName: "sjobs", ServiceVersion: version}
	if t := cfg.Telemetry; t != nil {
		if t.ServiceName != "" {
			tc.ServiceName = t.ServiceName
		}
		tc.Endpoint = t.Endpoint
		tc.Insecure = t.Insecure
		tc.SampleRatio = t.SampleRatio
	}
	return tc
}

// Close releases what Build acquired outside the module lifecycle, in
// reverse order.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i](ctx))
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/sjobs/sjobs.yaml → ~/.config/sjobs/sjobs.yaml → ./sjobs.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "sjobs", "sjobs.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "sjobs", "sjobs.yaml"))
	}

	candidates = append(candidates, "sjobs.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/sjobs if set, otherwise ~/.local/share/sjobs.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "sjobs")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "sjobs")
}
