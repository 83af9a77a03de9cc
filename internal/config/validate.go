package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/sjobs/internal/core"
	"github.com/robfig/cron/v3"
)

// Validate checks the structural validity of a Config.
// It verifies the version field, ensures a jobs client module is present,
// checks that all referenced module IDs exist in the registry, and
// validates the optional sections. All problems are reported at once.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	for _, id := range Resolve(cfg) {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}
	if len(cfg.Modules) > 0 && len(JobsModules(cfg)) == 0 {
		errs = append(errs, errors.New("config: a jobs.* client module must be configured"))
	}

	errs = append(errs, validateLog(cfg.Log)...)
	errs = append(errs, validateTelemetry(cfg.Telemetry)...)
	errs = append(errs, validateProbe(cfg.Probe)...)
	errs = append(errs, validateSecurity(cfg.Security)...)

	return errors.Join(errs...)
}

func validateLog(l LogConfig) []error {
	var errs []error
	if l.Level != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(l.Level)); err != nil {
			errs = append(errs, fmt.Errorf("config: log.level: %w", err))
		}
	}
	switch l.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format %q must be text or json", l.Format))
	}
	return errs
}

func validateTelemetry(t *TelemetryConfig) []error {
	if t == nil {
		return nil
	}
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		return []error{fmt.Errorf("config: telemetry.sample_ratio %v must be within [0, 1]", t.SampleRatio)}
	}
	return nil
}

func validateProbe(p *ProbeConfig) []error {
	if p == nil || p.Schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(p.Schedule); err != nil {
		return []error{fmt.Errorf("config: probe.schedule %q: %w", p.Schedule, err)}
	}
	return nil
}

func validateSecurity(sec *SecurityConfig) []error {
	if sec == nil {
		return nil
	}
	var errs []error
	if sec.RateLimits.AdminPerMin < 0 {
		errs = append(errs, errors.New("config: security.rate_limits.admin_per_min must not be negative"))
	}
	if sec.RateLimits.CallbackPerMin < 0 {
		errs = append(errs, errors.New("config: security.rate_limits.callback_per_min must not be negative"))
	}
	return errs
}
