// Package rest implements the jobs.rest module: a client for a remote job
// service speaking JSON over HTTP. It is the only place where HTTP status
// codes and transport failures are translated into jobs sentinel errors.
package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/flemzord/sjobs/internal/core"
	"github.com/flemzord/sjobs/internal/jobs"
	"github.com/flemzord/sjobs/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Client{})
}

// Compile-time interface guards.
var (
	_ jobs.Service       = (*Client)(nil)
	_ jobs.HealthChecker = (*Client)(nil)
	_ core.Module        = (*Client)(nil)
	_ core.Configurable  = (*Client)(nil)
	_ core.Provisioner   = (*Client)(nil)
	_ core.Validator     = (*Client)(nil)
	_ core.Stopper       = (*Client)(nil)
)

// Client schedules, cancels and queries jobs on a remote job service.
// It holds no per-job state and is safe for concurrent use.
type Client struct {
	config    Config
	logger    *slog.Logger
	client    *http.Client
	timeout   time.Duration
	jobsURL   string
	healthURL string
	metrics   *clientMetrics
	tracer    trace.Tracer
	now       func() time.Time
}

// ModuleInfo implements core.Module.
func (c *Client) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "jobs.rest",
		New: func() core.Module { return &Client{} },
	}
}

// Configure implements core.Configurable.
func (c *Client) Configure(node *yaml.Node) error {
	if err := node.Decode(&c.config); err != nil {
		return err
	}
	c.config.defaults()
	return nil
}

// Provision implements core.Provisioner. The client is registered as the
// "jobs.service" service for the gateway, the probe and the CLI.
func (c *Client) Provision(ctx *core.AppContext) error {
	c.config.defaults()

	var reg prometheus.Registerer
	if svc, ok := ctx.Service("metrics.registry"); ok {
		reg, _ = svc.(prometheus.Registerer)
	}
	if err := c.init(ctx.Logger, reg); err != nil {
		return err
	}

	if c.config.Token != "" {
		if svc, ok := ctx.Service("security.redactor"); ok {
			if r, ok := svc.(*security.Redactor); ok {
				r.AddLiteral(c.config.Token)
			}
		}
	}

	ctx.RegisterService("jobs.service", c)
	return nil
}

// Validate implements core.Validator.
func (c *Client) Validate() error {
	return c.config.validate()
}

// Stop implements core.Stopper.
func (c *Client) Stop(_ context.Context) error {
	if c.client != nil {
		c.client.CloseIdleConnections()
	}
	return nil
}
