// Package gateway provides the HTTP surface of sjobs: the callback endpoint
// the job service invokes when a timer fires, an authenticated admin API
// over jobs.Service, health and Prometheus metrics. It binds to loopback by
// default and follows the module system pattern.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/flemzord/sjobs/internal/core"
	"github.com/flemzord/sjobs/internal/jobs"
	"github.com/flemzord/sjobs/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Gateway{})
}

var (
	_ core.Module       = (*Gateway)(nil)
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// Gateway is the HTTP gateway module. It is a leaf module: nothing imports it.
type Gateway struct {
	config     Config
	appCtx     *core.AppContext
	logger     *slog.Logger
	server     *http.Server
	metrics    *Metrics
	gatherer   prometheus.Gatherer
	dispatcher *CallbackDispatcher
	startedAt  time.Time

	// Resolved lazily at Start() via the service registry.
	jobs     jobs.Service
	probe    *jobs.ProbeStatus
	audit    *security.AuditLogger
	limiter  *security.RateLimiter
	redactor *security.Redactor
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner. The callback dispatcher is
// registered as "gateway.callbacks" so process engines can attach handlers.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger

	var reg prometheus.Registerer
	if svc, ok := ctx.Service("metrics.registry"); ok {
		reg, _ = svc.(prometheus.Registerer)
		g.gatherer, _ = svc.(prometheus.Gatherer)
	}
	g.metrics = NewMetrics(reg)
	g.dispatcher = NewCallbackDispatcher(g.logger, g.config.CallbackSecret)
	g.dispatcher.maxBody = g.config.MaxBodySize
	g.dispatcher.metrics = g.metrics

	if g.config.CallbackSecret != "" || g.config.Auth.IsConfigured() {
		if svc, ok := ctx.Service("security.redactor"); ok {
			if r, ok := svc.(*security.Redactor); ok {
				r.AddLiteral(g.config.CallbackSecret)
				r.AddLiteral(g.config.Auth.BearerToken)
				r.AddLiteral(g.config.Auth.BasicPass)
			}
		}
	}

	ctx.RegisterService("gateway.callbacks", g.dispatcher)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return fmt.Errorf("gateway: invalid bind address %q: %w", g.config.Bind, err)
	}
	if (g.config.Auth.BasicUser == "") != (g.config.Auth.BasicPass == "") {
		return errors.New("gateway: auth.basic_user and auth.basic_pass must be set together")
	}
	return nil
}

// resolve binds services registered by other modules. Missing services
// degrade the matching endpoints instead of failing startup.
func (g *Gateway) resolve() {
	if svc, ok := g.appCtx.Service("jobs.service"); ok {
		g.jobs, _ = svc.(jobs.Service)
	}
	if svc, ok := g.appCtx.Service("jobs.probe"); ok {
		g.probe, _ = svc.(*jobs.ProbeStatus)
	}
	if svc, ok := g.appCtx.Service("security.audit"); ok {
		g.audit, _ = svc.(*security.AuditLogger)
	}
	if svc, ok := g.appCtx.Service("security.ratelimiter"); ok {
		g.limiter, _ = svc.(*security.RateLimiter)
	}
	if svc, ok := g.appCtx.Service("security.redactor"); ok {
		g.redactor, _ = svc.(*security.Redactor)
	}
	g.dispatcher.audit = g.audit
	g.dispatcher.limiter = g.limiter
}

// Start implements core.Starter.
func (g *Gateway) Start() error {
	g.resolve()
	if g.jobs == nil {
		g.logger.Warn("gateway: no jobs.service registered, admin job endpoints will answer 503")
	}
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
