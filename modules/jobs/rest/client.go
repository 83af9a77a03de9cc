package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/flemzord/sjobs/internal/jobs"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// maxResponseSize is the maximum response body size (1 MB).
const maxResponseSize = 1 << 20

const tracerName = "github.com/flemzord/sjobs/modules/jobs/rest"

// NewClient builds a client outside the module system (CLI, tests, embedding).
// reg may be nil to skip metric registration.
func NewClient(cfg Config, logger *slog.Logger, reg prometheus.Registerer) (*Client, error) {
	c := &Client{config: cfg}
	c.config.defaults()
	if err := c.config.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := c.init(logger, reg); err != nil {
		return nil, err
	}
	return c, nil
}

// init derives the shared jobs collection address and the transport.
func (c *Client) init(logger *slog.Logger, reg prometheus.Registerer) error {
	jobsURL, err := url.JoinPath(c.config.URL, "jobs")
	if err != nil {
		return fmt.Errorf("jobs.rest: invalid url %q: %w", c.config.URL, err)
	}
	healthURL, err := url.JoinPath(c.config.URL, c.config.HealthPath)
	if err != nil {
		return fmt.Errorf("jobs.rest: invalid health_path %q: %w", c.config.HealthPath, err)
	}

	c.logger = logger
	c.timeout = c.config.parsedTimeout()
	c.client = &http.Client{Timeout: c.timeout}
	c.jobsURL = jobsURL
	c.healthURL = healthURL
	c.metrics = newClientMetrics(reg)
	c.tracer = otel.Tracer(tracerName)
	c.now = time.Now
	return nil
}

// JobsURL returns the collection address every job operation is derived from.
func (c *Client) JobsURL() string {
	return c.jobsURL
}

// jobURL returns the address of a single job: the id, escaped, appended to
// the jobs collection address.
func (c *Client) jobURL(id string) (string, error) {
	seg, err := pathSegment("job id", id)
	if err != nil {
		return "", err
	}
	return c.jobsURL + "/" + seg, nil
}

// ScheduleProcessJob implements jobs.Service. Definition-level jobs are not
// supported by the REST protocol; the call always fails with
// jobs.ErrUnsupportedCapability and issues no request.
func (c *Client) ScheduleProcessJob(ctx context.Context, desc jobs.JobDescription) (err error) {
	_, finish := c.begin(ctx, opSchedule, desc.ID)
	defer func() { finish(err) }()

	return fmt.Errorf("%w: scheduling process definition jobs (job %s)", jobs.ErrUnsupportedCapability, desc.ID)
}

// ScheduleProcessInstanceJob implements jobs.Service. It maps desc to a
// JobRecord and posts it to the jobs collection.
func (c *Client) ScheduleProcessInstanceJob(ctx context.Context, desc jobs.JobDescription) (err error) {
	ctx, finish := c.begin(ctx, opSchedule, desc.ID)
	defer func() { finish(err) }()

	ref, ok := desc.Target.(jobs.ProcessInstanceReference)
	if !ok {
		return fmt.Errorf("%w: job %s targets %T, want a process instance", jobs.ErrInvalidJobRequest, desc.ID, desc.Target)
	}
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("rest: schedule job %s: %w", desc.ID, err)
	}

	record, err := buildRecord(desc, ref, c.config.CallbackURL, c.now())
	if err != nil {
		return err
	}

	body, status, err := c.do(ctx, http.MethodPost, c.jobsURL, record)
	if err != nil {
		return fmt.Errorf("rest: schedule job %s: %w", desc.ID, err)
	}
	if err := mapHTTPError(opSchedule, status, body); err != nil {
		return fmt.Errorf("rest: schedule job %s: %w", desc.ID, err)
	}

	c.logger.Debug("jobs: job scheduled",
		"job_id", desc.ID,
		"process_id", ref.ProcessID,
		"process_instance_id", ref.ProcessInstanceID,
		"expiration_time", record.ExpirationTime.Time,
	)
	return nil
}

// CancelJob implements jobs.Service. It issues a single DELETE against the
// job address. A 404 surfaces as jobs.ErrJobNotFound.
func (c *Client) CancelJob(ctx context.Context, id string) (err error) {
	ctx, finish := c.begin(ctx, opCancel, id)
	defer func() { finish(err) }()

	target, err := c.jobURL(id)
	if err != nil {
		return err
	}

	body, status, err := c.do(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return fmt.Errorf("rest: cancel job %s: %w", id, err)
	}
	if err := mapHTTPError(opCancel, status, body); err != nil {
		return fmt.Errorf("rest: cancel job %s: %w", id, err)
	}
	return nil
}

// ScheduledTime implements jobs.Service. It returns the expirationTime the
// remote service reports, unmodified.
func (c *Client) ScheduledTime(ctx context.Context, id string) (time.Time, error) {
	rec, err := c.Job(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	return rec.ExpirationTime.Time, nil
}

// Job fetches the full record of a job from the remote service.
func (c *Client) Job(ctx context.Context, id string) (rec JobRecord, err error) {
	ctx, finish := c.begin(ctx, opQuery, id)
	defer func() { finish(err) }()

	target, err := c.jobURL(id)
	if err != nil {
		return JobRecord{}, err
	}

	body, status, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return JobRecord{}, fmt.Errorf("rest: get job %s: %w", id, err)
	}
	if err := mapHTTPError(opQuery, status, body); err != nil {
		return JobRecord{}, fmt.Errorf("rest: get job %s: %w", id, err)
	}

	if err := json.Unmarshal(body, &rec); err != nil {
		return JobRecord{}, fmt.Errorf("rest: get job %s: %w: undecodable response: %v", id, jobs.ErrServiceUnavailable, err)
	}
	if rec.ExpirationTime.IsZero() {
		return JobRecord{}, fmt.Errorf("rest: get job %s: %w: response has no expirationTime", id, jobs.ErrServiceUnavailable)
	}
	return rec, nil
}

// HealthCheck implements jobs.HealthChecker.
func (c *Client) HealthCheck(ctx context.Context) (err error) {
	ctx, finish := c.begin(ctx, opHealth, "")
	defer func() { finish(err) }()

	body, status, err := c.do(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return fmt.Errorf("rest: health check: %w", err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("rest: health check: %w: HTTP %d: %s", jobs.ErrServiceUnavailable, status, errorMessage(body))
	}
	return nil
}

// do sends one request and returns the (size-limited) response body and
// status code. Caller cancellation is not propagated: the call runs until
// it completes or the configured timeout expires.
func (c *Client) do(ctx context.Context, method, target string, payload any) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: marshal request: %v", jobs.ErrInvalidJobRequest, err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: create request: %v", jobs.ErrInvalidJobRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, mapTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, mapTransportError(err)
	}
	return body, resp.StatusCode, nil
}

// begin opens a client span for op and returns a func that closes it,
// recording metrics and logging unexpected failures.
func (c *Client) begin(ctx context.Context, op operation, jobID string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "jobs."+string(op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("jobs.operation", string(op)),
			attribute.String("jobs.job_id", jobID),
		),
	)

	return ctx, func(err error) {
		result := outcome(err)
		c.metrics.observe(op, result, time.Since(start).Seconds())
		span.SetAttributes(attribute.String("jobs.outcome", result))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		}
		span.End()

		if result == "unavailable" {
			c.logger.Warn("jobs: remote call failed",
				"operation", string(op),
				"job_id", jobID,
				"error", err,
			)
		}
	}
}
