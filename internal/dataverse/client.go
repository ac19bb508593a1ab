// Package dataverse is a thin client for the Dataverse native API
// operations dvbatch needs. Every failure is returned as a *ServiceError.
package dataverse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dvtools/dvbatch/internal/logging"
)

// APIKeyHeader carries the API token.
const APIKeyHeader = "X-Dataverse-key"

const (
	defaultTimeout = 60 * time.Second
	tracerName     = "github.com/dvtools/dvbatch/internal/dataverse"
)

// Construction errors.
var (
	ErrMissingServerURL = errors.New("dataverse: server URL is required")
	ErrInvalidServerURL = errors.New("dataverse: invalid server URL")
)

// Config holds the immutable connection settings for a Client.
type Config struct {
	ServerURL string
	APIToken  string
	Timeout   time.Duration
}

// Client talks to one Dataverse installation.
type Client struct {
	HTTPClient *http.Client

	baseURL string
	token   string
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// NewClient creates a client for cfg.ServerURL.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.ServerURL == "" {
		return nil, ErrMissingServerURL
	}
	u, err := url.Parse(cfg.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidServerURL, cfg.ServerURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.ServerURL, "/"),
		token:      cfg.APIToken,
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// request describes one API call.
type request struct {
	op     string
	method string
	path   string
	pid    string
	query  url.Values
	body   interface{}
	auth   bool
}

// do performs req and decodes the envelope's data into result (if non-nil).
func (c *Client) do(ctx context.Context, req request, result interface{}) error {
	ctx, span := c.tracer.Start(ctx, "dataverse."+req.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("dataverse.pid", req.pid),
			attribute.String("http.request.method", req.method),
		))
	defer span.End()

	err := c.doRequest(ctx, req, span, result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) doRequest(ctx context.Context, req request, span trace.Span, result interface{}) error {
	log := logging.FromContext(ctx)
	fail := func(status int, msg string, err error) error {
		return &ServiceError{Op: req.op, PID: req.pid, StatusCode: status, Message: msg, Err: err}
	}

	var reader io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fail(0, "", fmt.Errorf("marshal body: %w", err))
		}
		reader = bytes.NewReader(b)
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, reader)
	if err != nil {
		return fail(0, "", err)
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.auth && c.token != "" {
		httpReq.Header.Set(APIKeyHeader, c.token)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fail(0, "", fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(resp.StatusCode, "", fmt.Errorf("reading response: %w", err))
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	log.Debug().Ctx(ctx).
		Str("op", req.op).
		Str("pid", req.pid).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("dataverse call")

	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ""
		if decodeErr == nil {
			msg = env.message()
		}
		return fail(resp.StatusCode, msg, nil)
	}
	if decodeErr != nil {
		return fail(resp.StatusCode, "", fmt.Errorf("decoding response: %w", decodeErr))
	}
	if env.Status == StatusError {
		return fail(resp.StatusCode, env.message(), nil)
	}

	if result != nil {
		if len(env.Data) == 0 {
			return fail(resp.StatusCode, "", errors.New("response has no data"))
		}
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fail(resp.StatusCode, "", fmt.Errorf("decoding data: %w", err))
		}
	}
	return nil
}

// pidQuery builds the ?persistentId= query most dataset endpoints take.
func pidQuery(pid string) url.Values {
	return url.Values{"persistentId": []string{pid}}
}
