/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package api is the HTTP client for the fleet device and command endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/carverauto/fleetcmd/pkg/logger"
	"github.com/carverauto/fleetcmd/pkg/models"
	"github.com/carverauto/fleetcmd/pkg/version"
)

const (
	defaultTimeout      = 15 * time.Second
	maxResponseBytes    = 8 << 20
	maxServerMessage    = 512
	headerRequestID     = "X-Request-ID"
	headerAuthorization = "Authorization"
	headerUserAgent     = "User-Agent"
	tracerName          = "github.com/carverauto/fleetcmd/pkg/api"
)

// Config holds the client settings.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// RequestsPerSecond of zero disables client-side limiting.
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
}

// Client talks to the fleet REST API. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	token   string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	tracer  trace.Tracer
	logger  logger.Logger
}

var (
	_ DeviceLister     = (*Client)(nil)
	_ CommandSubmitter = (*Client)(nil)
	_ CommandQuerier   = (*Client)(nil)
)

func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errBaseURLRequired
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", errInvalidBaseURL, cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	var limiter *rate.Limiter

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}

		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Client{
		baseURL: base,
		token:   cfg.Token,
		timeout: cfg.Timeout,
		http:    httpClient,
		limiter: limiter,
		tracer:  otel.Tracer(tracerName),
		logger:  log,
	}, nil
}

type requestIDKey struct{}

// WithRequestID attaches a correlation id that is sent as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the correlation id carried by ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)

	return id
}

func (c *Client) ListDevices(ctx context.Context, orgID string, limit int) ([]DeviceRecord, error) {
	q := url.Values{}
	q.Set("view", "targets")
	q.Set("orgId", orgID)

	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var raw json.RawMessage

	if err := c.do(ctx, "ListDevices", http.MethodGet, "/devices", q, nil, &raw); err != nil {
		return nil, err
	}

	if isJSONArray(raw) {
		var devices []DeviceRecord
		if err := json.Unmarshal(raw, &devices); err != nil {
			return nil, decodeError("ListDevices", err)
		}

		return devices, nil
	}

	var env deviceEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, decodeError("ListDevices", err)
	}

	return env.Devices, nil
}

func (c *Client) SubmitCommand(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error) {
	var resp SubmitResponse

	if err := c.do(ctx, "SubmitCommand", http.MethodPost, "/commands", nil, req, &resp); err != nil {
		return nil, err
	}

	if resp.CommandID == "" {
		return nil, models.NewServerError("SubmitCommand", http.StatusOK, "response is missing commandId")
	}

	return &resp, nil
}

func (c *Client) ListCommands(ctx context.Context, orgID string, limit int) ([]models.Command, error) {
	q := url.Values{}
	q.Set("orgId", orgID)

	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var raw json.RawMessage

	if err := c.do(ctx, "ListCommands", http.MethodGet, "/commands", q, nil, &raw); err != nil {
		return nil, err
	}

	if isJSONArray(raw) {
		var commands []models.Command
		if err := json.Unmarshal(raw, &commands); err != nil {
			return nil, decodeError("ListCommands", err)
		}

		return commands, nil
	}

	var env commandEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, decodeError("ListCommands", err)
	}

	return env.Commands, nil
}

func (c *Client) GetCommand(ctx context.Context, orgID, commandID string) (*models.CommandRecord, error) {
	q := url.Values{}
	q.Set("orgId", orgID)

	var rec models.CommandRecord

	if err := c.do(ctx, "GetCommand", http.MethodGet, "/commands/"+url.PathEscape(commandID), q, nil, &rec); err != nil {
		return nil, err
	}

	if rec.CommandID == "" {
		rec.CommandID = commandID
	}

	return &rec, nil
}

func (c *Client) CancelCommand(ctx context.Context, orgID, commandID string) error {
	body := struct {
		OrgID string `json:"orgId"`
	}{OrgID: orgID}

	return c.do(ctx, "CancelCommand", http.MethodPost, "/commands/"+url.PathEscape(commandID)+"/cancel", nil, body, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	ctx, span := c.tracer.Start(ctx, "fleetapi."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)

	err := c.roundTrip(ctx, op, method, path, query, body, out, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())

		return err
	}

	span.SetStatus(otelcodes.Ok, "")

	return nil
}

func (c *Client) roundTrip(
	ctx context.Context, op, method, path string, query url.Values, body, out interface{}, span trace.Span,
) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.NewTransportError(op, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := *c.baseURL
	u.RawPath = c.baseURL.EscapedPath() + path

	decoded, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return models.NewValidationError(op, err, "invalid request path")
	}

	u.Path = decoded

	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return models.NewValidationError(op, err, "failed to encode request body")
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return models.NewTransportError(op, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerUserAgent, version.UserAgent())

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set(headerAuthorization, "Bearer "+c.token)
	}

	requestID := RequestIDFrom(ctx)
	if requestID != "" {
		req.Header.Set(headerRequestID, requestID)
		span.SetAttributes(attribute.String("fleet.request_id", requestID))
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("op", op).Str("request_id", requestID).Msg("Fleet API request failed")

		return models.NewTransportError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return models.NewTransportError(op, err)
	}

	c.logger.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("elapsed", time.Since(start)).
		Msg("Fleet API request")

	if resp.StatusCode >= http.StatusBadRequest {
		return models.NewServerError(op, resp.StatusCode, serverMessage(data))
	}

	if out == nil {
		return nil
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return &models.Error{Kind: models.KindServer, Op: op, StatusCode: resp.StatusCode, Err: errEmptyBody}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &models.Error{
			Kind:       models.KindServer,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    "undecodable response body",
			Err:        err,
		}
	}

	return nil
}

// serverMessage prefers the JSON error or message field, falling back to the
// raw body text.
func serverMessage(data []byte) string {
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}

		if body.Message != "" {
			return body.Message
		}
	}

	return truncateUTF8(strings.TrimSpace(string(data)), maxServerMessage)
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}

	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}

	return s[:n]
}

func decodeError(op string, err error) error {
	return &models.Error{Kind: models.KindServer, Op: op, Message: "undecodable response body", Err: err}
}

func isJSONArray(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) > 0 && trimmed[0] == '['
}
