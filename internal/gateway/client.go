package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"etapas-cli/internal/model"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 10 * time.Second
	// DefaultListRetry is how long List keeps retrying transient network errors.
	DefaultListRetry = 3 * time.Second

	resourcePath    = "etapas"
	maxErrorBody    = 1 << 20
	tracerName      = "etapas-cli/internal/gateway"
	attrEtapaID     = "etapas.id"
	attrStatusCode  = "http.response.status_code"
	attrRecordCount = "etapas.count"
)

// Client is an HTTP implementation of Gateway.
type Client struct {
	baseURL      *url.URL
	httpClient   *http.Client
	headers      http.Header
	tracer       trace.Tracer
	newListRetry func() backoff.BackOff
}

var _ Gateway = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client. It replaces any timeout set before it.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// WithHeader adds a header to every request (e.g. Authorization).
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set(key, value)
		}
	}
}

// WithBearerToken sets the Authorization header when token is not empty.
func WithBearerToken(token string) ClientOption {
	token = strings.TrimSpace(token)
	if token == "" {
		return func(*Client) {}
	}
	return WithHeader("Authorization", "Bearer "+token)
}

// WithTracer sets the tracer used for request spans.
func WithTracer(t trace.Tracer) ClientOption {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithListBackoff sets the retry policy for List. Pass nil to disable retries.
func WithListBackoff(newBackoff func() backoff.BackOff) ClientOption {
	return func(c *Client) {
		c.newListRetry = newBackoff
	}
}

// NewClient creates a client for the API rooted at baseURL (e.g. http://host/api).
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("gateway: base URL is empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("gateway: parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("gateway: unsupported scheme %q", u.Scheme)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		headers:    http.Header{},
		tracer:     otel.Tracer(tracerName),
		newListRetry: func() backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(100*time.Millisecond),
				backoff.WithMaxInterval(1*time.Second),
				backoff.WithMaxElapsedTime(DefaultListRetry),
			)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL.String() }

func (c *Client) List(ctx context.Context) ([]model.Etapa, error) {
	ctx, span := c.tracer.Start(ctx, "etapas.list")
	defer span.End()

	attempt := func() ([]model.Etapa, error) {
		var out []model.Etapa
		err := c.do(ctx, OpList, http.MethodGet, c.collectionURL(), nil, &out)
		if err != nil {
			if isTransient(err) {
				slog.Debug("Retrying etapas list due to network error.", "err", err)
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return out, nil
	}

	var (
		out []model.Etapa
		err error
	)
	if c.newListRetry == nil {
		out, err = attempt()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
	} else {
		out, err = backoff.RetryWithData(attempt, backoff.WithContext(c.newListRetry(), ctx))
	}
	if err != nil {
		endWithError(span, err)
		return nil, err
	}
	if out == nil {
		out = []model.Etapa{}
	}
	span.SetAttributes(attribute.Int(attrRecordCount, len(out)))
	return out, nil
}

func (c *Client) Create(ctx context.Context, p model.Payload) (model.Etapa, error) {
	ctx, span := c.tracer.Start(ctx, "etapas.create")
	defer span.End()

	var out model.Etapa
	if err := c.do(ctx, OpCreate, http.MethodPost, c.collectionURL(), p, &out); err != nil {
		endWithError(span, err)
		return model.Etapa{}, err
	}
	span.SetAttributes(attribute.String(attrEtapaID, out.ID))
	return out, nil
}

func (c *Client) Update(ctx context.Context, id string, p model.Payload) (model.Etapa, error) {
	ctx, span := c.tracer.Start(ctx, "etapas.update", trace.WithAttributes(attribute.String(attrEtapaID, id)))
	defer span.End()

	if strings.TrimSpace(id) == "" {
		err := &Error{Op: OpUpdate, Description: "id da etapa ausente"}
		endWithError(span, err)
		return model.Etapa{}, err
	}
	var out model.Etapa
	if err := c.do(ctx, OpUpdate, http.MethodPut, c.itemURL(id), p, &out); err != nil {
		endWithError(span, err)
		return model.Etapa{}, err
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	ctx, span := c.tracer.Start(ctx, "etapas.delete", trace.WithAttributes(attribute.String(attrEtapaID, id)))
	defer span.End()

	if strings.TrimSpace(id) == "" {
		err := &Error{Op: OpDelete, Description: "id da etapa ausente"}
		endWithError(span, err)
		return err
	}
	if err := c.do(ctx, OpDelete, http.MethodDelete, c.itemURL(id), nil, nil); err != nil {
		endWithError(span, err)
		return err
	}
	return nil
}

func (c *Client) collectionURL() string {
	return c.baseURL.JoinPath(resourcePath).String()
}

func (c *Client) itemURL(id string) string {
	return c.baseURL.JoinPath(resourcePath, url.PathEscape(id)).String()
}

func (c *Client) do(ctx context.Context, op, method, target string, in any, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &Error{Op: op, Description: "falha ao codificar a etapa", Err: err}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &Error{Op: op, Description: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Description: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(attrStatusCode, resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Op: op, StatusCode: resp.StatusCode, Description: describeBody(resp.StatusCode, b)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Description: "resposta inválida da API: " + err.Error(), Err: err}
	}
	return nil
}

// describeBody prefers the API's own message ({"message": ...} or {"error": ...}).
func describeBody(status int, b []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(b, &envelope); err == nil {
		if s := strings.TrimSpace(envelope.Message); s != "" {
			return s
		}
		if s := strings.TrimSpace(envelope.Error); s != "" {
			return s
		}
	}
	if s := strings.TrimSpace(string(b)); s != "" && len(s) <= 200 && !strings.HasPrefix(s, "<") {
		return s
	}
	if t := http.StatusText(status); t != "" {
		return t
	}
	return fmt.Sprintf("status %d", status)
}

func isTransient(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func endWithError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, strings.TrimSpace(Describe(err)))
}
