package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

const (
	serviceWorkflow = "workflow"
	serviceData     = "data"
	serviceSystem   = "system"
	serviceCDN      = "cdn"

	maxResponseBytes = 8 << 20
)

// Config holds the base URLs of the back-office services.
type Config struct {
	WorkflowURL string
	DataURL     string
	SystemURL   string
	CDNURL      string
	Timeout     time.Duration
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient injects the HTTP client used for every call.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// WithLogger sets the logger used for call diagnostics.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		if logger != nil {
			c.log = logger
		}
	}
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// Client bundles the four service clients over one transport.
type Client struct {
	cfg     Config
	http    *http.Client
	log     logrus.FieldLogger
	metrics *Metrics

	Workflow *WorkflowService
	Data     *DataService
	System   *SystemService
	CDN      *CDNService
}

// New constructs a Client. Missing base URLs are reported lazily when the
// corresponding service is called.
func New(cfg Config, options ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  discardLogger(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	c.Workflow = &WorkflowService{c: c}
	c.Data = &DataService{c: c}
	c.System = &SystemService{c: c}
	c.CDN = &CDNService{c: c}
	return c
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type call struct {
	service     string
	op          string
	method      string
	url         string
	body        io.Reader
	contentType string
}

func jsonCall(service, op, method, url string, payload any) (call, error) {
	c := call{service: service, op: op, method: method, url: url}
	if payload == nil {
		return c, nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return call{}, fmt.Errorf("client: %s: encode payload: %w", op, err)
	}
	c.body = bytes.NewReader(encoded)
	c.contentType = "application/json"
	return c, nil
}

// do executes the call and returns the decoded envelope. The envelope is also
// returned alongside HTTP and business errors so callers can inspect data.
func (c *Client) do(ctx context.Context, session Session, spec call) (Envelope, error) {
	started := time.Now()
	env, err := c.roundTrip(ctx, session, spec)
	c.metrics.observe(spec.service, spec.op, started, err)

	entry := c.log.WithFields(logrus.Fields{
		"service":  spec.service,
		"op":       spec.op,
		"duration": time.Since(started).String(),
	})
	if err != nil {
		entry.WithError(err).Warn("back-office call failed")
	} else {
		entry.Debug("back-office call succeeded")
	}
	return env, err
}

func (c *Client) roundTrip(ctx context.Context, session Session, spec call) (Envelope, error) {
	if ctx == nil {
		return Envelope{}, errors.New("client: context is required")
	}
	if !session.Valid() {
		return Envelope{}, ErrNoSession
	}
	if strings.TrimSpace(spec.url) == "" || strings.HasPrefix(spec.url, "/") {
		return Envelope{}, fmt.Errorf("client: %s: %s service url is not configured", spec.op, spec.service)
	}

	req, err := http.NewRequestWithContext(ctx, spec.method, spec.url, spec.body)
	if err != nil {
		return Envelope{}, fmt.Errorf("client: %s: build request: %w", spec.op, err)
	}
	req.Header.Set("Authorization", "Bearer "+session.Token)
	req.Header.Set("Accept-Language", session.EffectiveLocale())
	req.Header.Set("Accept", "application/json")
	if spec.contentType != "" {
		req.Header.Set("Content-Type", spec.contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Envelope{}, &NetworkError{Op: spec.op, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Envelope{}, &NetworkError{Op: spec.op, Err: err}
	}

	var env Envelope
	decodeErr := decodeEnvelope(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return env, &HTTPError{
			Op:       spec.op,
			Status:   resp.StatusCode,
			Body:     truncate(strings.TrimSpace(string(raw)), 512),
			Messages: env.Messages(),
		}
	}
	if decodeErr != nil {
		return Envelope{}, fmt.Errorf("client: %s: decode response: %w", spec.op, decodeErr)
	}
	if len(env.Errors) > 0 {
		return env, &BusinessError{Op: spec.op, Entries: env.Errors}
	}
	if !IsValidResponse(&env) {
		status, ok := env.Status.Code()
		if !ok {
			status = http.StatusBadGateway
		}
		return env, &HTTPError{Op: spec.op, Status: status, Body: string(env.Status)}
	}
	return env, nil
}

func decodeEnvelope(raw []byte, env *Envelope) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, env)
}

// truncate cuts value to at most limit bytes without splitting a rune.
func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	for limit > 0 && !utf8.RuneStart(value[limit]) {
		limit--
	}
	return value[:limit]
}

func joinURL(base string, segments ...string) string {
	out := strings.TrimRight(strings.TrimSpace(base), "/")
	for _, segment := range segments {
		segment = strings.Trim(segment, "/")
		if segment == "" {
			continue
		}
		out += "/" + segment
	}
	return out
}
