// Package probe performs single bounded HTTP calls and classifies their
// outcome as success, timeout, network failure, HTTP error or decode error.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/tidwall/gjson"

	apierrors "github.com/danitzn/sb-frontend/internal/errors"
	"github.com/danitzn/sb-frontend/internal/logging"
)

// MaxResponseSize caps how much of a response body is read.
const MaxResponseSize = 10 * 1024 * 1024

// clientTimeoutSeconds is the transport-level ceiling. Per-request deadlines
// are always shorter and come from Request.Timeout.
const clientTimeoutSeconds = 120

// Doer is the subset of tls_client.HttpClient the prober needs
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes one outbound call
type Request struct {
	Method  string
	URL     string
	Header  map[string]string
	Body    any // JSON-encoded when non-nil
	Timeout time.Duration
}

// Prober issues requests through a Doer
type Prober struct {
	client  Doer
	logger  *slog.Logger
	maxBody int64
}

// Option configures a Prober
type Option func(*Prober)

// WithHTTPClient replaces the default TLS client
func WithHTTPClient(client Doer) Option {
	return func(p *Prober) {
		p.client = client
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMaxBody overrides MaxResponseSize
func WithMaxBody(n int64) Option {
	return func(p *Prober) {
		if n > 0 {
			p.maxBody = n
		}
	}
}

// NewHTTPClient creates the default transport: a Chrome TLS fingerprint so
// Cloudflare tunnels treat the client like a browser.
func NewHTTPClient() (tls_client.HttpClient, error) {
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(clientTimeoutSeconds),
		tls_client.WithClientProfile(profiles.Chrome_120),
	}

	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	return client, nil
}

// New creates a Prober. Without WithHTTPClient it builds a TLS client.
func New(opts ...Option) (*Prober, error) {
	p := &Prober{
		logger:  logging.Discard(),
		maxBody: MaxResponseSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		client, err := NewHTTPClient()
		if err != nil {
			return nil, err
		}
		p.client = client
	}

	return p, nil
}

// Do performs the request once. A Response is returned whenever the server
// answered, including alongside an HTTPError or DecodeError.
func (p *Prober) Do(ctx context.Context, r Request) (*Response, error) {
	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}

	if err := validateURL(r.URL); err != nil {
		return nil, apierrors.NewNetworkError(method, r.URL, err)
	}

	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, apierrors.NewNetworkError(method, r.URL, err)
	}
	for key, value := range r.Header {
		req.Header.Set(key, value)
	}

	p.logger.Debug("probe request", "method", method, "url", r.URL, "timeout", r.Timeout)

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("probe failed", "method", method, "url", r.URL, "elapsed", time.Since(start), "error", err)
		return nil, classifyTransport(ctx, method, r, err)
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBody))
	if err != nil {
		return nil, classifyTransport(ctx, method, r, err)
	}

	out := &Response{
		URL:        r.URL,
		StatusCode: resp.StatusCode,
		Header:     flattenHeader(resp.Header),
		Body:       data,
		Elapsed:    time.Since(start),
	}

	p.logger.Debug("probe response", "method", method, "url", r.URL, "status", out.StatusCode, "elapsed", out.Elapsed)

	if !out.OK() {
		return out, apierrors.NewHTTPError(out.StatusCode, r.URL, string(data))
	}
	if !gjson.ValidBytes(data) {
		return out, apierrors.NewDecodeError(out.StatusCode, r.URL, string(data), nil)
	}

	return out, nil
}

// classifyTransport separates deadline expiry from every other failure to
// obtain a response.
func classifyTransport(ctx context.Context, method string, r Request, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		timeout := ""
		if r.Timeout > 0 {
			timeout = r.Timeout.String()
		}
		return apierrors.NewTimeoutError(r.URL, timeout)
	}
	return apierrors.NewNetworkError(method, r.URL, err)
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", apierrors.ErrInvalidURL, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return apierrors.ErrInvalidURL
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: missing host", apierrors.ErrInvalidURL)
	}
	return nil
}

// Origin returns the scheme and host of raw with path, query and fragment
// stripped.
func Origin(raw string) (string, error) {
	if err := validateURL(raw); err != nil {
		return "", err
	}
	parsed, _ := url.Parse(raw)
	return parsed.Scheme + "://" + parsed.Host, nil
}
