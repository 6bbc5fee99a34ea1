// Package httptransport implements core.Transport over net/http with JSON bodies.
package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/target/reportfetch/internal/core"
)

const (
	defaultUserAgent = "reportfetch/1.0"
	defaultTimeout   = 30 * time.Second
	// Report payloads arrive base64-encoded inside JSON; this bounds memory per response.
	defaultMaxBodyBytes int64 = 512 << 20
)

// ErrBodyTooLarge is returned when a response exceeds Config.MaxBodyBytes.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

// Config configures the transport.
type Config struct {
	Client       *http.Client
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// Transport sends JSON requests and decodes JSON responses.
type Transport struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	logger       *slog.Logger
}

var _ core.Transport = (*Transport)(nil)

// New builds a Transport. Zero-valued fields take defaults.
func New(cfg Config) *Transport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	limit := cfg.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		client:       hc,
		userAgent:    ua,
		maxBodyBytes: limit,
		logger:       logger.With("component", "http_transport"),
	}
}

// Do executes req. Non-2xx statuses are not errors; the caller decides.
func (t *Transport) Do(ctx context.Context, req core.Request) (*core.Response, error) {
	httpReq, err := t.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(raw)) > t.maxBodyBytes {
		return nil, fmt.Errorf("%s %s: %w (%d bytes)", req.Method, redactURL(req.URL), ErrBodyTooLarge, t.maxBodyBytes)
	}

	t.logger.DebugContext(ctx, "api request",
		"method", req.Method,
		"url", redactURL(req.URL),
		"status", resp.StatusCode,
		"bytes", len(raw),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &core.Response{
		StatusCode: resp.StatusCode,
		Body:       decodeBody(raw),
	}, nil
}

func (t *Transport) newRequest(ctx context.Context, req core.Request) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("User-Agent", t.userAgent)
	if req.Token != nil {
		req.Token.SetAuthHeader(httpReq)
	}
	return httpReq, nil
}

// decodeBody parses JSON with json.Number so numeric identifiers survive intact.
// Empty or non-JSON bodies decode to nil.
func decodeBody(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

// redactURL drops the query string, which may carry signed download parameters.
func redactURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
