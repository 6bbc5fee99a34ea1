package core

import (
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// This file contains the port definitions between the service layer and its adapters.
// Services depend on these interfaces, never on concrete transports or file systems.

// Request describes one API call.
type Request struct {
	Method string
	URL    string
	// Header is sent as-is. Content-Type and Accept default to application/json.
	Header http.Header
	// Body is JSON-encoded when non-nil.
	Body any
	// Token, when set, is applied as the Authorization header.
	Token *oauth2.Token
}

// Response is the status code and decoded JSON body of an API call.
type Response struct {
	StatusCode int
	// Body is the decoded JSON document (map[string]any, []any, string, ...).
	// It is nil when the response had no body or the body was not JSON.
	Body any
}

// OK reports whether the server answered with a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// Transport sends a request and returns the status and parsed body. Only network
// and protocol failures are errors; non-2xx statuses are returned in Response.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// ReportWriter persists decoded report bytes at a path, all or nothing.
type ReportWriter interface {
	WriteReport(ctx context.Context, path string, content io.Reader) (int64, error)
}

// Clock is the time source of the poller.
type Clock interface {
	Now() time.Time
	// Sleep waits for d or until ctx is done, whichever is first.
	Sleep(ctx context.Context, d time.Duration) error
}
