package webclient

import (
	"context"
	"net/http"
	"time"
)

// WebClient is the minimal HTTP transport contract used by the scanner
// client and the agent bridge. Keeping it this small lets tests inject a
// scripted transport without real network I/O.
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	// Get is a convenience method for simple GET requests
	Get(ctx context.Context, url string) (*Response, error)

	Close() error
}

type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int
	FetchedAt  time.Time
}
