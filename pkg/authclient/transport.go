package authclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Request is an outbound request as the coordinator sees it. The body is a
// byte slice rather than a reader so the request can be dispatched twice
// (once initially, once on the post-refresh retry).
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte

	// Timeout bounds this single dispatch. Zero means the transport's own
	// default applies.
	Timeout time.Duration
}

// Response is a fully-read response. Reading the body eagerly keeps retry
// logic simple and lets the original 401 body be returned verbatim when a
// refresh fails.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// AuthErrorFromResponse converts a non-2xx response into a typed AuthError.
// Returns nil for 2xx responses.
func (r *Response) AuthErrorFromResponse() *AuthError {
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return nil
	}
	return parseErrorResponse(r.StatusCode, r.Body)
}

// Transport dispatches a single request. Implementations must honor ctx
// cancellation and must not retry internally; retry policy belongs to the
// coordinator.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport is the net/http-backed Transport.
type HTTPTransport struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPTransport creates a transport against the given base URL with a
// 10 second default timeout.
func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.BaseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("authclient: build request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}
