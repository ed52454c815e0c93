package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single request when neither the client nor the
	// caller supplies one.
	DefaultTimeout = 10 * time.Second

	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	headerRequestID   = "X-Request-ID"

	contentTypeJSON = "application/json"
)

// errServerStatus marks a 5xx response so the circuit breaker counts it as a
// failure while the response still reaches status classification.
var errServerStatus = errors.New("upstream server error")

// Client issues HTTP requests against a configured base URL and classifies
// every failure into an *Error. A single request is one attempt; there are no
// retries.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	logger       zerolog.Logger
	breaker      *gobreaker.CircuitBreaker
	limiter      *rate.Limiter
	newRequestID func() string
}

// Option modifies a Client during construction.
type Option func(*Client)

// WithTimeout sets the default per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithCircuitBreaker opens the circuit after maxFailures consecutive
// transport or 5xx failures, rejecting requests for openFor before probing
// again. Rejected requests fail with CodeUnavailable.
func WithCircuitBreaker(name string, maxFailures uint32, openFor time.Duration) Option {
	return func(c *Client) {
		settings := gobreaker.Settings{
			Name:    name,
			Timeout: openFor,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				c.logger.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("circuit breaker state change")
			},
		}
		c.breaker = gobreaker.NewCircuitBreaker(settings)
	}
}

// WithRateLimit throttles outgoing requests client-side. Each request waits
// for a token, honouring the request context.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRequestIDFunc sets the request ID generator (primarily for testing).
func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) {
		c.newRequestID = fn
	}
}

// New creates a Client for the given base URL.
func New(baseURL string, logger zerolog.Logger, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[New] baseURL is required")
	}

	client := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{},
		timeout:      DefaultTimeout,
		logger:       logger,
		newRequestID: uuid.NewString,
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

// RequestOptions carries per-request overrides.
type RequestOptions struct {
	Headers http.Header
	Query   url.Values
	Timeout time.Duration
}

// MultipartBody is an opaque non-JSON payload. When ContentType is empty no
// Content-Type header is sent, leaving the transport free to set a multipart
// boundary itself.
type MultipartBody struct {
	ContentType string
	Body        io.Reader
}

// Response is a completed 2xx response. Data holds the raw body; JSON decodes
// it when the server declared a JSON content type.
type Response struct {
	Data       []byte
	Status     int
	StatusText string
	Header     http.Header
}

// IsJSON reports whether the response declared a JSON content type.
func (r *Response) IsJSON() bool {
	return strings.Contains(r.Header.Get(headerContentType), contentTypeJSON)
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Data, v); err != nil {
		return errors.Wrap(err, "[JSON] decoding response body")
	}
	return nil
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Data)
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, endpoint string, opts *RequestOptions) (*Response, error) {
	return c.Do(ctx, http.MethodGet, endpoint, nil, opts)
}

// Post issues a POST request with a JSON-encoded body.
func (c *Client) Post(ctx context.Context, endpoint string, body any, opts *RequestOptions) (*Response, error) {
	return c.Do(ctx, http.MethodPost, endpoint, body, opts)
}

// Put issues a PUT request with a JSON-encoded body.
func (c *Client) Put(ctx context.Context, endpoint string, body any, opts *RequestOptions) (*Response, error) {
	return c.Do(ctx, http.MethodPut, endpoint, body, opts)
}

// Patch issues a PATCH request with a JSON-encoded body.
func (c *Client) Patch(ctx context.Context, endpoint string, body any, opts *RequestOptions) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, endpoint, body, opts)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string, opts *RequestOptions) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, endpoint, nil, opts)
}

// Do performs a single request attempt. body is JSON-serialized unless it is
// a *MultipartBody; GET and DELETE requests never carry a body. All failures
// are returned as *Error.
func (c *Client) Do(ctx context.Context, method, endpoint string, body any, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	timeout := c.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.classifyTransportError(err)
		}
	}

	requestURL := c.buildURL(endpoint, opts.Query)

	req, err := c.newRequest(ctx, method, requestURL, body, opts.Headers)
	if err != nil {
		return nil, &Error{Code: CodeUnknown, Message: "failed to build request", Err: err}
	}

	requestID := c.newRequestID()
	req.Header.Set(headerRequestID, requestID)

	started := time.Now()
	resp, err := c.execute(req)
	if err != nil && !errors.Is(err, errServerStatus) {
		c.logger.Error().
			Str("method", method).
			Str("url", requestURL).
			Str("request_id", requestID).
			Err(err).
			Msg("api request failed")
		return nil, c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, &Error{Code: CodeUnknown, Message: "failed to read response body", Err: readErr}
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", requestURL).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp.StatusCode, resp.Status, data)
	}

	return &Response{
		Data:       data,
		Status:     resp.StatusCode,
		StatusText: resp.Status,
		Header:     resp.Header,
	}, nil
}

// newRequest assembles the outgoing request with default and per-request
// headers. Multipart bodies suppress the JSON Content-Type so the transport
// can set the boundary.
func (c *Client) newRequest(ctx context.Context, method, requestURL string, body any, headers http.Header) (*http.Request, error) {
	var reader io.Reader
	jsonBody := false

	if body != nil && method != http.MethodGet && method != http.MethodDelete {
		switch payload := body.(type) {
		case *MultipartBody:
			reader = payload.Body
		default:
			encoded, err := json.Marshal(body)
			if err != nil {
				return nil, errors.Wrap(err, "[newRequest] marshalling body")
			}
			reader = bytes.NewReader(encoded)
			jsonBody = true
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, errors.Wrap(err, "[newRequest] building request")
	}

	req.Header.Set(headerAccept, contentTypeJSON)
	if jsonBody || reader == nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	} else if payload, ok := body.(*MultipartBody); ok && payload.ContentType != "" {
		req.Header.Set(headerContentType, payload.ContentType)
	}

	for key, values := range headers {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	return req, nil
}

// execute runs the request, through the circuit breaker when configured. A
// 5xx response is returned alongside errServerStatus so the breaker counts it.
func (c *Client) execute(req *http.Request) (*http.Response, error) {
	doRequest := func() (*http.Response, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, errServerStatus
		}
		return resp, nil
	}

	if c.breaker == nil {
		return doRequest()
	}

	value, err := c.breaker.Execute(func() (interface{}, error) {
		return doRequest()
	})
	resp, _ := value.(*http.Response)
	return resp, err
}

// classifyTransportError maps transport-level failures: timeouts, breaker
// rejections, connectivity faults, then everything else.
func (c *Client) classifyTransportError(err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: CodeTimeout, Status: 408, Message: "Request timeout. Please try again.", Err: err}
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &Error{Code: CodeUnavailable, Status: 503, Message: "Service unavailable. Please try again later.", Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Code: CodeUnknown, Message: "request canceled", Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &Error{Code: CodeNetwork, Message: "Network error. Please check your internet connection.", Err: err}
	}

	return &Error{Code: CodeUnknown, Message: err.Error(), Err: err}
}

// newStatusError builds the error for a non-2xx response, preferring a
// detail/message field from a JSON error body over the HTTP status text.
func newStatusError(status int, statusText string, body []byte) *Error {
	code, message := classifyStatus(status)

	detail := errorDetail(body)
	if detail == "" {
		detail = statusText
	}

	return &Error{
		Code:    code,
		Status:  status,
		Message: message,
		Err:     errors.New(detail),
	}
}

// errorDetail extracts a human-readable message from a JSON error body, if
// there is one.
func errorDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		return detail
	}
	return string(payload.Detail)
}

// buildURL joins the base URL and endpoint with exactly one slash and appends
// query parameters, skipping empty values.
func (c *Client) buildURL(endpoint string, query url.Values) string {
	base := strings.TrimRight(c.baseURL, "/")
	path := strings.TrimLeft(endpoint, "/")

	requestURL := base
	if path != "" {
		requestURL = base + "/" + path
	}

	if len(query) == 0 {
		return requestURL
	}

	filtered := url.Values{}
	for key, values := range query {
		for _, value := range values {
			if value == "" {
				continue
			}
			filtered.Add(key, value)
		}
	}
	if encoded := filtered.Encode(); encoded != "" {
		requestURL += "?" + encoded
	}
	return requestURL
}
