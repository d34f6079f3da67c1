package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	headerUserID    = "X-User-Id"
	headerRequestID = "X-Request-Id"
)

// Options configures a Client
type Options struct {
	BaseURL       string
	UserID        string
	RetryAttempts int
	RetryDelay    time.Duration
	Timeout       time.Duration

	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client is the single point of outbound HTTP to the task service
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	retries    int
	retryDelay time.Duration
	logger     *log.Logger

	mu     sync.RWMutex
	userID string

	// sleep waits between attempts; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds a client for the service at opts.BaseURL
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url %q: scheme must be http or https", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	retries := opts.RetryAttempts
	if retries < 0 {
		retries = 0
	}

	return &Client{
		baseURL:    base,
		http:       httpClient,
		retries:    retries,
		retryDelay: opts.RetryDelay,
		logger:     logger,
		userID:     opts.UserID,
		sleep:      sleepContext,
	}, nil
}

// SetUserID switches the identity sent with subsequent requests
func (c *Client) SetUserID(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
}

// UserID returns the identity currently sent with requests
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// Get fetches path and decodes the JSON response into out
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post sends body as JSON and decodes the response into out
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// Put sends body as JSON and decodes the response into out
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

// Delete removes the resource at path; a response body, if any, is decoded into out
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, out)
}

// do runs one logical request. attempt is local, so concurrent requests
// each get their own retry budget.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return &Error{Message: fmt.Sprintf("encode request body: %v", err)}
		}
	}

	target := c.resolve(path, query)
	requestID := uuid.NewString()

	for attempt := 0; ; attempt++ {
		respBody, apiErr := c.send(ctx, method, target, requestID, payload)
		if apiErr == nil {
			return decode(respBody, out)
		}

		if ctx.Err() != nil {
			return &Error{Message: ctx.Err().Error()}
		}
		if !apiErr.Retryable() || attempt >= c.retries {
			return apiErr
		}

		delay := c.backoff(attempt + 1)
		c.logger.Printf("retry request_id=%s method=%s path=%s status=%d attempt=%d delay=%s",
			requestID, method, path, apiErr.Status, attempt+1, delay)

		if err := c.sleep(ctx, delay); err != nil {
			return &Error{Message: err.Error()}
		}
	}
}

// backoff returns RetryDelay * 2^(retry-1) for retry >= 1
func (c *Client) backoff(retry int) time.Duration {
	return c.retryDelay * time.Duration(1<<(retry-1))
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.baseURL

	// path may carry escaped segments (ids); keep them escaped exactly once
	ref, err := url.Parse(path)
	if err != nil {
		ref = &url.URL{Path: path}
	}
	escaped := strings.TrimRight(c.baseURL.EscapedPath(), "/") + "/" + strings.TrimLeft(ref.EscapedPath(), "/")
	u.RawPath = escaped
	if unescaped, err := url.PathUnescape(escaped); err == nil {
		u.Path = unescaped
	} else {
		u.Path = escaped
	}

	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) send(ctx context.Context, method, target, requestID string, payload []byte) ([]byte, *Error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerUserID, c.UserID())
	req.Header.Set(headerRequestID, requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Message: noResponseMessage}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: noResponseMessage}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errorFromResponse(resp.StatusCode, data)
	}
	return data, nil
}

// errorFromResponse prefers the server's {message, timestamp} body
func errorFromResponse(status int, data []byte) *Error {
	var body struct {
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}
	_ = json.Unmarshal(data, &body)

	message := body.Message
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = "An error occurred"
	}
	return &Error{Message: message, Status: status, Timestamp: body.Timestamp}
}

func decode(data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
