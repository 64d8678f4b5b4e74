// Package apiclient calls the order server on behalf of the mini app and
// the back-office desk. Failures come back as *utils.AppError so callers
// can tell network trouble from business rejections.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yeremiapane/line-order/utils"
)

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token: a LIFF access token for customer calls
// or a staff JWT for back-office calls.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   utils.ErrorKind `json:"error"`
}

type response struct {
	status      int
	contentType string
	body        []byte
}

func (c *Client) send(ctx context.Context, method, path, token string, payload interface{}) (*response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token == "" {
		token = c.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, utils.NewNetworkError(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.NewNetworkError(fmt.Errorf("read %s: %w", path, err))
	}
	return &response{status: resp.StatusCode, contentType: resp.Header.Get("Content-Type"), body: raw}, nil
}

// call performs a JSON request and decodes the envelope's data into out.
// It returns the envelope message. On an error status out still receives
// any data the server attached.
func (c *Client) call(ctx context.Context, method, path, token string, payload, out interface{}) (string, error) {
	resp, err := c.send(ctx, method, path, token, payload)
	if err != nil {
		return "", err
	}

	var env envelope
	if len(bytes.TrimSpace(resp.body)) > 0 {
		if err := json.Unmarshal(resp.body, &env); err != nil {
			if resp.status >= http.StatusBadRequest {
				return "", statusError(resp.status, "", "")
			}
			return "", fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return env.Message, fmt.Errorf("decode %s data: %w", path, err)
		}
	}
	if resp.status >= http.StatusBadRequest {
		return env.Message, statusError(resp.status, env.Error, env.Message)
	}
	return env.Message, nil
}

// raw performs a request whose success body is not an envelope (plain text
// or a document). Error bodies are still envelopes.
func (c *Client) raw(ctx context.Context, method, path string) (*response, error) {
	resp, err := c.send(ctx, method, path, "", nil)
	if err != nil {
		return nil, err
	}
	if resp.status >= http.StatusBadRequest {
		var env envelope
		_ = json.Unmarshal(resp.body, &env)
		return nil, statusError(resp.status, env.Error, env.Message)
	}
	return resp, nil
}

func statusError(status int, kind utils.ErrorKind, message string) *utils.AppError {
	if kind == "" {
		kind = utils.KindFromStatus(status)
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &utils.AppError{Kind: kind, Message: message}
}
