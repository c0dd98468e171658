package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/uhyunpark/polyperp/pkg/sdkerr"
)

const (
	HeaderAPIKey    = "x-api-key"
	HeaderRequestID = "X-Request-Id"
)

// Client is a JSON-over-HTTP client rooted at one base URL. It never retries;
// callers bound latency through ctx.
type Client struct {
	baseURL    string
	creds      *Credentials
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Client)

// WithHTTPClient swaps the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a client for baseURL. A trailing slash on baseURL is ignored.
func New(baseURL string, creds *Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do sends one request and decodes a 2xx JSON response into out (nil to
// discard). Non-2xx responses become KindAPI errors; anything that prevents a
// response from being read becomes KindNetwork.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")
	errCtx := map[string]any{"url": url, "method": method}

	var reader io.Reader
	if body != nil && (method == http.MethodPost || method == http.MethodPut) {
		buf, err := json.Marshal(body)
		if err != nil {
			return sdkerr.Wrap(sdkerr.KindNetwork, err, "Request failed: cannot encode body", errCtx)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return sdkerr.Wrap(sdkerr.KindNetwork, err, "Request failed", errCtx)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderAPIKey, c.creds.APIKey())
	req.Header.Set(HeaderRequestID, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("http_request_failed",
			zap.String("method", method), zap.String("url", url),
			zap.String("request_id", requestID), zap.Error(err))
		return sdkerr.Wrap(sdkerr.KindNetwork, err,
			fmt.Sprintf("Network error: Unable to connect to %s", url), errCtx)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return sdkerr.Wrap(sdkerr.KindNetwork, err, "Request failed: cannot read response", errCtx)
	}

	c.logger.Debug("http_request",
		zap.String("method", method), zap.String("url", url),
		zap.Int("status", resp.StatusCode), zap.String("request_id", requestID),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errCtx["requestId"] = requestID
		return sdkerr.NewAPI(errorMessage(resp, data), resp.StatusCode, decodeBody(resp, data), errCtx)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok && !gjson.ValidBytes(data) {
		// plain-text success bodies surface as a JSON string
		*raw, _ = json.Marshal(string(data))
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return sdkerr.Wrap(sdkerr.KindNetwork, err, "Request failed: cannot decode response", errCtx)
	}
	return nil
}

// errorMessage prefers the body's "message", then "error", then the status text
func errorMessage(resp *http.Response, data []byte) string {
	if isJSON(resp) && gjson.ValidBytes(data) {
		for _, field := range []string{"message", "error"} {
			if v := gjson.GetBytes(data, field); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}

func decodeBody(resp *http.Response, data []byte) any {
	if isJSON(resp) && gjson.ValidBytes(data) {
		return gjson.ParseBytes(data).Value()
	}
	return string(data)
}

func isJSON(resp *http.Response) bool {
	return strings.Contains(resp.Header.Get("Content-Type"), "application/json")
}
