// Package transport carries serialized invocation payloads to a
// Bedrock-compatible upstream over HTTP. It is handed to the adapter host
// as an explicit handle; nothing in it is ambient or global.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// maxEventBytes bounds a single streamed event line (1 MiB).
const maxEventBytes = 1 << 20

// Client sends invocation payloads to the configured upstreams. Routes are
// matched against the model identifier; the first match wins.
type Client struct {
	cfg      *Config
	client   *http.Client
	log      *zap.Logger
	matchers map[string]*regexp.Regexp // route ID -> compiled model pattern
}

// NewClient compiles the route patterns and returns a ready client.
func NewClient(cfg *Config, log *zap.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}

	matchers := make(map[string]*regexp.Regexp, len(cfg.Routes))
	for _, route := range cfg.Routes {
		re, err := regexp.Compile(route.ModelPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid model pattern for route %s: %w", route.ID, err)
		}
		matchers[route.ID] = re
	}

	return &Client{
		cfg:      cfg,
		log:      log,
		matchers: matchers,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// WithHTTPClient swaps the underlying HTTP client. Used by tests and hosts
// that manage their own transport settings.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.client = client
	return c
}

// route returns the first route matching modelID, or nil when the default
// upstream applies.
func (c *Client) route(modelID string) *Route {
	for i := range c.cfg.Routes {
		route := &c.cfg.Routes[i]
		re := c.matchers[route.ID]
		if re != nil && re.MatchString(modelID) {
			return route
		}
	}
	return nil
}

// upstreamFor resolves the upstream and header policy for modelID.
func (c *Client) upstreamFor(modelID string) (Upstream, *Route) {
	if route := c.route(modelID); route != nil {
		return route.Upstream.normalize(), route
	}
	return c.cfg.Default.normalize(), nil
}

// Invoke POSTs payload to the whole-call endpoint for modelID and returns
// the raw response document. Accept and Content-Type are both
// application/json.
func (c *Client) Invoke(ctx context.Context, modelID string, payload []byte) ([]byte, error) {
	upstream, route := c.upstreamFor(modelID)

	body := payload
	if route != nil {
		var err error
		body, err = c.applyTransforms(route, payload)
		if err != nil {
			return nil, fmt.Errorf("transform error: %w", err)
		}
	}

	resp, err := c.send(ctx, upstream, route, upstream.InvokePath, modelID, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleHTTPError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// InvokeStream POSTs payload to the streaming endpoint for modelID and
// returns a channel of raw event chunks. Events arrive as newline-delimited
// frames (bare JSON or SSE "data:" lines); chunks wrapped in the Bedrock
// {"chunk":{"bytes":"<base64>"}} envelope are unwrapped before delivery.
// The channel closes when the upstream closes the event source or ctx is
// done.
func (c *Client) InvokeStream(ctx context.Context, modelID string, payload []byte) (<-chan []byte, error) {
	upstream, route := c.upstreamFor(modelID)

	body := payload
	if route != nil {
		var err error
		body, err = c.applyTransforms(route, payload)
		if err != nil {
			return nil, fmt.Errorf("transform error: %w", err)
		}
	}

	resp, err := c.send(ctx, upstream, route, upstream.StreamPath, modelID, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, c.handleHTTPError(resp.StatusCode, respBody)
	}

	events := make(chan []byte)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxEventBytes)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			line = bytes.TrimPrefix(line, []byte("data:"))
			line = bytes.TrimSpace(line)
			if bytes.Equal(line, []byte("[DONE]")) {
				return
			}

			chunk := unwrapEnvelope(line)
			select {
			case events <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			c.log.Warn("event stream terminated",
				zap.String("model", modelID),
				zap.Error(err),
			)
		}
	}()

	return events, nil
}

// ListModels GETs the catalog listing from the default upstream.
func (c *Client) ListModels(ctx context.Context) ([]byte, error) {
	upstream := c.cfg.Default.normalize()

	reqURL := resolveEnv(upstream.BaseURL) + upstream.ModelsPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	for key, values := range c.buildAuthHeaders(upstream) {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.handleHTTPError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// send builds and executes the POST for one invocation.
func (c *Client) send(ctx context.Context, upstream Upstream, route *Route, path, modelID string, body []byte) (*http.Response, error) {
	reqURL := resolveEnv(upstream.BaseURL) + strings.ReplaceAll(path, "{model}", url.PathEscape(modelID))

	if upstream.AuthStrategy == AuthStrategyQuery {
		if token := os.Getenv(upstream.TokenEnv); token != "" {
			sep := "?"
			if strings.Contains(reqURL, "?") {
				sep = "&"
			}
			reqURL += sep + "api_key=" + url.QueryEscape(token)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	headers := c.buildHeaders(upstream, route)
	for key, values := range headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// buildHeaders applies the route header policy and auth strategy. Accept
// and Content-Type are always application/json.
func (c *Client) buildHeaders(upstream Upstream, route *Route) http.Header {
	headers := make(http.Header)

	if route != nil {
		for key, value := range route.HeaderPolicy.Set {
			if resolved := resolveEnv(value); resolved != "" {
				headers.Set(key, resolved)
			}
		}
		for _, name := range route.HeaderPolicy.Remove {
			headers.Del(name)
		}
	}

	for key, values := range c.buildAuthHeaders(upstream) {
		for _, value := range values {
			headers.Set(key, value)
		}
	}

	headers.Set("Accept", "application/json")
	headers.Set("Content-Type", "application/json")
	return headers
}

// buildAuthHeaders constructs authentication headers based on the
// upstream's auth strategy.
func (c *Client) buildAuthHeaders(upstream Upstream) http.Header {
	headers := make(http.Header)

	token := os.Getenv(upstream.TokenEnv)
	if token == "" {
		return headers
	}

	switch upstream.AuthStrategy {
	case AuthStrategyHeader:
		name := upstream.HeaderName
		if name == "" {
			name = "Authorization"
		}
		headers.Set(name, token)
	case AuthStrategyQuery:
		// handled in send via query params
	default:
		headers.Set("Authorization", "Bearer "+token)
	}

	return headers
}

// handleHTTPError maps upstream error responses to errors.
func (c *Client) handleHTTPError(statusCode int, body []byte) error {
	root, err := sonic.Get(body)
	var errMsg string
	if err == nil {
		// Try OpenAI-style error envelope first
		errMsg, _ = root.Get("error").Get("message").String()
		if errMsg == "" {
			// Then the simple message format Bedrock uses
			errMsg, _ = root.Get("message").String()
		}
	}
	if errMsg == "" {
		return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("unauthorized: %s", errMsg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limit exceeded: %s", errMsg)
	case http.StatusBadRequest:
		return fmt.Errorf("bad request: %s", errMsg)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, errMsg)
	}
}

// resolveEnv expands "env:VAR" values to the environment variable contents.
func resolveEnv(value string) string {
	if strings.HasPrefix(value, "env:") {
		return os.Getenv(value[4:])
	}
	return value
}
