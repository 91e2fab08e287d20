// Package api is the HTTP adapter for the salon backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"salonbook/internal/metrics"
)

// Auth supplies the bearer token and receives 401 notifications.
// epoch identifies the session generation the token belongs to.
type Auth interface {
	AccessToken() (token string, epoch uint64)
	Expire(epoch uint64)
}

// Client calls the salon REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       Auth
	limiter    *rate.Limiter
	logger     zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client for baseURL. A non-positive timeout means 10s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     zerolog.Nop(),
	}
}

// UseRedisCache configures optional Redis caching for catalog GET endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseRateLimit throttles outbound requests. rps <= 0 disables throttling.
func (c *Client) UseRateLimit(rps float64, burst int) {
	if rps <= 0 {
		c.limiter = nil
		return
	}
	if burst <= 0 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// UseLogger sets the logger.
func (c *Client) UseLogger(l *zerolog.Logger) {
	if l == nil {
		return
	}
	c.logger = l.With().Str("component", "api").Logger()
}

// UseAuth attaches the session that owns the credentials.
func (c *Client) UseAuth(a Auth) {
	c.auth = a
}

// WithAuth returns a copy bound to a different session. Transport, cache and limiter are shared.
func (c *Client) WithAuth(a Auth) *Client {
	cp := *c
	cp.auth = a
	return &cp
}

// HealthCheck checks if the backend answers.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/services/", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (c *Client) dropCache(ctx context.Context, keys ...string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, keys...).Err()
}

// request describes one call. public calls carry no bearer token and
// treat 401 as an ordinary failure.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	public bool
}

func (c *Client) doGet(ctx context.Context, path string, query url.Values, out any) error {
	return c.send(ctx, request{method: http.MethodGet, path: path, query: query}, out)
}

func (c *Client) doPost(ctx context.Context, path string, body, out any) error {
	return c.send(ctx, request{method: http.MethodPost, path: path, body: body}, out)
}

func (c *Client) doPatch(ctx context.Context, path string, body, out any) error {
	return c.send(ctx, request{method: http.MethodPatch, path: path, body: body}, out)
}

func (c *Client) doDelete(ctx context.Context, path string) error {
	return c.send(ctx, request{method: http.MethodDelete, path: path}, nil)
}

func (c *Client) doPublicPost(ctx context.Context, path string, body, out any) error {
	return c.send(ctx, request{method: http.MethodPost, path: path, body: body, public: true}, out)
}

func (c *Client) send(ctx context.Context, r request, out any) error {
	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var body io.Reader = http.NoBody
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", r.path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return err
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	epoch := c.addHeaders(req, r.public)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return c.do(req, r, epoch, out)
}

func (c *Client) do(req *http.Request, r request, epoch uint64, out any) error {
	label := routeLabel(r.method, r.path)
	started := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveAPIRequest(label, 0, time.Since(started))
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()
	metrics.ObserveAPIRequest(label, resp.StatusCode, time.Since(started))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestFailedError{Status: resp.StatusCode, Err: err}
	}

	c.logger.Debug().
		Str("request_id", req.Header.Get("X-Request-ID")).
		Str("route", label).
		Int("status", resp.StatusCode).
		Msg("api call")

	if resp.StatusCode == http.StatusUnauthorized && !r.public {
		if c.auth != nil {
			c.auth.Expire(epoch)
		}
		return ErrAuthExpired
	}
	if resp.StatusCode >= 300 {
		return &RequestFailedError{Status: resp.StatusCode, Message: serverMessage(data)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &RequestFailedError{
			Status: resp.StatusCode,
			Err:    &ShapeError{Endpoint: label, Err: err},
		}
	}
	return nil
}

func (c *Client) addHeaders(req *http.Request, public bool) uint64 {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if public || c.auth == nil {
		return 0
	}
	token, epoch := c.auth.AccessToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return epoch
}

var idSegment = regexp.MustCompile(`/\d+/`)

// routeLabel collapses numeric path segments to keep metric cardinality bounded.
func routeLabel(method, path string) string {
	return method + " " + idSegment.ReplaceAllString(path, "/:id/")
}
