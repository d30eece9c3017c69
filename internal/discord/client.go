package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"reminder-bot/internal/logging"
)

const defaultBaseURL = "https://discord.com/api/v10"

// ErrUnavailable is returned without touching the network while the circuit
// breaker is open.
var ErrUnavailable = errors.New("discord api unavailable (circuit open)")

// Client is a minimal Discord REST client covering the three calls the
// delivery engine needs: channel fetch, message fetch, message send.
type Client struct {
	log        *slog.Logger
	httpClient *http.Client
	token      string
	baseURL    string
	limiter    *rate.Limiter
	retry      RetryConfig
	breaker    *CircuitBreaker
}

type ClientOption func(*Client)

// WithBaseURL overrides the API base URL. Tests point this at httptest.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = h }
}

func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

func NewClient(log *slog.Logger, token string, opts ...ClientOption) *Client {
	c := &Client{
		log:        log,
		httpClient: NewHTTPClient(),
		token:      token,
		baseURL:    defaultBaseURL,
		// Global bot rate limit is 50 req/s; stay well under it.
		limiter: rate.NewLimiter(rate.Limit(25), 25),
		retry:   DefaultRetryConfig(),
		breaker: NewCircuitBreaker(5, 30*time.Second, 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	log.Info("discord_client_ready", "token", logging.MaskToken(token))
	return c
}

func (c *Client) FetchChannel(ctx context.Context, channelID string) (*Channel, error) {
	var ch Channel
	if err := c.do(ctx, http.MethodGet, "/channels/"+channelID, nil, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (c *Client) FetchMessage(ctx context.Context, channelID, messageID string) (*Message, error) {
	var msg Message
	path := fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID)
	if err := c.do(ctx, http.MethodGet, path, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) Send(ctx context.Context, channelID string, payload SendPayload) (*Message, error) {
	var msg Message
	path := fmt.Sprintf("/channels/%s/messages", channelID)
	if err := c.do(ctx, http.MethodPost, path, payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// do performs one API call with rate limiting, 429-aware retries, and
// circuit breaker accounting. Only transport failures and 5xx responses
// count against the breaker; 4xx responses are the caller's problem.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if !c.breaker.Allow() {
		return ErrUnavailable
	}

	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var reqBody io.Reader
		if encoded != nil {
			reqBody = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bot "+c.token)
		req.Header.Set("User-Agent", "DiscordBot (reminder-bot, 1.0)")
		if encoded != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.breaker.RecordFailure()
			lastErr = fmt.Errorf("request failed: %w", err)
			if ctx.Err() != nil {
				return lastErr
			}
			time.Sleep(CalculateBackoff(c.retry, attempt, 0))
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			lastErr = c.apiError(resp)
			resp.Body.Close()
			c.log.Warn("discord_rate_limited",
				"path", path,
				"retry_after", retryAfter,
				"attempt", attempt+1,
			)
			time.Sleep(CalculateBackoff(c.retry, attempt, retryAfter))
			continue
		}

		if resp.StatusCode >= 300 {
			if resp.StatusCode >= 500 {
				c.breaker.RecordFailure()
			}
			apiErr := c.apiError(resp)
			resp.Body.Close()
			return apiErr
		}

		c.breaker.RecordSuccess()
		if out != nil && resp.StatusCode != http.StatusNoContent {
			err = json.NewDecoder(resp.Body).Decode(out)
		}
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	return lastErr
}

// BreakerState exposes the circuit state for health reporting.
func (c *Client) BreakerState() string {
	return c.breaker.StateString()
}

func (c *Client) apiError(resp *http.Response) error {
	var parsed struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &parsed)
	return &APIError{
		Status:  resp.StatusCode,
		Code:    parsed.Code,
		Message: parsed.Message,
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
