package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/rs/zerolog"

	"horse.fit/agentwire/internal/globaltime"
)

const (
	defaultXBaseURL      = "https://api.twitter.com/2"
	defaultMaxAttempts   = 3
	defaultRetryBaseWait = 5 * time.Second
)

// APIError is a terminal rejection from the X API. Client-side errors
// (bad request, bad credentials) are not retried.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("x api error (%d): %s", e.StatusCode, e.Detail)
}

// XClient posts to the X API v2 using OAuth 1.0a user context. Rate
// limits and server errors are retried with bounded exponential backoff;
// other 4xx responses surface as *APIError without retrying.
type XClient struct {
	httpClient    *http.Client
	logger        zerolog.Logger
	baseURL       string
	maxAttempts   int
	retryBaseWait time.Duration
}

func NewXClient(apiKey, apiSecret, accessToken, accessSecret string, logger zerolog.Logger) *XClient {
	oauthConfig := oauth1.NewConfig(apiKey, apiSecret)
	token := oauth1.NewToken(accessToken, accessSecret)

	httpClient := oauthConfig.Client(oauth1.NoContext, token)
	httpClient.Timeout = 30 * time.Second

	return &XClient{
		httpClient:    httpClient,
		logger:        logger,
		baseURL:       defaultXBaseURL,
		maxAttempts:   defaultMaxAttempts,
		retryBaseWait: defaultRetryBaseWait,
	}
}

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type apiErrorBody struct {
	Detail string `json:"detail"`
	Title  string `json:"title"`
}

// CreateTweet posts text and returns the new tweet ID.
func (c *XClient) CreateTweet(ctx context.Context, text string) (string, error) {
	if runeLen(text) > MaxTweetLength {
		return "", fmt.Errorf("tweet text exceeds %d characters: %d", MaxTweetLength, runeLen(text))
	}

	payload, err := json.Marshal(tweetRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("encode tweet payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		tweetID, retryAfter, err := c.postTweet(ctx, payload)
		if err == nil {
			return tweetID, nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return "", err
		}
		lastErr = err

		if attempt == c.maxAttempts {
			break
		}

		wait := c.backoff(attempt)
		if retryAfter > wait {
			wait = retryAfter
		}
		c.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", c.maxAttempts).
			Dur("wait", wait).
			Msg("tweet attempt failed, retrying")
		if err := sleepContext(ctx, wait); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("post tweet after %d attempts: %w", c.maxAttempts, lastErr)
}

// postTweet performs one attempt. The returned duration is a server-advised
// minimum wait (from rate-limit headers), zero when absent.
func (c *XClient) postTweet(ctx context.Context, payload []byte) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tweets", bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("build tweet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("tweet request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	switch {
	case resp.StatusCode == http.StatusCreated:
		var decoded tweetResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return "", 0, fmt.Errorf("decode tweet response: %w", err)
		}
		return decoded.Data.ID, 0, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return "", rateLimitWait(resp), fmt.Errorf("rate limited (429)")

	case resp.StatusCode >= 500:
		return "", 0, fmt.Errorf("server error %d: %s", resp.StatusCode, errorDetail(body))

	default:
		return "", 0, &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(body)}
	}
}

// VerifyCredentials confirms the configured tokens by fetching the
// authenticated user, returning the username.
func (c *XClient) VerifyCredentials(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me", nil)
	if err != nil {
		return "", fmt.Errorf("build verify request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("verify credentials: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(body)}
	}

	var decoded struct {
		Data struct {
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode verify response: %w", err)
	}
	return decoded.Data.Username, nil
}

func (c *XClient) backoff(attempt int) time.Duration {
	wait := c.retryBaseWait
	for i := 1; i < attempt; i++ {
		wait *= 2
	}
	return wait
}

func rateLimitWait(resp *http.Response) time.Duration {
	reset := resp.Header.Get("x-rate-limit-reset")
	if reset == "" {
		return 0
	}
	epoch, err := strconv.ParseInt(reset, 10, 64)
	if err != nil {
		return 0
	}
	wait := time.Unix(epoch, 0).Sub(globaltime.Now())
	if wait < 0 {
		return 0
	}
	return wait
}

func errorDetail(body []byte) string {
	var decoded apiErrorBody
	if err := json.Unmarshal(body, &decoded); err == nil {
		if decoded.Detail != "" {
			return decoded.Detail
		}
		if decoded.Title != "" {
			return decoded.Title
		}
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

// SetBaseURL points the client at a test server.
func (c *XClient) SetBaseURL(raw string) { c.baseURL = raw }

// SetRetryBaseWait shortens backoff in tests.
func (c *XClient) SetRetryBaseWait(d time.Duration) { c.retryBaseWait = d }
