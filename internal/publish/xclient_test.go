package publish

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testXClient(t *testing.T, handler http.Handler) *XClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewXClient("key", "secret", "token", "token-secret", zerolog.Nop())
	client.SetBaseURL(server.URL)
	client.SetRetryBaseWait(time.Millisecond)
	return client
}

func TestCreateTweet_Success(t *testing.T) {
	t.Parallel()

	client := testXClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tweets" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "OAuth ") {
			t.Errorf("expected OAuth authorization header, got %q", auth)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1890000000000000001"}}`))
	}))

	id, err := client.CreateTweet(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "1890000000000000001" {
		t.Fatalf("unexpected tweet id: %q", id)
	}
}

func TestCreateTweet_RejectsOverlongText(t *testing.T) {
	t.Parallel()

	client := testXClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("overlong text must never reach the API")
	}))

	if _, err := client.CreateTweet(context.Background(), strings.Repeat("a", MaxTweetLength+1)); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestCreateTweet_RetriesRateLimit(t *testing.T) {
	t.Parallel()

	attempts := 0
	client := testXClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"42"}}`))
	}))

	id, err := client.CreateTweet(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "42" {
		t.Fatalf("unexpected tweet id: %q", id)
	}
	if attempts != 2 {
		t.Fatalf("expected one retry, got %d attempts", attempts)
	}
}

func TestCreateTweet_RetriesServerError(t *testing.T) {
	t.Parallel()

	attempts := 0
	client := testXClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"7"}}`))
	}))

	id, err := client.CreateTweet(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "7" || attempts != 3 {
		t.Fatalf("expected success on third attempt, got id=%q attempts=%d", id, attempts)
	}
}

func TestCreateTweet_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	attempts := 0
	client := testXClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if _, err := client.CreateTweet(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if attempts != defaultMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", defaultMaxAttempts, attempts)
	}
}

func TestCreateTweet_ClientErrorIsTerminal(t *testing.T) {
	t.Parallel()

	attempts := 0
	client := testXClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"duplicate content"}`))
	}))

	_, err := client.CreateTweet(context.Background(), "hello")
	if err == nil {
		t.Fatalf("expected terminal error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", apiErr.StatusCode)
	}
	if apiErr.Detail != "duplicate content" {
		t.Fatalf("unexpected detail: %q", apiErr.Detail)
	}
	if attempts != 1 {
		t.Fatalf("client errors must not be retried, got %d attempts", attempts)
	}
}

func TestCreateTweet_ContextCancelStopsRetries(t *testing.T) {
	t.Parallel()

	client := testXClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	client.SetRetryBaseWait(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	if _, err := client.CreateTweet(ctx, "hello"); err == nil {
		t.Fatalf("expected cancellation error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancellation should interrupt the backoff wait, took %v", elapsed)
	}
}

func TestVerifyCredentials(t *testing.T) {
	t.Parallel()

	client := testXClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":{"id":"1","name":"Wire","username":"agentwire"}}`))
	}))

	username, err := client.VerifyCredentials(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if username != "agentwire" {
		t.Fatalf("unexpected username: %q", username)
	}
}

func TestVerifyCredentials_Unauthorized(t *testing.T) {
	t.Parallel()

	client := testXClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"title":"Unauthorized"}`))
	}))

	_, err := client.VerifyCredentials(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", apiErr.StatusCode)
	}
}

func TestRateLimitWait_ParsesResetHeader(t *testing.T) {
	t.Parallel()

	resp := &http.Response{Header: http.Header{}}
	if wait := rateLimitWait(resp); wait != 0 {
		t.Fatalf("missing header should mean no advised wait, got %v", wait)
	}

	resp.Header.Set("x-rate-limit-reset", "not-a-number")
	if wait := rateLimitWait(resp); wait != 0 {
		t.Fatalf("unparseable header should mean no advised wait, got %v", wait)
	}
}
