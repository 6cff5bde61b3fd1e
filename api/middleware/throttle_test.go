package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/rootsreach/rootsreach-backend/pkg/errors"
	pkgredis "github.com/rootsreach/rootsreach-backend/pkg/redis"
)

type fakeWindows struct {
	mu      sync.Mutex
	counts  map[string]int64
	resetIn time.Duration
}

func newFakeWindows() *fakeWindows {
	return &fakeWindows{counts: map[string]int64{}, resetIn: 42 * time.Second}
}

func (f *fakeWindows) HitWindow(_ context.Context, scope string, _ time.Duration) (pkgredis.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return pkgredis.Window{Count: f.counts[scope], ResetIn: f.resetIn}, nil
}

type brokenWindows struct{}

func (brokenWindows) HitWindow(context.Context, string, time.Duration) (pkgredis.Window, error) {
	return pkgredis.Window{}, errors.New("redis unavailable")
}

func loginRequest(email, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = remote
	return req
}

func TestThrottlePreservesBodyUnderLimit(t *testing.T) {
	store := newFakeWindows()
	handler := Throttle("login", time.Minute, store, nil, ByClientIP(2), ByEmail(2))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !strings.Contains(string(body), `"email":"weaver@example.com"`) {
			t.Fatalf("handler saw a consumed body: %s", body)
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("weaver@example.com", "1.2.3.4:5678"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestThrottleEmailLimitSetsRetryAfter(t *testing.T) {
	store := newFakeWindows()
	handler := Throttle("login", time.Minute, store, nil, ByEmail(2))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var rec *httptest.ResponseRecorder
	for i := range 3 {
		rec = httptest.NewRecorder()
		// a different address each time so only the email counter can trip
		handler.ServeHTTP(rec, loginRequest("blocked@example.com", "10.0.0."+strconv.Itoa(i+1)+":80"))
	}

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "42" {
		t.Fatalf("expected Retry-After 42, got %q", got)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
		t.Fatalf("unexpected code: %s", payload.Error.Code)
	}
}

func TestThrottleIPLimitIgnoresEmail(t *testing.T) {
	store := newFakeWindows()
	handler := Throttle("register", time.Minute, store, nil, ByClientIP(1))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, loginRequest("a@example.com", "5.6.7.8:1234"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, loginRequest("b@example.com", "5.6.7.8:1234"))

	if first.Code != http.StatusCreated || second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 201 then 429, got %d then %d", first.Code, second.Code)
	}
	if _, ok := store.counts["register:ip:5.6.7.8"]; !ok {
		t.Fatalf("expected ip scope, got %v", store.counts)
	}
}

func TestThrottleStoreFailureIsDependencyError(t *testing.T) {
	handler := Throttle("login", time.Minute, brokenWindows{}, nil, ByClientIP(5))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@example.com", "1.1.1.1:1"))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestThrottleEmailScopesAreHashed(t *testing.T) {
	store := newFakeWindows()
	handler := Throttle(" Login ", time.Minute, store, nil, ByEmail(3))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), loginRequest(" Weaver@Example.com ", "1.1.1.1:1"))

	want := "login:email:" + sha256Hex("weaver@example.com")
	if store.counts[want] != 1 {
		t.Fatalf("expected counter for %s, got %v", want, store.counts)
	}
}

func TestThrottleDisabledWithoutLimits(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handler := Throttle("login", time.Minute, newFakeWindows(), nil, ByClientIP(0), ByEmail(0))(next)
	if handler == nil {
		t.Fatal("expected passthrough handler")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@example.com", "1.1.1.1:1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected passthrough, got %d", rec.Code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.9.9.9:80"
	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected forwarded ip, got %s", got)
	}

	req.Header.Del("X-Forwarded-For")
	if got := clientIP(req); got != "9.9.9.9" {
		t.Fatalf("expected remote host, got %s", got)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	if got := retryAfterSeconds(1500*time.Millisecond, time.Minute); got != 2 {
		t.Fatalf("expected rounding up, got %d", got)
	}
	if got := retryAfterSeconds(0, time.Minute); got != 60 {
		t.Fatalf("expected window fallback, got %d", got)
	}
	if got := retryAfterSeconds(0, 0); got != 1 {
		t.Fatalf("expected at least one second, got %d", got)
	}
}
