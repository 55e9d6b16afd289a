package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"intake/pkg/logger"
)

func okHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func TestClientRateLimiter_Allow(t *testing.T) {
	rl := NewClientRateLimiter(2, time.Minute, nil, logger.Discard())
	defer rl.Stop()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	rl.now = func() time.Time { return now }

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("first two requests should be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("third request within the window should be rejected")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other clients are limited independently")
	}
	if !rl.Allow("") {
		t.Error("requests without a key are never limited")
	}

	now = base.Add(61 * time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Error("request after the window should be allowed")
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	rl := NewClientRateLimiter(1, time.Minute, ClientIP, logger.Discard())
	defer rl.Stop()
	h := RateLimit(rl)(okHandler(http.StatusOK, `{}`))

	send := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
		r.RemoteAddr = "192.0.2.10:5555"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	if w := send(); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	w := send()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote addr", "192.0.2.1:1234", "", "192.0.2.1"},
		{"forwarded first hop", "10.0.0.1:1234", "203.0.113.7, 10.0.0.1", "203.0.113.7"},
		{"remote addr without port", "192.0.2.1", "", "192.0.2.1"},
		{"ipv6", "[2001:db8::1]:443", "", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContentTypeValidation(t *testing.T) {
	h := ContentTypeValidation(logger.Discard())(okHandler(http.StatusOK, `{}`))

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{"json post", http.MethodPost, `{}`, "application/json", http.StatusOK},
		{"json with charset", http.MethodPatch, `{}`, "Application/JSON; charset=utf-8", http.StatusOK},
		{"form post", http.MethodPost, `a=b`, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"missing header", http.MethodPost, `{}`, "", http.StatusUnsupportedMediaType},
		{"get ignores header", http.MethodGet, "", "", http.StatusOK},
		{"empty post body", http.MethodPost, "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/api/v1/patients", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	var readErr error
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		for readErr == nil {
			_, readErr = r.Body.Read(buf)
		}
		w.WriteHeader(http.StatusOK)
	})
	h := MaxRequestSize(8)(inner)

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"0123456789"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("declared oversize body status = %d, want 413", w.Code)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"0123456789"}`))
	r.ContentLength = -1
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if readErr == nil || !strings.Contains(readErr.Error(), "too large") {
		t.Errorf("expected MaxBytesReader error, got %v", readErr)
	}
}

func TestIdempotency(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls int32
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"n":` + string(rune('0'+n)) + `}`))
	})
	h := Idempotency(store, "")(inner)

	send := func(method, path, key string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(method, path, strings.NewReader(`{}`))
		if key != "" {
			r.Header.Set("Idempotency-Key", key)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	first := send(http.MethodPost, "/api/v1/patients", "k1")
	second := send(http.MethodPost, "/api/v1/patients", "k1")
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("handler called %d times, want 1", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Errorf("replayed response differs: %d %q", second.Code, second.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("replayed response should be marked")
	}

	send(http.MethodPost, "/api/v1/patients/validate-cpf", "k1")
	if atomic.LoadInt32(&calls) != 2 {
		t.Error("same key on another route must not replay")
	}

	send(http.MethodPost, "/api/v1/patients", "")
	send(http.MethodPost, "/api/v1/patients", "")
	if atomic.LoadInt32(&calls) != 4 {
		t.Error("requests without a key are never cached")
	}
}

func TestIdempotency_DoesNotCacheFailures(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls int32
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusConflict)
	})
	h := Idempotency(store, "Idempotency-Key")(inner)

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(`{}`))
		r.Header.Set("Idempotency-Key", "k")
		h.ServeHTTP(httptest.NewRecorder(), r)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("failed responses must not be cached, calls = %d", calls)
	}
}

func TestIdempotency_RejectsConcurrentDuplicate(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	entered := make(chan struct{})
	release := make(chan struct{})
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusCreated)
	})
	h := Idempotency(store, "")(inner)

	newReq := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(`{}`))
		r.Header.Set(DefaultIdempotencyHeader, "dup")
		return r
	}

	firstDone := make(chan int)
	go func() {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, newReq())
		firstDone <- w.Code
	}()
	<-entered

	w := httptest.NewRecorder()
	h.ServeHTTP(w, newReq())
	if w.Code != http.StatusConflict {
		t.Errorf("concurrent duplicate status = %d, want 409", w.Code)
	}

	close(release)
	if code := <-firstDone; code != http.StatusCreated {
		t.Errorf("first request status = %d, want 201", code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, newReq())
	if w.Code != http.StatusCreated || w.Header().Get(ReplayedHeader) != "true" {
		t.Errorf("expected replay after completion, got %d", w.Code)
	}
}

// finishingStore completes another request with the same key right before
// the first Begin call reaches the store.
type finishingStore struct {
	*InMemoryIdempotencyStore
	beforeFirstBegin func()
	begins           int32
}

func (s *finishingStore) Begin(key string) (*CachedResponse, bool) {
	if atomic.AddInt32(&s.begins, 1) == 1 {
		s.beforeFirstBegin()
	}
	return s.InMemoryIdempotencyStore.Begin(key)
}

func TestIdempotency_ReplaysWhenOtherRequestFinishesFirst(t *testing.T) {
	store := &finishingStore{InMemoryIdempotencyStore: NewInMemoryIdempotencyStore(time.Hour)}
	defer store.Stop()

	var calls int32
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"p1"}}`))
	})
	h := Idempotency(store, "")(inner)

	newReq := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(`{}`))
		r.Header.Set(DefaultIdempotencyHeader, "race")
		return r
	}

	var other *httptest.ResponseRecorder
	store.beforeFirstBegin = func() {
		other = httptest.NewRecorder()
		h.ServeHTTP(other, newReq())
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, newReq())

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("handler ran %d times for one idempotency key, want 1", n)
	}
	if other.Code != http.StatusCreated {
		t.Errorf("first request status = %d, want 201", other.Code)
	}
	if w.Code != http.StatusCreated || w.Header().Get(ReplayedHeader) != "true" {
		t.Errorf("expected replayed 201, got %d replayed=%q", w.Code, w.Header().Get(ReplayedHeader))
	}
	if w.Body.String() != other.Body.String() {
		t.Errorf("replayed body = %q, want %q", w.Body.String(), other.Body.String())
	}
}

func TestInMemoryIdempotencyStore_Begin(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	if cached, reserved := store.Begin("k"); cached != nil || !reserved {
		t.Fatalf("first Begin = (%v, %v), want reservation", cached, reserved)
	}
	if cached, reserved := store.Begin("k"); cached != nil || reserved {
		t.Fatalf("Begin while in flight = (%v, %v), want neither", cached, reserved)
	}

	store.Set("k", &CachedResponse{StatusCode: http.StatusCreated})
	store.Release("k")

	cached, reserved := store.Begin("k")
	if reserved || cached == nil || cached.StatusCode != http.StatusCreated {
		t.Errorf("Begin after completion = (%v, %v), want cached 201", cached, reserved)
	}
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Set("k", &CachedResponse{StatusCode: http.StatusCreated})
	if _, ok := store.Get("k"); !ok {
		t.Fatal("fresh entry should be returned")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := store.Get("k"); ok {
		t.Error("expired entry should not be returned")
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"code":"INTERNAL_ERROR"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestRequestTimeout(t *testing.T) {
	h := RequestTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"code":"TIMEOUT"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "late") {
		t.Error("late write must be discarded")
	}
}

func TestRequestTimeout_FastHandlerKeepsHeaders(t *testing.T) {
	h := RequestTimeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Patient-ID", "abc")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
	if w.Header().Get("X-Patient-ID") != "abc" {
		t.Error("handler header was not forwarded")
	}
	if w.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", w.Body.String())
	}
}

func TestRequestTimeout_PanicReachesRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(RequestTimeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestRequestLogging_RequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(seen) != 36 {
		t.Errorf("expected generated uuid request id, got %q", seen)
	}
	if w.Header().Get(RequestIDHeader) != seen {
		t.Error("response should echo the request id")
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "abc-123" {
		t.Errorf("incoming request id not propagated, got %q", seen)
	}
}
