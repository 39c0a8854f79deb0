package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d denied under limit", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("request over limit allowed")
	}
	// Other keys have their own window.
	if !rl.Allow("5.6.7.8") {
		t.Error("independent key denied")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond)

	if !rl.Allow("k") {
		t.Fatal("first request denied")
	}
	if rl.Allow("k") {
		t.Fatal("second request allowed inside window")
	}

	time.Sleep(80 * time.Millisecond)
	if !rl.Allow("k") {
		t.Error("request denied after window expired")
	}
}

func TestRateLimiterRemaining(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)

	if got := rl.Remaining("k"); got != 5 {
		t.Errorf("Remaining = %d, want 5", got)
	}
	rl.Allow("k")
	rl.Allow("k")
	if got := rl.Remaining("k"); got != 3 {
		t.Errorf("Remaining = %d, want 3", got)
	}
}

func TestLimitByIP(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	handler := rl.LimitByIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:54321"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := do()
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d", first.Code)
	}
	if first.Header().Get("X-RateLimit-Limit") != "2" {
		t.Errorf("X-RateLimit-Limit = %q", first.Header().Get("X-RateLimit-Limit"))
	}

	do()
	third := do()
	if third.Code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", third.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9:1234"
	if got := clientIP(req); got != "192.168.1.9" {
		t.Errorf("clientIP = %q", got)
	}

	req.RemoteAddr = "192.168.1.9"
	if got := clientIP(req); got != "192.168.1.9" {
		t.Errorf("clientIP without port = %q", got)
	}
}
