package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"silver-dashboard/internal/config"
)

func newTestLimiter(cfg config.SecurityConfig) (*RateLimiter, *time.Time) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(cfg)
	limiter.now = func() time.Time { return clock }
	return limiter, &clock
}

func serveFrom(handler http.Handler, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = ip + ":5000"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestClassifyRoute(t *testing.T) {
	tests := []struct {
		path string
		want RoutePolicy
	}{
		{"/health", PolicyExempt},
		{"/", PolicyPage},
		{"/api/prices", PolicyAPI},
		{"/api/calculate", PolicyAPI},
		{"/admin/stats", PolicyAPI},
		{"/sse/refresh-all", PolicyStream},
		{"/sse/calculate", PolicyStream},
		{"/apiary", PolicyPage},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := ClassifyRoute(tt.path); got != tt.want {
				t.Errorf("ClassifyRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	limiter, _ := newTestLimiter(config.SecurityConfig{EnableRateLimit: true, RateLimitRPS: 1, RateLimitBurst: 2})
	handler := RateLimit(limiter, discardLogger())(okHandler)

	var codes []int
	for range 3 {
		codes = append(codes, serveFrom(handler, "/api/prices", "10.0.0.7").Code)
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	if diff := cmp.Diff(want, codes); diff != "" {
		t.Errorf("status codes mismatch (-want +got):\n%s", diff)
	}
}

func TestRateLimit_RetryAfter(t *testing.T) {
	limiter, _ := newTestLimiter(config.SecurityConfig{EnableRateLimit: true, RateLimitRPS: 1, RateLimitBurst: 1})
	handler := RateLimit(limiter, discardLogger())(okHandler)

	serveFrom(handler, "/api/prices", "10.0.0.7")
	w := serveFrom(handler, "/api/prices", "10.0.0.7")

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
}

func TestRateLimit_StreamBucketIsSeparate(t *testing.T) {
	limiter, _ := newTestLimiter(config.SecurityConfig{
		EnableRateLimit:      true,
		RateLimitRPS:         1,
		RateLimitBurst:       2,
		StreamRateLimitRPS:   1,
		StreamRateLimitBurst: 1,
	})
	handler := RateLimit(limiter, discardLogger())(okHandler)

	if w := serveFrom(handler, "/sse/refresh-all", "10.0.0.7"); w.Code != http.StatusOK {
		t.Fatalf("first stream request status = %d", w.Code)
	}
	if w := serveFrom(handler, "/sse/prices", "10.0.0.7"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second stream request status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	for range 2 {
		if w := serveFrom(handler, "/api/prices", "10.0.0.7"); w.Code != http.StatusOK {
			t.Errorf("api request blocked by exhausted stream bucket, status = %d", w.Code)
		}
	}

	if w := serveFrom(handler, "/sse/prices", "10.0.0.8"); w.Code != http.StatusOK {
		t.Errorf("other client blocked, status = %d", w.Code)
	}
}

func TestRateLimit_HealthIsExempt(t *testing.T) {
	limiter, _ := newTestLimiter(config.SecurityConfig{EnableRateLimit: true, RateLimitRPS: 1, RateLimitBurst: 1})
	handler := RateLimit(limiter, discardLogger())(okHandler)

	for i := range 5 {
		if w := serveFrom(handler, "/health", "10.0.0.7"); w.Code != http.StatusOK {
			t.Fatalf("health request %d status = %d", i, w.Code)
		}
	}
	if len(limiter.buckets) != 0 {
		t.Errorf("health checks created %d buckets", len(limiter.buckets))
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	limiter := NewRateLimiter(config.SecurityConfig{EnableRateLimit: false})
	for range 5 {
		if ok, _ := limiter.Allow(PolicyAPI, "10.0.0.7"); !ok {
			t.Fatal("disabled limiter rejected a request")
		}
	}
}

func TestNewRateLimiter_StreamFallsBackToGeneral(t *testing.T) {
	limiter := NewRateLimiter(config.SecurityConfig{EnableRateLimit: true, RateLimitRPS: 7, RateLimitBurst: 3})

	if diff := cmp.Diff(limiter.limits[PolicyAPI], limiter.limits[PolicyStream], cmp.AllowUnexported(limit{})); diff != "" {
		t.Errorf("stream limit should match general limit (-api +stream):\n%s", diff)
	}
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	limiter, clock := newTestLimiter(config.SecurityConfig{EnableRateLimit: true, RateLimitRPS: 1, RateLimitBurst: 1})

	limiter.Allow(PolicyAPI, "10.0.0.7")
	limiter.Allow(PolicyStream, "10.0.0.7")
	if len(limiter.buckets) != 2 {
		t.Fatalf("buckets = %d, want 2", len(limiter.buckets))
	}

	*clock = clock.Add(2 * bucketTTL)
	limiter.Allow(PolicyAPI, "10.0.0.9")

	if len(limiter.buckets) != 1 {
		t.Errorf("buckets after sweep = %d, want 1", len(limiter.buckets))
	}
	if _, ok := limiter.buckets[bucketKey{policy: PolicyAPI, ip: "10.0.0.9"}]; !ok {
		t.Error("active client's bucket was evicted")
	}
}
