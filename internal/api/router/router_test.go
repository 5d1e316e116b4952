package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/prescription-ai-portal/internal/documents"
	"github.com/wolfman30/prescription-ai-portal/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/prescription-ai-portal/internal/http/middleware"
	"github.com/wolfman30/prescription-ai-portal/internal/identity"
	"github.com/wolfman30/prescription-ai-portal/internal/notify"
	"github.com/wolfman30/prescription-ai-portal/internal/portal"
	"github.com/wolfman30/prescription-ai-portal/internal/session"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

func newTestRouter(t *testing.T, limiter *httpmiddleware.RateLimiter) (http.Handler, *session.Registry) {
	t.Helper()
	cfg, registry := newTestConfig(t, limiter)
	return New(cfg), registry
}

func newTestConfig(t *testing.T, limiter *httpmiddleware.RateLimiter) (*Config, *session.Registry) {
	t.Helper()

	logger := logging.New("error")
	store := documents.NewMemoryStore()
	feed := notify.NewMemoryFeed(0)
	registry := session.NewRegistry(identity.NewLocalBackend(bcrypt.MinCost), session.Options{
		Store:  store,
		Feed:   feed,
		Logger: logger,
	}, time.Minute)
	t.Cleanup(registry.Close)

	cfg := &Config{
		Logger:          logger,
		Sessions:        registry,
		SessionCookie:   httpmiddleware.SessionCookieConfig{Secret: "test-secret", Name: "portal_session", TTL: time.Hour},
		Health:          handlers.NewHealthHandler(registry),
		Auth:            handlers.NewAuthHandler(time.Second, logger),
		Notifications:   handlers.NewNotificationsHandler(feed, logger),
		Portal:          handlers.NewPortalHandler(portal.NewService(store, nil, logger), time.Second, logger),
		Stream:          handlers.NewStreamHandler([]string{"*"}, logger),
		AuthRateLimiter: limiter,
	}
	return cfg, registry
}

func TestRouterHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp handlers.HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status 'ok', got %q", resp.Status)
	}
}

func TestRouterSignupThenDashboard(t *testing.T) {
	router, registry := newTestRouter(t, nil)

	body, _ := json.Marshal(handlers.SignupRequest{Email: "new@x.com", Password: "secret-pw", Name: "Alice"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected session cookie, got %v", cookies)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	var dash portal.Dashboard
	if err := json.NewDecoder(rr.Body).Decode(&dash); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if dash.Greeting != "Welcome back, Alice" {
		t.Fatalf("unexpected greeting %q", dash.Greeting)
	}
	if registry.Len() != 1 {
		t.Fatalf("expected the cookie to reuse the session, got %d sessions", registry.Len())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	var notes handlers.NotificationsResponse
	if err := json.NewDecoder(rr.Body).Decode(&notes); err != nil {
		t.Fatalf("decode notifications: %v", err)
	}
	if len(notes.Notifications) != 1 || notes.Notifications[0].Title != "Account created" {
		t.Fatalf("unexpected notifications %+v", notes.Notifications)
	}
}

func TestRouterViewsRequireSignIn(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	for _, path := range []string{"/api/dashboard", "/api/medications", "/api/appointments", "/api/doctors", "/api/doctors/1"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected status %d, got %d", path, http.StatusUnauthorized, rr.Code)
		}
	}
}

func TestRouterAuthRateLimit(t *testing.T) {
	router, _ := newTestRouter(t, httpmiddleware.NewRateLimiter(0.001, 1))

	send := func() int {
		body, _ := json.Marshal(handlers.LoginRequest{Email: "x@x.com", Password: "nope"})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
		req.RemoteAddr = "10.1.1.1:1234"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	if got := send(); got != http.StatusUnauthorized {
		t.Fatalf("expected first login to reach the handler, got %d", got)
	}
	if got := send(); got != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, got)
	}
}

func TestRouterLimitsCookielessSessionCreation(t *testing.T) {
	cfg, registry := newTestConfig(t, nil)
	cfg.SessionCookie.CreateLimiter = httpmiddleware.NewRateLimiter(0.001, 10)
	router := New(cfg)

	limited := 0
	for i := 0; i < 500; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited++
		}
	}

	if registry.Len() != 10 {
		t.Fatalf("expected 10 live sessions, got %d", registry.Len())
	}
	if limited != 490 {
		t.Fatalf("expected 490 limited requests, got %d", limited)
	}
}
