package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/prescription-ai-portal/internal/session"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

type contextKey string

const sessionKey contextKey = "portalSession"

// SessionRegistry is the part of *session.Registry the cookie middleware uses.
type SessionRegistry interface {
	Get(id string) (*session.Manager, bool)
	Create(ctx context.Context) (*session.Manager, error)
}

// SessionCookieConfig configures the session cookie. CreateLimiter, when
// set, caps how fast one client IP can start new sessions.
type SessionCookieConfig struct {
	Secret        string
	Name          string
	TTL           time.Duration
	Secure        bool
	CreateLimiter *RateLimiter
}

// SessionCookie binds each request to a session manager. The cookie carries
// an HMAC-signed JWT whose subject is the session id; a missing, invalid or
// expired cookie gets a fresh session and a new cookie.
func SessionCookie(reg SessionRegistry, cfg SessionCookieConfig, logger *logging.Logger) func(http.Handler) http.Handler {
	if reg == nil {
		panic("middleware: session registry required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "portal_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Secret == "" {
				http.Error(w, "session auth disabled", http.StatusUnauthorized)
				return
			}
			if c, err := r.Cookie(cfg.Name); err == nil {
				if id, err := ParseSessionToken(cfg.Secret, c.Value); err == nil {
					if m, ok := reg.Get(id); ok {
						next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), m)))
						return
					}
				}
			}

			if cfg.CreateLimiter != nil && !cfg.CreateLimiter.Allow(clientIP(r)) {
				logger.Warn("session creation rate limited", "ip", clientIP(r))
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			m, err := reg.Create(r.Context())
			if err != nil {
				logger.Error("failed to create session", "error", err)
				http.Error(w, "session unavailable", http.StatusServiceUnavailable)
				return
			}
			token, expires, err := IssueSessionToken(cfg.Secret, m.ID(), cfg.TTL, time.Now())
			if err != nil {
				logger.Error("failed to sign session cookie", "error", err)
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     cfg.Name,
				Value:    token,
				Path:     "/",
				Expires:  expires,
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), m)))
		})
	}
}

// IssueSessionToken signs a session id for the cookie.
func IssueSessionToken(secret, sessionID string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	expires := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ParseSessionToken verifies a cookie value and returns its session id.
func ParseSessionToken(secret, tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("middleware: invalid session token")
	}
	return claims.Subject, nil
}

func WithSession(ctx context.Context, m *session.Manager) context.Context {
	return context.WithValue(ctx, sessionKey, m)
}

// SessionFromContext returns the request's session manager if present.
func SessionFromContext(ctx context.Context) (*session.Manager, bool) {
	m, ok := ctx.Value(sessionKey).(*session.Manager)
	return m, ok && m != nil
}
