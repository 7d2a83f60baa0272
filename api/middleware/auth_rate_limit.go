package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/wishlist-backend/api/responses"
	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
)

// authBodyLimit caps how much of a login or register body is buffered to find
// the account being targeted.
const authBodyLimit = 64 << 10

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Throttle bounds attempts on one auth endpoint within a fixed window, counted
// per client address and per targeted account. A zero limit disables that counter.
type Throttle struct {
	Name       string
	Window     time.Duration
	PerIP      int
	PerAccount int
}

func (t Throttle) active() bool {
	return t.Window > 0 && (t.PerIP > 0 || t.PerAccount > 0)
}

type throttleCounter struct {
	kind  string
	value string
	limit int
}

// AuthRateLimit rejects requests over either counter with 429 and Retry-After.
// The account is identified by the lower-cased email and the login in the JSON
// body; each one present is counted.
func AuthRateLimit(t Throttle, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !t.active() || store == nil {
			return next
		}
		name := strings.ToLower(strings.TrimSpace(t.Name))
		if name == "" {
			name = "auth"
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var counters []throttleCounter
			if t.PerIP > 0 {
				if ip := clientIP(r); ip != "" {
					counters = append(counters, throttleCounter{kind: "ip", value: ip, limit: t.PerIP})
				}
			}
			if t.PerAccount > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, authBodyLimit))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				for _, account := range accountsIn(body) {
					counters = append(counters, throttleCounter{kind: "account", value: digest(account), limit: t.PerAccount})
				}
			}

			for _, c := range counters {
				allowed, count, err := store.FixedWindowAllow(ctx, name+":"+c.kind+":"+c.value, int64(c.limit), t.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"throttle": name,
							"counter":  c.kind,
							"attempts": count,
							"limit":    c.limit,
						}), "auth.rate_limited")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(t.Window.Seconds())))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// accountsIn returns the identities a login or register body targets.
func accountsIn(body []byte) []string {
	var fields struct {
		Email string `json:"email"`
		Login string `json:"login"`
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil
	}
	var out []string
	if email := strings.ToLower(strings.TrimSpace(fields.Email)); email != "" {
		out = append(out, "email:"+email)
	}
	if login := strings.TrimSpace(fields.Login); login != "" {
		out = append(out, "login:"+login)
	}
	return out
}

// digest keeps raw emails out of Redis key names.
func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:12])
}

// clientIP prefers the first X-Forwarded-For hop set by the load balancer.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
