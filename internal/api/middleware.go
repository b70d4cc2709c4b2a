package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/shehryarbajwa/gridstatus/internal/observability"
	"github.com/shehryarbajwa/gridstatus/internal/ratelimit"
)

type accountKey struct{}

func accountFrom(r *http.Request) string {
	account, _ := r.Context().Value(accountKey{}).(string)
	return account
}

// BasicAuthMiddleware checks the grid credentials and stores the account on the request
func BasicAuthMiddleware(accounts map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, key, ok := r.BasicAuth()
			expected, known := accounts[user]
			if !ok || !known || subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="gridsim"`)
				writeError(w, http.StatusUnauthorized, "Invalid username or access key")
				return
			}

			ctx := context.WithValue(r.Context(), accountKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware creates a middleware that enforces per-account rate limits
func RateLimitMiddleware(limiter *ratelimit.Limiter, requestsPerMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := accountFrom(r)

			if !limiter.Allow(account) {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(requestsPerMinute))
				w.Header().Set("X-RateLimit-Remaining", "0")
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(requestsPerMinute))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens(account))))

			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware counts requests by route template and status code
func MetricsMiddleware(metrics *observability.ServerMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			metrics.IncRequest(r.Method+" "+route, strconv.Itoa(rec.code))
		})
	}
}
