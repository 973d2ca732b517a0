// Package apitoken guards routes that spend paid provider quota.
package apitoken

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"forensics/pkg/requestcontext"
)

// Header carries the shared API token.
const Header = "X-API-Token"

// Require rejects requests whose token does not match expectedToken.
// An empty expectedToken disables the check.
func Require(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expectedToken == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(Header)
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "api token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"client_ip", requestcontext.ClientIP(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"api token required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
