package middleware

import (
	"fmt"
	"net"
	"net/http"
	"slices"

	"github.com/leslieo2/go-hello/internal/config"
	"github.com/leslieo2/go-hello/internal/constants"
)

// SecurityHeadersMiddleware sets hardening headers and rejects requests for
// hosts outside cfg.AllowedHosts.
func SecurityHeadersMiddleware(cfg config.SecurityHeaders) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			if r.TLS != nil && cfg.HSTSMaxAge > 0 {
				w.Header().Set("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", cfg.HSTSMaxAge))
			}

			if len(cfg.AllowedHosts) > 0 && !hostAllowed(r.Host, cfg.AllowedHosts) {
				WriteError(w, http.StatusForbidden, ErrorResponse{
					Error: "Host not allowed",
					Code:  constants.ErrorCodeHostNotAllowed,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// hostAllowed matches either the full Host header or its hostname part.
func hostAllowed(host string, allowed []string) bool {
	if slices.Contains(allowed, host) {
		return true
	}
	if name, _, err := net.SplitHostPort(host); err == nil {
		return slices.Contains(allowed, name)
	}
	return false
}
