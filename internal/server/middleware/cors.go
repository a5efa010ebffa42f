package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/leslieo2/go-hello/internal/config"
	"github.com/leslieo2/go-hello/internal/constants"
)

const headerAccessControlRequestMethod = "Access-Control-Request-Method"

// CORSMiddleware applies a CORS policy to responses
type CORSMiddleware struct {
	config config.CORSConfig
}

// NewCORSMiddleware creates a new CORS middleware
func NewCORSMiddleware(cfg config.CORSConfig) *CORSMiddleware {
	return &CORSMiddleware{config: cfg}
}

// Handler returns the CORS middleware handler
func (c *CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get(constants.HeaderOrigin)
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", constants.HeaderOrigin)
		if !c.originAllowed(origin) {
			next.ServeHTTP(w, r)
			return
		}

		if slices.Contains(c.config.AllowedOrigins, "*") && !c.config.AllowCredentials {
			w.Header().Set(constants.HeaderAccessControlAllowOrigin, "*")
		} else {
			w.Header().Set(constants.HeaderAccessControlAllowOrigin, origin)
		}
		if c.config.AllowCredentials {
			w.Header().Set(constants.HeaderAccessControlAllowCredentials, "true")
		}

		// Preflight requests stop here; a bare OPTIONS falls through to the router.
		if r.Method == constants.MethodOPTIONS && r.Header.Get(headerAccessControlRequestMethod) != "" {
			if len(c.config.AllowedMethods) > 0 {
				w.Header().Set(constants.HeaderAccessControlAllowMethods, strings.Join(c.config.AllowedMethods, ", "))
			}
			if len(c.config.AllowedHeaders) > 0 {
				w.Header().Set(constants.HeaderAccessControlAllowHeaders, strings.Join(c.config.AllowedHeaders, ", "))
			}
			if c.config.MaxAge > 0 {
				w.Header().Set(constants.HeaderAccessControlMaxAge, strconv.Itoa(c.config.MaxAge))
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (c *CORSMiddleware) originAllowed(origin string) bool {
	for _, allowed := range c.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
