package middleware

import (
	"fmt"
	"net/http"

	"github.com/leslieo2/go-hello/internal/constants"
)

// RequestSizeLimitMiddleware creates a middleware that limits request body size
func RequestSizeLimitMiddleware(maxRequestSize int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxRequestSize <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxRequestSize {
				WriteError(w, http.StatusRequestEntityTooLarge, ErrorResponse{
					Error: fmt.Sprintf("Request body too large, max size: %d bytes", maxRequestSize),
					Code:  constants.ErrorCodeRequestTooLarge,
				})
				return
			}
			// Chunked bodies carry no Content-Length.
			r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
			next.ServeHTTP(w, r)
		})
	}
}
