package server

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// TimeoutMiddleware puts a deadline on each request's context. Cancellation
// is cooperative; handlers observe it through ctx.Done(). Watch streams are
// exempt: a live event stream holds its connection open until the client
// walks away, not until a per-request budget runs out.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isWatchStream(r) {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// isWatchStream reports whether the request opens a collection watch stream.
func isWatchStream(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/watch")
}
