package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/fjod/go_pos/internal/salesapi"
	"github.com/google/uuid"
)

type requestIDKey struct{}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return ""
}

// TokenMiddleware forwards the caller's bearer and refresh tokens to the
// sales API client. Tokens refreshed while serving the request are returned
// in X-Access-Token and X-Refresh-Token.
func TokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		refresh := r.Header.Get("X-Refresh-Token")
		if access == "" && refresh == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokens := salesapi.NewTokens(strings.TrimSpace(access), refresh)
		ctx := salesapi.WithTokens(r.Context(), tokens)
		next.ServeHTTP(&tokenWriter{ResponseWriter: w, tokens: tokens}, r.WithContext(ctx))
	})
}

// tokenWriter sets the refreshed-token headers just before the status line
// goes out.
type tokenWriter struct {
	http.ResponseWriter
	tokens      *salesapi.Tokens
	wroteHeader bool
}

func (tw *tokenWriter) WriteHeader(status int) {
	if !tw.wroteHeader {
		tw.wroteHeader = true
		if tw.tokens.Refreshed() {
			tw.Header().Set("X-Access-Token", tw.tokens.Access())
			tw.Header().Set("X-Refresh-Token", tw.tokens.Refresh())
		}
	}
	tw.ResponseWriter.WriteHeader(status)
}

func (tw *tokenWriter) Write(b []byte) (int, error) {
	if !tw.wroteHeader {
		tw.WriteHeader(http.StatusOK)
	}
	return tw.ResponseWriter.Write(b)
}

func (tw *tokenWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}
