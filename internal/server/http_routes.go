package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type requestIDKeyType struct{}

var requestIDKey = requestIDKeyType{}

// requestIDHeader carries the request id in both directions
const requestIDHeader = "X-Request-ID"

// Handler builds the complete handler tree: otel instrumentation around
// the route mux, with per-route metrics inside.
func (s *Server) Handler() http.Handler {
	return s.om.HTTPMiddleware()(s.requestIDMiddleware(s.setupRoutes()))
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	rateLimitHandler := s.rateLimitMiddleware()
	requestLimitHandler := s.requestSizeLimitMiddleware()

	api := func(route string, h http.HandlerFunc) {
		mux.Handle(route, s.om.RouteMetrics(route, rateLimitHandler(route, requestLimitHandler(h))))
	}
	api("/api/analyze-text", s.analyzeTextHandler)
	api("/api/debug-sentences", s.debugSentencesHandler)
	api("/api/catalog", s.catalogHandler)

	mux.Handle("/health", s.om.RouteMetrics("/health", http.HandlerFunc(s.healthHandler)))
	mux.Handle("/stats", s.om.RouteMetrics("/stats", http.HandlerFunc(s.statsHandler)))

	if handler := s.om.PrometheusHandler(); handler != nil {
		mux.Handle(s.om.PrometheusEndpoint(), handler)
	}

	return mux
}

// requestIDMiddleware propagates the caller's X-Request-ID or assigns one
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// requestID returns the id assigned by requestIDMiddleware
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}

			next(w, r)
		}
	}
}
