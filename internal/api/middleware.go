package api

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type contextKey string

const ctxKeyRequestID contextKey = "request_id"

// maxRequestIDLength bounds client-supplied request IDs.
const maxRequestIDLength = 128

// requestIDFrom returns the request ID stored by requestIDMiddleware.
func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string) //nolint:errcheck // missing ID is ""
	return id
}

// requestIDMiddleware tags each request with an ID, echoed in X-Request-ID.
// A client-supplied ID is kept when it is short and printable; anything else
// is replaced so it cannot forge log lines.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, id)))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}

// loggingMiddleware logs each request and records its latency. Health and
// metrics scrapes are logged at debug level.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		elapsed := time.Since(start)

		route := routePattern(r)
		s.collectors.ObserveHTTP(route, r.Method, sw.status, elapsed)

		log := s.logger.Info
		switch {
		case sw.status >= http.StatusInternalServerError:
			log = s.logger.Error
		case r.URL.Path == s.metricsCfg.Path || strings.HasSuffix(r.URL.Path, "/health"):
			log = s.logger.Debug
		}
		log("http request",
			"method", r.Method,
			"route", route,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", requestIDFrom(r.Context()),
		)
	})
}

// routePattern returns the chi route that matched r, or "unmatched".
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// recoveryMiddleware turns a handler panic into a 500 response.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity
				panic(rec)
			}
			s.logger.Error("panic recovered in HTTP handler",
				"error", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", requestIDFrom(r.Context()),
			)
			writeInternalError(w, "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

// The API is read-only.
const (
	allowedMethods = "GET, HEAD, OPTIONS"
	allowedHeaders = "Content-Type, X-Request-ID"
	corsMaxAge     = "86400"
)

// corsMiddleware sets CORS headers for allowed origins and answers
// preflight requests.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Add("Vary", "Origin")
			if s.isAllowedOrigin(origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", allowedMethods)
				h.Set("Access-Control-Allow-Headers", allowedHeaders)
				h.Set("Access-Control-Expose-Headers", "X-Request-ID")
				h.Set("Access-Control-Max-Age", corsMaxAge)
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isAllowedOrigin reports whether origin may call the API. An empty list
// allows every origin.
func (s *Server) isAllowedOrigin(origin string) bool {
	allowed := s.cfg.CORS.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// maxRequestBodySize caps request bodies. The API takes no input bodies,
// so this only guards against abuse.
const maxRequestBodySize = 64 << 10

func (s *Server) bodySizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

// statusWriter records the response status for logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
