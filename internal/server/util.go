package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/klppl/mitra/internal/handler"
)

func jsonUnmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// jsonResponse writes v as application/json.
func jsonResponse(w http.ResponseWriter, v interface{}, status int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// apResponse writes v as application/activity+json, the content type
// required by ActivityPub servers and checked by conforming clients.
func apResponse(w http.ResponseWriter, v interface{}, status int) {
	w.Header().Set("Content-Type", activityJSONType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// cacheHeaders applies a short public cache TTL to documents that rarely
// change within a request burst (actor profile, NodeInfo, ...).
func cacheHeaders(w http.ResponseWriter, maxAge time.Duration) {
	w.Header().Set("Cache-Control", "public, max-age="+formatSeconds(maxAge))
}

func formatSeconds(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return itoa(secs)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		slog.Debug("http request",
			"method", r.Method, "path", r.URL.Path,
			"status", rw.status, "duration", time.Since(start),
			"remote", r.RemoteAddr)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Signature, Date, Digest")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// responseWriter tracks the status code written, for access logging. It
// forwards Unwrap so http.ResponseController (SSE flush, hijack) still works
// through middleware, matching the teacher's streaming admin endpoints.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// errorStatus maps a *handler.HandlerError's Kind onto an HTTP status, per
// spec.md §7's error taxonomy. A KindConflict error is treated as an
// idempotent success: the activity was already applied.
func errorStatus(err error) int {
	var herr *handler.HandlerError
	if !errors.As(err, &herr) {
		return http.StatusInternalServerError
	}
	switch herr.Kind {
	case handler.KindValidation:
		return http.StatusUnprocessableEntity
	case handler.KindAuth:
		return http.StatusForbidden
	case handler.KindConflict:
		return http.StatusOK
	case handler.KindRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
