package handler

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"assetserve/internal/domain"
	"assetserve/internal/metrics"
)

// Middleware wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Chain applies middleware to h; the first one listed runs outermost
func Chain(h http.Handler, middleware ...Middleware) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDHeader carries the request id back to the client
const RequestIDHeader = "X-Request-Id"

// RequestID tags every request with a fresh UUID
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFrom returns the id set by RequestID, or ""
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Recover turns a panic in the wrapped handler into a 500
func Recover(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("handler panicked",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()))
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Journal receives completed requests. Record must not block.
type Journal interface {
	Record(rec domain.RequestRecord)
}

// Logger logs method, path, status and latency of every completed request,
// counts it in m and hands it to journal. m and journal may be nil.
func Logger(logger *zap.Logger, m *metrics.Metrics, journal Journal) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			snoop := httpsnoop.CaptureMetrics(next, w, r)

			id := RequestIDFrom(r.Context())
			logger.Info("request",
				zap.String("id", id),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", snoop.Code),
				zap.Int64("bytes", snoop.Written),
				zap.Duration("latency", snoop.Duration))

			m.ObserveRequest(snoop.Code, snoop.Duration)
			if journal != nil {
				journal.Record(domain.RequestRecord{
					ID:       id,
					Method:   r.Method,
					Path:     r.URL.Path,
					Status:   snoop.Code,
					Bytes:    snoop.Written,
					Duration: snoop.Duration,
					At:       start,
				})
			}
		})
	}
}
