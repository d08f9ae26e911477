package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/raphaelgruber/fieldlog/internal/metrics"
)

// slowRequestThreshold is the duration above which requests are logged at WARN level.
// Extraction requests wait on the LLM and routinely exceed it.
const slowRequestThreshold = 2 * time.Second

// RequestLogger logs every request with timing and records it under
// metrics.OpHTTPRequest. 5xx responses count as errors.
// Websocket upgrades pass through untimed.
func RequestLogger(logger *slog.Logger, collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			duration := time.Since(start)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration_ms", duration.Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			}

			switch {
			case status >= 500:
				collector.RecordError(metrics.OpHTTPRequest)
				logger.Error("request failed", attrs...)
			case duration > slowRequestThreshold:
				collector.RecordTiming(metrics.OpHTTPRequest, duration)
				logger.Warn("slow request", attrs...)
			default:
				collector.RecordTiming(metrics.OpHTTPRequest, duration)
				logger.Debug("request completed", attrs...)
			}
		})
	}
}
