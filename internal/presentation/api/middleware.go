package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hilthontt/duet/internal/infrastructure/json"
	"github.com/hilthontt/duet/internal/infrastructure/logging"
)

const defaultAllowedHeaders = "Content-Type, Authorization, X-Request-ID"

// wrap returns the status-recording writer an outer middleware already
// installed, or installs one.
func wrap(w http.ResponseWriter, r *http.Request) middleware.WrapResponseWriter {
	if ww, ok := w.(middleware.WrapResponseWriter); ok {
		return ww
	}
	return middleware.NewWrapResponseWriter(w, r.ProtoMajor)
}

func status(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		// Upgraded sockets and empty handlers never call WriteHeader.
		return http.StatusOK
	}
	return ww.Status()
}

func (app *Application) rateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		source := app.ratelimiter.GetSourceKey(r)
		limit := strconv.Itoa(app.ratelimiter.GetMaxBurst())

		w.Header().Set("X-RateLimit-Limit", limit)

		if !app.ratelimiter.Allow(source) {
			w.Header().Set("X-RateLimit-Remaining", "0")
			app.logger.Warn(logging.General, logging.RateLimiting, "rate limit exceeded", map[logging.ExtraKey]any{
				"source":       source,
				logging.Path:   r.URL.Path,
				logging.Method: r.Method,
			})
			json.WriteRateLimitError(w, 1)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(app.ratelimiter.Remaining(source)))
		next.ServeHTTP(w, r)
	})
}

func (app *Application) enableCors(next http.Handler) http.Handler {
	origins := app.config.HTTP.AllowedOrigins
	anyOrigin := len(origins) == 0 || slices.Contains(origins, "*")

	headers := strings.Join(app.config.HTTP.AllowedHeaders, ", ")
	if headers == "" {
		headers = defaultAllowedHeaders
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()

		switch origin := r.Header.Get("Origin"); {
		case origin == "":
			if anyOrigin {
				h.Set("Access-Control-Allow-Origin", "*")
			}
		case anyOrigin || slices.Contains(origins, origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		}

		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", headers)
		h.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (app *Application) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := wrap(w, r)

		next.ServeHTTP(ww, r)

		code := status(ww)
		extra := map[logging.ExtraKey]any{
			logging.Method:     r.Method,
			logging.Path:       r.URL.Path,
			logging.StatusCode: code,
			logging.Latency:    time.Since(start).Milliseconds(),
			logging.ClientIp:   r.RemoteAddr,
			"bytes":            ww.BytesWritten(),
			"request_id":       middleware.GetReqID(r.Context()),
		}
		if r.URL.RawQuery != "" {
			extra["query"] = r.URL.RawQuery
		}

		switch {
		case code >= http.StatusInternalServerError:
			app.logger.Error(logging.RequestResponse, logging.ExternalService, "request failed", extra)
		case code >= http.StatusBadRequest:
			app.logger.Warn(logging.RequestResponse, logging.ExternalService, "request rejected", extra)
		default:
			app.logger.Info(logging.RequestResponse, logging.ExternalService, "request completed", extra)
		}
	})
}

func (app *Application) prometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := wrap(w, r)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		app.metrics.ObserveRequest(r.Method, route, status(ww), time.Since(start))
	})
}
