package router

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"metrics-monitor/internal/auth"
	"metrics-monitor/internal/endpoints"
	"metrics-monitor/internal/telemetry"
	"metrics-monitor/internal/util"
)

// Authenticator is the token side of auth.Manager plus what /login needs.
type Authenticator interface {
	endpoints.Authenticator
	ValidateToken(token string) (*auth.Claims, error)
}

// statusRecorder remembers the response code. It passes Hijack through so
// the websocket upgrade still works behind it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func loggingMiddleware(logger *util.MetricsLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.LogEvent(util.LOG_LEVEL_INFO, fmt.Sprintf("Request: %s %s", r.Method, r.RequestURI))
			next.ServeHTTP(w, r)
		})
	}
}

func recoveryMiddleware(logger *util.MetricsLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.LogEvent(util.LOG_LEVEL_ERROR, fmt.Sprintf("panic serving %s %s: %v", r.Method, r.RequestURI, rec))
					endpoints.APIResponse{}.WriteErrorResponseWithStatusCode(w, errors.New("internal server error"), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// instrumentMiddleware labels by route template so path variables do not
// explode the series count.
func instrumentMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		telemetry.HTTPRequestsInFlight.Inc()
		defer telemetry.HTTPRequestsInFlight.Dec()

		timer := prometheus.NewTimer(telemetry.HTTPRequestDuration.WithLabelValues(route))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		timer.ObserveDuration()

		telemetry.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

func authMiddleware(validator Authenticator, logger *util.MetricsLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				endpoints.APIResponse{}.WriteErrorResponseWithStatusCode(w, endpoints.ErrUnauthorized, http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				logger.LogEvent(util.LOG_LEVEL_WARN, "rejected token for", r.RequestURI+":", err)
				endpoints.APIResponse{}.WriteErrorResponseWithStatusCode(w, auth.ErrInvalidToken, http.StatusUnauthorized)
				return
			}
			logger.LogEvent(util.LOG_LEVEL_DEBUG, "authenticated", claims.Username, "for", r.RequestURI)
			next.ServeHTTP(w, r)
		})
	}
}
