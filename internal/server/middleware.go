package server

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// visitorLimiter hands out one token bucket per client address.
type visitorLimiter struct {
	mu       sync.Mutex
	visitors map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newVisitorLimiter(rps float64, burst int) *visitorLimiter {
	return &visitorLimiter{
		visitors: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

func (v *visitorLimiter) get(addr string) *rate.Limiter {
	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		ip = addr
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	limiter, exists := v.visitors[ip]
	if !exists {
		limiter = rate.NewLimiter(v.limit, v.burst)
		v.visitors[ip] = limiter
	}
	return limiter
}

func (v *visitorLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !v.get(r.RemoteAddr).Allow() {
			respondWithError(w, http.StatusTooManyRequests, "Too Many Requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request once the handler returns.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			s.log.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"remote":     r.RemoteAddr,
				"status":     statusOf(ww),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start),
			}).Info("Request served")
		}()

		next.ServeHTTP(ww, r)
	})
}

// instrument records request latency labelled by the matched route pattern,
// so path parameters do not explode the label space.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.RequestDurationSeconds.
			WithLabelValues(r.Method, route, strconv.Itoa(statusOf(ww))).
			Observe(time.Since(start).Seconds())
	})
}

// statusOf reports 200 for handlers that never call WriteHeader.
func statusOf(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}
