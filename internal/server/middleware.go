package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

type contextKey int

const sessionKey contextKey = iota

type sessionHandle func(w http.ResponseWriter, r *http.Request, ps httprouter.Params)

// handle wraps a route with request ids, logging, metrics, the per-client
// rate limit and, when authenticated is set, session extraction (401 when
// missing).
func (s *Server) handle(route string, authenticated bool, next sessionHandle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		started := time.Now()
		done := s.metrics.TrackInFlight()
		defer done()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set("X-Request-ID", requestID)
		}
		w.Header().Set("X-Request-ID", requestID)
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		logger := s.log.WithFields(logrus.Fields{"request_id": requestID, "method": r.Method, "route": route})
		defer func() {
			elapsed := time.Since(started)
			s.metrics.ObserveRequest(r.Method, route, recorder.status, elapsed)
			logger.WithFields(logrus.Fields{"status": recorder.status, "duration_ms": elapsed.Milliseconds()}).Info("request")
		}()

		var session client.Session
		if authenticated {
			var ok bool
			session, ok = sessionFrom(r)
			if !ok {
				http.Error(recorder, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), sessionKey, session))
		}

		if s.limiter != nil && !s.limiter.Allow(limitKey(r, session)) {
			logger.Warn("rate limit exceeded")
			recorder.Header().Set("Retry-After", "1")
			http.Error(recorder, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next(recorder, r, ps)
	}
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.WithField("panic", rec).WithField("path", r.URL.Path).Error("handler panicked")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func limitKey(r *http.Request, session client.Session) string {
	if id := session.ID(); id != "" {
		return "session:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.written {
		rw.status = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
