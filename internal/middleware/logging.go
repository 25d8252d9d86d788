// internal/middleware/logging.go

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// LogMiddleware is an HTTP middleware that logs requests to the local status
// server using Logrus: method, path, status and duration.
func LogMiddleware(logger logrus.FieldLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Debug("HTTP Request")
		})
	}
}

// roundTripFunc adapts a function to http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// LogTransport wraps next so every outgoing lobby API request is logged with
// Logrus: method, path, status and duration. A nil next uses http.DefaultTransport.
func LogTransport(logger logrus.FieldLogger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(r)

		fields := logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"host":     r.URL.Host,
			"duration": time.Since(start),
		}
		if err != nil {
			fields["error"] = err
			logger.WithFields(fields).Warn("HTTP Request failed")
			return resp, err
		}
		fields["status"] = resp.StatusCode
		logger.WithFields(fields).Info("HTTP Request")
		return resp, nil
	})
}

// LogWebSocketConnect logs a message when the room connection opens.
func LogWebSocketConnect(logger logrus.FieldLogger, url string, attempt int) {
	logger.WithFields(logrus.Fields{
		"url":     url,
		"attempt": attempt,
	}).Info("WebSocket connected")
}

// LogWebSocketDisconnect logs a message when the room connection closes.
func LogWebSocketDisconnect(logger logrus.FieldLogger, url string, code int, err error) {
	fields := logrus.Fields{
		"url":  url,
		"code": code,
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("WebSocket disconnected")
}
