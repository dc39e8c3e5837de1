package handlers

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/go-logr/logr"
)

// logRequests пишет строку журнала на каждый запрос
func logRequests(log logr.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		log.V(1).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.Code,
			"bytes", m.Written,
			"duration", m.Duration.String(),
		)
	})
}
