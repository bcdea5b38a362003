// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/synzen/MonitoRSS-sub001/internal/metrics"
)

// prometheusMetrics records request counts and latency for every route.
func prometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		metrics.HTTPRequestsTotal.WithLabelValues(
			r.Method, r.URL.Path, strconv.Itoa(wrapper.statusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(
			r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// statusRecorder captures the response status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
