package provider

import (
	"time"

	"github.com/urbanize/urbanize-backend/internal/logger"
	"github.com/urbanize/urbanize-backend/internal/metrics"
)

// LogRequest logs an upstream request being made.
func LogRequest(provider, method, url string, params map[string]any) {
	metrics.ProviderRequestsTotal.WithLabelValues(provider).Inc()
	if len(params) > 0 {
		logger.L().Debug("provider_request", "provider", provider, "method", method, "url", url, "params", params)
	} else {
		logger.L().Debug("provider_request", "provider", provider, "method", method, "url", url)
	}
}

// LogResponse logs an upstream response received.
func LogResponse(provider string, statusCode int, duration time.Duration, resultCount int) {
	metrics.ProviderDurationMs.WithLabelValues(provider).Observe(float64(duration.Milliseconds()))
	logger.L().Debug("provider_response",
		"provider", provider,
		"status", statusCode,
		"duration_ms", duration.Milliseconds(),
		"results", resultCount,
	)
}

// LogError logs a failed upstream operation.
func LogError(provider, operation string, err error) {
	metrics.ProviderFailTotal.WithLabelValues(provider).Inc()
	logger.L().Warn("provider_error", "provider", provider, "op", operation, "err", err)
}
