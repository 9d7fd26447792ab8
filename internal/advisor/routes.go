package advisor

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/urbanize/urbanize-backend/internal/middleware"
)

// SetupRoutes mounts the AI endpoints. limiter may be nil.
func SetupRoutes(ai Assistant, segments SegmentSource, limiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()
	h := handlers{ai: ai, segments: segments}

	if limiter != nil {
		r.Use(limiter.Middleware)
	}

	r.Post("/chat", h.Chat)
	r.Post("/optimize", h.Optimize)
	r.Post("/urban-optimization", h.UrbanOptimization)
	r.Post("/predict-congestion", h.PredictCongestion)
	r.Post("/analyze-traffic", h.AnalyzeTraffic)

	return r
}
