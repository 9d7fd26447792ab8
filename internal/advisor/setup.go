// Package advisor serves the /api/ai endpoints that turn map context into planning
// advice from the language model.
package advisor

import (
	"context"

	"github.com/urbanize/urbanize-backend/internal/gateway/assistant"
	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
	"github.com/urbanize/urbanize-backend/internal/gateway/traffic"
)

// Assistant is the language-model surface the handlers need.
type Assistant interface {
	Chat(ctx context.Context, msgs []assistant.Message, cc assistant.ChatContext) (string, error)
	UrbanOptimization(ctx context.Context, in assistant.OptimizationInput) (string, error)
	PredictCongestion(ctx context.Context, location string, tp assistant.TrafficPair) (string, error)
	AnalyzeTraffic(ctx context.Context, location string, coords []float64) (string, error)
	Optimize(ctx context.Context, area string, data any) (string, error)
}

// SegmentSource supplies raw flow segments for congestion prediction.
type SegmentSource interface {
	CurrentSegment(ctx context.Context, at provider.Coordinates) (traffic.FlowSegment, error)
	Future(ctx context.Context, at provider.Coordinates) (traffic.FlowSegment, error)
}
