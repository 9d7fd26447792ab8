// Package traffic reads road flow from the TomTom flow-segment API.
package traffic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/urbanize/urbanize-backend/internal/apperr"
	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
)

const providerName = "tomtom"

// Congestion levels.
const (
	Low    = "Low"
	Medium = "Medium"
	High   = "High"
)

// FlowSegment is the upstream flow-segment payload.
type FlowSegment struct {
	FRC                string  `json:"frc,omitempty"`
	CurrentSpeed       float64 `json:"currentSpeed"`
	FreeFlowSpeed      float64 `json:"freeFlowSpeed"`
	CurrentTravelTime  float64 `json:"currentTravelTime"`
	FreeFlowTravelTime float64 `json:"freeFlowTravelTime"`
	Confidence         float64 `json:"confidence"`
	RoadClosure        bool    `json:"roadClosure"`
}

// Reading is a normalized current-traffic observation.
type Reading struct {
	Congestion           string    `json:"congestion"`
	CongestionPercentage int       `json:"congestionPercentage"`
	CurrentSpeed         int       `json:"currentSpeed"`
	FreeFlowSpeed        int       `json:"freeFlowSpeed"`
	Delay                int       `json:"delay"`
	Confidence           float64   `json:"confidence"`
	RoadClosure          bool      `json:"roadClosure"`
	Timestamp            time.Time `json:"timestamp"`
}

// Classify returns High below 70% of free-flow speed, Medium below 90%, else Low.
func Classify(currentSpeed, freeFlowSpeed float64) string {
	switch {
	case currentSpeed < 0.7*freeFlowSpeed:
		return High
	case currentSpeed < 0.9*freeFlowSpeed:
		return Medium
	default:
		return Low
	}
}

// CongestionPercentage is the rounded share of free-flow speed lost, never negative.
func CongestionPercentage(currentSpeed, freeFlowSpeed float64) int {
	if freeFlowSpeed <= 0 {
		return 0
	}
	pct := int(math.Round((freeFlowSpeed - currentSpeed) / freeFlowSpeed * 100))
	return max(pct, 0)
}

// Normalize converts a flow segment into a Reading stamped with now.
func Normalize(seg FlowSegment, now time.Time) Reading {
	return Reading{
		Congestion:           Classify(seg.CurrentSpeed, seg.FreeFlowSpeed),
		CongestionPercentage: CongestionPercentage(seg.CurrentSpeed, seg.FreeFlowSpeed),
		CurrentSpeed:         int(math.Round(seg.CurrentSpeed)),
		FreeFlowSpeed:        int(math.Round(seg.FreeFlowSpeed)),
		Delay:                int(math.Round(seg.CurrentTravelTime - seg.FreeFlowTravelTime)),
		Confidence:           seg.Confidence,
		RoadClosure:          seg.RoadClosure,
		Timestamp:            now.UTC(),
	}
}

// ErrNoData is wrapped by the NotFoundError returned when the provider has no segment.
var ErrNoData = errors.New("no traffic data available for this location")

// Client calls the flow-segment endpoint.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a TomTom client. endpoint is the API origin, e.g. https://api.tomtom.com.
func NewClient(apiKey, endpoint string) *Client {
	return &Client{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: provider.NewHTTPClient(10 * time.Second),
		now:        time.Now,
	}
}

// Current returns the normalized reading for the road segment nearest to at.
func (c *Client) Current(ctx context.Context, at provider.Coordinates) (Reading, error) {
	seg, err := c.segment(ctx, at, false)
	if err != nil {
		return Reading{}, err
	}
	return Normalize(seg, c.now()), nil
}

// Future returns the provider's predictive flow segment for at.
func (c *Client) Future(ctx context.Context, at provider.Coordinates) (FlowSegment, error) {
	return c.segment(ctx, at, true)
}

// CurrentSegment returns the raw current flow segment for at.
func (c *Client) CurrentSegment(ctx context.Context, at provider.Coordinates) (FlowSegment, error) {
	return c.segment(ctx, at, false)
}

func (c *Client) segment(ctx context.Context, at provider.Coordinates, predict bool) (FlowSegment, error) {
	if c.apiKey == "" {
		return FlowSegment{}, &apperr.ConfigurationError{Key: "TOMTOM_API_KEY"}
	}

	op := "flow"
	params := url.Values{}
	params.Set("point", fmt.Sprintf("%g,%g", at.Lat, at.Lon))
	if predict {
		op = "flow_predict"
		params.Set("predict", "true")
	}
	params.Set("key", c.apiKey)
	base := c.endpoint + "/traffic/services/4/flowSegmentData/relative0/10/json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return FlowSegment{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	provider.LogRequest(providerName, http.MethodGet, base, map[string]any{"point": params.Get("point"), "predict": predict})
	resp, err := c.httpClient.Do(req)
	if err != nil {
		provider.LogError(providerName, op, err)
		return FlowSegment{}, apperr.Provider(providerName, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("status %d", resp.StatusCode)
		provider.LogError(providerName, op, err)
		return FlowSegment{}, apperr.Provider(providerName, op, err)
	}

	var body struct {
		FlowSegmentData *FlowSegment `json:"flowSegmentData"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		provider.LogError(providerName, op, err)
		return FlowSegment{}, apperr.Provider(providerName, op, fmt.Errorf("decode: %w", err))
	}
	if body.FlowSegmentData == nil {
		provider.LogResponse(providerName, resp.StatusCode, time.Since(start), 0)
		return FlowSegment{}, fmt.Errorf("%w: %w", &apperr.NotFoundError{What: "traffic data"}, ErrNoData)
	}
	provider.LogResponse(providerName, resp.StatusCode, time.Since(start), 1)
	return *body.FlowSegmentData, nil
}
