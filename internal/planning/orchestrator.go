package planning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/urbanize/urbanize-backend/internal/advisor"
	"github.com/urbanize/urbanize-backend/internal/gateway/assistant"
	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
	"github.com/urbanize/urbanize-backend/internal/gateway/traffic"
	"github.com/urbanize/urbanize-backend/internal/gateway/zones"
	"github.com/urbanize/urbanize-backend/internal/geo"
	"github.com/urbanize/urbanize-backend/internal/insights"
	"github.com/urbanize/urbanize-backend/internal/logger"
	"github.com/urbanize/urbanize-backend/internal/reports"
)

// ReportRadius bounds which reports count as near the selected point, in meters.
const ReportRadius = 1000.0

// Backend is the API surface the orchestrator reads from. *client.Client satisfies it.
type Backend interface {
	AQI(ctx context.Context, at provider.Coordinates) (insights.AQIResponse, error)
	Traffic(ctx context.Context, at provider.Coordinates) (traffic.Reading, error)
	NearbyZones(ctx context.Context, at provider.Coordinates, radius float64) (insights.ZonesResponse, error)
	ListReports(ctx context.Context) ([]reports.Report, error)

	Chat(ctx context.Context, msgs []assistant.Message, cc assistant.ChatContext) (string, error)
	UrbanOptimization(ctx context.Context, in assistant.OptimizationInput) (string, error)
	PredictCongestion(ctx context.Context, location string, at provider.Coordinates) (advisor.PredictionResponse, error)
	AnalyzeTraffic(ctx context.Context, location string, at provider.Coordinates) (string, error)
}

// AreaContext is what is known about the selected point before asking the model.
// AQI and Traffic are nil when their lookups failed.
type AreaContext struct {
	At            provider.Coordinates
	AQI           *insights.AQIResponse
	Traffic       *traffic.Reading
	Zones         []zones.Zone
	NearbyReports []reports.Report
	ZoneCounts    map[string]int
	ReportCounts  map[string]int
}

// Orchestrator runs planner actions for one selected point.
type Orchestrator struct {
	backend    Backend
	at         provider.Coordinates
	transcript *Transcript
	log        *slog.Logger
}

func NewOrchestrator(b Backend, at provider.Coordinates) *Orchestrator {
	return &Orchestrator{backend: b, at: at, transcript: NewTranscript(), log: logger.L()}
}

func (o *Orchestrator) Transcript() *Transcript { return o.transcript }

// LocationName formats a point the way prompts refer to it.
func LocationName(at provider.Coordinates) string {
	return fmt.Sprintf("%.4f°N, %.4f°E", at.Lat, at.Lon)
}

// Gather collects readings, zones and nearby reports concurrently. Lookups that fail
// are logged and left empty; Gather itself only fails when ctx is done.
func (o *Orchestrator) Gather(ctx context.Context) (AreaContext, error) {
	ac := AreaContext{At: o.at, Zones: []zones.Zone{}}
	var all []reports.Report

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := o.backend.AQI(gctx, o.at)
		if err != nil {
			o.log.Warn("planning_aqi_unavailable", "err", err)
			return nil
		}
		ac.AQI = &a
		return nil
	})
	g.Go(func() error {
		t, err := o.backend.Traffic(gctx, o.at)
		if err != nil {
			o.log.Warn("planning_traffic_unavailable", "err", err)
			return nil
		}
		ac.Traffic = &t
		return nil
	})
	g.Go(func() error {
		zr, err := o.backend.NearbyZones(gctx, o.at, zones.DefaultRadius)
		if err != nil {
			o.log.Warn("planning_zones_unavailable", "err", err)
			return nil
		}
		if zr.Error != "" {
			o.log.Warn("planning_zones_degraded", "err", zr.Error)
		}
		if zr.Zones != nil {
			ac.Zones = zr.Zones
		}
		return nil
	})
	g.Go(func() error {
		rs, err := o.backend.ListReports(gctx)
		if err != nil {
			o.log.Warn("planning_reports_unavailable", "err", err)
			return nil
		}
		all = rs
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return ac, err
	}

	ac.NearbyReports = NearbyReports(all, o.at, ReportRadius)
	ac.ZoneCounts = map[string]int{}
	for _, z := range ac.Zones {
		ac.ZoneCounts[z.Type]++
	}
	ac.ReportCounts = map[string]int{}
	for _, r := range ac.NearbyReports {
		ac.ReportCounts[string(r.Category)]++
	}
	return ac, nil
}

// NearbyReports keeps the reports strictly closer than radius meters to at.
func NearbyReports(all []reports.Report, at provider.Coordinates, radius float64) []reports.Report {
	origin := orb.Point{at.Lon, at.Lat}
	out := []reports.Report{}
	for _, r := range all {
		if geo.Within(origin, orb.Point{r.Longitude, r.Latitude}, radius) {
			out = append(out, r)
		}
	}
	return out
}

func actionPrompt(a Action) string {
	switch a {
	case UrbanOptimization:
		return "🏗️ Provide targeted urban infrastructure optimization recommendations for this selected area."
	case CongestionPrediction:
		return "🚦 Predict traffic congestion patterns for this location"
	case TrafficAnalysis:
		return "📊 Analyze current traffic conditions at this location"
	default:
		return "🗺️ Analyze land use and zoning around this location"
	}
}

// Run appends the action's user message, sends exactly one AI request built from the
// gathered context and appends the answer. A failure is appended as an assistant
// message and returned; it is not retried.
func (o *Orchestrator) Run(ctx context.Context, a Action) error {
	if _, err := ParseAction(string(a)); err != nil {
		return err
	}
	o.transcript.Append("user", actionPrompt(a))

	ac, err := o.Gather(ctx)
	if err != nil {
		return o.fail(a, err)
	}

	var reply string
	switch a {
	case UrbanOptimization:
		reply, err = o.backend.UrbanOptimization(ctx, OptimizationInput(ac))
	case CongestionPrediction:
		var pred advisor.PredictionResponse
		pred, err = o.backend.PredictCongestion(ctx, LocationName(o.at), o.at)
		reply = pred.Prediction
	case TrafficAnalysis:
		reply, err = o.backend.AnalyzeTraffic(ctx, LocationName(o.at), o.at)
	case ZoneAnalysis:
		reply, err = o.backend.Chat(ctx, o.transcript.Messages(), o.chatContext(ac, true))
	}
	if err != nil {
		return o.fail(a, err)
	}

	o.log.Info("planning_action_done", "action", string(a), "zones", len(ac.Zones), "reports", len(ac.NearbyReports))
	o.transcript.Append("assistant", reply)
	return nil
}

// Ask sends a free-form question with the area summary as context.
func (o *Orchestrator) Ask(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	o.transcript.Append("user", text)

	ac, err := o.Gather(ctx)
	if err != nil {
		return o.fail("chat", err)
	}
	reply, err := o.backend.Chat(ctx, o.transcript.Messages(), o.chatContext(ac, false))
	if err != nil {
		return o.fail("chat", err)
	}
	o.transcript.Append("assistant", reply)
	return nil
}

func (o *Orchestrator) fail(a Action, err error) error {
	o.log.Warn("planning_action_failed", "action", string(a), "err", err)
	o.transcript.Append("assistant", "⚠️ "+err.Error())
	return err
}

func (o *Orchestrator) chatContext(ac AreaContext, withZones bool) assistant.ChatContext {
	aqiText, trafficText := "N/A", "N/A"
	if ac.AQI != nil {
		aqiText = fmt.Sprint(ac.AQI.AQI)
	}
	if ac.Traffic != nil {
		trafficText = ac.Traffic.Congestion
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Urban planning assistant for location: %s. AQI: %s. Traffic: %s congestion.",
		LocationName(ac.At), aqiText, trafficText)
	if withZones {
		fmt.Fprintf(&b, " Nearby zones (%d): %s.", len(ac.Zones), formatCounts(ac.ZoneCounts))
		fmt.Fprintf(&b, " Reports within %gm: %s.", ReportRadius, formatCounts(ac.ReportCounts))
	}

	at := ac.At
	return assistant.ChatContext{Context: b.String(), Location: &at}
}

// formatCounts renders counts as "a: 2, b: 1", largest first.
func formatCounts(m map[string]int) string {
	if len(m) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %d", k, m[k])
	}
	return strings.Join(parts, ", ")
}

// OptimizationInput converts gathered context into the urban-optimization request.
func OptimizationInput(ac AreaContext) assistant.OptimizationInput {
	in := assistant.OptimizationInput{
		Location:     assistant.LatLng{Lat: ac.At.Lat, Lng: ac.At.Lon},
		LocationName: LocationName(ac.At),
		NearbyZones:  make([]assistant.ZoneSummary, 0, len(ac.Zones)),
		Reports:      make([]assistant.ReportSummary, 0, len(ac.NearbyReports)),
	}
	for _, z := range ac.Zones {
		in.NearbyZones = append(in.NearbyZones, assistant.ZoneSummary{
			Type: z.Type, Distance: z.Distance, Name: z.Name, Area: z.Area,
		})
	}
	for _, r := range ac.NearbyReports {
		in.Reports = append(in.Reports, assistant.ReportSummary{
			Category: string(r.Category), Description: r.Description, Priority: string(r.Priority),
		})
	}
	if ac.AQI != nil {
		in.AQI = float64(ac.AQI.AQI)
		in.AQICategory = ac.AQI.Category.Level
	}
	if ac.Traffic != nil {
		in.Traffic = &assistant.TrafficSummary{
			Congestion:           ac.Traffic.Congestion,
			CurrentSpeed:         float64(ac.Traffic.CurrentSpeed),
			FreeFlowSpeed:        float64(ac.Traffic.FreeFlowSpeed),
			CongestionPercentage: float64(ac.Traffic.CongestionPercentage),
		}
	}
	return in
}
