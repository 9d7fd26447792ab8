package planning

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/urbanize/urbanize-backend/internal/advisor"
	"github.com/urbanize/urbanize-backend/internal/gateway/aqi"
	"github.com/urbanize/urbanize-backend/internal/gateway/assistant"
	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
	"github.com/urbanize/urbanize-backend/internal/gateway/traffic"
	"github.com/urbanize/urbanize-backend/internal/gateway/zones"
	"github.com/urbanize/urbanize-backend/internal/insights"
	"github.com/urbanize/urbanize-backend/internal/reports"
)

var cityPalace = provider.Coordinates{Lat: 26.9258, Lon: 75.8237}

type fakeBackend struct {
	mu sync.Mutex

	trafficErr error
	aiErr      error
	reports    []reports.Report

	aiCalls  int
	opt      assistant.OptimizationInput
	cc       assistant.ChatContext
	msgs     []assistant.Message
	location string
}

func (f *fakeBackend) AQI(_ context.Context, at provider.Coordinates) (insights.AQIResponse, error) {
	return insights.AQIResponse{Reading: aqi.Reading{AQI: 140, Location: at}, Category: aqi.CategoryOf(140)}, nil
}

func (f *fakeBackend) Traffic(context.Context, provider.Coordinates) (traffic.Reading, error) {
	if f.trafficErr != nil {
		return traffic.Reading{}, f.trafficErr
	}
	return traffic.Reading{Congestion: traffic.High, CongestionPercentage: 55, CurrentSpeed: 18, FreeFlowSpeed: 40}, nil
}

func (f *fakeBackend) NearbyZones(context.Context, provider.Coordinates, float64) (insights.ZonesResponse, error) {
	return insights.ZonesResponse{Zones: []zones.Zone{
		{ID: 1, Type: "residential", Distance: 20},
		{ID: 2, Type: "residential", Distance: 120},
		{ID: 3, Type: "school", Name: "City School", Distance: 200},
	}}, nil
}

func (f *fakeBackend) ListReports(context.Context) ([]reports.Report, error) {
	return f.reports, nil
}

func (f *fakeBackend) record() {
	f.mu.Lock()
	f.aiCalls++
	f.mu.Unlock()
}

func (f *fakeBackend) Chat(_ context.Context, msgs []assistant.Message, cc assistant.ChatContext) (string, error) {
	f.record()
	f.msgs, f.cc = msgs, cc
	return "chat reply", f.aiErr
}

func (f *fakeBackend) UrbanOptimization(_ context.Context, in assistant.OptimizationInput) (string, error) {
	f.record()
	f.opt = in
	return "optimization reply", f.aiErr
}

func (f *fakeBackend) PredictCongestion(_ context.Context, location string, _ provider.Coordinates) (advisor.PredictionResponse, error) {
	f.record()
	f.location = location
	return advisor.PredictionResponse{Prediction: "prediction reply"}, f.aiErr
}

func (f *fakeBackend) AnalyzeTraffic(_ context.Context, location string, _ provider.Coordinates) (string, error) {
	f.record()
	f.location = location
	return "analysis reply", f.aiErr
}

func nearbyFixture() []reports.Report {
	return []reports.Report{
		{ID: "near", Category: reports.Pothole, Description: "Crater", Priority: reports.High, Longitude: 75.8240, Latitude: 26.9260},
		{ID: "edge", Category: reports.Traffic, Longitude: 75.8237, Latitude: 26.9258 + 0.0089},
		{ID: "far", Category: reports.ParkIdea, Longitude: 75.80, Latitude: 26.90},
	}
}

func TestSessionClick(t *testing.T) {
	c := NewSession(Citizen)
	if in := c.Click(cityPalace); in.Kind != DraftReport || in.At != cityPalace {
		t.Errorf("citizen click = %+v", in)
	}
	if c.ToggleSelect() {
		t.Error("citizen entered select mode")
	}

	p := NewSession(Planner)
	if in := p.Click(cityPalace); in.Kind != NoIntent {
		t.Errorf("planner click outside select mode = %+v", in)
	}
	if !p.ToggleSelect() {
		t.Fatal("planner should enter select mode")
	}
	if in := p.Click(cityPalace); in.Kind != ChooseAction {
		t.Errorf("planner select click = %+v", in)
	}
	if p.Selecting() {
		t.Error("capturing a point should leave select mode")
	}
	if at, ok := p.Selected(); !ok || at != cityPalace {
		t.Errorf("selected = %v, %v", at, ok)
	}
}

func TestParseAction(t *testing.T) {
	if a, err := ParseAction("zone-analysis"); err != nil || a != ZoneAnalysis {
		t.Errorf("ParseAction = %v, %v", a, err)
	}
	if _, err := ParseAction("demolish"); err == nil {
		t.Error("expected error for unknown action")
	}
	if _, err := ParseRole("mayor"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestNearbyReports(t *testing.T) {
	got := NearbyReports(nearbyFixture(), cityPalace, ReportRadius)
	if len(got) != 2 || got[0].ID != "near" || got[1].ID != "edge" {
		t.Errorf("nearby = %+v", got)
	}
}

func TestRunUrbanOptimization(t *testing.T) {
	b := &fakeBackend{reports: nearbyFixture()}
	o := NewOrchestrator(b, cityPalace)

	if err := o.Run(context.Background(), UrbanOptimization); err != nil {
		t.Fatal(err)
	}
	if b.aiCalls != 1 {
		t.Errorf("AI calls = %d, want 1", b.aiCalls)
	}
	in := b.opt
	if in.Location.Lat != cityPalace.Lat || in.LocationName != "26.9258°N, 75.8237°E" {
		t.Errorf("location = %+v %q", in.Location, in.LocationName)
	}
	if in.AQI != 140 || in.Traffic == nil || in.Traffic.Congestion != traffic.High {
		t.Errorf("readings = aqi %v traffic %+v", in.AQI, in.Traffic)
	}
	if len(in.NearbyZones) != 3 || len(in.Reports) != 2 || in.Reports[0].Category != "pothole" {
		t.Errorf("zones %d reports %+v", len(in.NearbyZones), in.Reports)
	}

	msgs := o.Transcript().Messages()
	if len(msgs) != 3 || msgs[1].Role != "user" || !strings.HasPrefix(msgs[1].Content, "🏗️") {
		t.Fatalf("transcript = %+v", msgs)
	}
	if msgs[2] != (assistant.Message{Role: "assistant", Content: "optimization reply"}) {
		t.Errorf("reply = %+v", msgs[2])
	}
}

func TestRunToleratesMissingTraffic(t *testing.T) {
	b := &fakeBackend{trafficErr: errors.New("api: HTTP 404: No traffic data available for this location")}
	o := NewOrchestrator(b, cityPalace)
	if err := o.Run(context.Background(), UrbanOptimization); err != nil {
		t.Fatal(err)
	}
	if b.opt.Traffic != nil {
		t.Errorf("traffic = %+v, want nil", b.opt.Traffic)
	}
}

func TestRunFailureAppendsWarningWithoutRetry(t *testing.T) {
	b := &fakeBackend{aiErr: errors.New("gemini unavailable")}
	o := NewOrchestrator(b, cityPalace)

	err := o.Run(context.Background(), CongestionPrediction)
	if err == nil {
		t.Fatal("expected error")
	}
	if b.aiCalls != 1 {
		t.Errorf("AI calls = %d, want exactly 1", b.aiCalls)
	}
	last := o.Transcript().Last()
	if last.Role != "assistant" || last.Content != "⚠️ gemini unavailable" {
		t.Errorf("last message = %+v", last)
	}
}

func TestRunZoneAnalysisUsesChat(t *testing.T) {
	b := &fakeBackend{reports: nearbyFixture()}
	o := NewOrchestrator(b, cityPalace)
	if err := o.Run(context.Background(), ZoneAnalysis); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.cc.Context, "residential: 2, school: 1") || !strings.Contains(b.cc.Context, "pothole: 1") {
		t.Errorf("context = %q", b.cc.Context)
	}
	if b.cc.Location == nil || *b.cc.Location != cityPalace {
		t.Errorf("location = %v", b.cc.Location)
	}
	if n := len(b.msgs); n != 2 || b.msgs[n-1].Role != "user" {
		t.Errorf("chat history = %+v", b.msgs)
	}
}

func TestTrafficActionsUseLocationName(t *testing.T) {
	for _, a := range []Action{CongestionPrediction, TrafficAnalysis} {
		b := &fakeBackend{}
		if err := NewOrchestrator(b, cityPalace).Run(context.Background(), a); err != nil {
			t.Fatalf("%s: %v", a, err)
		}
		if b.location != "26.9258°N, 75.8237°E" {
			t.Errorf("%s location = %q", a, b.location)
		}
	}
}

func TestAsk(t *testing.T) {
	b := &fakeBackend{}
	o := NewOrchestrator(b, cityPalace)

	if err := o.Ask(context.Background(), "   "); err != nil || b.aiCalls != 0 {
		t.Fatalf("blank question sent: %v calls=%d", err, b.aiCalls)
	}
	if err := o.Ask(context.Background(), "Where should a bus stop go?"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.cc.Context, "AQI: 140. Traffic: High congestion.") {
		t.Errorf("context = %q", b.cc.Context)
	}
	if o.Transcript().Last().Content != "chat reply" {
		t.Errorf("transcript = %+v", o.Transcript().Messages())
	}
}
