package client_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/urbanize/urbanize-backend/internal/advisor"
	"github.com/urbanize/urbanize-backend/internal/apperr"
	"github.com/urbanize/urbanize-backend/internal/client"
	"github.com/urbanize/urbanize-backend/internal/gateway/aqi"
	"github.com/urbanize/urbanize-backend/internal/gateway/assistant"
	"github.com/urbanize/urbanize-backend/internal/gateway/geocoding"
	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
	"github.com/urbanize/urbanize-backend/internal/gateway/traffic"
	"github.com/urbanize/urbanize-backend/internal/gateway/zones"
	"github.com/urbanize/urbanize-backend/internal/insights"
	"github.com/urbanize/urbanize-backend/internal/middleware"
	"github.com/urbanize/urbanize-backend/internal/reports"
)

var hawaMahal = provider.Coordinates{Lat: 26.9239, Lon: 75.8267}

type stubAQI struct{}

func (stubAQI) Reading(_ context.Context, at provider.Coordinates) aqi.Reading {
	return aqi.Reading{AQI: 120, Location: at}
}

type stubTraffic struct{}

func (stubTraffic) Current(_ context.Context, at provider.Coordinates) (traffic.Reading, error) {
	if at.Lat > 80 {
		return traffic.Reading{}, &apperr.NotFoundError{What: "traffic data"}
	}
	return traffic.Reading{Congestion: traffic.Medium, CongestionPercentage: 45, CurrentSpeed: 22}, nil
}

func (stubTraffic) Future(context.Context, provider.Coordinates) (traffic.FlowSegment, error) {
	return traffic.FlowSegment{CurrentSpeed: 18, FreeFlowSpeed: 40}, nil
}

func (stubTraffic) CurrentSegment(context.Context, provider.Coordinates) (traffic.FlowSegment, error) {
	return traffic.FlowSegment{CurrentSpeed: 22, FreeFlowSpeed: 40}, nil
}

type stubZones struct{ err error }

func (s stubZones) Nearby(context.Context, provider.Coordinates, float64) ([]zones.Zone, error) {
	if s.err != nil {
		return []zones.Zone{}, s.err
	}
	return []zones.Zone{{ID: 1, Type: "residential", Distance: 40}}, nil
}

type stubGeocoder struct{}

func (stubGeocoder) Name() string { return "stub" }

func (stubGeocoder) Search(_ context.Context, q string) (geocoding.Result, error) {
	if q == "Atlantis" {
		return geocoding.Result{}, nil
	}
	return geocoding.Result{Places: []geocoding.Place{{Name: "Jaipur, Rajasthan", Lat: 26.91, Lon: 75.78}}}, nil
}

type echoAssistant struct{ last string }

func (e *echoAssistant) Chat(_ context.Context, msgs []assistant.Message, cc assistant.ChatContext) (string, error) {
	e.last = cc.Context
	return "chat:" + msgs[len(msgs)-1].Content, nil
}

func (e *echoAssistant) UrbanOptimization(_ context.Context, in assistant.OptimizationInput) (string, error) {
	return "optimize:" + in.LocationName, nil
}

func (e *echoAssistant) PredictCongestion(_ context.Context, location string, _ assistant.TrafficPair) (string, error) {
	return "predict:" + location, nil
}

func (e *echoAssistant) AnalyzeTraffic(_ context.Context, location string, _ []float64) (string, error) {
	return "analyze:" + location, nil
}

func (e *echoAssistant) Optimize(_ context.Context, area string, _ any) (string, error) {
	return "area:" + area, nil
}

func newServer(t *testing.T, z stubZones) (*httptest.Server, *echoAssistant) {
	t.Helper()
	ai := &echoAssistant{}
	r := chi.NewRouter()
	r.Use(middleware.UserIDMiddleware)
	r.Mount("/api/reports", reports.SetupRoutes(reports.NewMemStore()))
	r.Mount("/api/ai", advisor.SetupRoutes(ai, stubTraffic{}, nil))
	r.Mount("/api", insights.SetupRoutes(insights.Deps{
		AQI: stubAQI{}, Traffic: stubTraffic{}, Zones: z, Geocoder: stubGeocoder{},
	}))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, ai
}

func ptr(f float64) *float64 { return &f }

func TestReportsRoundTrip(t *testing.T) {
	srv, _ := newServer(t, stubZones{})
	c := client.New(srv.URL, client.WithUserID("user-42"))
	ctx := context.Background()

	created, err := c.CreateReport(ctx, reports.NewReport{
		Category: reports.Pothole, Description: "Deep pothole", Priority: reports.High,
		Longitude: ptr(75.8267), Latitude: ptr(26.9124),
	})
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	if created.ID == "" || created.UserID != "user-42" || created.Status != reports.StatusPending {
		t.Errorf("created = %+v", created)
	}

	mine, err := c.ListUserReports(ctx, "user-42")
	if err != nil || len(mine) != 1 {
		t.Fatalf("ListUserReports = %v, %v", mine, err)
	}

	if err := c.DeleteReport(ctx, created.ID); err != nil {
		t.Fatalf("DeleteReport: %v", err)
	}
	all, err := c.ListReports(ctx)
	if err != nil || len(all) != 0 {
		t.Errorf("ListReports after delete = %v, %v", all, err)
	}
}

func TestCreateReportValidationError(t *testing.T) {
	srv, _ := newServer(t, stubZones{})
	_, err := client.New(srv.URL).CreateReport(context.Background(), reports.NewReport{Category: "graffiti"})

	var ae *client.APIError
	if !errors.As(err, &ae) || ae.Status != 400 || ae.Message == "" {
		t.Errorf("err = %v", err)
	}
}

func TestReadings(t *testing.T) {
	srv, _ := newServer(t, stubZones{})
	c := client.New(srv.URL)
	ctx := context.Background()

	a, err := c.AQI(ctx, hawaMahal)
	if err != nil || a.AQI != 120 || a.Category.Level == "" {
		t.Errorf("AQI = %+v, %v", a, err)
	}

	tr, err := c.Traffic(ctx, hawaMahal)
	if err != nil || tr.Congestion != traffic.Medium {
		t.Errorf("Traffic = %+v, %v", tr, err)
	}
	if _, err := c.Traffic(ctx, provider.Coordinates{Lat: 85, Lon: 0}); !client.IsNotFound(err) {
		t.Errorf("uncovered traffic err = %v, want 404", err)
	}

	zs, err := c.NearbyZones(ctx, hawaMahal, 0)
	if err != nil || len(zs.Zones) != 1 || zs.Error != "" {
		t.Errorf("NearbyZones = %+v, %v", zs, err)
	}

	p, err := c.GeocodeFirst(ctx, "Jaipur")
	if err != nil || p.Name != "Jaipur, Rajasthan" {
		t.Errorf("GeocodeFirst = %+v, %v", p, err)
	}
	if _, err := c.GeocodeFirst(ctx, "Atlantis"); !client.IsNotFound(err) {
		t.Errorf("no-match geocode err = %v, want 404", err)
	}
}

func TestNearbyZonesDegraded(t *testing.T) {
	srv, _ := newServer(t, stubZones{err: errors.New("overpass down")})
	zs, err := client.New(srv.URL).NearbyZones(context.Background(), hawaMahal, 500)
	if err != nil || len(zs.Zones) != 0 || zs.Error == "" {
		t.Errorf("NearbyZones = %+v, %v", zs, err)
	}
}

func TestAIEndpoints(t *testing.T) {
	srv, ai := newServer(t, stubZones{})
	c := client.New(srv.URL)
	ctx := context.Background()

	msg, err := c.Chat(ctx, []assistant.Message{{Role: "user", Content: "hello"}}, assistant.ChatContext{
		Context: "Jaipur", Location: &hawaMahal,
	})
	if err != nil || msg != "chat:hello" || ai.last != "Jaipur" {
		t.Errorf("Chat = %q, %v", msg, err)
	}

	s, err := c.UrbanOptimization(ctx, assistant.OptimizationInput{
		Location: assistant.LatLng{Lat: 26.9, Lng: 75.8}, LocationName: "Old City",
	})
	if err != nil || s != "optimize:Old City" {
		t.Errorf("UrbanOptimization = %q, %v", s, err)
	}

	pred, err := c.PredictCongestion(ctx, "MI Road", hawaMahal)
	if err != nil || pred.Prediction != "predict:MI Road" || pred.TrafficData.Current == nil || pred.TrafficData.Future == nil {
		t.Errorf("PredictCongestion = %+v, %v", pred, err)
	}

	an, err := c.AnalyzeTraffic(ctx, "Ajmeri Gate", hawaMahal)
	if err != nil || an != "analyze:Ajmeri Gate" {
		t.Errorf("AnalyzeTraffic = %q, %v", an, err)
	}

	o, err := c.Optimize(ctx, "Bapu Bazaar", map[string]int{"reports": 2})
	if err != nil || o != "area:Bapu Bazaar" {
		t.Errorf("Optimize = %q, %v", o, err)
	}
}
