package traffic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/urbanize/urbanize-backend/internal/apperr"
	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
)

var jaipur = provider.Coordinates{Lat: 26.9124, Lon: 75.8267}

func TestClassification(t *testing.T) {
	cases := []struct {
		current, free float64
		wantLevel     string
		wantPct       int
	}{
		{20, 40, High, 50},
		{38, 40, Low, 5},
		{32, 40, Medium, 20},
		{28, 40, Medium, 30},
		{27.9, 40, High, 30},
		{45, 40, Low, 0},
		{0, 0, Low, 0},
	}
	for _, tc := range cases {
		if got := Classify(tc.current, tc.free); got != tc.wantLevel {
			t.Errorf("Classify(%v, %v) = %s, want %s", tc.current, tc.free, got, tc.wantLevel)
		}
		if got := CongestionPercentage(tc.current, tc.free); got != tc.wantPct {
			t.Errorf("CongestionPercentage(%v, %v) = %d, want %d", tc.current, tc.free, got, tc.wantPct)
		}
	}
}

func TestNormalize(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	r := Normalize(FlowSegment{
		CurrentSpeed:       20.4,
		FreeFlowSpeed:      40.2,
		CurrentTravelTime:  180.6,
		FreeFlowTravelTime: 90,
		Confidence:         0.9,
		RoadClosure:        true,
	}, now)

	if r.Congestion != High || r.CurrentSpeed != 20 || r.FreeFlowSpeed != 40 {
		t.Errorf("unexpected reading %+v", r)
	}
	if r.Delay != 91 {
		t.Errorf("Delay = %d, want 91", r.Delay)
	}
	if !r.RoadClosure || !r.Timestamp.Equal(now) {
		t.Errorf("unexpected reading %+v", r)
	}
}

func TestCurrent(t *testing.T) {
	var gotPredict string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/traffic/services/4/flowSegmentData/relative0/10/json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("point"); got != "26.9124,75.8267" {
			t.Errorf("point = %q", got)
		}
		gotPredict = r.URL.Query().Get("predict")
		w.Write([]byte(`{"flowSegmentData":{"frc":"FRC2","currentSpeed":20,"freeFlowSpeed":40,"currentTravelTime":120,"freeFlowTravelTime":60,"confidence":1,"roadClosure":false}}`))
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL)
	r, err := c.Current(context.Background(), jaipur)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if r.Congestion != High || r.CongestionPercentage != 50 || r.Delay != 60 {
		t.Errorf("unexpected reading %+v", r)
	}
	if gotPredict != "" {
		t.Errorf("current lookup sent predict=%q", gotPredict)
	}

	seg, err := c.Future(context.Background(), jaipur)
	if err != nil {
		t.Fatalf("Future: %v", err)
	}
	if gotPredict != "true" {
		t.Errorf("future lookup sent predict=%q, want true", gotPredict)
	}
	if seg.FRC != "FRC2" {
		t.Errorf("FRC = %q", seg.FRC)
	}
}

func TestCurrentErrors(t *testing.T) {
	t.Run("no data", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		_, err := NewClient("k", srv.URL).Current(context.Background(), jaipur)
		var nf *apperr.NotFoundError
		if !errors.As(err, &nf) || !errors.Is(err, ErrNoData) {
			t.Fatalf("expected NotFoundError wrapping ErrNoData, got %v", err)
		}
	})

	t.Run("upstream status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		_, err := NewClient("k", srv.URL).Current(context.Background(), jaipur)
		var pe *apperr.ProviderError
		if !errors.As(err, &pe) {
			t.Fatalf("expected ProviderError, got %v", err)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := NewClient("", "http://unused.invalid").Current(context.Background(), jaipur)
		var ce *apperr.ConfigurationError
		if !errors.As(err, &ce) {
			t.Fatalf("expected ConfigurationError, got %v", err)
		}
	})
}
