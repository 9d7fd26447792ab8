package aqi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
)

var jaipur = provider.Coordinates{Lat: 26.9124, Lon: 75.8267}

func TestReadingWithoutKeyIsSimulated(t *testing.T) {
	c := NewClient("", "http://unused.invalid")

	for i := 0; i < 500; i++ {
		r := c.Reading(context.Background(), jaipur)
		if !r.Simulated {
			t.Fatal("expected simulated reading without a key")
		}
		if r.AQI < 50 || r.AQI >= 200 {
			t.Fatalf("simulated AQI %d outside [50,200)", r.AQI)
		}
		if r.Location != jaipur {
			t.Fatalf("location = %+v, want %+v", r.Location, jaipur)
		}
		if r.Pollutants.CO < 200 || r.Pollutants.CO >= 700 {
			t.Fatalf("simulated CO %v outside [200,700)", r.Pollutants.CO)
		}
	}
}

func TestReadingLive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/air_pollution" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("appid") != "k" {
			t.Errorf("missing appid")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"list":[{"main":{"aqi":3},"components":{"pm2_5":31.5,"pm10":60,"o3":80,"no2":20,"so2":5,"co":400}}]}`))
	}))
	defer srv.Close()

	r := NewClient("k", srv.URL).Reading(context.Background(), jaipur)
	if r.Simulated {
		t.Fatal("expected live reading")
	}
	if r.AQI != 150 {
		t.Errorf("AQI = %d, want 150", r.AQI)
	}
	if r.Pollutants.PM25 != 31.5 {
		t.Errorf("PM25 = %v, want 31.5", r.Pollutants.PM25)
	}
}

func TestReadingFallsBackOnUpstreamFailure(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status 500": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"list":`))
		},
		"empty list": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"list":[]}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			r := NewClient("k", srv.URL).Reading(context.Background(), jaipur)
			if !r.Simulated {
				t.Fatal("expected simulated fallback")
			}
		})
	}
}

func TestCategoryOf(t *testing.T) {
	cases := []struct {
		aqi  int
		want string
	}{
		{0, "Good"},
		{50, "Good"},
		{51, "Moderate"},
		{100, "Moderate"},
		{150, "Unhealthy for Sensitive Groups"},
		{200, "Unhealthy"},
		{300, "Very Unhealthy"},
		{301, "Hazardous"},
	}
	for _, tc := range cases {
		if got := CategoryOf(tc.aqi).Level; got != tc.want {
			t.Errorf("CategoryOf(%d) = %q, want %q", tc.aqi, got, tc.want)
		}
	}
}
