// Package aqi reads air quality from the OpenWeatherMap air-pollution API and falls back
// to a plausible simulated reading whenever the API is unavailable.
package aqi

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
	"github.com/urbanize/urbanize-backend/internal/metrics"
)

const providerName = "openweathermap"

// Pollutants are concentrations in µg/m³.
type Pollutants struct {
	PM25 float64 `json:"pm25"`
	PM10 float64 `json:"pm10"`
	O3   float64 `json:"o3"`
	NO2  float64 `json:"no2"`
	SO2  float64 `json:"so2"`
	CO   float64 `json:"co"`
}

// Reading is one AQI observation for a coordinate.
type Reading struct {
	AQI        int                  `json:"aqi"`
	Pollutants Pollutants           `json:"pollutants"`
	Timestamp  time.Time            `json:"timestamp"`
	Location   provider.Coordinates `json:"location"`
	Simulated  bool                 `json:"simulated,omitempty"`
}

// Client queries the air-pollution endpoint. A zero-value key disables live lookups.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	rnd        func(n int) int
	now        func() time.Time
}

// NewClient creates an AQI client. endpoint is the API origin, e.g.
// http://api.openweathermap.org.
func NewClient(apiKey, endpoint string) *Client {
	return &Client{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: provider.NewHTTPClient(5 * time.Second),
		rnd:        rand.Intn,
		now:        time.Now,
	}
}

type pollutionResponse struct {
	List []struct {
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components struct {
			PM25 float64 `json:"pm2_5"`
			PM10 float64 `json:"pm10"`
			O3   float64 `json:"o3"`
			NO2  float64 `json:"no2"`
			SO2  float64 `json:"so2"`
			CO   float64 `json:"co"`
		} `json:"components"`
	} `json:"list"`
}

// Reading never fails: any upstream problem, or a missing key, yields a simulated reading.
func (c *Client) Reading(ctx context.Context, at provider.Coordinates) Reading {
	if c.apiKey != "" {
		r, err := c.live(ctx, at)
		if err == nil {
			return r
		}
		provider.LogError(providerName, "air_pollution", err)
	}
	metrics.SimulatedAQITotal.Inc()
	return c.simulated(at)
}

func (c *Client) live(ctx context.Context, at provider.Coordinates) (Reading, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(at.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(at.Lon, 'f', -1, 64))
	params.Set("appid", c.apiKey)
	base := c.endpoint + "/data/2.5/air_pollution"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return Reading{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	provider.LogRequest(providerName, http.MethodGet, base, map[string]any{"lat": at.Lat, "lon": at.Lon})
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("air pollution request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("air pollution status %d", resp.StatusCode)
	}

	var body pollutionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Reading{}, fmt.Errorf("decode air pollution: %w", err)
	}
	provider.LogResponse(providerName, resp.StatusCode, time.Since(start), len(body.List))
	if len(body.List) == 0 {
		return Reading{}, fmt.Errorf("air pollution: empty list")
	}

	item := body.List[0]
	return Reading{
		// The API reports a 1-5 index; scale it onto the US AQI range.
		AQI: item.Main.AQI * 50,
		Pollutants: Pollutants{
			PM25: item.Components.PM25,
			PM10: item.Components.PM10,
			O3:   item.Components.O3,
			NO2:  item.Components.NO2,
			SO2:  item.Components.SO2,
			CO:   item.Components.CO,
		},
		Timestamp: c.now().UTC(),
		Location:  at,
	}, nil
}

func (c *Client) simulated(at provider.Coordinates) Reading {
	between := func(lo, span int) float64 { return float64(lo + c.rnd(span)) }
	return Reading{
		AQI: 50 + c.rnd(150),
		Pollutants: Pollutants{
			PM25: between(10, 50),
			PM10: between(20, 80),
			O3:   between(30, 100),
			NO2:  between(15, 60),
			SO2:  between(10, 40),
			CO:   between(200, 500),
		},
		Timestamp: c.now().UTC(),
		Location:  at,
		Simulated: true,
	}
}
