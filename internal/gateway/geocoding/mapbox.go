package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/urbanize/urbanize-backend/internal/apperr"
	"github.com/urbanize/urbanize-backend/internal/config"
	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
)

func init() {
	RegisterProvider(config.GeocoderMapbox, func(cfg config.Config) (Provider, error) {
		return NewMapbox(cfg.MapboxToken, cfg.MapboxEndpoint), nil
	})
}

// MapboxLimit caps the number of matches requested.
const MapboxLimit = 5

// Mapbox wraps the Mapbox Geocoding v5 places endpoint.
type Mapbox struct {
	token      string
	endpoint   string
	httpClient *http.Client
}

// NewMapbox creates a Mapbox geocoder. An empty token is reported on every Search.
func NewMapbox(token, endpoint string) *Mapbox {
	return &Mapbox{
		token:      token,
		endpoint:   endpoint,
		httpClient: provider.NewHTTPClient(5 * time.Second),
	}
}

func (m *Mapbox) Name() string { return "mapbox" }

type mapboxResponse struct {
	Features []struct {
		PlaceName string     `json:"place_name"`
		Center    [2]float64 `json:"center"`
	} `json:"features"`
}

// Search returns the raw FeatureCollection as Raw.
func (m *Mapbox) Search(ctx context.Context, query string) (Result, error) {
	if m.token == "" {
		return Result{}, &apperr.ConfigurationError{Key: "MAPBOX_TOKEN"}
	}

	base := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json", m.endpoint, url.PathEscape(query))
	params := url.Values{}
	params.Set("access_token", m.token)
	params.Set("limit", fmt.Sprint(MapboxLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	provider.LogRequest(m.Name(), http.MethodGet, base, nil)
	resp, err := m.httpClient.Do(req)
	if err != nil {
		provider.LogError(m.Name(), "geocode", err)
		return Result{}, apperr.Provider(m.Name(), "geocode", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, apperr.Provider(m.Name(), "geocode", fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("geocoding API returned HTTP %d", resp.StatusCode)
		provider.LogError(m.Name(), "geocode", err)
		return Result{}, apperr.Provider(m.Name(), "geocode", err)
	}

	var body mapboxResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return Result{}, apperr.Provider(m.Name(), "geocode", fmt.Errorf("decoding response: %w", err))
	}
	provider.LogResponse(m.Name(), resp.StatusCode, time.Since(start), len(body.Features))

	out := Result{Raw: json.RawMessage(raw)}
	for _, f := range body.Features {
		out.Places = append(out.Places, Place{Name: f.PlaceName, Lon: f.Center[0], Lat: f.Center[1]})
	}
	return out, nil
}
