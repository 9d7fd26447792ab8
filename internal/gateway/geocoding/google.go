package geocoding

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"github.com/urbanize/urbanize-backend/internal/apperr"
	"github.com/urbanize/urbanize-backend/internal/config"
	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
)

func init() {
	RegisterProvider(config.GeocoderGoogle, func(cfg config.Config) (Provider, error) {
		return NewGoogle(cfg.GoogleMapsKey)
	})
}

// Google wraps the Google Maps Geocoding API.
type Google struct {
	client *maps.Client
}

// NewGoogle creates a Google geocoder. A missing key is a ConfigurationError.
func NewGoogle(apiKey string) (*Google, error) {
	if apiKey == "" {
		return nil, &apperr.ConfigurationError{Key: "GOOGLE_MAPS_API_KEY"}
	}
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &Google{client: c}, nil
}

func (g *Google) Name() string { return "google" }

// Search returns the []maps.GeocodingResult as Raw.
func (g *Google) Search(ctx context.Context, query string) (Result, error) {
	start := time.Now()
	provider.LogRequest(g.Name(), "GET", "geocode", map[string]any{"address": query})

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: query})
	if err != nil {
		provider.LogError(g.Name(), "geocode", err)
		return Result{}, apperr.Provider(g.Name(), "geocode", err)
	}
	provider.LogResponse(g.Name(), 200, time.Since(start), len(results))

	out := Result{Raw: results}
	for _, r := range results {
		out.Places = append(out.Places, Place{
			Name: r.FormattedAddress,
			Lat:  r.Geometry.Location.Lat,
			Lon:  r.Geometry.Location.Lng,
		})
	}
	return out, nil
}
