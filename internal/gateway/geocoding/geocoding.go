// Package geocoding forward-geocodes free-text queries through a pluggable provider.
package geocoding

import (
	"context"
	"errors"
	"fmt"

	"github.com/urbanize/urbanize-backend/internal/apperr"
	"github.com/urbanize/urbanize-backend/internal/config"
)

// ErrUnknownProvider is returned by NewProvider for an unregistered provider type.
var ErrUnknownProvider = errors.New("unknown geocoding provider")

// Place is one normalized geocoding match.
type Place struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Result carries the provider's response as-is alongside the normalized matches, best first.
type Result struct {
	Raw    any
	Places []Place
}

// Provider is implemented by every geocoding backend.
type Provider interface {
	// Name returns the provider name for logging purposes.
	Name() string

	// Search returns up to a handful of matches for query.
	Search(ctx context.Context, query string) (Result, error)
}

var providerRegistry = make(map[config.GeocoderProvider]func(config.Config) (Provider, error))

// RegisterProvider registers a provider constructor. Called from init() in each provider file.
func RegisterProvider(kind config.GeocoderProvider, constructor func(config.Config) (Provider, error)) {
	providerRegistry[kind] = constructor
}

// NewProvider creates the provider selected by cfg.Geocoder.
func NewProvider(cfg config.Config) (Provider, error) {
	constructor, ok := providerRegistry[cfg.Geocoder]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Geocoder)
	}
	return constructor(cfg)
}

// First returns the closest single match for query.
func First(ctx context.Context, p Provider, query string) (Place, error) {
	res, err := p.Search(ctx, query)
	if err != nil {
		return Place{}, err
	}
	if len(res.Places) == 0 {
		return Place{}, &apperr.NotFoundError{What: fmt.Sprintf("location matching %q", query)}
	}
	return res.Places[0], nil
}
