// Package insights serves the read-only map data endpoints: air quality, traffic,
// nearby zones and forward geocoding.
package insights

import (
	"context"

	"github.com/urbanize/urbanize-backend/internal/cache"
	"github.com/urbanize/urbanize-backend/internal/config"
	"github.com/urbanize/urbanize-backend/internal/gateway/aqi"
	"github.com/urbanize/urbanize-backend/internal/gateway/geocoding"
	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
	"github.com/urbanize/urbanize-backend/internal/gateway/traffic"
	"github.com/urbanize/urbanize-backend/internal/gateway/zones"
	"github.com/urbanize/urbanize-backend/internal/logger"
)

// Cache kinds.
const (
	KindAQI     = "aqi"
	KindTraffic = "traffic"
)

type AQISource interface {
	Reading(ctx context.Context, at provider.Coordinates) aqi.Reading
}

type TrafficSource interface {
	Current(ctx context.Context, at provider.Coordinates) (traffic.Reading, error)
	Future(ctx context.Context, at provider.Coordinates) (traffic.FlowSegment, error)
}

type ZoneSource interface {
	Nearby(ctx context.Context, at provider.Coordinates, radius float64) ([]zones.Zone, error)
}

// Deps are the gateways the handlers read from. Geocoder may be nil, in which case
// GeocoderErr explains why and is returned by the geocode endpoints.
type Deps struct {
	AQI         AQISource
	Traffic     TrafficSource
	Zones       ZoneSource
	Geocoder    geocoding.Provider
	GeocoderErr error
	Cache       *cache.Cache
}

// AQIReading returns the cached or live AQI reading for at.
func (d Deps) AQIReading(ctx context.Context, at provider.Coordinates) aqi.Reading {
	r, _ := cache.Fetch(ctx, d.Cache, KindAQI, at, func(ctx context.Context) (aqi.Reading, error) {
		return d.AQI.Reading(ctx, at), nil
	})
	return r
}

// CurrentTraffic returns the cached or live traffic reading for at.
func (d Deps) CurrentTraffic(ctx context.Context, at provider.Coordinates) (traffic.Reading, error) {
	return cache.Fetch(ctx, d.Cache, KindTraffic, at, func(ctx context.Context) (traffic.Reading, error) {
		return d.Traffic.Current(ctx, at)
	})
}

// Init builds the gateways from cfg. The cache is enabled when Redis is configured
// and reachable; otherwise readings are fetched live. The returned func releases the
// cache connection.
func Init(ctx context.Context, cfg config.Config, tc *traffic.Client) (Deps, func()) {
	d := Deps{
		AQI:     aqi.NewClient(cfg.OpenWeatherKey, cfg.OpenWeatherEndpoint),
		Traffic: tc,
		Zones:   zones.NewClient(zones.NewOverpass(cfg.OverpassEndpoint, nil)),
	}
	d.Geocoder, d.GeocoderErr = geocoding.NewProvider(cfg)
	if d.GeocoderErr != nil {
		logger.L().Warn("geocoder_unavailable", "provider", string(cfg.Geocoder), "err", d.GeocoderErr)
	}

	closer := func() {}
	if cfg.Redis.Addr != "" {
		rb, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.L().Warn("cache_disabled", "addr", cfg.Redis.Addr, "err", err)
		} else {
			d.Cache = cache.New(rb, cfg.Redis.TTL)
			closer = func() { _ = rb.Close() }
			logger.L().Info("cache_enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL.String())
		}
	}
	return d, closer
}
