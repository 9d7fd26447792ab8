// Package provider holds what every upstream gateway shares: HTTP client defaults,
// request/response logging and the Coordinates type gateways are queried with.
package provider

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// DefaultTimeout bounds every upstream call that does not set its own.
const DefaultTimeout = 15 * time.Second

// NewHTTPClient returns an http.Client with the given timeout, or DefaultTimeout when
// timeout is zero.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both axes are within range.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// ParseCoordinates parses textual lat/lon values, as received in query strings.
func ParseCoordinates(lat, lon string) (Coordinates, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("lat: %w", err)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("lon: %w", err)
	}
	c := Coordinates{Lat: la, Lon: lo}
	if !c.Valid() {
		return Coordinates{}, fmt.Errorf("coordinates out of range: %g,%g", la, lo)
	}
	return c, nil
}
