package insights

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/urbanize/urbanize-backend/internal/apperr"
	"github.com/urbanize/urbanize-backend/internal/gateway/aqi"
	"github.com/urbanize/urbanize-backend/internal/gateway/geocoding"
	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
	"github.com/urbanize/urbanize-backend/internal/gateway/zones"
	"github.com/urbanize/urbanize-backend/internal/utils"
)

type handlers struct {
	Deps
}

// AQIResponse is a reading with its health band.
type AQIResponse struct {
	aqi.Reading
	Category aqi.Category `json:"category"`
}

// ZonesResponse always carries a zones array; Error is set when the provider failed.
type ZonesResponse struct {
	Zones []zones.Zone `json:"zones"`
	Error string       `json:"error,omitempty"`
}

func coordinates(r *http.Request) (provider.Coordinates, error) {
	q := r.URL.Query()
	at, err := provider.ParseCoordinates(q.Get("lat"), q.Get("lon"))
	if err != nil {
		return at, apperr.Invalid("coordinates", "invalid coordinates: "+err.Error())
	}
	return at, nil
}

func (h handlers) GetAQI(w http.ResponseWriter, r *http.Request) {
	at, err := coordinates(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	reading := h.AQIReading(r.Context(), at)
	utils.WriteJSON(w, http.StatusOK, AQIResponse{Reading: reading, Category: aqi.CategoryOf(reading.AQI)})
}

func (h handlers) GetTraffic(w http.ResponseWriter, r *http.Request) {
	at, err := coordinates(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	reading, err := h.CurrentTraffic(r.Context(), at)
	if err != nil {
		var nf *apperr.NotFoundError
		if errors.As(err, &nf) {
			utils.WriteJSON(w, http.StatusNotFound, map[string]string{
				"error":      "No traffic data available for this location",
				"congestion": "Unknown",
			})
			return
		}
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reading)
}

func (h handlers) GetFutureTraffic(w http.ResponseWriter, r *http.Request) {
	at, err := coordinates(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	seg, err := h.Traffic.Future(r.Context(), at)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, seg)
}

// GetNearbyZones answers 200 even when the zone provider fails.
func (h handlers) GetNearbyZones(w http.ResponseWriter, r *http.Request) {
	at, err := coordinates(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	radius, err := strconv.ParseFloat(r.URL.Query().Get("radius"), 64)
	if err != nil || radius <= 0 {
		radius = zones.DefaultRadius
	}

	zs, err := h.Zones.Nearby(r.Context(), at, radius)
	resp := ZonesResponse{Zones: zs}
	if resp.Zones == nil {
		resp.Zones = []zones.Zone{}
	}
	if err != nil {
		resp.Error = err.Error()
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h handlers) geocoder() (geocoding.Provider, error) {
	if h.Geocoder != nil {
		return h.Geocoder, nil
	}
	if h.GeocoderErr != nil {
		return nil, h.GeocoderErr
	}
	return nil, &apperr.ConfigurationError{Key: "GEOCODER_PROVIDER"}
}

func query(r *http.Request) (string, error) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		return "", apperr.Invalid("q", "Query parameter is required")
	}
	return q, nil
}

// Geocode passes the provider's response through unchanged.
func (h handlers) Geocode(w http.ResponseWriter, r *http.Request) {
	q, err := query(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	g, err := h.geocoder()
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	res, err := g.Search(r.Context(), q)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res.Raw)
}

// GeocodeFirst returns only the closest match, or 404.
func (h handlers) GeocodeFirst(w http.ResponseWriter, r *http.Request) {
	q, err := query(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	g, err := h.geocoder()
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	place, err := geocoding.First(r.Context(), g, q)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, place)
}
