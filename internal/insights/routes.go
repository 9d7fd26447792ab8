package insights

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(d Deps) http.Handler {
	r := chi.NewRouter()
	h := handlers{d}

	r.Get("/aqi", h.GetAQI)
	r.Get("/traffic", h.GetTraffic)
	r.Get("/traffic/future", h.GetFutureTraffic)
	r.Get("/nearby-zones", h.GetNearbyZones)
	r.Get("/geocode", h.Geocode)
	r.Get("/geocode/first", h.GeocodeFirst)

	return r
}
