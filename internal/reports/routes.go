package reports

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(store Store) http.Handler {
	r := chi.NewRouter()
	h := handlers{store: store}

	r.Post("/", h.CreateReport)
	r.Get("/", h.ListReports)
	r.Get("/user/{userId}", h.ListUserReports)
	r.Delete("/{id}", h.DeleteReport)

	return r
}
