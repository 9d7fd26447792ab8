package reports

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/urbanize/urbanize-backend/internal/logger"
	"github.com/urbanize/urbanize-backend/internal/utils"
)

type handlers struct {
	store Store
}

func (h handlers) CreateReport(w http.ResponseWriter, r *http.Request) {
	var in NewReport
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	if in.UserID == "" {
		in.UserID, _ = utils.GetUserIDFromContext(r.Context())
	}

	report, err := h.store.Create(r.Context(), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	logger.L().Info("report_created", "id", report.ID, "category", report.Category)
	utils.WriteJSON(w, http.StatusCreated, report)
}

func (h handlers) ListReports(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.List(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

func (h handlers) ListUserReports(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.ListByUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

// DeleteReport succeeds whether or not the id existed.
func (h handlers) DeleteReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existed, err := h.store.Delete(r.Context(), id)
	if err != nil {
		logger.L().Error("report_delete_failed", "id", id, "err", err)
		utils.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to delete report"})
		return
	}
	logger.L().Info("report_deleted", "id", id, "existed", existed)
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
