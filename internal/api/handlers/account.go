package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/financeflow/financeflow/internal/api/middleware"
	"github.com/financeflow/financeflow/internal/service"
)

// AccountHandler serves account-level maintenance actions.
type AccountHandler struct {
	Maintenance *service.MaintenanceService
	Log         zerolog.Logger
}

// ResetData handles DELETE /api/account/data: erase everything the calling
// user owns.
func (h *AccountHandler) ResetData(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerID(r.Context())
	if err := h.Maintenance.ResetOwner(r.Context(), ownerID); err != nil {
		writeServiceError(w, h.Log, err, "Failed to reset account data")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
