package partner

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atelier-ops/atelier-ops/internal/platform/httpx"
	"github.com/atelier-ops/atelier-ops/internal/shared"
)

// Handler exposes the partner directory.
type Handler struct {
	logger    *slog.Logger
	directory DirectoryPort
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, directory DirectoryPort) *Handler {
	return &Handler{logger: logger, directory: directory}
}

// MountRoutes registers partner routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{partnerID}", h.getPartner)
}

func (h *Handler) getPartner(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "partnerID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.NewValidationError("partnerId", "must be a positive number"))
		return
	}
	p, err := h.directory.GetPartner(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, struct {
		ID          int64     `json:"id"`
		DisplayName string    `json:"displayName"`
		EntityType  string    `json:"entityType"`
		CreatedAt   time.Time `json:"createdAt"`
	}{p.ID, p.DisplayName, string(p.EntityType), p.CreatedAt})
}
