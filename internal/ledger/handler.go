package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atelier-ops/atelier-ops/internal/period"
	"github.com/atelier-ops/atelier-ops/internal/platform/httpx"
	"github.com/atelier-ops/atelier-ops/internal/shared"
)

// Handler manages financial entry endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers entry routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/entries", h.createEntry)
	r.Get("/entries/{id}", h.getEntry)
	r.Put("/entries/{id}", h.updateEntry)
	r.Delete("/entries/{id}", h.deleteEntry)
}

// MountProjectRoutes registers the project-scoped ledger reads.
func (h *Handler) MountProjectRoutes(r chi.Router) {
	r.Get("/{projectID}/entries", h.listEntries)
	r.Get("/{projectID}/totals", h.projectTotals)
}

type entryRequest struct {
	ProjectID     int64  `json:"projectId"`
	Type          string `json:"type" validate:"omitempty,oneof=revenue expense"`
	Category      string `json:"category"`
	Name          string `json:"name" validate:"required"`
	Amount        int64  `json:"amount" validate:"gte=0"`
	Date          string `json:"date" validate:"required"`
	Status        string `json:"status" validate:"omitempty,oneof=planned paid canceled"`
	PartnerID     *int64 `json:"partnerId"`
	PaymentMethod string `json:"paymentMethod" validate:"omitempty,oneof=vat_included tax_free withholding actual_payment"`
}

type entryResponse struct {
	ID            int64     `json:"id"`
	ProjectID     int64     `json:"projectId"`
	Type          string    `json:"type"`
	Category      string    `json:"category,omitempty"`
	Name          string    `json:"name"`
	Amount        int64     `json:"amount"`
	Date          string    `json:"date"`
	Status        string    `json:"status"`
	PartnerID     *int64    `json:"partnerId,omitempty"`
	PaymentMethod string    `json:"paymentMethod,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toEntryResponse(e *Entry) entryResponse {
	return entryResponse{
		ID:            e.ID,
		ProjectID:     e.ProjectID,
		Type:          string(e.Type),
		Category:      e.Category,
		Name:          e.Name,
		Amount:        e.Amount,
		Date:          e.Date.Format("2006-01-02"),
		Status:        string(e.Status),
		PartnerID:     e.PartnerID,
		PaymentMethod: string(e.PaymentMethod),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "malformed JSON"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.RespondError(w, shared.NewValidationError("date", "must be formatted YYYY-MM-DD"))
		return
	}

	entry, err := h.service.CreateEntry(r.Context(), CreateEntryInput{
		ProjectID:     req.ProjectID,
		Type:          EntryType(req.Type),
		Category:      req.Category,
		Name:          req.Name,
		Amount:        req.Amount,
		Date:          date,
		Status:        EntryStatus(req.Status),
		PartnerID:     req.PartnerID,
		PaymentMethod: PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		h.logger.Error("create entry", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) updateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req entryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "malformed JSON"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.RespondError(w, shared.NewValidationError("date", "must be formatted YYYY-MM-DD"))
		return
	}

	entry, err := h.service.UpdateEntry(r.Context(), UpdateEntryInput{
		EntryID:       id,
		Category:      req.Category,
		Name:          req.Name,
		Amount:        req.Amount,
		Date:          date,
		Status:        EntryStatus(req.Status),
		PartnerID:     req.PartnerID,
		PaymentMethod: PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		h.logger.Error("update entry", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteEntry(r.Context(), id); err != nil {
		h.logger.Error("delete entry", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	projectID, err := idParam(r, "projectID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rng, err := period.FromQuery(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entries, err := h.service.ListEntries(r.Context(), projectID, rng)
	if err != nil {
		h.logger.Error("list entries", slog.Any("error", err), slog.Int64("project_id", projectID))
		httpx.RespondError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toEntryResponse(&entries[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (h *Handler) projectTotals(w http.ResponseWriter, r *http.Request) {
	projectID, err := idParam(r, "projectID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rng, err := period.FromQuery(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	totals, err := h.service.ProjectTotals(r.Context(), projectID, rng)
	if err != nil {
		h.logger.Error("project totals", slog.Any("error", err), slog.Int64("project_id", projectID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{
		"revenue":   totals.Revenue,
		"expense":   totals.Expense,
		"netProfit": totals.NetProfit,
	})
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.NewValidationError(name, "must be a positive number")
	}
	return id, nil
}

func validationError(err error) error {
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return shared.NewValidationError(first.Field(), "failed "+first.Tag()+" check")
	}
	return shared.NewValidationError("body", "invalid")
}
