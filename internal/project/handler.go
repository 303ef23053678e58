package project

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

// Handler manages project share-setting endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers project routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{projectID}/share-setting", h.getShareSetting)
	r.Put("/{projectID}/share-setting", h.updateShareSetting)
	r.Get("/{projectID}/finance-summary", h.financeSummary)
}

type shareSettingRequest struct {
	SharePartnerID   *int64 `json:"sharePartnerId"`
	ShareRate        *int   `json:"shareRate" validate:"omitempty,gte=0,lte=100"`
	VisibleToPartner bool   `json:"visibleToPartner"`
}

type shareSettingResponse struct {
	ProjectID        int64     `json:"projectId"`
	SharePartnerID   *int64    `json:"sharePartnerId"`
	ShareRate        *int      `json:"shareRate"`
	VisibleToPartner bool      `json:"visibleToPartner"`
	Configured       bool      `json:"configured"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func toShareSettingResponse(s ShareSetting) shareSettingResponse {
	return shareSettingResponse{
		ProjectID:        s.ProjectID,
		SharePartnerID:   s.SharePartnerID,
		ShareRate:        s.ShareRate,
		VisibleToPartner: s.VisibleToPartner,
		Configured:       s.Configured(),
		UpdatedAt:        s.UpdatedAt,
	}
}

func (h *Handler) getShareSetting(w http.ResponseWriter, r *http.Request) {
	projectID, err := projectIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	setting, err := h.service.GetShareSetting(r.Context(), projectID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toShareSettingResponse(setting))
}

func (h *Handler) updateShareSetting(w http.ResponseWriter, r *http.Request) {
	projectID, err := projectIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req shareSettingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "malformed JSON"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("shareRate", "must be between 0 and 100"))
		return
	}

	setting, err := h.service.UpdateShareSetting(r.Context(), UpdateShareSettingInput{
		ProjectID:        projectID,
		SharePartnerID:   req.SharePartnerID,
		ShareRate:        req.ShareRate,
		VisibleToPartner: req.VisibleToPartner,
	})
	if err != nil {
		h.logger.Error("update share setting", slog.Any("error", err), slog.Int64("project_id", projectID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toShareSettingResponse(setting))
}

func (h *Handler) financeSummary(w http.ResponseWriter, r *http.Request) {
	projectID, err := projectIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rng, err := period.FromQuery(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.FinanceSummary(r.Context(), projectID, rng)
	if err != nil {
		h.logger.Error("finance summary", slog.Any("error", err), slog.Int64("project_id", projectID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"project": map[string]any{
			"id":   summary.Project.ID,
			"name": summary.Project.Name,
		},
		"shareSetting": toShareSettingResponse(summary.Setting),
		"totals": map[string]int64{
			"revenue":   summary.Totals.Revenue,
			"expense":   summary.Totals.Expense,
			"netProfit": summary.Totals.NetProfit,
		},
	})
}

func projectIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.NewValidationError("projectId", "must be a positive number")
	}
	return id, nil
}
