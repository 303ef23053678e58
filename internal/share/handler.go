package share

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atelier-ops/atelier-ops/internal/ledger"
	"github.com/atelier-ops/atelier-ops/internal/platform/httpx"
	"github.com/atelier-ops/atelier-ops/internal/shared"
)

// Handler exposes share calculation helpers for entry and settlement forms.
type Handler struct {
	logger    *slog.Logger
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger, validator: validator.New()}
}

// MountRoutes registers share calculation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/estimate", h.estimateActual)
	r.Post("/split", h.previewSplit)
}

type estimateRequest struct {
	Amount        int64  `json:"amount" validate:"gte=0"`
	PaymentMethod string `json:"paymentMethod" validate:"required"`
}

// estimateActual previews the post-tax payout for an amount under a payment
// method. Unknown methods are reported as not computable, never guessed.
func (h *Handler) estimateActual(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "malformed JSON"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "invalid"))
		return
	}

	var actualAmount *int64
	if actual, ok := ActualAmount(req.Amount, ledger.PaymentMethod(req.PaymentMethod)); ok {
		actualAmount = &actual
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"amount":       req.Amount,
		"actualAmount": actualAmount,
		"computable":   actualAmount != nil,
	})
}

type splitRequest struct {
	NetProfit int64 `json:"netProfit"`
	ShareRate *int  `json:"shareRate"`
}

// previewSplit shows how a net profit would divide at a rate without
// creating anything.
func (h *Handler) previewSplit(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "malformed JSON"))
		return
	}

	split, err := Compute(req.NetProfit, req.ShareRate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{
		"partnerAmount": split.PartnerAmount,
		"companyAmount": split.CompanyAmount,
	})
}
