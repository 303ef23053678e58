package settlement

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atelier-ops/atelier-ops/internal/period"
	"github.com/atelier-ops/atelier-ops/internal/platform/httpx"
	"github.com/atelier-ops/atelier-ops/internal/shared"
)

// AuditReader lists the audit trail of a settlement.
type AuditReader interface {
	RecentForEntity(ctx context.Context, entity, entityID string, limit int) ([]shared.AuditLog, error)
}

// Handler manages settlement endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency *shared.IdempotencyStore
	audit       AuditReader
	validator   *validator.Validate
}

// NewHandler builds a Handler instance. Idempotency and audit may be nil.
func NewHandler(logger *slog.Logger, service *Service, idempotency *shared.IdempotencyStore, audit AuditReader) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		idempotency: idempotency,
		audit:       audit,
		validator:   validator.New(),
	}
}

// MountRoutes registers settlement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/eligible", h.listEligible)
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/confirm", h.confirm)
	r.Post("/{id}/mark-paid", h.markPaid)
	r.Delete("/{id}", h.delete)
	r.Put("/{id}/memo", h.updateMemo)
	r.Get("/{id}/audit", h.auditTrail)
}

type settlementResponse struct {
	ID            int64          `json:"id"`
	Number        string         `json:"number"`
	PartnerID     int64          `json:"partnerId"`
	PeriodStart   *string        `json:"periodStart,omitempty"`
	PeriodEnd     *string        `json:"periodEnd,omitempty"`
	Status        string         `json:"status"`
	TotalRevenue  int64          `json:"totalRevenue"`
	TotalExpense  int64          `json:"totalExpense"`
	NetProfit     int64          `json:"netProfit"`
	PartnerAmount int64          `json:"partnerAmount"`
	CompanyAmount int64          `json:"companyAmount"`
	Memo          string         `json:"memo,omitempty"`
	CreatedBy     int64          `json:"createdBy"`
	ConfirmedAt   *time.Time     `json:"confirmedAt,omitempty"`
	PaidAt        *time.Time     `json:"paidAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	Version       int64          `json:"version"`
	Lines         []lineResponse `json:"lines,omitempty"`
}

type lineResponse struct {
	ID            int64 `json:"id"`
	ProjectID     int64 `json:"projectId"`
	Revenue       int64 `json:"revenue"`
	Expense       int64 `json:"expense"`
	NetProfit     int64 `json:"netProfit"`
	ShareRate     int   `json:"shareRate"`
	PartnerAmount int64 `json:"partnerAmount"`
	CompanyAmount int64 `json:"companyAmount"`
}

func toSettlementResponse(doc *Settlement) settlementResponse {
	resp := settlementResponse{
		ID:            doc.ID,
		Number:        doc.Number,
		PartnerID:     doc.PartnerID,
		PeriodStart:   dateString(doc.PeriodStart),
		PeriodEnd:     dateString(doc.PeriodEnd),
		Status:        string(doc.Status),
		TotalRevenue:  doc.TotalRevenue,
		TotalExpense:  doc.TotalExpense,
		NetProfit:     doc.NetProfit,
		PartnerAmount: doc.PartnerAmount,
		CompanyAmount: doc.CompanyAmount,
		Memo:          doc.Memo,
		CreatedBy:     doc.CreatedBy,
		ConfirmedAt:   doc.ConfirmedAt,
		PaidAt:        doc.PaidAt,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
		Version:       doc.Version,
	}
	for _, l := range doc.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ID:            l.ID,
			ProjectID:     l.ProjectID,
			Revenue:       l.Revenue,
			Expense:       l.Expense,
			NetProfit:     l.NetProfit,
			ShareRate:     l.ShareRate,
			PartnerAmount: l.PartnerAmount,
			CompanyAmount: l.CompanyAmount,
		})
	}
	return resp
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

func (h *Handler) listEligible(w http.ResponseWriter, r *http.Request) {
	partnerID, err := partnerIDQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rng, err := period.FromQuery(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	eligible, err := h.service.ListEligibleProjects(r.Context(), partnerID, rng)
	if err != nil {
		h.logger.Error("list eligible projects", slog.Any("error", err), slog.Int64("partner_id", partnerID))
		httpx.RespondError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(eligible))
	for _, p := range eligible {
		out = append(out, map[string]any{
			"projectId":   p.ProjectID,
			"projectName": p.ProjectName,
			"shareRate":   p.ShareRate,
			"revenue":     p.Totals.Revenue,
			"expense":     p.Totals.Expense,
			"netProfit":   p.Totals.NetProfit,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"projects": out})
}

type createRequest struct {
	PartnerID   int64   `json:"partnerId" validate:"required"`
	PeriodStart *string `json:"periodStart"`
	PeriodEnd   *string `json:"periodEnd"`
	ProjectIDs  []int64 `json:"projectIds" validate:"required,min=1"`
	Memo        string  `json:"memo"`
	CreatedBy   int64   `json:"createdBy"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "malformed JSON"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "partnerId and projectIds are required"))
		return
	}
	start, err := parseDatePtr(req.PeriodStart, "periodStart")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	end, err := parseDatePtr(req.PeriodEnd, "periodEnd")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), idemKey, shared.ModuleSettlement); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate Request", "this settlement request was already processed")
				return
			}
			h.logger.Error("idempotency check", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
	}

	doc, err := h.service.Create(r.Context(), CreateInput{
		PartnerID:   req.PartnerID,
		PeriodStart: start,
		PeriodEnd:   end,
		ProjectIDs:  req.ProjectIDs,
		Memo:        req.Memo,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		if idemKey != "" && h.idempotency != nil {
			// Free the key so the caller can retry after fixing the request.
			_ = h.idempotency.Delete(r.Context(), idemKey)
		}
		h.logger.Error("create settlement", slog.Any("error", err), slog.Int64("partner_id", req.PartnerID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toSettlementResponse(doc))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	partnerID, err := partnerIDQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	docs, err := h.service.List(r.Context(), partnerID)
	if err != nil {
		h.logger.Error("list settlements", slog.Any("error", err), slog.Int64("partner_id", partnerID))
		httpx.RespondError(w, err)
		return
	}
	out := make([]settlementResponse, 0, len(docs))
	for i := range docs {
		out = append(out, toSettlementResponse(&docs[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"settlements": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := settlementIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSettlementResponse(doc))
}

type actorRequest struct {
	ActorID int64 `json:"actorId"`
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Confirm)
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkPaid)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id, actorID int64) (*Settlement, error)) {
	id, err := settlementIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req actorRequest
	_ = httpx.DecodeJSON(r, &req)

	doc, err := apply(r.Context(), id, req.ActorID)
	if err != nil {
		h.logger.Error("transition settlement", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSettlementResponse(doc))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := settlementIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req actorRequest
	_ = httpx.DecodeJSON(r, &req)

	if err := h.service.Delete(r.Context(), id, req.ActorID); err != nil {
		h.logger.Error("delete settlement", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type memoRequest struct {
	Memo string `json:"memo"`
}

func (h *Handler) updateMemo(w http.ResponseWriter, r *http.Request) {
	id, err := settlementIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req memoRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "malformed JSON"))
		return
	}
	doc, err := h.service.UpdateMemo(r.Context(), id, req.Memo)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSettlementResponse(doc))
}

func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	id, err := settlementIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.audit == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"logs": []any{}})
		return
	}
	logs, err := h.audit.RecentForEntity(r.Context(), "settlement", strconv.FormatInt(id, 10), 50)
	if err != nil {
		h.logger.Error("settlement audit trail", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(logs))
	for _, log := range logs {
		out = append(out, map[string]any{
			"actorId":    log.ActorID,
			"action":     log.Action,
			"occurredAt": log.At,
			"meta":       log.Meta,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"logs": out})
}

func settlementIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.NewValidationError("settlementId", "must be a positive number")
	}
	return id, nil
}

func partnerIDQuery(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.URL.Query().Get("partnerId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.NewValidationError("partnerId", "must be a positive number")
	}
	return id, nil
}

func parseDatePtr(raw *string, field string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	v, err := time.Parse("2006-01-02", *raw)
	if err != nil {
		return nil, shared.NewValidationError(field, "must be formatted YYYY-MM-DD")
	}
	return &v, nil
}
