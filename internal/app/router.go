package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atelier-ops/atelier-ops/internal/ledger"
	"github.com/atelier-ops/atelier-ops/internal/observability"
	"github.com/atelier-ops/atelier-ops/internal/partner"
	"github.com/atelier-ops/atelier-ops/internal/project"
	"github.com/atelier-ops/atelier-ops/internal/reporting"
	"github.com/atelier-ops/atelier-ops/internal/settlement"
	"github.com/atelier-ops/atelier-ops/internal/share"
	"github.com/atelier-ops/atelier-ops/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	LedgerHandler     *ledger.Handler
	ProjectHandler    *project.Handler
	PartnerHandler    *partner.Handler
	ShareHandler      *share.Handler
	SettlementHandler *settlement.Handler
	ReportingHandler  *reporting.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
		if params.ProjectHandler != nil || params.LedgerHandler != nil {
			r.Route("/projects", func(pr chi.Router) {
				if params.ProjectHandler != nil {
					params.ProjectHandler.MountRoutes(pr)
				}
				if params.LedgerHandler != nil {
					params.LedgerHandler.MountProjectRoutes(pr)
				}
			})
		}
		if params.PartnerHandler != nil {
			r.Route("/partners", func(pr chi.Router) {
				params.PartnerHandler.MountRoutes(pr)
			})
		}
		if params.ShareHandler != nil {
			r.Route("/share", func(sr chi.Router) {
				params.ShareHandler.MountRoutes(sr)
			})
		}
		if params.SettlementHandler != nil {
			r.Route("/settlements", func(sr chi.Router) {
				params.SettlementHandler.MountRoutes(sr)
			})
		}
		if params.ReportingHandler != nil {
			r.Route("/reports", func(rr chi.Router) {
				params.ReportingHandler.MountRoutes(rr)
			})
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
