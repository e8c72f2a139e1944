package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/voucherdesk/reconciler/internal/ingestion"
	"github.com/voucherdesk/reconciler/internal/reconciliation"
	"github.com/voucherdesk/reconciler/internal/repository"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	ingestionSvc *ingestion.Service,
	reconSvc *reconciliation.Service,
	orderRepo *repository.OrderRepo,
	exchange CredentialStore,
	log logrus.FieldLogger,
) http.Handler {
	h := &Handlers{
		ingestionSvc: ingestionSvc,
		reconSvc:     reconSvc,
		orderRepo:    orderRepo,
		exchange:     exchange,
		log:          log.WithField("component", "api"),
		now:          time.Now,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: h.log, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Route("/api/v1", func(r chi.Router) {
		// Settlement.
		r.Post("/settlements/calculate", h.Calculate)

		// Workbook imports.
		r.Post("/imports", h.CreateImport)
		r.Get("/imports", h.ListImports)
		r.Get("/imports/{id}", h.GetImport)
		r.Get("/imports/{id}/export", h.ExportImport)

		// Exports.
		r.Post("/exports", h.CreateExport)

		// Exchange.
		r.Put("/exchange/credentials", h.ConfigureExchange)
		r.Post("/exchange/sync", h.SyncExchange)
		r.Get("/exchange/orders", h.ListOrders)
		r.Get("/exchange/summary", h.GetExchangeSummary)
	})

	return r
}
