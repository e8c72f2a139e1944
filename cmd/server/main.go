package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voucherdesk/reconciler/internal/api"
	"github.com/voucherdesk/reconciler/internal/config"
	"github.com/voucherdesk/reconciler/internal/domain"
	"github.com/voucherdesk/reconciler/internal/exchange"
	"github.com/voucherdesk/reconciler/internal/ingestion"
	"github.com/voucherdesk/reconciler/internal/reconciliation"
	"github.com/voucherdesk/reconciler/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := cfg.NewLogger(os.Stderr)

	log.Infof("Initializing database at %s", cfg.DBPath)
	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init DB: %v", err)
	}
	defer db.Close()

	// Create repositories.
	importRepo := repository.NewImportRepo(db)
	orderRepo := repository.NewOrderRepo(db)

	// Exchange client; credentials may also be supplied later over the API.
	client := exchange.NewClient(cfg.ExchangeBaseURL,
		exchange.WithHTTPClient(&http.Client{Timeout: cfg.ExchangeTimeout}),
		exchange.WithObserver(exchange.NewLogObserver(log)),
	)
	if cfg.ExchangeAPIKey != "" || cfg.ExchangeAPISecret != "" {
		err := client.Configure(domain.Credentials{APIKey: cfg.ExchangeAPIKey, APISecret: cfg.ExchangeAPISecret})
		if err != nil {
			log.Warnf("Ignoring exchange credentials from environment: %v", err)
		}
	}

	// Create services.
	ingestionSvc := ingestion.NewService(importRepo, log)
	reconSvc := reconciliation.NewService(client, orderRepo, log)

	count, err := orderRepo.Count()
	if err != nil {
		log.Fatalf("Failed to count exchange orders: %v", err)
	}
	log.Infof("Database has %d synced exchange orders", count)

	router := api.NewRouter(ingestionSvc, reconSvc, orderRepo, client, log)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Infof("Voucher Settlement Reconciler listening on http://localhost:%s", cfg.Port)
	log.Infof("API base: http://localhost:%s/api/v1", cfg.Port)
	log.Infof("Exchange credentials configured: %t", client.Configured())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Shutdown failed")
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	log.Info("Server stopped")
}
