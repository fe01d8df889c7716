// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neuralnex/legionx-backend/internal/config"
	"github.com/neuralnex/legionx-backend/internal/database"
	"github.com/neuralnex/legionx-backend/internal/gateway"
	"github.com/neuralnex/legionx-backend/internal/i18n"
	"github.com/neuralnex/legionx-backend/internal/ledger"
	"github.com/neuralnex/legionx-backend/internal/router"
	"github.com/neuralnex/legionx-backend/internal/services"
	"github.com/neuralnex/legionx-backend/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	setupLogging(cfg)

	if err := i18n.Initialize(cfg.I18n.LocalesPath); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	utils.SetJWTSecret(cfg.JWT.SecretKey)

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	ledgerClient := ledger.NewIndexerClient(cfg.Ledger)
	paymentGateway := gateway.NewStripeGateway(cfg.Payment)

	storageService, err := services.NewStorageService(cfg.AWS)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage service")
	}

	alertService := services.NewAlertService(db)
	listingService := services.NewListingService(db)
	entitlementService := services.NewEntitlementService(db)
	feeService := services.NewFeeService(db, cfg, alertService)
	reconciliationService := services.NewReconciliationService(
		db, cfg, ledgerClient, paymentGateway,
		listingService, entitlementService, feeService, alertService,
	)

	svcs := &router.Services{
		Auth:           services.NewAuthService(db, cfg),
		Agents:         services.NewAgentService(db),
		Listings:       listingService,
		Entitlements:   entitlementService,
		Reconciliation: reconciliationService,
		Fees:           feeService,
		Alerts:         alertService,
		Storage:        storageService,
	}

	engine := router.Setup(db, cfg, svcs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reconciliationService.Start(ctx)
	feeService.StartDriftChecker(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logrus.WithField("addr", srv.Addr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	reconciliationService.Stop()
	feeService.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Forced shutdown")
	}

	logrus.Info("Server stopped")
}

func setupLogging(cfg *config.Config) {
	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		logrus.SetLevel(logrus.DebugLevel)
	}
}
