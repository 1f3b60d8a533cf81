package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmbook/internal/config"
	"github.com/mamadbah2/farmbook/internal/domain/models"
	"github.com/mamadbah2/farmbook/internal/repository/mongodb"
	"github.com/mamadbah2/farmbook/internal/repository/sheets"
	"github.com/mamadbah2/farmbook/internal/repository/sqlite"
	"github.com/mamadbah2/farmbook/internal/scheduler"
	"github.com/mamadbah2/farmbook/internal/server/handlers"
	"github.com/mamadbah2/farmbook/internal/server/router"
	formsvc "github.com/mamadbah2/farmbook/internal/service/forms"
	reportingsvc "github.com/mamadbah2/farmbook/internal/service/reporting"
	syncsvc "github.com/mamadbah2/farmbook/internal/service/sheetsync"
	"github.com/mamadbah2/farmbook/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	if err := models.ValidateFormTable(models.FormCategories); err != nil {
		baseLogger.Fatal("invalid form table", zap.Error(err))
	}

	loc, err := cfg.Reporting.Location()
	if err != nil {
		baseLogger.Fatal("failed to load timezone", zap.String("timezone", cfg.Reporting.Timezone), zap.Error(err))
	}

	store, err := sqlite.Open(context.Background(), cfg.Store.Path, logger.Named(baseLogger, "repo.sqlite"))
	if err != nil {
		baseLogger.Fatal("failed to open record store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			baseLogger.Error("failed to close record store", zap.Error(err))
		}
	}()

	// Left nil when the backend is not configured.
	var (
		bridge  handlers.SyncBridge
		syncer  scheduler.Syncer
		archive mongodb.Repository
	)

	if sheetsRepo := newSheetsRepository(cfg.Sheets, logger.Named(baseLogger, "repo.sheets")); sheetsRepo != nil {
		syncService := syncsvc.NewService(sheetsRepo, store, cfg.Sheets.Timeout, logger.Named(baseLogger, "svc.sheetsync"))
		bridge = syncService
		syncer = syncService
	}

	if cfg.MongoDB.URI != "" {
		connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoRepo, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		cancel()
		if err != nil {
			baseLogger.Warn("mongodb unavailable, daily archive disabled", zap.Error(err))
		} else {
			archive = mongoRepo
			defer func() {
				if err := mongoRepo.Close(context.Background()); err != nil {
					baseLogger.Error("failed to close mongodb connection", zap.Error(err))
				}
			}()
		}
	}

	reportingSvc := reportingsvc.NewService(store, loc, logger.Named(baseLogger, "svc.reporting"))
	formService := formsvc.NewService(store, logger.Named(baseLogger, "svc.forms"))

	recordsHandler := handlers.NewRecordsHandler(store, formService, reportingSvc.Today, logger.Named(baseLogger, "handlers.records"))
	dashboardHandler := handlers.NewDashboardHandler(reportingSvc, logger.Named(baseLogger, "handlers.dashboard"))
	syncHandler := handlers.NewSyncHandler(bridge, store, logger.Named(baseLogger, "handlers.sync"))
	engine := router.New(recordsHandler, dashboardHandler, syncHandler, logger.Named(baseLogger, "router"))

	sched := scheduler.NewScheduler(*cfg, loc, syncer, reportingSvc, archive, logger.Named(baseLogger, "scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Sheets.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", store.Path()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newSheetsRepository picks the service-account client when a credentials
// file is configured and the API-key REST client otherwise. It returns nil
// in local-only mode.
func newSheetsRepository(cfg config.SheetsConfig, log *zap.Logger) sheets.Repository {
	if !cfg.Enabled() {
		log.Warn("spreadsheet credentials missing, running local-only")
		return nil
	}

	if cfg.CredentialsPath == "" {
		log.Info("using api key spreadsheet client")
		return sheets.NewRESTRepository(cfg, log)
	}

	repo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg, log)
	if err != nil {
		log.Warn("failed to init sheets repository, running local-only", zap.Error(err))
		return nil
	}
	return repo
}
