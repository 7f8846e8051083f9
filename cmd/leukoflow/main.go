package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/oncolab/leukoflow/internal/analysis"
	"github.com/oncolab/leukoflow/internal/config"
	v1 "github.com/oncolab/leukoflow/internal/handler/v1"
	"github.com/oncolab/leukoflow/internal/repository/postgres"
	"github.com/oncolab/leukoflow/internal/service"
	"github.com/oncolab/leukoflow/internal/storage"
	"github.com/oncolab/leukoflow/pkg/auth"
	"github.com/oncolab/leukoflow/pkg/database"
	"github.com/oncolab/leukoflow/pkg/logger"
	"github.com/oncolab/leukoflow/pkg/metrics"
	"github.com/oncolab/leukoflow/pkg/tracer"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Error("failed to load configuration", zap.Error(err))
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("starting leukoflow api",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		log.Error("failed to initialize tracer", zap.Error(err))
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		return err
	}

	if err := database.Migrate(db, log); err != nil {
		log.Error("failed to run migrations", zap.Error(err))
		return err
	}

	imageStore, err := buildImageStore(cfg, log)
	if err != nil {
		log.Error("failed to initialize image store", zap.Error(err))
		return err
	}

	userRepo := postgres.NewUserRepo(db)
	patientRepo := postgres.NewPatientRepo(db)
	reportRepo := postgres.NewReportRepo(db)
	submissionRepo := postgres.NewSubmissionRepo(db)
	rosterRepo := postgres.NewRosterRepo(db)
	notificationRepo := postgres.NewNotificationRepo(db)

	jwtManager := auth.NewJWTManager(cfg.JWT)
	collector := metrics.NewCollector("leukoflow")
	analysisClient := analysis.NewClient(cfg.Model)

	notificationService := service.NewNotificationService(notificationRepo, collector, log)
	defer notificationService.Shutdown()

	authService := service.NewAuthService(userRepo, patientRepo, jwtManager, log)
	patientService := service.NewPatientService(patientRepo, reportRepo, log)
	reportService := service.NewReportService(reportRepo, patientRepo, userRepo, notificationService, log)
	submissionService := service.NewSubmissionService(submissionRepo, patientRepo, reportRepo, userRepo, rosterRepo, imageStore, log)
	userService := service.NewUserService(userRepo, patientRepo, rosterRepo, log)

	router := v1.NewRouter(v1.RouterDeps{
		Config:     cfg,
		Logger:     log,
		JWTManager: jwtManager,
		Collector:  collector,

		Auth:        v1.NewAuthHandler(authService),
		Patients:    v1.NewPatientHandler(patientService),
		Reports:     v1.NewReportHandler(reportService, imageStore, collector),
		Submissions: v1.NewSubmissionHandler(submissionService, collector),
		Users:       v1.NewUserHandler(userService),
		Analysis:    v1.NewAnalysisHandler(analysisClient),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error("http server failed", zap.Error(err))
		return err
	case sig := <-quit:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		return err
	}

	log.Info("server stopped")
	return nil
}

// buildImageStore selects the object store backend. Development runs
// without S3 credentials keep uploads in memory.
func buildImageStore(cfg *config.Config, log *zap.Logger) (storage.ImageStore, error) {
	if cfg.App.Environment == "development" && cfg.Storage.Endpoint == "" && os.Getenv("AWS_ACCESS_KEY_ID") == "" {
		log.Warn("no object store configured, using in-memory image store")
		return storage.NewMemoryStore("http://localhost:8080/dev-images"), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.UploadTimeout)
	defer cancel()
	return storage.NewS3Store(ctx, cfg.Storage)
}
