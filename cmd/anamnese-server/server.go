package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/tiopaulo/anamnese/internal/config"
	"github.com/tiopaulo/anamnese/internal/domain/dashboard"
	"github.com/tiopaulo/anamnese/internal/domain/ficha"
	"github.com/tiopaulo/anamnese/internal/domain/intake"
	"github.com/tiopaulo/anamnese/internal/domain/records"
	"github.com/tiopaulo/anamnese/internal/platform/blobstore"
	"github.com/tiopaulo/anamnese/internal/platform/db"
	"github.com/tiopaulo/anamnese/internal/platform/middleware"
	"github.com/tiopaulo/anamnese/internal/platform/nav"
	"github.com/tiopaulo/anamnese/internal/platform/pdfexport"
)

// app holds the wired services shared by serve and export.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	pool   *pgxpool.Pool

	patients      records.PatientRepository
	consultations records.ConsultationRepository
	tx            records.Transactor

	blobs    blobstore.BlobStore
	exporter *pdfexport.Exporter
	shell    *nav.Shell
	intake   *intake.Service
	fichas   *ficha.Service
	lists    *dashboard.Service
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if cfg.UsesPostgres() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.patients = records.NewPatientRepo(pool)
		a.consultations = records.NewConsultationRepo(pool)
		a.tx = records.NewTransactor(pool)
		logger.Info().Msg("connected to database")
	} else {
		mem := records.NewMemoryStore()
		a.patients = mem.Patients()
		a.consultations = mem.Consultations()
		a.tx = mem
		logger.Warn().Msg("using in-memory record store; records are lost on restart")
	}

	blobs, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.blobs = blobs

	exporter, err := newExporter(ctx, cfg, blobs, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.exporter = exporter

	a.shell = nav.NewShell(cfg.ClinicName, cfg.LogoURL)
	a.intake = intake.NewService(a.patients, a.consultations, a.tx, intake.NewDraftStore(), logger)
	a.fichas = ficha.NewService(a.patients, a.consultations, logger)
	a.lists = dashboard.NewService(a.patients, a.consultations, logger)
	return a, nil
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// newBlobStore archives exported PDFs in S3 when EXPORT_BUCKET is set and in
// memory otherwise.
func newBlobStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (blobstore.BlobStore, error) {
	if cfg.ExportBucket == "" {
		return blobstore.NewInMemoryBlobStore(), nil
	}
	client, err := blobstore.NewS3Client(ctx, cfg.AWSRegion, cfg.S3Endpoint)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("bucket", cfg.ExportBucket).Msg("archiving exports to s3")
	return blobstore.NewS3BlobStore(client, cfg.ExportBucket), nil
}

func newExporter(ctx context.Context, cfg *config.Config, archive blobstore.BlobStore, logger zerolog.Logger) (*pdfexport.Exporter, error) {
	rasterizer, err := pdfexport.NewRasterizer(pdfexport.ExportTheme, cfg.ExportScale)
	if err != nil {
		return nil, err
	}

	logo, err := pdfexport.LoadLogo(ctx, &http.Client{Timeout: 10 * time.Second}, cfg.LogoPath, cfg.LogoURL)
	if err != nil {
		logger.Warn().Err(err).Msg("logo unavailable; exporting without it")
		logo = nil
	}

	return pdfexport.NewExporter(rasterizer, archive, pdfexport.Options{
		Clinic:      cfg.ClinicName,
		Attribution: cfg.ExportAttribution,
		Logo:        logo,
		Keep:        cfg.ExportKeep,
	}, logger), nil
}

// router builds the echo instance with every route and middleware.
func (a *app) router() *echo.Echo {
	cfg := a.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders: []string{echo.HeaderContentDisposition, "X-Archive-ID", middleware.RequestIDHeader},
	}))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/export", "/pdf"))
	e.Use(middleware.Audit(a.logger))

	apiV1 := e.Group("/api/v1")
	if a.pool != nil {
		apiV1.Use(db.ConnMiddleware(a.pool))
	}

	records.NewHandler(a.patients, a.consultations, a.logger).RegisterRoutes(apiV1)
	intake.NewHandler(a.intake, a.logger).RegisterRoutes(apiV1)
	intake.NewPages(a.intake, a.shell, a.logger).RegisterRoutes(e)

	lists := dashboard.NewHandler(a.lists, a.shell)
	lists.RegisterRoutes(apiV1)
	lists.RegisterPages(e)

	fichas := ficha.NewHandler(a.fichas, a.exporter, a.shell, a.logger)
	fichas.RegisterRoutes(apiV1)
	fichas.RegisterPages(e)

	blobstore.NewBlobHandler(a.blobs, a.logger).RegisterRoutes(apiV1)
	nav.RegisterRoutes(e)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(a.pool))

	return e
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	e := a.router()
	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
