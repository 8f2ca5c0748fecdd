package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"CountryAtlas/internal/config"
	"CountryAtlas/internal/delivery/httpapi"
	"CountryAtlas/internal/gdp"
	"CountryAtlas/internal/infrastructure/events"
	"CountryAtlas/internal/infrastructure/exchangerate"
	"CountryAtlas/internal/infrastructure/render"
	"CountryAtlas/internal/infrastructure/restcountries"
	"CountryAtlas/internal/infrastructure/scheduler"
	"CountryAtlas/internal/infrastructure/storage"
	"CountryAtlas/internal/logging"
	"CountryAtlas/internal/metrics"
	"CountryAtlas/internal/ports"
	"CountryAtlas/internal/usecase"
	"CountryAtlas/pkg/logger"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	server    *http.Server
	scheduler *usecase.Scheduler
	closers   []io.Closer
}

// New opens the store, applies migrations and wires every component.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}

	if cfg.Database.RunMigrations() {
		if err := storage.Migrate(db, logger.NewMigrate(baseLogger, "migrate")); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	a := &Application{cfg: cfg, logger: baseLogger, db: db}
	m := metrics.New()
	repo := storage.NewPostgresRepository(db)
	renderer := render.NewSummaryPNG(cfg.Cache.Dir, cfg.Cache.File, baseLogger.With("component", "render"))

	var publisher ports.EventPublisher = events.Noop{}
	if len(cfg.Events.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		a.closers = append(a.closers, kp)
		publisher = kp
	}

	refresher := usecase.NewRefresher(usecase.RefreshDeps{
		Countries: restcountries.NewClient(cfg.Sources.CountriesURL, nil, cfg.Sources.Timeout),
		Rates:     exchangerate.NewClient(cfg.Sources.RatesURL, nil, cfg.Sources.Timeout),
		Reconciler: usecase.NewReconciler(repo, gdp.NewEstimator(nil), m,
			baseLogger.With("component", "reconciler"), nil),
		Summary: usecase.NewSummaryReporter(repo, renderer, cfg.Refresh.TopN,
			baseLogger.With("component", "summary"), nil),
		Publisher:    publisher,
		Metrics:      m,
		Logger:       baseLogger.With("component", "refresh"),
		ProbeTimeout: cfg.Sources.ProbeTimeout,
	})

	if cfg.Refresh.CronExpression != "" {
		if err := scheduler.Validate(cfg.Refresh.CronExpression); err != nil {
			_ = db.Close()
			return nil, err
		}
		driver := scheduler.NewCronScheduler(cfg.Refresh.CronExpression, cfg.Refresh.Location(), cfg.Refresh.RunOnStart)
		a.scheduler = usecase.NewScheduler(driver, refresher, baseLogger.With("component", "scheduler"))
	}

	queries := usecase.NewCountryService(repo, renderer)
	a.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      httpapi.NewRouter(queries, refresher, m, baseLogger.With("component", "http")),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return a, nil
}

// Run serves HTTP and the refresh schedule until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)

	if a.scheduler != nil {
		if err := a.scheduler.Start(gctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		a.logger.Info("refresh scheduled", "cron", a.cfg.Refresh.CronExpression, "run_on_start", a.cfg.Refresh.RunOnStart)
	}

	g.Go(func() error {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		if a.scheduler != nil {
			if err := a.scheduler.Stop(shutdownCtx); err != nil {
				a.logger.Warn("scheduler stop", "error", err)
			}
		}
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		a.logger.Info("http server stopped")
		return nil
	})

	return g.Wait()
}

func (a *Application) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close component", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", "error", err)
	}
}
