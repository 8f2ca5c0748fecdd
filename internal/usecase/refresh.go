package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"CountryAtlas/internal/domain"
	"CountryAtlas/internal/metrics"
	"CountryAtlas/internal/ports"
)

const defaultProbeTimeout = 5 * time.Second

// RefreshDeps wires all driven adapters into the refresh orchestrator.
type RefreshDeps struct {
	Countries    ports.CountrySource
	Rates        ports.RateSource
	Reconciler   *Reconciler
	Summary      *SummaryReporter
	Publisher    ports.EventPublisher
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	ProbeTimeout time.Duration
	Now          func() time.Time
}

// Refresher runs the validate, fetch, reconcile, summarize sequence.
// Concurrent callers share a single in-flight run.
type Refresher struct {
	countries    ports.CountrySource
	rates        ports.RateSource
	reconciler   *Reconciler
	summary      *SummaryReporter
	publisher    ports.EventPublisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
	probeTimeout time.Duration
	now          func() time.Time

	flight singleflight.Group

	mu    sync.RWMutex
	state domain.RefreshState
}

// NewRefresher constructs the orchestration component.
func NewRefresher(deps RefreshDeps) *Refresher {
	r := &Refresher{
		countries:    deps.Countries,
		rates:        deps.Rates,
		reconciler:   deps.Reconciler,
		summary:      deps.Summary,
		publisher:    deps.Publisher,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		probeTimeout: deps.ProbeTimeout,
		now:          deps.Now,
		state:        domain.StateIdle,
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.probeTimeout <= 0 {
		r.probeTimeout = defaultProbeTimeout
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// State reports the step of the current or most recent run.
func (r *Refresher) State() domain.RefreshState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Refresher) setState(s domain.RefreshState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Refresh runs the pipeline to completion. The run is detached from ctx
// cancellation so a caller going away cannot stop it half way.
func (r *Refresher) Refresh(ctx context.Context) (domain.RefreshResult, error) {
	v, err, shared := r.flight.Do("refresh", func() (any, error) {
		return r.run(context.WithoutCancel(ctx))
	})
	if shared {
		r.logger.Debug("joined in-flight refresh")
	}
	if err != nil {
		return domain.RefreshResult{}, err
	}
	return v.(domain.RefreshResult), nil
}

func (r *Refresher) run(ctx context.Context) (domain.RefreshResult, error) {
	runID := uuid.NewString()
	started := r.now()
	log := r.logger.With("run_id", runID)
	log.Info("refresh started")

	fail := func(outcome string, err error) (domain.RefreshResult, error) {
		r.setState(domain.StateFailed)
		r.metrics.ObserveRefresh(outcome, r.now().Sub(started))
		log.Error("refresh failed", "outcome", outcome, "error", err)
		return domain.RefreshResult{}, err
	}

	r.setState(domain.StateValidating)
	if err := r.validate(ctx); err != nil {
		return fail("source_unavailable", fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err))
	}

	r.setState(domain.StateFetching)
	countries, rates, err := r.fetch(ctx)
	if err != nil {
		return fail("source_unavailable", fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err))
	}
	log.Info("sources fetched", "countries", len(countries), "rates", len(rates))

	r.setState(domain.StateReconciling)
	report := r.reconciler.Reconcile(ctx, countries, rates)

	r.setState(domain.StateSummarizing)
	path, err := r.summary.Build(ctx, report.Attempted)
	if err != nil {
		if !errors.Is(err, domain.ErrArtifactRender) {
			err = fmt.Errorf("%w: %w", domain.ErrArtifactRender, err)
		}
		return fail("render_failed", err)
	}

	finished := r.now()
	result := domain.RefreshResult{
		RunID:           runID,
		CountriesStored: report.Attempted,
		Upserted:        report.Upserted,
		Failed:          report.Failed,
		ArtifactPath:    path,
		StartedAt:       started.UTC(),
		FinishedAt:      finished.UTC(),
	}

	r.setState(domain.StateDone)
	r.metrics.ObserveRefresh("success", finished.Sub(started))
	r.metrics.MarkSuccess(finished, report.Attempted)
	log.Info("refresh finished",
		"countries", result.CountriesStored,
		"upserted", result.Upserted,
		"failed", result.Failed,
		"took", finished.Sub(started),
	)

	if r.publisher != nil {
		if err := r.publisher.PublishRefresh(ctx, result); err != nil {
			log.Warn("publish refresh event", "error", err)
		}
	}

	return result, nil
}

// validate probes both sources before anything is written.
func (r *Refresher) validate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.countries.Probe(gctx); err != nil {
			return fmt.Errorf("probe country registry: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.rates.Probe(gctx); err != nil {
			return fmt.Errorf("probe rate feed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (r *Refresher) fetch(ctx context.Context) ([]domain.RawCountry, domain.ExchangeRates, error) {
	var (
		countries []domain.RawCountry
		rates     domain.ExchangeRates
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		countries, err = r.countries.FetchCountries(gctx)
		if err != nil {
			return fmt.Errorf("fetch countries: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rates, err = r.rates.FetchRates(gctx)
		if err != nil {
			return fmt.Errorf("fetch rates: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return countries, rates, nil
}
