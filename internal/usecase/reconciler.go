package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"CountryAtlas/internal/domain"
	"CountryAtlas/internal/gdp"
	"CountryAtlas/internal/metrics"
	"CountryAtlas/internal/ports"
)

// Reconciler joins fetched countries with exchange rates and upserts them one by one.
type Reconciler struct {
	repo      ports.CountryRepository
	estimator *gdp.Estimator
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewReconciler wires the store and estimator; now defaults to time.Now.
func NewReconciler(repo ports.CountryRepository, estimator *gdp.Estimator, m *metrics.Metrics, logger *slog.Logger, now func() time.Time) *Reconciler {
	if estimator == nil {
		estimator = gdp.NewEstimator(nil)
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{repo: repo, estimator: estimator, metrics: m, logger: logger, now: now}
}

// Reconcile upserts every record. A failing record is logged and skipped;
// Attempted always equals len(countries).
func (r *Reconciler) Reconcile(ctx context.Context, countries []domain.RawCountry, rates domain.ExchangeRates) domain.ReconcileReport {
	report := domain.ReconcileReport{Attempted: len(countries)}

	for _, raw := range countries {
		record, err := r.BuildRecord(raw, rates)
		if err == nil {
			err = r.repo.Upsert(ctx, record)
		}
		if err != nil {
			report.Failed++
			r.metrics.RecordUpsert(false)
			r.logger.Warn("country upsert failed", "country", raw.Name, "error", err)
			continue
		}
		report.Upserted++
		r.metrics.RecordUpsert(true)
	}

	r.logger.Info("reconcile finished",
		"attempted", report.Attempted,
		"upserted", report.Upserted,
		"failed", report.Failed,
	)
	return report
}

// BuildRecord resolves currency, rate and estimated GDP for one raw country.
// A currency that the rate table cannot price leaves code, rate and GDP empty.
func (r *Reconciler) BuildRecord(raw domain.RawCountry, rates domain.ExchangeRates) (domain.Country, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return domain.Country{}, fmt.Errorf("%w: missing name", domain.ErrInvalidRecord)
	}

	record := domain.Country{
		Name:            name,
		Capital:         optional(raw.Capital),
		Region:          optional(raw.Region),
		Population:      raw.Population,
		FlagURL:         optional(raw.Flag),
		LastRefreshedAt: r.now().UTC(),
	}

	if code := raw.PrimaryCurrency(); code != "" {
		if rate, ok := rates.Lookup(code); ok {
			record.CurrencyCode = &code
			record.ExchangeRate = &rate
		}
	}

	record.EstimatedGDP = r.estimator.Estimate(record.Population, record.ExchangeRate)
	return record, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
