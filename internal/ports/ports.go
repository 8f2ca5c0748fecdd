package ports

import (
	"context"
	"time"

	"CountryAtlas/internal/domain"
)

// CountrySource pulls the country registry.
type CountrySource interface {
	Probe(ctx context.Context) error
	FetchCountries(ctx context.Context) ([]domain.RawCountry, error)
}

// RateSource pulls the currency exchange-rate feed.
type RateSource interface {
	Probe(ctx context.Context) error
	FetchRates(ctx context.Context) (domain.ExchangeRates, error)
}

// CountryRepository persists country snapshots keyed by name.
type CountryRepository interface {
	Upsert(ctx context.Context, country domain.Country) error
	TopByGDP(ctx context.Context, limit int) ([]domain.RankedCountry, error)
	Get(ctx context.Context, name string) (domain.Country, error)
	List(ctx context.Context, filter domain.CountryFilter) ([]domain.Country, error)
	Delete(ctx context.Context, name string) (int64, error)
	Status(ctx context.Context) (domain.StoreStatus, error)
	Ping(ctx context.Context) error
}

// SummaryRenderer turns a summary into the cached image artifact.
type SummaryRenderer interface {
	Render(ctx context.Context, summary domain.Summary) (string, error)
	Path() string
}

// EventPublisher announces finished refresh runs to other systems.
type EventPublisher interface {
	PublishRefresh(ctx context.Context, result domain.RefreshResult) error
}

// Scheduler controls when refreshes execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
