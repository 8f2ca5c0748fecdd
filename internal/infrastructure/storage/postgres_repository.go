package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"CountryAtlas/internal/domain"
	"CountryAtlas/internal/ports"
)

var countryColumns = []string{
	"name",
	"capital",
	"region",
	"population",
	"currency_code",
	"exchange_rate",
	"estimated_gdp",
	"flag_url",
	"last_refreshed_at",
}

const upsertCountrySQL = `INSERT INTO countries (name, capital, region, population, currency_code, exchange_rate, estimated_gdp, flag_url, last_refreshed_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
              ON CONFLICT (name) DO UPDATE
              SET capital = EXCLUDED.capital,
                  region = EXCLUDED.region,
                  population = EXCLUDED.population,
                  currency_code = EXCLUDED.currency_code,
                  exchange_rate = EXCLUDED.exchange_rate,
                  estimated_gdp = EXCLUDED.estimated_gdp,
                  flag_url = EXCLUDED.flag_url,
                  last_refreshed_at = EXCLUDED.last_refreshed_at`

// PostgresRepository persists country snapshots into Postgres.
// The pool is owned by the caller; every method acquires and releases a
// connection for the duration of one statement.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.CountryRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Upsert inserts the country or overwrites every mutable column of the existing row.
func (r *PostgresRepository) Upsert(ctx context.Context, c domain.Country) error {
	if c.Name == "" {
		return fmt.Errorf("upsert country: %w: empty name", domain.ErrInvalidRecord)
	}

	refreshed := c.LastRefreshedAt
	if refreshed.IsZero() {
		refreshed = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, upsertCountrySQL,
		c.Name,
		nullString(c.Capital),
		nullString(c.Region),
		nullInt(c.Population),
		nullString(c.CurrencyCode),
		nullDecimal(c.ExchangeRate),
		nullDecimal(c.EstimatedGDP),
		nullString(c.FlagURL),
		refreshed,
	)
	if err != nil {
		return fmt.Errorf("upsert country %s: %w", c.Name, describe(err))
	}
	return nil
}

// TopByGDP returns the highest estimated GDP rows, ties broken by name.
func (r *PostgresRepository) TopByGDP(ctx context.Context, limit int) ([]domain.RankedCountry, error) {
	if limit <= 0 {
		return nil, nil
	}

	query, args, err := r.builder.
		Select("name", "estimated_gdp").
		From("countries").
		Where(sq.NotEq{"estimated_gdp": nil}).
		OrderBy("estimated_gdp DESC", "name ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build top query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top countries: %w", err)
	}
	defer rows.Close()

	result := make([]domain.RankedCountry, 0, limit)
	for rows.Next() {
		var (
			name string
			gdp  decimal.Decimal
		)
		if err := rows.Scan(&name, &gdp); err != nil {
			return nil, fmt.Errorf("scan top country: %w", err)
		}
		result = append(result, domain.RankedCountry{Name: name, EstimatedGDP: gdp.InexactFloat64()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// Get looks a country up by name, case-insensitively.
func (r *PostgresRepository) Get(ctx context.Context, name string) (domain.Country, error) {
	query, args, err := r.builder.
		Select(countryColumns...).
		From("countries").
		Where(sq.Expr("LOWER(name) = LOWER(?)", name)).
		Limit(1).
		ToSql()
	if err != nil {
		return domain.Country{}, fmt.Errorf("build get query: %w", err)
	}

	country, err := scanCountry(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Country{}, fmt.Errorf("country %s: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Country{}, fmt.Errorf("get country %s: %w", name, err)
	}
	return country, nil
}

// List returns countries matching the filter in the requested order.
func (r *PostgresRepository) List(ctx context.Context, filter domain.CountryFilter) ([]domain.Country, error) {
	qb := r.builder.Select(countryColumns...).From("countries")

	if filter.Region != "" {
		qb = qb.Where(sq.Eq{"region": filter.Region})
	}
	if filter.Currency != "" {
		qb = qb.Where(sq.Eq{"currency_code": filter.Currency})
	}

	switch filter.Sort {
	case domain.SortGDPDesc:
		qb = qb.OrderBy("estimated_gdp DESC NULLS LAST", "name ASC")
	case domain.SortGDPAsc:
		qb = qb.OrderBy("estimated_gdp ASC NULLS LAST", "name ASC")
	case domain.SortPopulationDesc:
		qb = qb.OrderBy("population DESC NULLS LAST", "name ASC")
	case domain.SortPopulationAsc:
		qb = qb.OrderBy("population ASC NULLS LAST", "name ASC")
	default:
		qb = qb.OrderBy("name ASC")
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query countries: %w", err)
	}
	defer rows.Close()

	countries := make([]domain.Country, 0)
	for rows.Next() {
		country, err := scanCountry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		countries = append(countries, country)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return countries, nil
}

// Delete removes a country by name and reports how many rows went away.
func (r *PostgresRepository) Delete(ctx context.Context, name string) (int64, error) {
	query, args, err := r.builder.
		Delete("countries").
		Where(sq.Expr("LOWER(name) = LOWER(?)", name)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete country %s: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("country %s: %w", name, domain.ErrNotFound)
	}
	return affected, nil
}

// Status reports the row count and the most recent refresh time.
func (r *PostgresRepository) Status(ctx context.Context) (domain.StoreStatus, error) {
	var (
		total int
		last  sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(last_refreshed_at) FROM countries`,
	).Scan(&total, &last)
	if err != nil {
		return domain.StoreStatus{}, fmt.Errorf("query status: %w", err)
	}

	status := domain.StoreStatus{TotalCountries: total}
	if last.Valid {
		t := last.Time
		status.LastRefreshedAt = &t
	}
	return status, nil
}

// Ping checks that a pooled connection can reach the database.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if r.db == nil {
		return fmt.Errorf("database is not configured")
	}
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCountry(row rowScanner) (domain.Country, error) {
	var (
		c          domain.Country
		capital    sql.NullString
		region     sql.NullString
		population sql.NullInt64
		currency   sql.NullString
		rate       decimal.NullDecimal
		gdp        decimal.NullDecimal
		flag       sql.NullString
	)

	if err := row.Scan(&c.Name, &capital, &region, &population, &currency, &rate, &gdp, &flag, &c.LastRefreshedAt); err != nil {
		return domain.Country{}, err
	}

	c.Capital = fromNullString(capital)
	c.Region = fromNullString(region)
	c.CurrencyCode = fromNullString(currency)
	c.FlagURL = fromNullString(flag)
	if population.Valid {
		v := population.Int64
		c.Population = &v
	}
	if rate.Valid {
		v := rate.Decimal.InexactFloat64()
		c.ExchangeRate = &v
	}
	if gdp.Valid {
		v := gdp.Decimal.InexactFloat64()
		c.EstimatedGDP = &v
	}
	return c, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func fromNullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullDecimal(v *float64) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(*v), Valid: true}
}

// describe adds the Postgres condition name to driver errors so per-record
// failures read well in logs.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%s (%s): %w", pqErr.Code.Name(), pqErr.Code, err)
	}
	return err
}
