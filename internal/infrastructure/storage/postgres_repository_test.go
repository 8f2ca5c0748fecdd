package storage

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"CountryAtlas/internal/domain"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func strPtr(v string) *string   { return &v }
func intPtr(v int64) *int64     { return &v }
func fltPtr(v float64) *float64 { return &v }

func TestUpsertSendsEveryColumn(t *testing.T) {
	repo, mock := newMockRepo(t)
	refreshed := time.Date(2025, time.November, 8, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (name) DO UPDATE")).
		WithArgs("Nigeria", "Abuja", "Africa", int64(206139589), "NGN", "1600.23", "250000000", nil, refreshed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), domain.Country{
		Name:            "Nigeria",
		Capital:         strPtr("Abuja"),
		Region:          strPtr("Africa"),
		Population:      intPtr(206139589),
		CurrencyCode:    strPtr("NGN"),
		ExchangeRate:    fltPtr(1600.23),
		EstimatedGDP:    fltPtr(250000000),
		LastRefreshedAt: refreshed,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertNullsForMissingFields(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO countries")).
		WithArgs("Antarctica", nil, "Polar", int64(1000), nil, nil, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), domain.Country{
		Name:       "Antarctica",
		Region:     strPtr("Polar"),
		Population: intPtr(1000),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertRejectsEmptyName(t *testing.T) {
	repo, _ := newMockRepo(t)

	err := repo.Upsert(context.Background(), domain.Country{})
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestUpsertDescribesPostgresErrors(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO countries")).
		WillReturnError(&pq.Error{Code: "23514", Message: "violates check constraint"})

	err := repo.Upsert(context.Background(), domain.Country{Name: "Broken"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "check_violation") {
		t.Fatalf("expected condition name in error, got %v", err)
	}
}

func TestTopByGDPOrdersAndLimits(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT name, estimated_gdp FROM countries WHERE estimated_gdp IS NOT NULL ORDER BY estimated_gdp DESC, name ASC LIMIT 5",
	)).WillReturnRows(sqlmock.NewRows([]string{"name", "estimated_gdp"}).
		AddRow("C", "900").
		AddRow("E", "700").
		AddRow("A", "500").
		AddRow("B", "300").
		AddRow("F", "200"))

	top, err := repo.TopByGDP(context.Background(), 5)
	if err != nil {
		t.Fatalf("top: %v", err)
	}

	want := []string{"C", "E", "A", "B", "F"}
	if len(top) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(top))
	}
	for i, name := range want {
		if top[i].Name != name {
			t.Fatalf("position %d: want %s, got %s", i, name, top[i].Name)
		}
	}
	if top[0].EstimatedGDP != 900 {
		t.Fatalf("unexpected gdp: %v", top[0].EstimatedGDP)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetScansNullableColumns(t *testing.T) {
	repo, mock := newMockRepo(t)
	refreshed := time.Date(2025, time.November, 8, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(name) = LOWER($1) LIMIT 1")).
		WithArgs("nigeria").
		WillReturnRows(sqlmock.NewRows(countryColumns).
			AddRow("Nigeria", "Abuja", "Africa", int64(206139589), "NGN", "1600.23", nil, nil, refreshed))

	c, err := repo.Get(context.Background(), "nigeria")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.Name != "Nigeria" || c.Capital == nil || *c.Capital != "Abuja" {
		t.Fatalf("unexpected country: %+v", c)
	}
	if c.ExchangeRate == nil || *c.ExchangeRate != 1600.23 {
		t.Fatalf("unexpected rate: %v", c.ExchangeRate)
	}
	if c.EstimatedGDP != nil || c.FlagURL != nil {
		t.Fatalf("expected nil gdp and flag, got %v %v", c.EstimatedGDP, c.FlagURL)
	}
	if !c.LastRefreshedAt.Equal(refreshed) {
		t.Fatalf("unexpected refreshed time: %v", c.LastRefreshedAt)
	}
}

func TestGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM countries")).
		WillReturnRows(sqlmock.NewRows(countryColumns))

	_, err := repo.Get(context.Background(), "Atlantis")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAppliesFiltersAndSort(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"FROM countries WHERE region = $1 AND currency_code = $2 ORDER BY population DESC NULLS LAST, name ASC",
	)).
		WithArgs("Africa", "NGN").
		WillReturnRows(sqlmock.NewRows(countryColumns).
			AddRow("Nigeria", "Abuja", "Africa", int64(206139589), "NGN", "1600.23", "1.9e11", "https://flagcdn.com/ng.svg", time.Now()))

	countries, err := repo.List(context.Background(), domain.CountryFilter{
		Region:   "Africa",
		Currency: "NGN",
		Sort:     domain.SortPopulationDesc,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(countries) != 1 || countries[0].EstimatedGDP == nil {
		t.Fatalf("unexpected result: %+v", countries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListDefaultsToNameOrder(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM countries ORDER BY name ASC")).
		WillReturnRows(sqlmock.NewRows(countryColumns))

	countries, err := repo.List(context.Background(), domain.CountryFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if countries == nil || len(countries) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", countries)
	}
}

func TestDelete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM countries WHERE LOWER(name) = LOWER($1)")).
		WithArgs("Nigeria").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM countries")).
		WithArgs("Atlantis").
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.Delete(context.Background(), "Nigeria")
	if err != nil || n != 1 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
	if _, err := repo.Delete(context.Background(), "Atlantis"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	repo, mock := newMockRepo(t)
	last := time.Date(2025, time.November, 8, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), MAX(last_refreshed_at) FROM countries")).
		WillReturnRows(sqlmock.NewRows([]string{"count", "max"}).AddRow(250, last))

	status, err := repo.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.TotalCountries != 250 || status.LastRefreshedAt == nil || !status.LastRefreshedAt.Equal(last) {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestStatusEmptyTable(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count", "max"}).AddRow(0, nil))

	status, err := repo.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.TotalCountries != 0 || status.LastRefreshedAt != nil {
		t.Fatalf("unexpected status: %+v", status)
	}
}
