package domain

import "time"

// Country is the persisted snapshot of a single country, keyed by Name.
type Country struct {
	Name            string    `json:"name"`
	Capital         *string   `json:"capital"`
	Region          *string   `json:"region"`
	Population      *int64    `json:"population"`
	CurrencyCode    *string   `json:"currency_code"`
	ExchangeRate    *float64  `json:"exchange_rate"`
	EstimatedGDP    *float64  `json:"estimated_gdp"`
	FlagURL         *string   `json:"flag_url"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
}

// Currency is one entry of the registry's currency list.
type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name,omitempty"`
	Symbol string `json:"symbol,omitempty"`
}

// RawCountry is a country as returned by the country registry, before it is
// joined with exchange rates.
type RawCountry struct {
	Name       string     `json:"name"`
	Capital    string     `json:"capital"`
	Region     string     `json:"region"`
	Population *int64     `json:"population"`
	Flag       string     `json:"flag"`
	Currencies []Currency `json:"currencies"`
}

// PrimaryCurrency returns the first listed currency code, or "" when none.
func (r RawCountry) PrimaryCurrency() string {
	if len(r.Currencies) == 0 {
		return ""
	}
	return r.Currencies[0].Code
}

// ExchangeRates maps a currency code to its rate against the feed's base currency.
// It lives only for the duration of one refresh run.
type ExchangeRates map[string]float64

// Lookup returns the rate for code when it is known and positive.
func (r ExchangeRates) Lookup(code string) (float64, bool) {
	if code == "" {
		return 0, false
	}
	rate, ok := r[code]
	if !ok || rate <= 0 {
		return 0, false
	}
	return rate, true
}

// RankedCountry is a single entry of the top-N GDP ranking.
type RankedCountry struct {
	Name         string
	EstimatedGDP float64
}

// StoreStatus summarises the content of the country store.
type StoreStatus struct {
	TotalCountries  int        `json:"total_countries"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at"`
}
