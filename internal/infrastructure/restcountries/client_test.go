package restcountries

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sample = `[
  {"name":"Nigeria","capital":"Abuja","region":"Africa","population":206139589,
   "flag":"https://flagcdn.com/ng.svg","currencies":[{"code":"NGN","name":"Nigerian naira","symbol":"₦"}]},
  {"name":"Antarctica","region":"Polar","population":1000,"flag":"https://flagcdn.com/aq.svg"}
]`

func TestFetchCountries(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sample))
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), 0)
	countries, err := c.FetchCountries(context.Background())
	if err != nil {
		t.Fatalf("FetchCountries error: %v", err)
	}

	if len(countries) != 2 {
		t.Fatalf("expected 2 countries, got %d", len(countries))
	}
	ng := countries[0]
	if ng.Name != "Nigeria" || ng.Capital != "Abuja" || ng.Region != "Africa" {
		t.Fatalf("unexpected country: %+v", ng)
	}
	if ng.Population == nil || *ng.Population != 206139589 {
		t.Fatalf("unexpected population: %v", ng.Population)
	}
	if ng.PrimaryCurrency() != "NGN" {
		t.Fatalf("unexpected currency: %s", ng.PrimaryCurrency())
	}
	if countries[1].PrimaryCurrency() != "" || countries[1].Capital != "" {
		t.Fatalf("expected absent capital and currency, got %+v", countries[1])
	}
}

func TestFetchCountriesNon2xx(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), 0)
	if _, err := c.FetchCountries(context.Background()); err == nil {
		t.Fatalf("expected error for 502 response")
	}
}

func TestProbeRejectsUnexpectedShape(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":404,"message":"Not Found"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), 0)
	if err := c.Probe(context.Background()); err == nil {
		t.Fatalf("expected probe to reject an object payload")
	}
}

func TestProbeAcceptsArray(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sample))
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), 0)
	if err := c.Probe(context.Background()); err != nil {
		t.Fatalf("probe error: %v", err)
	}
}

func TestClientTimeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, 20*time.Millisecond)
	if _, err := c.FetchCountries(context.Background()); err == nil {
		t.Fatalf("expected timeout error")
	}
}
