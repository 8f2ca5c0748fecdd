package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"CountryAtlas/internal/domain"
)

type memoryRepo struct {
	mu      sync.Mutex
	rows    map[string]domain.Country
	failOn  map[string]error
	upserts int
	topErr  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[string]domain.Country{}, failOn: map[string]error{}}
}

func (m *memoryRepo) Upsert(_ context.Context, c domain.Country) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if err, ok := m.failOn[c.Name]; ok {
		return err
	}
	m.rows[c.Name] = c
	return nil
}

func (m *memoryRepo) TopByGDP(_ context.Context, limit int) ([]domain.RankedCountry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.topErr != nil {
		return nil, m.topErr
	}
	var ranked []domain.RankedCountry
	for _, c := range m.rows {
		if c.EstimatedGDP != nil {
			ranked = append(ranked, domain.RankedCountry{Name: c.Name, EstimatedGDP: *c.EstimatedGDP})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].EstimatedGDP != ranked[j].EstimatedGDP {
			return ranked[i].EstimatedGDP > ranked[j].EstimatedGDP
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (m *memoryRepo) Get(_ context.Context, name string) (domain.Country, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, c := range m.rows {
		if strings.EqualFold(k, name) {
			return c, nil
		}
	}
	return domain.Country{}, fmt.Errorf("country %s: %w", name, domain.ErrNotFound)
}

func (m *memoryRepo) List(_ context.Context, _ domain.CountryFilter) ([]domain.Country, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Country, 0, len(m.rows))
	for _, c := range m.rows {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepo) Delete(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[name]; !ok {
		return 0, domain.ErrNotFound
	}
	delete(m.rows, name)
	return 1, nil
}

func (m *memoryRepo) Status(_ context.Context) (domain.StoreStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.StoreStatus{TotalCountries: len(m.rows)}, nil
}

func (m *memoryRepo) Ping(context.Context) error { return nil }

func (m *memoryRepo) snapshot() map[string]domain.Country {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.Country, len(m.rows))
	for k, v := range m.rows {
		out[k] = v
	}
	return out
}

type fakeCountries struct {
	probeErr error
	fetchErr error
	data     []domain.RawCountry
	probes   atomic.Int32
	gate     chan struct{}
	entered  chan struct{}
}

func (f *fakeCountries) Probe(ctx context.Context) error {
	f.probes.Add(1)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.probeErr
}

func (f *fakeCountries) FetchCountries(context.Context) ([]domain.RawCountry, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.data, nil
}

type fakeRates struct {
	probeErr error
	fetchErr error
	rates    domain.ExchangeRates
}

func (f *fakeRates) Probe(context.Context) error { return f.probeErr }

func (f *fakeRates) FetchRates(context.Context) (domain.ExchangeRates, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.rates, nil
}

type recordingRenderer struct {
	mu    sync.Mutex
	calls []domain.Summary
	err   error
	path  string
}

func (r *recordingRenderer) Render(_ context.Context, s domain.Summary) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
	if r.err != nil {
		return "", r.err
	}
	return r.Path(), nil
}

func (r *recordingRenderer) Path() string {
	if r.path == "" {
		return "cache/summary.png"
	}
	return r.path
}

type recordingPublisher struct {
	mu      sync.Mutex
	results []domain.RefreshResult
	err     error
}

func (p *recordingPublisher) PublishRefresh(_ context.Context, r domain.RefreshResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, r)
	return p.err
}

// stepClock advances one second on every reading.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2025, time.November, 8, 10, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

var errStore = errors.New("store unavailable")

func pop(v int64) *int64 { return &v }

func raw(name, capital, region string, population int64, codes ...string) domain.RawCountry {
	rc := domain.RawCountry{Name: name, Capital: capital, Region: region, Population: pop(population)}
	for _, c := range codes {
		rc.Currencies = append(rc.Currencies, domain.Currency{Code: c})
	}
	return rc
}
