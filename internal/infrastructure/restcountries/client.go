package restcountries

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"CountryAtlas/internal/domain"
	"CountryAtlas/internal/ports"
)

// DefaultURL lists every country with only the fields the refresh uses.
const DefaultURL = "https://restcountries.com/v2/all?fields=name,capital,region,population,flag,currencies"

const maxBodyBytes = 16 << 20

// Client reads the country registry.
type Client struct {
	url    string
	client *http.Client
}

var _ ports.CountrySource = (*Client)(nil)

// NewClient wires an HTTP client; a nil client gets the given timeout.
func NewClient(url string, client *http.Client, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if client == nil {
		if timeout <= 0 {
			timeout = 8 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{url: url, client: client}
}

// Probe checks that the registry answers with a JSON array.
func (c *Client) Probe(ctx context.Context) error {
	body, err := c.get(ctx)
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsArray() {
		return fmt.Errorf("country registry: unexpected response shape")
	}
	return nil
}

// FetchCountries downloads and decodes the full registry.
func (c *Client) FetchCountries(ctx context.Context) ([]domain.RawCountry, error) {
	body, err := c.get(ctx)
	if err != nil {
		return nil, err
	}

	var countries []domain.RawCountry
	if err := json.Unmarshal(body, &countries); err != nil {
		return nil, fmt.Errorf("decode countries: %w", err)
	}
	return countries, nil
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "CountryAtlas/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request countries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("country registry returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read countries: %w", err)
	}
	return body, nil
}
