package exchangerate

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

// DefaultURL returns rates relative to USD.
const DefaultURL = "https://open.er-api.com/v6/latest/USD"

// Client reads the exchange-rate feed.
type Client struct {
	url    string
	client *http.Client
}

var _ ports.RateSource = (*Client)(nil)

type latestResponse struct {
	Result   string             `json:"result"`
	BaseCode string             `json:"base_code"`
	Rates    map[string]float64 `json:"rates"`
}

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

// Probe checks that the feed answers with a rates object.
func (c *Client) Probe(ctx context.Context) error {
	body, err := c.get(ctx)
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("rate feed: malformed json")
	}
	if gjson.GetBytes(body, "result").String() == "error" {
		return fmt.Errorf("rate feed: %s", gjson.GetBytes(body, "error-type").String())
	}
	if !gjson.GetBytes(body, "rates").IsObject() {
		return fmt.Errorf("rate feed: unexpected response shape")
	}
	return nil
}

// FetchRates downloads the latest table.
func (c *Client) FetchRates(ctx context.Context) (domain.ExchangeRates, error) {
	body, err := c.get(ctx)
	if err != nil {
		return nil, err
	}

	var payload latestResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if payload.Result == "error" {
		return nil, fmt.Errorf("rate feed reported an error")
	}
	if payload.Rates == nil {
		return nil, fmt.Errorf("rate feed: missing rates")
	}
	return domain.ExchangeRates(payload.Rates), nil
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate feed returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read rates: %w", err)
	}
	return body, nil
}
