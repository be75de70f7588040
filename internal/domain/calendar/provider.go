package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// providerHoliday mirrors the Nager.Date public holiday payload.
type providerHoliday struct {
	Date      string   `json:"date"`
	Name      string   `json:"name"`
	LocalName string   `json:"localName"`
	Global    bool     `json:"global"`
	Types     []string `json:"types"`
}

// ProviderClient fetches public holidays for a whole year at a time.
// Constructed once at startup and safe for concurrent use.
type ProviderClient struct {
	baseURL string
	client  *http.Client
}

func NewProviderClient(baseURL string, timeout time.Duration) *ProviderClient {
	return &ProviderClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *ProviderClient) PublicHolidays(ctx context.Context, year int, countryCode string) ([]Fact, error) {
	url := fmt.Sprintf("%s/PublicHolidays/%d/%s", c.baseURL, year, countryCode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar provider: unexpected status %d for %d/%s", resp.StatusCode, year, countryCode)
	}

	var payload []providerHoliday
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("calendar provider: decode: %w", err)
	}

	facts := make([]Fact, 0, len(payload))
	for _, h := range payload {
		date, err := time.Parse("2006-01-02", h.Date)
		if err != nil {
			return nil, fmt.Errorf("calendar provider: bad date %q: %w", h.Date, err)
		}
		facts = append(facts, Fact{
			Date:        date,
			CountryCode: countryCode,
			IsHoliday:   true,
			Name:        h.Name,
			LocalName:   h.LocalName,
			Global:      h.Global,
		})
	}
	return facts, nil
}
