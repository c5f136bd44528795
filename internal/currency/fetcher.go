package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"smena/internal/models"
)

// HTTPRateFetcher тянет курсы с exchangerate.host (база USD).
// Провайдер отдаёт GEL/AMD за доллар, нам нужны доллары за единицу —
// поэтому для лари и драма берётся обратная величина.
type HTTPRateFetcher struct {
	baseURL string
	client  *http.Client
}

func NewHTTPRateFetcher(baseURL string, timeout time.Duration) *HTTPRateFetcher {
	if baseURL == "" {
		baseURL = "https://api.exchangerate.host/latest?base=USD"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPRateFetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (f *HTTPRateFetcher) FetchRates(ctx context.Context) (map[models.Currency]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fx request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fx fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fx fetch: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("fx decode: %w", err)
	}

	rates := make(map[models.Currency]float64)
	if v, ok := payload.Rates["GEL"]; ok && v > 0 {
		rates[models.CurrencyLari] = 1 / v
	}
	if v, ok := payload.Rates["EUR"]; ok && v > 0 {
		rates[models.CurrencyEuro] = 1 / v
	}
	if v, ok := payload.Rates["AMD"]; ok && v > 0 {
		rates[models.CurrencyDram] = 1 / v
	}
	return rates, nil
}
