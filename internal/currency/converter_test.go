package currency

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smena/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	rates map[models.Currency]float64
	err   error
}

func (s *stubFetcher) FetchRates(context.Context) (map[models.Currency]float64, error) {
	return s.rates, s.err
}

type stubSettings struct {
	settings *models.Settings
	err      error
}

func (s *stubSettings) GetSettings(context.Context) (*models.Settings, error) {
	return s.settings, s.err
}

func discardLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestConverterFallbackRates(t *testing.T) {
	c := NewConverter(nil, nil, discardLogger())

	assert.InDelta(t, 111.0, c.ToUSD(300, models.CurrencyLari), 0.001)
	assert.InDelta(t, 100.0, c.ToUSD(100, models.CurrencyUSD), 0.001)
	assert.InDelta(t, 105.0, c.ToUSD(100, models.CurrencyEuro), 0.001)
	assert.InDelta(t, 100.0, c.ToUSD(100, models.CurrencyCrypto), 0.001)
	assert.InDelta(t, 2.5, c.ToUSD(1000, models.CurrencyDram), 0.001)
}

func TestRefreshAppliesFetchedRates(t *testing.T) {
	fetcher := &stubFetcher{rates: map[models.Currency]float64{
		models.CurrencyLari: 0.40,
		models.CurrencyEuro: 1.10,
	}}
	c := NewConverter(fetcher, nil, discardLogger())
	c.Refresh(context.Background())

	assert.InDelta(t, 120.0, c.ToUSD(300, models.CurrencyLari), 0.001)
	assert.InDelta(t, 110.0, c.ToUSD(100, models.CurrencyEuro), 0.001)
	// драм провайдер не вернул, остаётся запасной курс
	assert.InDelta(t, 2.5, c.ToUSD(1000, models.CurrencyDram), 0.001)
}

func TestRefreshManualOverrideWins(t *testing.T) {
	fetcher := &stubFetcher{rates: map[models.Currency]float64{
		models.CurrencyLari: 0.40,
	}}
	settings := &stubSettings{settings: &models.Settings{
		Rates: map[models.Currency]float64{models.CurrencyLari: 0.35},
	}}
	c := NewConverter(fetcher, settings, discardLogger())
	c.Refresh(context.Background())

	assert.InDelta(t, 0.35, c.Snapshot().Rate(models.CurrencyLari), 0.001)
}

func TestRefreshKeepsRatesOnFetchError(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("api down")}
	c := NewConverter(fetcher, nil, discardLogger())
	c.Refresh(context.Background())

	assert.InDelta(t, models.FallbackLariToUSD, c.Snapshot().Rate(models.CurrencyLari), 0.001)
}

func TestRefreshNeverTouchesUSDAndCrypto(t *testing.T) {
	fetcher := &stubFetcher{rates: map[models.Currency]float64{
		models.CurrencyUSD:    0.5,
		models.CurrencyCrypto: 0.5,
	}}
	c := NewConverter(fetcher, nil, discardLogger())
	c.Refresh(context.Background())

	snap := c.Snapshot()
	assert.InDelta(t, 1.0, snap.Rate(models.CurrencyUSD), 0.001)
	assert.InDelta(t, 1.0, snap.Rate(models.CurrencyCrypto), 0.001)
}

func TestSnapshotIsDetached(t *testing.T) {
	c := NewConverter(nil, nil, discardLogger())
	snap := c.Snapshot()

	before := snap.ToUSD(300, models.CurrencyLari)

	c.mu.Lock()
	c.rates[models.CurrencyLari] = 0.50
	c.mu.Unlock()

	// снимок не видит поздние изменения
	assert.InDelta(t, before, snap.ToUSD(300, models.CurrencyLari), 1e-9)
	assert.InDelta(t, 150.0, c.ToUSD(300, models.CurrencyLari), 0.001)
}

func TestHTTPRateFetcherInvertsRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rates":{"GEL":2.7027,"EUR":0.9524,"AMD":400.0}}`))
	}))
	defer srv.Close()

	fetcher := NewHTTPRateFetcher(srv.URL, time.Second)
	rates, err := fetcher.FetchRates(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 0.37, rates[models.CurrencyLari], 0.001)
	assert.InDelta(t, 1.05, rates[models.CurrencyEuro], 0.001)
	assert.InDelta(t, 0.0025, rates[models.CurrencyDram], 0.0001)
}

func TestHTTPRateFetcherBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	fetcher := NewHTTPRateFetcher(srv.URL, time.Second)
	_, err := fetcher.FetchRates(context.Background())
	assert.Error(t, err)
}
