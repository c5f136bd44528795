package currency

import (
	"context"
	"sync"

	"smena/internal/models"

	"github.com/rs/zerolog"
)

// RateFetcher отдаёт текущие курсы валют к доллару.
type RateFetcher interface {
	FetchRates(ctx context.Context) (map[models.Currency]float64, error)
}

// SettingsSource отдаёт актуальные ручные переопределения курсов.
type SettingsSource interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
}

// Converter хранит текущие курсы к доллару и выполняет конвертацию.
// Курсы обновляются через Refresh; конвертация — чистое умножение.
type Converter struct {
	mu       sync.RWMutex
	rates    map[models.Currency]float64
	fetcher  RateFetcher
	settings SettingsSource
	logger   *zerolog.Logger
}

// Snapshot — неизменяемый набор курсов. Один отчёт считается по одному
// снимку, чтобы смена курса посреди генерации не разъехала цифры.
type Snapshot map[models.Currency]float64

func NewConverter(fetcher RateFetcher, settings SettingsSource, logger *zerolog.Logger) *Converter {
	return &Converter{
		rates: map[models.Currency]float64{
			models.CurrencyLari:   models.FallbackLariToUSD,
			models.CurrencyUSD:    1,
			models.CurrencyEuro:   models.FallbackEuroToUSD,
			models.CurrencyCrypto: 1,
			models.CurrencyDram:   models.FallbackDramToUSD,
		},
		fetcher:  fetcher,
		settings: settings,
		logger:   logger,
	}
}

// Refresh обновляет курсы. Порядок на валюту: ручное переопределение из
// настроек → живой курс провайдера → прежнее значение. Ошибка провайдера
// не ошибка Refresh: работаем на последних известных курсах.
func (c *Converter) Refresh(ctx context.Context) {
	var manual map[models.Currency]float64
	if c.settings != nil {
		s, err := c.settings.GetSettings(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Не удалось прочитать настройки курсов")
		} else if s != nil {
			manual = s.Rates
		}
	}

	var fetched map[models.Currency]float64
	if c.fetcher != nil {
		var err error
		fetched, err = c.fetcher.FetchRates(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Провайдер курсов недоступен, остаёмся на прежних")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cur := range models.AllCurrencies {
		if cur == models.CurrencyUSD || cur == models.CurrencyCrypto {
			continue
		}
		if v, ok := manual[cur]; ok && v > 0 {
			c.rates[cur] = v
			continue
		}
		if v, ok := fetched[cur]; ok && v > 0 {
			c.rates[cur] = v
		}
	}
}

// ToUSD переводит сумму в доллары по текущему курсу.
func (c *Converter) ToUSD(amount float64, cur models.Currency) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return amount * c.rateLocked(cur)
}

// Snapshot возвращает копию текущих курсов.
func (c *Converter) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := make(Snapshot, len(c.rates))
	for k, v := range c.rates {
		snap[k] = v
	}
	return snap
}

func (c *Converter) rateLocked(cur models.Currency) float64 {
	if r, ok := c.rates[cur]; ok {
		return r
	}
	return 1
}

// ToUSD по снимку — та же конвертация без обращения к общему состоянию.
func (s Snapshot) ToUSD(amount float64, cur models.Currency) float64 {
	if r, ok := s[cur]; ok {
		return amount * r
	}
	return amount
}

// Rate возвращает курс валюты из снимка (1 для неизвестной).
func (s Snapshot) Rate(cur models.Currency) float64 {
	if r, ok := s[cur]; ok {
		return r
	}
	return 1
}
