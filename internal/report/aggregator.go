package report

import (
	"sort"

	"smena/internal/currency"
	"smena/internal/models"
	"smena/internal/textparse"
)

// OperatorShare — выручка и комиссия одного оператора.
type OperatorShare struct {
	GrossUSD      float64 `json:"gross_usd"`
	Percent       float64 `json:"percent"`
	CommissionUSD float64 `json:"commission_usd"`
}

// RevenueSummary — итог по набору пришедших броней: суммы по валютам,
// долларовый эквивалент, половина на двоих и комиссии по операторам.
type RevenueSummary struct {
	CurrencyTotals map[models.Currency]int  `json:"currency_totals"`
	TotalUSD       float64                  `json:"total_usd"`
	HalfUSD        float64                  `json:"half_usd"`
	Operators      map[string]OperatorShare `json:"operators"`
}

// OperatorNames возвращает имена операторов в стабильном порядке.
func (s RevenueSummary) OperatorNames() []string {
	names := make([]string, 0, len(s.Operators))
	for name := range s.Operators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CommissionPercent — процент комиссии для имени. Порядок разрешения:
// переопределение из настроек, статическая таблица, дефолт из настроек,
// жёсткий дефолт 10%.
func CommissionPercent(name string, settings *models.Settings) float64 {
	if settings != nil {
		if p, ok := settings.SalaryPercent[name]; ok {
			return p
		}
	}
	if p, ok := models.StaticSalaryPercent[name]; ok {
		return p
	}
	if settings != nil && settings.DefaultPercent > 0 {
		return settings.DefaultPercent
	}
	return models.DefaultSalaryPercent
}

// Aggregate сводит пришедшие брони в RevenueSummary. Учитываются только
// брони со статусом Done; суммы берутся из исходного текста брони.
// Все конвертации идут по одному снимку курсов.
func Aggregate(bookings []models.Booking, snap currency.Snapshot, settings *models.Settings) RevenueSummary {
	summary := RevenueSummary{
		CurrencyTotals: make(map[models.Currency]int),
		Operators:      make(map[string]OperatorShare),
	}

	for i := range bookings {
		b := &bookings[i]
		if b.Status != models.StatusDone {
			continue
		}

		var bookingUSD float64
		for _, amount := range textparse.ExtractAmounts(b.ExtractionSource()) {
			summary.CurrencyTotals[amount.Currency] += amount.Value
			bookingUSD += snap.ToUSD(float64(amount.Value), amount.Currency)
		}
		summary.TotalUSD += bookingUSD

		name := textparse.OperatorName(b.Descriptor)
		share := summary.Operators[name]
		share.GrossUSD += bookingUSD
		summary.Operators[name] = share
	}

	summary.HalfUSD = summary.TotalUSD / 2
	for name, share := range summary.Operators {
		share.Percent = CommissionPercent(name, settings)
		share.CommissionUSD = share.GrossUSD * share.Percent
		summary.Operators[name] = share
	}
	return summary
}

// Merge складывает два итога. Проценты комиссий пересчитываются по
// объединённой выручке оператора.
func Merge(a, b RevenueSummary, settings *models.Settings) RevenueSummary {
	merged := RevenueSummary{
		CurrencyTotals: make(map[models.Currency]int),
		Operators:      make(map[string]OperatorShare),
	}
	for cur, v := range a.CurrencyTotals {
		merged.CurrencyTotals[cur] += v
	}
	for cur, v := range b.CurrencyTotals {
		merged.CurrencyTotals[cur] += v
	}
	merged.TotalUSD = a.TotalUSD + b.TotalUSD
	merged.HalfUSD = merged.TotalUSD / 2

	for name, share := range a.Operators {
		s := merged.Operators[name]
		s.GrossUSD += share.GrossUSD
		merged.Operators[name] = s
	}
	for name, share := range b.Operators {
		s := merged.Operators[name]
		s.GrossUSD += share.GrossUSD
		merged.Operators[name] = s
	}
	for name, share := range merged.Operators {
		share.Percent = CommissionPercent(name, settings)
		share.CommissionUSD = share.GrossUSD * share.Percent
		merged.Operators[name] = share
	}
	return merged
}
