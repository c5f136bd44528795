package models

// Currency — закрытый набор распознаваемых валют.
type Currency string

const (
	CurrencyLari   Currency = "lari"
	CurrencyUSD    Currency = "usd"
	CurrencyEuro   Currency = "euro"
	CurrencyCrypto Currency = "crypto"
	CurrencyDram   Currency = "dram"
)

// AllCurrencies — стабильный порядок вывода валют в отчётах.
var AllCurrencies = []Currency{
	CurrencyLari,
	CurrencyUSD,
	CurrencyEuro,
	CurrencyCrypto,
	CurrencyDram,
}

// Label возвращает русское название валюты для отчётов.
func (c Currency) Label() string {
	switch c {
	case CurrencyLari:
		return "Лари"
	case CurrencyUSD:
		return "Доллары"
	case CurrencyEuro:
		return "Евро"
	case CurrencyCrypto:
		return "Крипта"
	case CurrencyDram:
		return "Драмы"
	default:
		return string(c)
	}
}

// Settings — процессные переопределения: ручные курсы и проценты ЗП.
type Settings struct {
	Rates          map[Currency]float64 `json:"rates,omitempty"`
	SalaryPercent  map[string]float64   `json:"salary_percent,omitempty"`
	DefaultPercent float64              `json:"default_percent,omitempty"`
}
