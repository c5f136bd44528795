package textparse

import (
	"fmt"
	"strconv"
	"strings"

	"smena/internal/models"
)

// Amount — найденное в тексте упоминание суммы.
type Amount struct {
	Value    int
	Currency models.Currency
}

// currencyAliases — закрытая таблица соответствия поверхностных форм валютам.
// Все формы хранятся в нижнем регистре; поиск регистронезависимый.
var currencyAliases = map[string]models.Currency{
	"лари": models.CurrencyLari,
	"лaри": models.CurrencyLari, // частая опечатка с латинской "a"
	"лар":  models.CurrencyLari,
	"lari": models.CurrencyLari,

	"доллар":   models.CurrencyUSD,
	"доллара":  models.CurrencyUSD,
	"долларов": models.CurrencyUSD,
	"dollar":   models.CurrencyUSD,
	"usd":      models.CurrencyUSD,
	"$":        models.CurrencyUSD,

	"евро": models.CurrencyEuro,
	"euro": models.CurrencyEuro,
	"€":    models.CurrencyEuro,

	"крипта": models.CurrencyCrypto,
	"crypto": models.CurrencyCrypto,
	"usdt":   models.CurrencyCrypto,
	"btc":    models.CurrencyCrypto,
	"eth":    models.CurrencyCrypto,

	"драм":   models.CurrencyDram,
	"драмм":  models.CurrencyDram,
	"драмов": models.CurrencyDram,
	"драма":  models.CurrencyDram,
	"dram":   models.CurrencyDram,
	"amd":    models.CurrencyDram,
	"֏":      models.CurrencyDram,
}

var hourAliases = map[string]bool{"ч": true, "час": true, "часа": true, "часов": true}

var minuteAliases = map[string]bool{"м": true, "мин": true, "минут": true, "минуты": true}

// ExtractAmounts разбирает текст на пары (сумма, валюта).
// Возвращаются все совпадения; суммирование по валютам — забота вызывающего.
// Отсутствие совпадений — нормальный результат (оплата ещё не указана).
func ExtractAmounts(text string) []Amount {
	var amounts []Amount
	for _, tok := range tokenize(text) {
		cur, ok := currencyAliases[tok.unit]
		if !ok {
			continue
		}
		amounts = append(amounts, Amount{Value: tok.value, Currency: cur})
	}
	return amounts
}

// ExtractDuration ищет в тексте количество часов и минут.
// Если не найдено ни того ни другого, возвращает (0, "30 мин") —
// вызывающий подставляет длительность по умолчанию сам.
func ExtractDuration(text string) (int, string) {
	hours, minutes := 0, 0
	for _, tok := range tokenize(text) {
		switch {
		case hourAliases[tok.unit] && hours == 0:
			hours = tok.value
		case minuteAliases[tok.unit] && minutes == 0:
			minutes = tok.value
		}
	}

	seconds := hours*3600 + minutes*60
	if seconds == 0 {
		return 0, models.DefaultDurationLabel
	}

	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dч", hours))
	}
	if minutes > 0 {
		if hours > 0 {
			parts = append(parts, fmt.Sprintf("%dмин", minutes))
		} else {
			parts = append(parts, fmt.Sprintf("%d мин", minutes))
		}
	}
	return seconds, strings.Join(parts, " ")
}

// StripDurationTokens убирает из текста хвост, начинающийся с первого
// токена длительности ("1ч 30мин", "45 мин" и далее до конца строки).
// Результат становится дескриптором брони.
func StripDurationTokens(text string) string {
	fields := splitKeepOffsets(text)
	for i, f := range fields {
		lower := strings.ToLower(f.text)
		if num, unit, joined := splitNumberUnit(lower); joined && num >= 0 && (hourAliases[unit] || minuteAliases[unit]) {
			return strings.TrimSpace(text[:f.offset])
		}
		if _, err := strconv.Atoi(lower); err == nil && i+1 < len(fields) {
			next := strings.ToLower(fields[i+1].text)
			if hourAliases[next] || minuteAliases[next] {
				return strings.TrimSpace(text[:f.offset])
			}
		}
	}
	return strings.TrimSpace(text)
}

// OperatorName выводит имя оператора из дескриптора брони.
// Эвристика: первое слово дескриптора. Держится в одной функции,
// чтобы замена на явное поле оператора не трогала агрегацию.
func OperatorName(descriptor string) string {
	fields := strings.Fields(descriptor)
	if len(fields) == 0 {
		return "Неизвестно"
	}
	return fields[0]
}

// token — число с единицей: "300лари", "300 лари", "1ч", "100$".
type token struct {
	value int
	unit  string
}

// tokenize режет текст на пары число+единица. Единица может быть
// приклеена к числу или стоять следующим словом.
func tokenize(text string) []token {
	fields := strings.Fields(strings.ToLower(text))
	var tokens []token
	for i := 0; i < len(fields); i++ {
		if num, unit, joined := splitNumberUnit(fields[i]); joined {
			tokens = append(tokens, token{value: num, unit: unit})
			continue
		}
		num, err := strconv.Atoi(fields[i])
		if err != nil || num < 0 {
			continue
		}
		if i+1 < len(fields) {
			tokens = append(tokens, token{value: num, unit: strings.TrimRight(fields[i+1], ".,;:!")})
		}
	}
	return tokens
}

// splitNumberUnit разбирает слитный токен вида "300лари" или "100$".
func splitNumberUnit(field string) (int, string, bool) {
	cut := -1
	for i, r := range field {
		if r < '0' || r > '9' {
			cut = i
			break
		}
	}
	if cut <= 0 {
		return 0, "", false
	}
	num, err := strconv.Atoi(field[:cut])
	if err != nil {
		return 0, "", false
	}
	return num, strings.TrimRight(field[cut:], ".,;:!"), true
}

type offsetField struct {
	text   string
	offset int
}

func splitKeepOffsets(text string) []offsetField {
	var fields []offsetField
	start := -1
	for i, r := range text {
		space := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if !space && start < 0 {
			start = i
		}
		if space && start >= 0 {
			fields = append(fields, offsetField{text: text[start:i], offset: start})
			start = -1
		}
	}
	if start >= 0 {
		fields = append(fields, offsetField{text: text[start:], offset: start})
	}
	return fields
}
