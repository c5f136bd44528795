package textparse

import (
	"testing"

	"smena/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAmounts(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []Amount
	}{
		{
			"раздельное написание",
			"Анна 300 лари",
			[]Amount{{300, models.CurrencyLari}},
		},
		{
			"слитное написание",
			"Анна 300лари",
			[]Amount{{300, models.CurrencyLari}},
		},
		{
			"знак доллара",
			"Вика 100$",
			[]Amount{{100, models.CurrencyUSD}},
		},
		{
			"несколько валют в одном тексте",
			"Оля 200 лари 50$ 30 евро",
			[]Amount{{200, models.CurrencyLari}, {50, models.CurrencyUSD}, {30, models.CurrencyEuro}},
		},
		{
			"падежные формы",
			"500 долларов и 1000 драмов",
			[]Amount{{500, models.CurrencyUSD}, {1000, models.CurrencyDram}},
		},
		{
			"крипта по тикеру",
			"150 usdt",
			[]Amount{{150, models.CurrencyCrypto}},
		},
		{
			"регистр не важен",
			"100 ЛАРИ",
			[]Amount{{100, models.CurrencyLari}},
		},
		{
			"опечатка с латинской а",
			"300 лaри",
			[]Amount{{300, models.CurrencyLari}},
		},
		{
			"число без валюты игнорируется",
			"Анна 300",
			nil,
		},
		{
			"без сумм",
			"Анна на час",
			nil,
		},
		{
			"пустая строка",
			"",
			nil,
		},
		{
			"знак препинания после валюты",
			"300 лари, наличными",
			[]Amount{{300, models.CurrencyLari}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractAmounts(tc.text))
		})
	}
}

func TestExtractDuration(t *testing.T) {
	cases := []struct {
		name      string
		text      string
		wantSec   int
		wantLabel string
	}{
		{"часы и минуты", "Анна 1ч 30мин", 5400, "1ч 30мин"},
		{"только часы", "Анна 2 часа", 7200, "2ч"},
		{"только минуты", "Анна 45 мин", 2700, "45 мин"},
		{"раздельно", "Анна 1 час 15 минут", 4500, "1ч 15мин"},
		{"нет длительности", "Анна 300 лари", 0, "30 мин"},
		{"пусто", "", 0, "30 мин"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sec, label := ExtractDuration(tc.text)
			assert.Equal(t, tc.wantSec, sec)
			assert.Equal(t, tc.wantLabel, label)
		})
	}
}

func TestStripDurationTokens(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"слитная длительность", "Анна 300 лари 1ч 30мин", "Анна 300 лари"},
		{"раздельная длительность", "Анна 300 лари 1 час", "Анна 300 лари"},
		{"только минуты", "Вика 45 мин", "Вика"},
		{"без длительности", "Анна 300 лари", "Анна 300 лари"},
		{"длительность в начале", "1ч Анна", ""},
		{"пусто", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripDurationTokens(tc.text))
		})
	}
}

func TestOperatorName(t *testing.T) {
	assert.Equal(t, "Анна", OperatorName("Анна 300 лари"))
	assert.Equal(t, "Саша", OperatorName("  Саша  "))
	assert.Equal(t, "Неизвестно", OperatorName(""))
	assert.Equal(t, "Неизвестно", OperatorName("   "))
}

func TestExtractionFromRealInput(t *testing.T) {
	// типичный ввод целиком: время уже срезано вызывающим
	text := "Анна 300 лари 1ч 30мин"

	amounts := ExtractAmounts(text)
	require.Len(t, amounts, 1)
	assert.Equal(t, 300, amounts[0].Value)

	sec, label := ExtractDuration(text)
	assert.Equal(t, 5400, sec)
	assert.Equal(t, "1ч 30мин", label)

	assert.Equal(t, "Анна 300 лари", StripDurationTokens(text))
}
