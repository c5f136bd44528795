package report

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"smena/internal/currency"
	"smena/internal/domain"
	"smena/internal/ledger"
	"smena/internal/models"
	"smena/internal/shiftclock"
	"smena/internal/textparse"

	"github.com/rs/zerolog"
)

// DaySection — брони одного чата за одну бизнес-дату.
type DaySection struct {
	Date     string           `json:"date"`
	Bookings []models.Booking `json:"bookings"`
	Expenses []models.Expense `json:"expenses"`
	Summary  RevenueSummary   `json:"summary"`
}

// ChatSection — дни одного чата с промежуточным итогом.
type ChatSection struct {
	ChatID   int64          `json:"chat_id"`
	Title    string         `json:"title"`
	Days     []DaySection   `json:"days"`
	Subtotal RevenueSummary `json:"subtotal"`
}

// PeriodReport — сводка по всем чатам за интервал дат.
type PeriodReport struct {
	DateFrom string         `json:"date_from"`
	DateTo   string         `json:"date_to"`
	Chats    []ChatSection  `json:"chats"`
	Total    RevenueSummary `json:"total"`
}

// OperatorReport — брони одного оператора за интервал дат.
type OperatorReport struct {
	Operator string         `json:"operator"`
	DateFrom string         `json:"date_from"`
	DateTo   string         `json:"date_to"`
	Days     []DaySection   `json:"days"`
	Total    RevenueSummary `json:"total"`
}

// CashReport — пересчёт итога чата в расчётную валюту с разбором расходов.
type CashReport struct {
	ChatID             int64            `json:"chat_id"`
	Title              string           `json:"title"`
	DateFrom           string           `json:"date_from"`
	DateTo             string           `json:"date_to"`
	Summary            RevenueSummary   `json:"summary"`
	SettlementCurrency models.Currency  `json:"settlement_currency"`
	SettlementRate     float64          `json:"settlement_rate"` // единиц расчётной валюты за доллар
	GrossSettlement    float64          `json:"gross_settlement"`
	Receivables        []models.Expense `json:"receivables"`
	Deductions         []models.Expense `json:"deductions"`
	Informational      []models.Expense `json:"informational"`
	ReceivableTotal    float64          `json:"receivable_total"` // в расчётной валюте
	DeductionTotal     float64          `json:"deduction_total"`
	NetSettlement      float64          `json:"net_settlement"`
}

// OperatorStat — сводная статистика по имени оператора.
type OperatorStat struct {
	Operator   string  `json:"operator"`
	Total      int     `json:"total"`
	Arrived    int     `json:"arrived"`
	NoShow     int     `json:"no_show"`
	Deleted    int     `json:"deleted"`
	Conversion float64 `json:"conversion"`
	RevenueUSD float64 `json:"revenue_usd"`
}

// Ключевые слова типов расходов для отчёта по наличным.
var (
	receivableKeywords    = []string{"аренда", "квартира", "rent"}
	deductionKeywords     = []string{"такси", "taxi"}
	informationalKeywords = []string{"фото", "photo"}
)

// Generator собирает отчёты из архива и живых смен. Чтение только:
// данные копируются из снимков, писатели не блокируются.
type Generator struct {
	store     domain.Store
	converter *currency.Converter
	excluded  map[int64]bool
	logger    *zerolog.Logger
}

func NewGenerator(store domain.Store, converter *currency.Converter, excludedChats []int64, logger *zerolog.Logger) *Generator {
	excluded := make(map[int64]bool, len(excludedChats))
	for _, id := range excludedChats {
		excluded[id] = true
	}
	return &Generator{
		store:     store,
		converter: converter,
		excluded:  excluded,
		logger:    logger,
	}
}

// shiftSlice — единица данных отчёта: чат и дата с бронями и расходами.
type shiftSlice struct {
	ChatID   int64
	Title    string
	Date     string
	Bookings []models.Booking
	Expenses []models.Expense
}

// collect возвращает объединение архива и живых смен за интервал.
// Пара (чат, дата) не учитывается дважды: после перехода границы
// побеждает архивная запись, живая смена берётся только открытая.
func (g *Generator) collect(ctx context.Context, dateFrom, dateTo string, filter func(chatID int64) bool) ([]shiftSlice, error) {
	from, err := shiftclock.ParseBusinessDate(dateFrom)
	if err != nil {
		return nil, err
	}
	to, err := shiftclock.ParseBusinessDate(dateTo)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("дата конца раньше даты начала: %s > %s", dateFrom, dateTo)
	}

	records, err := g.store.GetArchiveByDateRange(ctx, dateFrom, dateTo)
	if err != nil {
		return nil, err
	}

	type chatDate struct {
		chatID int64
		date   string
	}
	seen := make(map[chatDate]bool)

	var slices []shiftSlice
	for _, rec := range records {
		if !filter(rec.ChatID) {
			continue
		}
		key := chatDate{rec.ChatID, rec.BusinessDate}
		if seen[key] {
			continue
		}
		seen[key] = true
		slices = append(slices, shiftSlice{
			ChatID:   rec.ChatID,
			Title:    rec.Title,
			Date:     rec.BusinessDate,
			Bookings: append([]models.Booking(nil), rec.Bookings...),
			Expenses: append([]models.Expense(nil), rec.Expenses...),
		})
	}

	live, err := g.store.GetAllShifts(ctx)
	if err != nil {
		return nil, err
	}
	for _, shift := range live {
		if !filter(shift.ChatID) {
			continue
		}
		day, err := shiftclock.ParseBusinessDate(shift.BusinessDate)
		if err != nil || day.Before(from) || day.After(to) {
			continue
		}
		key := chatDate{shift.ChatID, shift.BusinessDate}
		if seen[key] {
			continue
		}
		seen[key] = true
		slices = append(slices, shiftSlice{
			ChatID:   shift.ChatID,
			Title:    shift.Title,
			Date:     shift.BusinessDate,
			Bookings: append([]models.Booking(nil), shift.Bookings...),
			Expenses: append([]models.Expense(nil), shift.Expenses...),
		})
	}

	sort.SliceStable(slices, func(i, j int) bool {
		di, _ := shiftclock.ParseBusinessDate(slices[i].Date)
		dj, _ := shiftclock.ParseBusinessDate(slices[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return slices[i].ChatID < slices[j].ChatID
	})
	return slices, nil
}

// PeriodReport — сводка по всем разрешённым чатам: группировка по чату
// и дате, промежуточные итоги и общий итог с комиссиями за период.
// Все цифры считаются по одному снимку курсов.
func (g *Generator) PeriodReport(ctx context.Context, dateFrom, dateTo string) (*PeriodReport, error) {
	g.converter.Refresh(ctx)
	snap := g.converter.Snapshot()
	settings, err := g.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	slices, err := g.collect(ctx, dateFrom, dateTo, func(chatID int64) bool {
		return !g.excluded[chatID]
	})
	if err != nil {
		return nil, err
	}

	byChat := make(map[int64]*ChatSection)
	var order []int64
	for _, s := range slices {
		section, ok := byChat[s.ChatID]
		if !ok {
			section = &ChatSection{ChatID: s.ChatID, Title: s.Title}
			byChat[s.ChatID] = section
			order = append(order, s.ChatID)
		}
		if s.Title != "" {
			section.Title = s.Title
		}
		day := DaySection{
			Date:     s.Date,
			Bookings: ledger.SortBookings(s.Bookings),
			Expenses: s.Expenses,
			Summary:  Aggregate(s.Bookings, snap, settings),
		}
		section.Days = append(section.Days, day)
		section.Subtotal = Merge(section.Subtotal, day.Summary, settings)
	}

	report := &PeriodReport{DateFrom: dateFrom, DateTo: dateTo}
	sort.Slice(order, func(i, j int) bool {
		return strings.ToLower(byChat[order[i]].Title) < strings.ToLower(byChat[order[j]].Title)
	})
	for _, chatID := range order {
		section := byChat[chatID]
		report.Chats = append(report.Chats, *section)
		report.Total = Merge(report.Total, section.Subtotal, settings)
	}
	return report, nil
}

// OperatorReport — брони одного оператора по всем разрешённым чатам.
// Оператор определяется по первому слову описания брони.
func (g *Generator) OperatorReport(ctx context.Context, dateFrom, dateTo, operator string) (*OperatorReport, error) {
	g.converter.Refresh(ctx)
	snap := g.converter.Snapshot()
	settings, err := g.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	slices, err := g.collect(ctx, dateFrom, dateTo, func(chatID int64) bool {
		return !g.excluded[chatID]
	})
	if err != nil {
		return nil, err
	}

	report := &OperatorReport{Operator: operator, DateFrom: dateFrom, DateTo: dateTo}
	for _, s := range slices {
		var own []models.Booking
		for _, b := range s.Bookings {
			if strings.EqualFold(textparse.OperatorName(b.Descriptor), operator) {
				own = append(own, b)
			}
		}
		if len(own) == 0 {
			continue
		}
		day := DaySection{
			Date:     s.Date,
			Bookings: ledger.SortBookings(own),
			Summary:  Aggregate(own, snap, settings),
		}
		report.Days = append(report.Days, day)
		report.Total = Merge(report.Total, day.Summary, settings)
	}
	return report, nil
}

// ChatCashReport пересчитывает итог чата в расчётную валюту по обратному
// курсу лари и раскладывает расходы на три категории. Прямой запрос по
// исключённому чату разрешён.
func (g *Generator) ChatCashReport(ctx context.Context, dateFrom, dateTo string, chatID int64) (*CashReport, error) {
	g.converter.Refresh(ctx)
	snap := g.converter.Snapshot()
	settings, err := g.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	slices, err := g.collect(ctx, dateFrom, dateTo, func(id int64) bool {
		return id == chatID
	})
	if err != nil {
		return nil, err
	}

	report := &CashReport{
		ChatID:             chatID,
		DateFrom:           dateFrom,
		DateTo:             dateTo,
		SettlementCurrency: models.CurrencyLari,
	}

	var bookings []models.Booking
	var expenses []models.Expense
	seenExpense := make(map[int64]bool)
	for _, s := range slices {
		if s.Title != "" {
			report.Title = s.Title
		}
		bookings = append(bookings, s.Bookings...)
		for _, e := range s.Expenses {
			expenses = append(expenses, e)
			seenExpense[e.ID] = true
		}
	}

	// расходы дат, чья смена была пустой и в архив не попала,
	// живут только в таблице расходов
	standalone, err := g.store.GetExpensesByDateRange(ctx, dateFrom, dateTo)
	if err != nil {
		return nil, err
	}
	for _, e := range standalone {
		if e.ChatID != chatID || seenExpense[e.ID] {
			continue
		}
		expenses = append(expenses, e)
	}

	report.Summary = Aggregate(bookings, snap, settings)

	// курс лари в долларах; обратный даёт лари за доллар
	usdPerLari := snap.Rate(models.CurrencyLari)
	if usdPerLari <= 0 {
		usdPerLari = models.FallbackLariToUSD
	}
	report.SettlementRate = 1 / usdPerLari
	report.GrossSettlement = report.Summary.TotalUSD * report.SettlementRate

	for _, e := range expenses {
		inSettlement := e.AmountUSD * report.SettlementRate
		switch classifyExpense(e.Type) {
		case expenseReceivable:
			report.Receivables = append(report.Receivables, e)
			report.ReceivableTotal += inSettlement
		case expenseDeduction:
			report.Deductions = append(report.Deductions, e)
			report.DeductionTotal += inSettlement
		default:
			report.Informational = append(report.Informational, e)
		}
	}
	report.NetSettlement = report.GrossSettlement + report.ReceivableTotal - report.DeductionTotal
	return report, nil
}

// OperatorStats — счётчики и конверсия по каждому имени, встретившемуся
// в бронях периода. Выручка считается только по пришедшим броням.
func (g *Generator) OperatorStats(ctx context.Context, dateFrom, dateTo string) ([]OperatorStat, error) {
	g.converter.Refresh(ctx)
	snap := g.converter.Snapshot()

	slices, err := g.collect(ctx, dateFrom, dateTo, func(chatID int64) bool {
		return !g.excluded[chatID]
	})
	if err != nil {
		return nil, err
	}

	stats := make(map[string]*OperatorStat)
	for _, s := range slices {
		for i := range s.Bookings {
			b := &s.Bookings[i]
			name := textparse.OperatorName(b.Descriptor)
			st, ok := stats[name]
			if !ok {
				st = &OperatorStat{Operator: name}
				stats[name] = st
			}
			st.Total++
			switch b.Status {
			case models.StatusDone:
				st.Arrived++
				for _, amount := range textparse.ExtractAmounts(b.ExtractionSource()) {
					st.RevenueUSD += snap.ToUSD(float64(amount.Value), amount.Currency)
				}
			case models.StatusCancelled:
				st.NoShow++
			case models.StatusDeleted:
				st.Deleted++
			}
		}
	}

	result := make([]OperatorStat, 0, len(stats))
	for _, st := range stats {
		if st.Total > 0 {
			st.Conversion = float64(st.Arrived) / float64(st.Total)
		}
		result = append(result, *st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RevenueUSD > result[j].RevenueUSD })
	return result, nil
}

type expenseCategory int

const (
	expenseInformationalOnly expenseCategory = iota
	expenseReceivable
	expenseDeduction
)

func classifyExpense(expType string) expenseCategory {
	lower := strings.ToLower(expType)
	for _, kw := range receivableKeywords {
		if strings.Contains(lower, kw) {
			return expenseReceivable
		}
	}
	for _, kw := range deductionKeywords {
		if strings.Contains(lower, kw) {
			return expenseDeduction
		}
	}
	for _, kw := range informationalKeywords {
		if strings.Contains(lower, kw) {
			return expenseInformationalOnly
		}
	}
	return expenseInformationalOnly
}
