package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	"smena/internal/models"
	"smena/internal/report"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const dateRangeHint = "Укажи период: ДД.ММ-ДД.ММ или ДД.ММ.ГГГГ-ДД.ММ.ГГГГ"

// parseRangeArg разбирает аргумент-период команды в доменные даты.
func (b *Bot) parseRangeArg(arg string) (string, string, error) {
	from, to, err := b.clock.ParseDateRange(strings.TrimSpace(arg))
	if err != nil {
		return "", "", err
	}
	return from.Format("02.01.2006"), to.Format("02.01.2006"), nil
}

func (b *Bot) cmdReport(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isOwner(msg.From.ID) {
		b.reply(msg, "Ты не владелец")
		return
	}

	from, to, err := b.parseRangeArg(msg.CommandArguments())
	if err != nil {
		b.reply(msg, dateRangeHint)
		return
	}

	rep, err := b.reports.PeriodReport(ctx, from, to)
	if err != nil {
		b.reply(msg, b.errorMessage(err))
		return
	}
	b.replyHTML(msg, renderPeriodReport(rep))
}

func (b *Bot) cmdOperator(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isOwner(msg.From.ID) {
		b.reply(msg, "Ты не владелец")
		return
	}

	parts := strings.Fields(msg.CommandArguments())
	if len(parts) != 2 {
		b.reply(msg, "Использование: /operator <имя> ДД.ММ-ДД.ММ")
		return
	}

	from, to, err := b.parseRangeArg(parts[1])
	if err != nil {
		b.reply(msg, dateRangeHint)
		return
	}

	rep, err := b.reports.OperatorReport(ctx, from, to, parts[0])
	if err != nil {
		b.reply(msg, b.errorMessage(err))
		return
	}
	b.replyHTML(msg, renderOperatorReport(rep))
}

func (b *Bot) cmdCash(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isOwner(msg.From.ID) {
		b.reply(msg, "Ты не владелец")
		return
	}

	from, to, err := b.parseRangeArg(msg.CommandArguments())
	if err != nil {
		b.reply(msg, dateRangeHint)
		return
	}

	rep, err := b.reports.ChatCashReport(ctx, from, to, msg.Chat.ID)
	if err != nil {
		b.reply(msg, b.errorMessage(err))
		return
	}
	b.replyHTML(msg, renderCashReport(rep))
}

func (b *Bot) cmdStats(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isOwner(msg.From.ID) {
		b.reply(msg, "Ты не владелец")
		return
	}

	from, to, err := b.parseRangeArg(msg.CommandArguments())
	if err != nil {
		b.reply(msg, dateRangeHint)
		return
	}

	stats, err := b.reports.OperatorStats(ctx, from, to)
	if err != nil {
		b.reply(msg, b.errorMessage(err))
		return
	}
	b.replyHTML(msg, renderOperatorStats(stats, from, to))
}

func writeSummaryLines(sb *strings.Builder, summary report.RevenueSummary) {
	for _, cur := range models.AllCurrencies {
		if total := summary.CurrencyTotals[cur]; total != 0 {
			sb.WriteString(fmt.Sprintf("%s: %d\n", cur.Label(), total))
		}
	}
	sb.WriteString(fmt.Sprintf("Выручка: %.2f USD (на двоих: %.2f)\n", summary.TotalUSD, summary.HalfUSD))
	for _, name := range summary.OperatorNames() {
		share := summary.Operators[name]
		sb.WriteString(fmt.Sprintf("ЗП %s: %.2f USD (%d%%)\n", html.EscapeString(name), share.CommissionUSD, int(share.Percent*100)))
	}
}

func renderPeriodReport(rep *report.PeriodReport) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Отчёт за %s — %s</b>\n", rep.DateFrom, rep.DateTo))

	if len(rep.Chats) == 0 {
		sb.WriteString("\n<i>Нет данных за период</i>")
		return sb.String()
	}

	for _, chat := range rep.Chats {
		sb.WriteString(fmt.Sprintf("\n<b>%s</b>\n", html.EscapeString(chat.Title)))
		for _, day := range chat.Days {
			arrived := 0
			for i := range day.Bookings {
				if day.Bookings[i].Arrived() {
					arrived++
				}
			}
			sb.WriteString(fmt.Sprintf("%s: %d броней, пришли %d, %.2f USD\n",
				day.Date, len(day.Bookings), arrived, day.Summary.TotalUSD))
		}
		sb.WriteString(fmt.Sprintf("Итог чата: %.2f USD\n", chat.Subtotal.TotalUSD))
	}

	sb.WriteString("\n<b>Итого за период:</b>\n")
	writeSummaryLines(&sb, rep.Total)
	return sb.String()
}

func renderOperatorReport(rep *report.OperatorReport) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Оператор %s, %s — %s</b>\n", html.EscapeString(rep.Operator), rep.DateFrom, rep.DateTo))

	if len(rep.Days) == 0 {
		sb.WriteString("\n<i>Броней не найдено</i>")
		return sb.String()
	}

	for _, day := range rep.Days {
		sb.WriteString(fmt.Sprintf("\n<b>%s</b>\n", day.Date))
		for i := range day.Bookings {
			bk := &day.Bookings[i]
			line := fmt.Sprintf("%s — %s (%s)", bk.Time, html.EscapeString(bk.Descriptor), bk.DurationLabel)
			switch bk.Status {
			case models.StatusDone:
				line += " Пришёл"
			case models.StatusCancelled:
				line += " Не пришёл"
			case models.StatusDeleted:
				line += " Отменено"
			}
			sb.WriteString(line + "\n")
		}
	}

	sb.WriteString("\n<b>Итого:</b>\n")
	writeSummaryLines(&sb, rep.Total)
	return sb.String()
}

func renderCashReport(rep *report.CashReport) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Касса %s, %s — %s</b>\n\n", html.EscapeString(rep.Title), rep.DateFrom, rep.DateTo))

	label := rep.SettlementCurrency.Label()
	sb.WriteString(fmt.Sprintf("Выручка: %.2f USD\n", rep.Summary.TotalUSD))
	sb.WriteString(fmt.Sprintf("Курс: %.2f %s за доллар\n", rep.SettlementRate, label))
	sb.WriteString(fmt.Sprintf("В кассе: %.2f %s\n", rep.GrossSettlement, label))

	writeExpenseSection := func(title string, items []models.Expense, total float64, sign string) {
		if len(items) == 0 {
			return
		}
		sb.WriteString(fmt.Sprintf("\n<b>%s:</b>\n", title))
		for _, e := range items {
			sb.WriteString(fmt.Sprintf("%s: %.2f USD", html.EscapeString(e.Type), e.AmountUSD))
			if e.Comment != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", html.EscapeString(e.Comment)))
			}
			sb.WriteString("\n")
		}
		if sign != "" {
			sb.WriteString(fmt.Sprintf("Итого: %s%.2f %s\n", sign, total, label))
		}
	}

	writeExpenseSection("К получению", rep.Receivables, rep.ReceivableTotal, "+")
	writeExpenseSection("Вычеты", rep.Deductions, rep.DeductionTotal, "-")
	writeExpenseSection("Справочно", rep.Informational, 0, "")

	sb.WriteString(fmt.Sprintf("\n<b>К сдаче: %.2f %s</b>", rep.NetSettlement, label))
	return sb.String()
}

func renderOperatorStats(stats []report.OperatorStat, from, to string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Статистика операторов, %s — %s</b>\n", from, to))

	if len(stats) == 0 {
		sb.WriteString("\n<i>Нет данных за период</i>")
		return sb.String()
	}

	for _, st := range stats {
		sb.WriteString(fmt.Sprintf("\n<b>%s</b>\n", html.EscapeString(st.Operator)))
		sb.WriteString(fmt.Sprintf("Броней: %d, пришли: %d, не пришли: %d, отменено: %d\n",
			st.Total, st.Arrived, st.NoShow, st.Deleted))
		sb.WriteString(fmt.Sprintf("Конверсия: %.0f%%, выручка: %.2f USD\n", st.Conversion*100, st.RevenueUSD))
	}
	return sb.String()
}
