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

// shiftSummaryText собирает итоги смены для владельцев: табло, суммы по
// валютам с половиной "на двоих", общая выручка в USD, расходы смены
// (только показываются, из выручки не вычитаются) и ЗП операторам от
// полной суммы.
func (b *Bot) shiftSummaryText(ctx context.Context, chatID int64) (string, error) {
	b.converter.Refresh(ctx)

	shift, err := b.ledger.EnsureShift(ctx, chatID)
	if err != nil {
		return "", err
	}

	settings, err := b.settings.Get(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Настройки недоступны, проценты по умолчанию")
		settings = nil
	}

	summary := report.Aggregate(shift.Bookings, b.converter.Snapshot(), settings)

	var sb strings.Builder
	sb.WriteString(boardText(shift))

	sb.WriteString("\n\n<b>Общие итоги смены:</b>\n")
	for _, cur := range models.AllCurrencies {
		total := summary.CurrencyTotals[cur]
		if total == 0 {
			continue
		}
		half := float64(total) / 2
		if cur == models.CurrencyUSD || cur == models.CurrencyEuro {
			sb.WriteString(fmt.Sprintf("%s: %d (на двоих: %.2f)\n", cur.Label(), total, half))
		} else {
			sb.WriteString(fmt.Sprintf("%s: %d (на двоих: %.0f)\n", cur.Label(), total, half))
		}
	}

	sb.WriteString(fmt.Sprintf("\nОбщая выручка: %.2f USD", summary.TotalUSD))
	sb.WriteString(fmt.Sprintf("\nНа двоих: %.2f USD", summary.HalfUSD))

	if len(shift.Expenses) > 0 {
		sb.WriteString("\n\n<b>Расходы за смену:</b>\n")
		var totalExpenses float64
		for _, e := range shift.Expenses {
			line := fmt.Sprintf("%s: %.2f USD", html.EscapeString(e.Type), e.AmountUSD)
			if e.Comment != "" {
				line += fmt.Sprintf(" (%s)", html.EscapeString(e.Comment))
			}
			sb.WriteString(line + "\n")
			totalExpenses += e.AmountUSD
		}
		sb.WriteString(fmt.Sprintf("Итого расходов: %.2f USD", totalExpenses))
	}

	if len(summary.Operators) > 0 {
		sb.WriteString("\n\n<b>ЗП операторам (от полной суммы):</b>\n")
		for _, name := range summary.OperatorNames() {
			share := summary.Operators[name]
			sb.WriteString(fmt.Sprintf("%s: %.2f USD (%d%%)\n", html.EscapeString(name), share.CommissionUSD, int(share.Percent*100)))
		}
	}

	return sb.String(), nil
}

func (b *Bot) cmdSummary(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isOwner(msg.From.ID) {
		b.reply(msg, "Ты не владелец")
		return
	}

	text, err := b.shiftSummaryText(ctx, msg.Chat.ID)
	if err != nil {
		b.reply(msg, b.errorMessage(err))
		return
	}

	for _, ownerID := range b.config.Owners {
		if _, err := b.tg.SendHTML(ownerID, text); err != nil {
			b.logger.Error().Err(err).Int64("owner_id", ownerID).Msg("Не удалось отправить итоги владельцу")
		}
	}
	b.reply(msg, "Проверь личку!")
}

// SendOwnerSummaries рассылает владельцам итоги всех рабочих чатов,
// задача на 08:59 перед границей смены. Дописывает баланс кошелька,
// если наблюдатель включён.
func (b *Bot) SendOwnerSummaries(ctx context.Context) {
	for _, chatID := range b.config.AllowedChats {
		text, err := b.shiftSummaryText(ctx, chatID)
		if err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Не удалось собрать итоги чата")
			continue
		}
		for _, ownerID := range b.config.Owners {
			if _, err := b.tg.SendHTML(ownerID, text); err != nil {
				b.logger.Error().Err(err).Int64("owner_id", ownerID).Msg("Не удалось отправить итоги владельцу")
			}
		}
	}

	if b.wallet != nil {
		if balance, at := b.wallet.Last(); !at.IsZero() {
			line := fmt.Sprintf("Баланс кошелька: %.2f USDT", balance)
			for _, ownerID := range b.config.Owners {
				if _, err := b.tg.SendMessage(ownerID, line); err != nil {
					b.logger.Error().Err(err).Int64("owner_id", ownerID).Msg("Не удалось отправить баланс владельцу")
				}
			}
		}
	}
}
