package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"smena/internal/models"
	"smena/internal/report"
	"smena/internal/textparse"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Брони"

func (b *Bot) cmdExport(ctx context.Context, msg *tgbotapi.Message) {
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

	filePath, err := b.exportToExcel(rep)
	if err != nil {
		b.logger.Error().Err(err).Msg("Ошибка выгрузки в Excel")
		b.reply(msg, "Не получилось собрать файл, попробуй позже.")
		return
	}

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FilePath(filePath))
	doc.Caption = fmt.Sprintf("Выгрузка %s — %s", rep.DateFrom, rep.DateTo)
	if _, err := b.tg.Send(doc); err != nil {
		b.logger.Error().Err(err).Str("file_path", filePath).Msg("Ошибка отправки файла")
		b.reply(msg, "Файл собрался, но отправить не вышло.")
	}
}

// exportToExcel создает Excel файл с бронями и итогами периода
func (b *Bot) exportToExcel(rep *report.PeriodReport) (string, error) {
	if err := os.MkdirAll(b.config.Exports.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(exportSheet, "A1", fmt.Sprintf("Период: %s — %s", rep.DateFrom, rep.DateTo))
	_ = f.MergeCell(exportSheet, "A1", "G1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(exportSheet, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	headers := []string{"Дата", "Чат", "Время", "Описание", "Статус", "Длительность", "Оператор"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(exportSheet, cell, header)
		_ = f.SetCellStyle(exportSheet, cell, cell, headerStyle)
	}

	row := 3
	for _, chat := range rep.Chats {
		for _, day := range chat.Days {
			for i := range day.Bookings {
				bk := &day.Bookings[i]
				_ = f.SetCellValue(exportSheet, fmt.Sprintf("A%d", row), day.Date)
				_ = f.SetCellValue(exportSheet, fmt.Sprintf("B%d", row), chat.Title)
				_ = f.SetCellValue(exportSheet, fmt.Sprintf("C%d", row), bk.Time)
				_ = f.SetCellValue(exportSheet, fmt.Sprintf("D%d", row), bk.Descriptor)
				_ = f.SetCellValue(exportSheet, fmt.Sprintf("E%d", row), statusLabel(bk.Status))
				_ = f.SetCellValue(exportSheet, fmt.Sprintf("F%d", row), bk.DurationLabel)
				_ = f.SetCellValue(exportSheet, fmt.Sprintf("G%d", row), textparse.OperatorName(bk.Descriptor))
				row++
			}
		}
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 12)
	_ = f.SetColWidth(exportSheet, "B", "B", 20)
	_ = f.SetColWidth(exportSheet, "C", "C", 8)
	_ = f.SetColWidth(exportSheet, "D", "D", 40)
	_ = f.SetColWidth(exportSheet, "E", "G", 14)

	b.writeTotalsSheet(f, rep, headerStyle)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("export_%s_to_%s.xlsx", rep.DateFrom, rep.DateTo)
	filePath := filepath.Join(b.config.Exports.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	b.logger.Info().Str("file_path", filePath).Msg("Excel file created")
	return filePath, nil
}

func (b *Bot) writeTotalsSheet(f *excelize.File, rep *report.PeriodReport, headerStyle int) {
	const sheet = "Итоги"
	if _, err := f.NewSheet(sheet); err != nil {
		return
	}

	_ = f.SetCellValue(sheet, "A1", "Валюта")
	_ = f.SetCellValue(sheet, "B1", "Сумма")
	_ = f.SetCellStyle(sheet, "A1", "B1", headerStyle)

	row := 2
	for _, cur := range models.AllCurrencies {
		if total := rep.Total.CurrencyTotals[cur]; total != 0 {
			_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), cur.Label())
			_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), total)
			row++
		}
	}

	row++
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Выручка, USD")
	_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), rep.Total.TotalUSD)
	row++
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "На двоих, USD")
	_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), rep.Total.HalfUSD)

	row += 2
	for _, name := range rep.Total.OperatorNames() {
		share := rep.Total.Operators[name]
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("ЗП %s (%d%%)", name, int(share.Percent*100)))
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), share.CommissionUSD)
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 25)
	_ = f.SetColWidth(sheet, "B", "B", 14)
}

func statusLabel(status models.BookingStatus) string {
	switch status {
	case models.StatusDone:
		return "Пришёл"
	case models.StatusCancelled:
		return "Не пришёл"
	case models.StatusDeleted:
		return "Отменено"
	default:
		return "Ожидается"
	}
}
