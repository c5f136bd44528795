package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"smena/internal/models"
	"smena/internal/textparse"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	shiftsSheet   = "Смены"
	bookingsSheet = "Записи"
)

// SheetsService выгружает закрытые смены в Google-таблицу: сводная строка
// на лист "Смены" и построчная детализация на лист "Записи".
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
}

func NewSheetsService(credentialsFile, spreadsheetID string) (*SheetsService, error) {
	ctx := context.Background()

	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
	}, nil
}

// TestConnection проверяет доступ к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, shiftsSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail возвращает email сервисного аккаунта
func (s *SheetsService) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}

	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}

	return creds.ClientEmail, nil
}

// AppendShiftRows дописывает смену в таблицу: одну сводную строку и
// по строке на каждую запись смены.
func (s *SheetsService) AppendShiftRows(ctx context.Context, rec *models.ShiftArchiveRecord, totalUSD float64) error {
	if rec == nil {
		return fmt.Errorf("archive record is nil")
	}

	summaryRange := &sheets.ValueRange{
		Values: [][]interface{}{shiftSummaryRow(rec, totalUSD)},
	}
	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, shiftsSheet+"!A:A", summaryRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append shift summary: %v", err)
	}

	rows := bookingRows(rec)
	if len(rows) == 0 {
		return nil
	}

	detailRange := &sheets.ValueRange{Values: rows}
	_, err = s.service.Spreadsheets.Values.Append(s.spreadsheetID, bookingsSheet+"!A:A", detailRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append shift bookings: %v", err)
	}
	return nil
}

func shiftSummaryRow(rec *models.ShiftArchiveRecord, totalUSD float64) []interface{} {
	var done, noShow int
	for i := range rec.Bookings {
		switch rec.Bookings[i].Status {
		case models.StatusDone:
			done++
		case models.StatusCancelled:
			noShow++
		}
	}

	return []interface{}{
		rec.BusinessDate,
		rec.ChatID,
		rec.Title,
		len(rec.Bookings),
		done,
		noShow,
		fmt.Sprintf("%.2f", totalUSD),
		rec.ArchivedAt.Format("2006-01-02 15:04:05"),
	}
}

func bookingRows(rec *models.ShiftArchiveRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(rec.Bookings))
	for i := range rec.Bookings {
		b := &rec.Bookings[i]
		rows = append(rows, []interface{}{
			rec.BusinessDate,
			rec.ChatID,
			rec.Title,
			b.ID,
			b.Time,
			b.Descriptor,
			string(b.Status),
			textparse.OperatorName(b.Descriptor),
			b.DurationLabel,
		})
	}
	return rows
}
