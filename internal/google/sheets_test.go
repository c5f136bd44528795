package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"smena/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(ctx context.Context) (*http.ServeMux, *httptest.Server, *SheetsService) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	srv, _ := sheets.NewService(ctx, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	s := &SheetsService{
		service:       srv,
		spreadsheetID: "sheet_tid",
	}
	return mux, server, s
}

func archiveFixture() *models.ShiftArchiveRecord {
	return &models.ShiftArchiveRecord{
		ChatID:       -100500,
		BusinessDate: "10.03.2025",
		Title:        "Салон",
		Bookings: []models.Booking{
			{ID: 1, Time: "18:30", Descriptor: "Анна 300 лари", DurationLabel: "1ч", Status: models.StatusDone},
			{ID: 2, Time: "20:00", Descriptor: "Вика 100$", Status: models.StatusCancelled},
			{ID: 3, Time: "21:00", Descriptor: "Света 200 лари", Status: models.StatusPending},
		},
		ArchivedAt: time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC),
	}
}

func TestShiftSummaryRow(t *testing.T) {
	row := shiftSummaryRow(archiveFixture(), 211.0)

	assert.Equal(t, "10.03.2025", row[0])
	assert.Equal(t, int64(-100500), row[1])
	assert.Equal(t, "Салон", row[2])
	assert.Equal(t, 3, row[3])
	assert.Equal(t, 1, row[4]) // пришли
	assert.Equal(t, 1, row[5]) // не пришли
	assert.Equal(t, "211.00", row[6])
	assert.Equal(t, "2025-03-11 09:00:00", row[7])
}

func TestBookingRows(t *testing.T) {
	rows := bookingRows(archiveFixture())

	require.Len(t, rows, 3)
	assert.Equal(t, int64(1), rows[0][3])
	assert.Equal(t, "18:30", rows[0][4])
	assert.Equal(t, "Анна 300 лари", rows[0][5])
	assert.Equal(t, string(models.StatusDone), rows[0][6])
	assert.Equal(t, "Анна", rows[0][7])
	assert.Equal(t, "1ч", rows[0][8])
	assert.Equal(t, string(models.StatusCancelled), rows[1][6])
}

func TestSheetsService_TestConnection(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()

	mux.HandleFunc("/v4/spreadsheets/sheet_tid/values/"+shiftsSheet+"!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"дата"}}})
	})

	assert.NoError(t, s.TestConnection(ctx))
}

func TestSheetsService_AppendShiftRows(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()

	var appends []string
	handler := func(w http.ResponseWriter, r *http.Request) {
		var body sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&body)
		appends = append(appends, r.URL.Path)
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{})
	}
	mux.HandleFunc("/v4/spreadsheets/sheet_tid/values/"+shiftsSheet+"!A:A:append", handler)
	mux.HandleFunc("/v4/spreadsheets/sheet_tid/values/"+bookingsSheet+"!A:A:append", handler)

	require.NoError(t, s.AppendShiftRows(ctx, archiveFixture(), 211.0))
	assert.Len(t, appends, 2)
}

func TestAppendShiftRowsNilRecord(t *testing.T) {
	s := &SheetsService{}
	assert.Error(t, s.AppendShiftRows(context.Background(), nil, 0))
}

func TestGetServiceAccountEmail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "creds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"client_email":"bot@project.iam.gserviceaccount.com"}`), 0o600))

	s := &SheetsService{}
	email, err := s.GetServiceAccountEmail(path)
	require.NoError(t, err)
	assert.Equal(t, "bot@project.iam.gserviceaccount.com", email)
}
