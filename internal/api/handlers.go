package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"smena/internal/metrics"
	"smena/internal/shiftclock"
)

// parseRange достаёт границы периода из query. Формат дат доменный,
// DD.MM.YYYY; пустой параметр это ошибка.
func parseRange(r *http.Request) (string, string, bool) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		return "", "", false
	}
	if _, err := shiftclock.ParseBusinessDate(from); err != nil {
		return "", "", false
	}
	if _, err := shiftclock.ParseBusinessDate(to); err != nil {
		return "", "", false
	}
	return from, to, true
}

func (s *HTTPServer) handlePeriodReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	from, to, ok := parseRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "from and to are required, format DD.MM.YYYY")
		return
	}

	start := time.Now()
	rep, err := s.reports.PeriodReport(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.ObserveReportDuration("period", time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, rep)
}

func (s *HTTPServer) handleOperatorReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	operator := strings.TrimSpace(r.URL.Query().Get("name"))
	if operator == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	from, to, ok := parseRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "from and to are required, format DD.MM.YYYY")
		return
	}

	start := time.Now()
	rep, err := s.reports.OperatorReport(r.Context(), from, to, operator)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.ObserveReportDuration("operator", time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, rep)
}

func (s *HTTPServer) handleCashReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	chatID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("chat_id")), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}

	from, to, ok := parseRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "from and to are required, format DD.MM.YYYY")
		return
	}

	start := time.Now()
	rep, err := s.reports.ChatCashReport(r.Context(), from, to, chatID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.ObserveReportDuration("cash", time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, rep)
}

func (s *HTTPServer) handleOperatorStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	from, to, ok := parseRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "from and to are required, format DD.MM.YYYY")
		return
	}

	start := time.Now()
	stats, err := s.reports.OperatorStats(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.ObserveReportDuration("stats", time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, map[string]any{"operators": stats})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
