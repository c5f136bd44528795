package shiftclock

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"smena/internal/models"
)

// Clock вычисляет бизнес-дату по правилу границы 09:00.
// Правило одно на всю систему: создание брони, проверка перехода смены
// и разбор дат отчётов обязаны считать дату одинаково.
type Clock struct {
	now func() time.Time
}

func New() *Clock {
	return &Clock{now: time.Now}
}

// NewWithNow используется в тестах для подмены источника времени.
func NewWithNow(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// BusinessDateFor возвращает бизнес-дату момента: до 09:00 местного
// времени момент относится к предыдущему календарному дню.
func (c *Clock) BusinessDateFor(t time.Time) string {
	if t.Hour() < models.ShiftCutoffHour {
		t = t.AddDate(0, 0, -1)
	}
	return t.Format(models.BusinessDateLayout)
}

// CurrentBusinessDate — бизнес-дата текущего момента.
func (c *Clock) CurrentBusinessDate() string {
	return c.BusinessDateFor(c.now())
}

// Now отдаёт текущий момент по источнику времени часов.
func (c *Clock) Now() time.Time {
	return c.now()
}

// TimeKey — ключ сортировки времени "HH:MM" с переносом раннего утра:
// часы до 09:00 относятся к концу смены, поэтому 00:30 стоит после 23:50.
func TimeKey(hhmm string) (int, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("некорректное время %q, ожидается HH:MM", hhmm)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("некорректный час в %q", hhmm)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("некорректные минуты в %q", hhmm)
	}

	minutes := hh*60 + mm
	if hh < models.ShiftCutoffHour {
		minutes += 24 * 60
	}
	return minutes, nil
}

// ParseBusinessDate разбирает дату в формате бизнес-даты.
func ParseBusinessDate(s string) (time.Time, error) {
	t, err := time.Parse(models.BusinessDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("не удалось разобрать дату %q, ожидается DD.MM.YYYY", s)
	}
	return t, nil
}

// ParseDateRange разбирает период "DD.MM-DD.MM" или "DD.MM.YYYY-DD.MM.YYYY".
// Для короткой формы год берётся текущий (по бизнес-дате часов).
func (c *Clock) ParseDateRange(s string) (time.Time, time.Time, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("не удалось разобрать период %q, ожидается DD.MM-DD.MM", s)
	}

	from, err := c.parseOneDate(strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := c.parseOneDate(strings.TrimSpace(parts[1]))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("период %q: конец раньше начала", s)
	}
	return from, to, nil
}

func (c *Clock) parseOneDate(s string) (time.Time, error) {
	if t, err := time.Parse(models.BusinessDateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("02.01", s); err == nil {
		year := c.now().Year()
		return time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("не удалось разобрать дату %q, ожидается DD.MM или DD.MM.YYYY", s)
}
