package worker

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"smena/internal/domain"
	"smena/internal/events"

	"github.com/rs/zerolog"
)

type timerKey struct {
	chatID    int64
	bookingID int64
}

// TimerManager держит таймеры окончания сеансов. Таймер взводится
// при отметке прихода и снимается при отмене, удалении или
// редактировании записи.
type TimerManager struct {
	telegram domain.TelegramService
	logger   *zerolog.Logger

	mu     sync.Mutex
	timers map[timerKey]*time.Timer
}

func NewTimerManager(telegram domain.TelegramService, logger *zerolog.Logger) *TimerManager {
	return &TimerManager{
		telegram: telegram,
		logger:   logger,
		timers:   make(map[timerKey]*time.Timer),
	}
}

// Bind подписывает менеджер на события записей.
func (m *TimerManager) Bind(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingArrived, m.onArrived)
	bus.Subscribe(events.EventBookingNoShow, m.onCancelled)
	bus.Subscribe(events.EventBookingDeleted, m.onCancelled)
	bus.Subscribe(events.EventBookingEdited, m.onCancelled)
}

func (m *TimerManager) onArrived(evt *events.Event) error {
	var payload events.BookingEventPayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		m.logger.Error().Err(err).Msg("Не удалось декодировать событие прихода")
		return err
	}
	duration := time.Duration(payload.DurationSec) * time.Second
	if duration <= 0 {
		return nil
	}
	m.Schedule(payload.ChatID, payload.BookingID, payload.Time, payload.Descriptor, duration)
	return nil
}

func (m *TimerManager) onCancelled(evt *events.Event) error {
	var payload events.BookingEventPayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		m.logger.Error().Err(err).Msg("Не удалось декодировать событие записи")
		return err
	}
	m.Cancel(payload.ChatID, payload.BookingID)
	return nil
}

// Schedule взводит таймер окончания сеанса, заменяя существующий.
func (m *TimerManager) Schedule(chatID, bookingID int64, timeStr, descriptor string, duration time.Duration) {
	key := timerKey{chatID: chatID, bookingID: bookingID}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.timers[key]; ok {
		old.Stop()
	}

	m.timers[key] = time.AfterFunc(duration, func() {
		m.fire(key, timeStr, descriptor)
	})

	m.logger.Debug().
		Int64("chat_id", chatID).
		Int64("booking_id", bookingID).
		Dur("duration", duration).
		Msg("Таймер окончания сеанса взведён")
}

// Cancel снимает таймер, если он был взведён.
func (m *TimerManager) Cancel(chatID, bookingID int64) {
	key := timerKey{chatID: chatID, bookingID: bookingID}

	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.timers[key]; ok {
		t.Stop()
		delete(m.timers, key)
		m.logger.Debug().
			Int64("chat_id", chatID).
			Int64("booking_id", bookingID).
			Msg("Таймер окончания сеанса снят")
	}
}

func (m *TimerManager) fire(key timerKey, timeStr, descriptor string) {
	m.mu.Lock()
	delete(m.timers, key)
	m.mu.Unlock()

	text := fmt.Sprintf("⏰ Время вышло: %s %s", timeStr, descriptor)
	if _, err := m.telegram.SendMessage(key.chatID, text); err != nil {
		m.logger.Error().Err(err).
			Int64("chat_id", key.chatID).
			Msg("Не удалось отправить уведомление об окончании сеанса")
	}
}

// StopAll снимает все таймеры при остановке бота.
func (m *TimerManager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, t := range m.timers {
		t.Stop()
		delete(m.timers, key)
	}
}
