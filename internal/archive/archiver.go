package archive

import (
	"context"

	"smena/internal/domain"
	"smena/internal/events"
	"smena/internal/metrics"
	"smena/internal/models"
	"smena/internal/shiftclock"

	"github.com/rs/zerolog"
)

// Archiver переносит закрытые смены в архив и обслуживает его срок хранения.
// Архивная запись всегда выигрывает у живой смены той же даты: повторная
// архивация на ту же пару (чат, дата) не создаёт дубликат.
type Archiver struct {
	store         domain.Store
	eventBus      domain.EventPublisher
	syncWorker    domain.SyncWorker
	clock         *shiftclock.Clock
	retentionDays int
	logger        *zerolog.Logger
}

func New(store domain.Store, eventBus domain.EventPublisher, syncWorker domain.SyncWorker, clock *shiftclock.Clock, retentionDays int, logger *zerolog.Logger) *Archiver {
	if retentionDays <= 0 {
		retentionDays = models.ArchiveRetentionDays
	}
	return &Archiver{
		store:         store,
		eventBus:      eventBus,
		syncWorker:    syncWorker,
		clock:         clock,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// ArchiveIfNonEmpty сохраняет снимок смены в архив. Пустые смены
// пропускаются, уже заархивированная дата не перезаписывается.
func (a *Archiver) ArchiveIfNonEmpty(ctx context.Context, shift *models.Shift) error {
	if !shift.HasBookings() {
		a.logger.Debug().
			Int64("chat_id", shift.ChatID).
			Str("business_date", shift.BusinessDate).
			Msg("Смена пустая, архив не нужен")
		return nil
	}

	exists, err := a.store.HasArchiveRecord(ctx, shift.ChatID, shift.BusinessDate)
	if err != nil {
		return err
	}
	if exists {
		a.logger.Warn().
			Int64("chat_id", shift.ChatID).
			Str("business_date", shift.BusinessDate).
			Msg("Дата уже в архиве, повторная запись пропущена")
		return nil
	}

	rec := &models.ShiftArchiveRecord{
		ChatID:       shift.ChatID,
		BusinessDate: shift.BusinessDate,
		Title:        shift.Title,
		Bookings:     append([]models.Booking(nil), shift.Bookings...),
		Expenses:     append([]models.Expense(nil), shift.Expenses...),
		ArchivedAt:   a.clock.Now(),
	}
	if err := a.store.InsertArchiveRecord(ctx, rec); err != nil {
		return err
	}
	metrics.IncShiftArchived()

	a.logger.Info().
		Int64("chat_id", rec.ChatID).
		Str("business_date", rec.BusinessDate).
		Int("bookings", len(rec.Bookings)).
		Msg("Смена заархивирована")

	if a.eventBus != nil {
		payload := events.ShiftEventPayload{
			ChatID:       rec.ChatID,
			BusinessDate: rec.BusinessDate,
			Title:        rec.Title,
			Bookings:     len(rec.Bookings),
		}
		if err := a.eventBus.PublishJSON(events.EventShiftArchived, payload); err != nil {
			a.logger.Error().Err(err).Msg("publish event error")
		}
	}

	if a.syncWorker != nil {
		if err := a.syncWorker.EnqueueShift(ctx, rec); err != nil {
			a.logger.Error().Err(err).
				Int64("chat_id", rec.ChatID).
				Msg("Не удалось поставить смену в очередь синхронизации")
		}
	}
	return nil
}

// Range возвращает архивные записи за включительный интервал дат.
func (a *Archiver) Range(ctx context.Context, dateFrom, dateTo string) ([]models.ShiftArchiveRecord, error) {
	return a.store.GetArchiveByDateRange(ctx, dateFrom, dateTo)
}

// Prune удаляет записи старше срока хранения, возвращает число удалённых.
func (a *Archiver) Prune(ctx context.Context) (int64, error) {
	cutoff := a.clock.Now().AddDate(0, 0, -a.retentionDays)
	removed, err := a.store.PruneArchive(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		a.logger.Info().
			Int64("removed", removed).
			Time("cutoff", cutoff).
			Msg("Старые архивные записи удалены")
	}
	return removed, nil
}
