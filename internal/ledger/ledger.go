package ledger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"smena/internal/archive"
	"smena/internal/currency"
	"smena/internal/database"
	"smena/internal/domain"
	"smena/internal/events"
	"smena/internal/models"
	"smena/internal/shiftclock"
	"smena/internal/textparse"

	"github.com/rs/zerolog"
)

// TransitionAction — действие над статусом брони.
type TransitionAction string

const (
	ActionMarkArrived   TransitionAction = "mark_arrived"
	ActionMarkNoShow    TransitionAction = "mark_no_show"
	ActionMarkCancelled TransitionAction = "mark_cancelled"
)

var bookingTimeRe = regexp.MustCompile(`^\d{1,2}:\d{2}$`)

// TitleResolver возвращает человекочитаемое имя чата.
type TitleResolver func(ctx context.Context, chatID int64) (string, error)

// PrivilegeChecker сообщает, входит ли идентификатор в список владельцев.
type PrivilegeChecker func(userID int64) bool

// Ledger — живое состояние смен по чатам. Все мутации одного чата
// сериализуются его мьютексом; переход смены срабатывает ровно один раз
// на пересечение границы.
type Ledger struct {
	store     domain.Store
	archiver  *archive.Archiver
	clock     *shiftclock.Clock
	converter *currency.Converter
	eventBus  domain.EventPublisher
	titles    TitleResolver
	isOwner   PrivilegeChecker
	logger    *zerolog.Logger

	mu    sync.Mutex
	chats map[int64]*sync.Mutex
}

func New(
	store domain.Store,
	archiver *archive.Archiver,
	clock *shiftclock.Clock,
	converter *currency.Converter,
	eventBus domain.EventPublisher,
	titles TitleResolver,
	isOwner PrivilegeChecker,
	logger *zerolog.Logger,
) *Ledger {
	return &Ledger{
		store:     store,
		archiver:  archiver,
		clock:     clock,
		converter: converter,
		eventBus:  eventBus,
		titles:    titles,
		isOwner:   isOwner,
		logger:    logger,
		chats:     make(map[int64]*sync.Mutex),
	}
}

// chatLock возвращает мьютекс чата, создавая его при первом обращении.
func (l *Ledger) chatLock(chatID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.chats[chatID]
	if !ok {
		m = &sync.Mutex{}
		l.chats[chatID] = m
	}
	return m
}

// EnsureShift возвращает актуальную смену чата. Идемпотентна: создаёт
// смену при первом касании, при смене бизнес-даты архивирует непустую
// смену и сбрасывает её на новую дату.
func (l *Ledger) EnsureShift(ctx context.Context, chatID int64) (*models.Shift, error) {
	lock := l.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()
	return l.ensureShiftLocked(ctx, chatID)
}

func (l *Ledger) ensureShiftLocked(ctx context.Context, chatID int64) (*models.Shift, error) {
	currentDate := l.clock.CurrentBusinessDate()
	title := l.resolveTitle(ctx, chatID)

	shift, err := l.store.GetShift(ctx, chatID)
	if errors.Is(err, database.ErrNotFound) {
		shift = &models.Shift{
			ChatID:        chatID,
			BusinessDate:  currentDate,
			Title:         title,
			NextBookingID: 1,
		}
		if err := l.store.CreateShift(ctx, shift); err != nil {
			return nil, err
		}
		return shift, nil
	}
	if err != nil {
		return nil, err
	}

	if shift.BusinessDate != currentDate {
		if shift.HasBookings() {
			if err := l.archiver.ArchiveIfNonEmpty(ctx, shift); err != nil {
				return nil, err
			}
		}
		if err := l.store.ResetShift(ctx, chatID, currentDate, title); err != nil {
			return nil, err
		}
		return l.store.GetShift(ctx, chatID)
	}

	if title != shift.Title {
		if err := l.store.UpdateShiftTitle(ctx, chatID, title); err != nil {
			l.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Не удалось обновить имя чата")
		} else {
			shift.Title = title
		}
	}
	return shift, nil
}

func (l *Ledger) resolveTitle(ctx context.Context, chatID int64) string {
	if l.titles == nil {
		return models.DefaultChatTitle
	}
	title, err := l.titles(ctx, chatID)
	if err != nil || strings.TrimSpace(title) == "" {
		return models.DefaultChatTitle
	}
	return strings.TrimSpace(title)
}

// AddBooking разбирает текст вида "18:30 Анна 300 лари 1ч" и добавляет
// бронь в актуальную смену чата.
func (l *Ledger) AddBooking(ctx context.Context, chatID int64, rawText string, authorID int64) (*models.Booking, error) {
	text := strings.TrimSpace(rawText)
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: нужно время и описание, например «18:30 Анна 1ч»", ErrValidation)
	}

	timePart := fields[0]
	if !bookingTimeRe.MatchString(timePart) {
		return nil, fmt.Errorf("%w: начни с времени HH:MM", ErrValidation)
	}
	if _, err := shiftclock.TimeKey(timePart); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	rest := strings.TrimSpace(text[len(timePart):])
	durationSec, durationLabel := textparse.ExtractDuration(rest)
	if durationSec == 0 {
		durationSec = models.DefaultDurationSec
	}
	descriptor := textparse.StripDurationTokens(rest)
	if descriptor == "" {
		descriptor = models.DefaultDescriptor
	}

	lock := l.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	shift, err := l.ensureShiftLocked(ctx, chatID)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ID:            shift.NextBookingID,
		ChatID:        chatID,
		Time:          timePart,
		Descriptor:    descriptor,
		DurationSec:   durationSec,
		DurationLabel: durationLabel,
		RawText:       text,
		Status:        models.StatusPending,
		AuthorID:      authorID,
		CreatedAt:     l.clock.Now(),
	}
	if err := l.store.InsertBooking(ctx, booking); err != nil {
		return nil, err
	}

	l.publish(events.EventBookingCreated, booking)
	return booking, nil
}

// FindBooking возвращает бронь активной смены по id.
func (l *Ledger) FindBooking(ctx context.Context, chatID, bookingID int64) (*models.Booking, error) {
	shift, err := l.EnsureShift(ctx, chatID)
	if err != nil {
		return nil, err
	}
	b := shift.FindBooking(bookingID)
	if b == nil {
		return nil, fmt.Errorf("бронь %d: %w", bookingID, ErrNotFound)
	}
	return b, nil
}

// Transition выполняет переход статуса брони.
// Deleted — поглощающее состояние: любые дальнейшие переходы запрещены.
func (l *Ledger) Transition(ctx context.Context, chatID, bookingID int64, action TransitionAction, actorID int64) (*models.Booking, error) {
	lock := l.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	shift, err := l.ensureShiftLocked(ctx, chatID)
	if err != nil {
		return nil, err
	}
	booking := shift.FindBooking(bookingID)
	if booking == nil {
		return nil, fmt.Errorf("бронь %d: %w", bookingID, ErrNotFound)
	}
	if err := l.authorize(booking, actorID); err != nil {
		return nil, err
	}
	if booking.Status == models.StatusDeleted {
		return nil, fmt.Errorf("бронь %d удалена: %w", bookingID, ErrInvalidState)
	}

	var event string
	switch action {
	case ActionMarkArrived:
		booking.Status = models.StatusDone
		event = events.EventBookingArrived
	case ActionMarkNoShow:
		booking.Status = models.StatusCancelled
		event = events.EventBookingNoShow
	case ActionMarkCancelled:
		booking.Status = models.StatusDeleted
		event = events.EventBookingDeleted
	default:
		return nil, fmt.Errorf("%w: неизвестное действие %q", ErrValidation, action)
	}

	if err := l.store.UpdateBooking(ctx, booking); err != nil {
		return nil, err
	}

	l.publish(event, booking)
	return booking, nil
}

// EditBooking заново разбирает текст брони. Статус всегда сбрасывается
// в Pending: отметки прихода и отмены снимаются правкой.
func (l *Ledger) EditBooking(ctx context.Context, chatID, bookingID int64, newRawText string, actorID int64) (*models.Booking, error) {
	text := strings.TrimSpace(newRawText)
	fields := strings.Fields(text)
	if len(fields) < 1 || !bookingTimeRe.MatchString(fields[0]) {
		return nil, fmt.Errorf("%w: начни с времени HH:MM", ErrValidation)
	}
	if _, err := shiftclock.TimeKey(fields[0]); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	lock := l.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	shift, err := l.ensureShiftLocked(ctx, chatID)
	if err != nil {
		return nil, err
	}
	booking := shift.FindBooking(bookingID)
	if booking == nil {
		return nil, fmt.Errorf("бронь %d: %w", bookingID, ErrNotFound)
	}
	if err := l.authorize(booking, actorID); err != nil {
		return nil, err
	}

	timePart := fields[0]
	rest := strings.TrimSpace(text[len(timePart):])
	durationSec, durationLabel := textparse.ExtractDuration(rest)
	if durationSec == 0 {
		durationSec = models.DefaultDurationSec
	}
	descriptor := textparse.StripDurationTokens(rest)
	if descriptor == "" {
		descriptor = models.DefaultDescriptor
	}

	booking.Time = timePart
	booking.Descriptor = descriptor
	booking.DurationSec = durationSec
	booking.DurationLabel = durationLabel
	booking.RawText = text
	booking.Status = models.StatusPending

	if err := l.store.UpdateBooking(ctx, booking); err != nil {
		return nil, err
	}

	l.publish(events.EventBookingEdited, booking)
	return booking, nil
}

// SetReplyMessage привязывает к брони id персонального сообщения с кнопками.
func (l *Ledger) SetReplyMessage(ctx context.Context, chatID, bookingID int64, messageID int) error {
	lock := l.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	shift, err := l.store.GetShift(ctx, chatID)
	if err != nil {
		return err
	}
	booking := shift.FindBooking(bookingID)
	if booking == nil {
		return fmt.Errorf("бронь %d: %w", bookingID, ErrNotFound)
	}
	booking.ReplyMessageID = messageID
	return l.store.UpdateBooking(ctx, booking)
}

// SetBoardMessage запоминает сообщение-табло чата.
func (l *Ledger) SetBoardMessage(ctx context.Context, chatID int64, messageID int) error {
	return l.store.UpdateBoardMessage(ctx, chatID, messageID)
}

// AddExpense добавляет расход. Только для владельцев. Сумма в долларах
// фиксируется по курсу на момент ввода и больше не пересчитывается.
func (l *Ledger) AddExpense(ctx context.Context, chatID int64, expType string, amount float64, cur models.Currency, comment string, actorID int64) (*models.Expense, error) {
	if l.isOwner == nil || !l.isOwner(actorID) {
		return nil, fmt.Errorf("расходы добавляют только владельцы: %w", ErrUnauthorized)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: сумма должна быть положительным числом", ErrValidation)
	}
	if strings.TrimSpace(expType) == "" {
		return nil, fmt.Errorf("%w: укажи тип расхода", ErrValidation)
	}

	lock := l.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	shift, err := l.ensureShiftLocked(ctx, chatID)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		ChatID:    chatID,
		Date:      shift.BusinessDate,
		Type:      capitalize(expType),
		Amount:    amount,
		Currency:  cur,
		AmountUSD: l.converter.ToUSD(amount, cur),
		Comment:   strings.TrimSpace(comment),
		AuthorID:  actorID,
		CreatedAt: l.clock.Now(),
	}
	if err := l.store.InsertExpense(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

// ResetShiftManually сбрасывает смену по команде владельца без архивации
// (поведение /new_shift: текущие брони отбрасываются).
func (l *Ledger) ResetShiftManually(ctx context.Context, chatID int64, actorID int64) (*models.Shift, error) {
	if l.isOwner == nil || !l.isOwner(actorID) {
		return nil, fmt.Errorf("смену сбрасывают только владельцы: %w", ErrUnauthorized)
	}

	lock := l.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := l.ensureShiftLocked(ctx, chatID); err != nil {
		return nil, err
	}
	if err := l.store.ResetShift(ctx, chatID, l.clock.CurrentBusinessDate(), l.resolveTitle(ctx, chatID)); err != nil {
		return nil, err
	}
	return l.store.GetShift(ctx, chatID)
}

func (l *Ledger) authorize(b *models.Booking, actorID int64) error {
	if actorID == b.AuthorID {
		return nil
	}
	if l.isOwner != nil && l.isOwner(actorID) {
		return nil
	}
	return fmt.Errorf("бронь принадлежит другому пользователю: %w", ErrUnauthorized)
}

func (l *Ledger) publish(eventType string, booking *models.Booking) {
	if l.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		ChatID:      booking.ChatID,
		BookingID:   booking.ID,
		Time:        booking.Time,
		Descriptor:  booking.Descriptor,
		DurationSec: booking.DurationSec,
		Status:      string(booking.Status),
		AuthorID:    booking.AuthorID,
	}
	if err := l.eventBus.PublishJSON(eventType, payload); err != nil {
		l.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

// SortBookings сортирует брони по времени с переносом раннего утра;
// сортировка стабильная, при равном времени решает порядок вставки.
func SortBookings(bookings []models.Booking) []models.Booking {
	type keyed struct {
		booking models.Booking
		key     int
	}
	items := make([]keyed, len(bookings))
	for i, b := range bookings {
		k, err := shiftclock.TimeKey(b.Time)
		if err != nil {
			k = 0
		}
		items[i] = keyed{booking: b, key: k}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].key < items[j].key })
	sorted := make([]models.Booking, len(items))
	for i, it := range items {
		sorted[i] = it.booking
	}
	return sorted
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	runes := []rune(s)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
