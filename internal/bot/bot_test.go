package bot

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"smena/internal/archive"
	"smena/internal/config"
	"smena/internal/currency"
	"smena/internal/database"
	"smena/internal/domain"
	"smena/internal/events"
	"smena/internal/ledger"
	"smena/internal/models"
	"smena/internal/report"
	"smena/internal/repository"
	"smena/internal/service"
	"smena/internal/shiftclock"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testChatID = int64(-100500)
	testAuthor = int64(42)
	testOwner  = int64(1)
)

type sentMessage struct {
	chatID int64
	text   string
}

// mockTelegram перехватывает исходящие сообщения, остальные методы
// берутся из встроенного интерфейса и падают при вызове.
type mockTelegram struct {
	domain.TelegramService

	sent          []sentMessage
	edited        []sentMessage
	answers       []string
	markupEdits   []int
	deleted       []int
	nextMessageID int
}

func (m *mockTelegram) nextID() int {
	m.nextMessageID++
	return m.nextMessageID
}

func (m *mockTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, sentMessage{chatID: msg.ChatID, text: msg.Text})
	}
	return tgbotapi.Message{MessageID: m.nextID()}, nil
}

func (m *mockTelegram) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text})
	return tgbotapi.Message{MessageID: m.nextID()}, nil
}

func (m *mockTelegram) SendHTML(chatID int64, text string) (tgbotapi.Message, error) {
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text})
	return tgbotapi.Message{MessageID: m.nextID()}, nil
}

func (m *mockTelegram) SendWithInlineKeyboard(chatID int64, text string, _ tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text})
	return tgbotapi.Message{MessageID: m.nextID()}, nil
}

func (m *mockTelegram) EditMessage(chatID int64, messageID int, text string, _ *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	m.edited = append(m.edited, sentMessage{chatID: chatID, text: text})
	return tgbotapi.Message{MessageID: messageID}, nil
}

func (m *mockTelegram) EditReplyMarkup(_ int64, messageID int, _ *tgbotapi.InlineKeyboardMarkup) error {
	m.markupEdits = append(m.markupEdits, messageID)
	return nil
}

func (m *mockTelegram) DeleteMessage(_ int64, messageID int) error {
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *mockTelegram) AnswerCallback(_ string, text string) error {
	m.answers = append(m.answers, text)
	return nil
}

func (m *mockTelegram) lastText() string {
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].text
}

func (m *mockTelegram) allTexts() string {
	var sb strings.Builder
	for _, s := range m.sent {
		sb.WriteString(s.text + "\n")
	}
	return sb.String()
}

type botEnv struct {
	bot *Bot
	tg  *mockTelegram
	now *time.Time
}

func newBotEnv(t *testing.T) *botEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)

	store, err := database.NewDB(filepath.Join(t.TempDir(), "smena.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	env := &botEnv{tg: &mockTelegram{}, now: &now}

	clock := shiftclock.NewWithNow(func() time.Time { return *env.now })
	converter := currency.NewConverter(nil, store, &logger)
	bus := events.NewEventBus()
	archiver := archive.New(store, bus, nil, clock, 90, &logger)

	cfg := &config.Config{
		Owners:       []int64{testOwner},
		AllowedChats: []int64{testChatID},
		Exports:      config.ExportConfig{Path: t.TempDir()},
	}

	shiftLedger := ledger.New(
		store, archiver, clock, converter, bus,
		func(ctx context.Context, chatID int64) (string, error) { return "Салон", nil },
		func(userID int64) bool { return userID == testOwner },
		&logger,
	)

	state := service.NewStateService(repository.NewMemoryStateRepository(time.Hour), &logger)
	settings := service.NewSettingsService(store, &logger)
	reports := report.NewGenerator(store, converter, nil, &logger)

	env.bot = NewBot(env.tg, cfg, shiftLedger, reports, state, settings, converter, clock, nil, &logger)
	return env
}

func textMessage(chatID, userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 500,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}
}

func commandMessage(chatID, userID int64, text string) *tgbotapi.Message {
	msg := textMessage(chatID, userID, text)
	cmdLen := len(text)
	if i := strings.Index(text, " "); i != -1 {
		cmdLen = i
	}
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}}
	return msg
}

func callbackUpdate(chatID, userID int64, data string, messageID int) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		From: &tgbotapi.User{ID: userID},
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: messageID,
			Chat:      &tgbotapi.Chat{ID: chatID},
		},
	}}
}

func TestBoardTextEmptyShift(t *testing.T) {
	shift := &models.Shift{BusinessDate: "10.03.2025", Title: "Салон"}

	text := boardText(shift)

	assert.Contains(t, text, "<b>Брони на 10.03.2025 — Салон (смена)</b>")
	assert.Contains(t, text, "<i>Пока нет броней</i>")
}

func TestBoardTextStatuses(t *testing.T) {
	shift := &models.Shift{
		BusinessDate: "10.03.2025",
		Title:        "Салон",
		Bookings: []models.Booking{
			{ID: 1, Time: "12:00", Descriptor: "Анна", DurationLabel: "1ч", Status: models.StatusDone},
			{ID: 2, Time: "14:00", Descriptor: "Иван", DurationLabel: "30мин", Status: models.StatusCancelled},
			{ID: 3, Time: "16:00", Descriptor: "Мария", DurationLabel: "2ч", Status: models.StatusDeleted},
			{ID: 4, Time: "18:00", Descriptor: "Оля", DurationLabel: "1ч", Status: models.StatusPending},
		},
	}

	text := boardText(shift)

	assert.Contains(t, text, "1. 12:00 — Анна (1ч) Пришёл")
	assert.Contains(t, text, "<s>2. 14:00 — Иван (30мин) Не пришёл</s>")
	assert.Contains(t, text, "<s>3. 16:00 — Мария (2ч) Отменено</s>")
	assert.Contains(t, text, "4. 18:00 — Оля (1ч)")
	assert.NotContains(t, text, "Оля (1ч) Пришёл")
}

func TestBoardTextEscapesHTML(t *testing.T) {
	shift := &models.Shift{
		BusinessDate: "10.03.2025",
		Title:        "Салон <x>",
		Bookings: []models.Booking{
			{ID: 1, Time: "12:00", Descriptor: "Анна <b>", DurationLabel: "1ч", Status: models.StatusPending},
		},
	}

	text := boardText(shift)

	assert.Contains(t, text, "Салон &lt;x&gt;")
	assert.Contains(t, text, "Анна &lt;b&gt;")
}

func TestPersonalKeyboardProgression(t *testing.T) {
	kb := personalKeyboard(7, models.StatusPending)
	require.NotNil(t, kb)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Len(t, kb.InlineKeyboard[0], 2)
	assert.Equal(t, "done:7", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "cancel:7", *kb.InlineKeyboard[0][1].CallbackData)
	assert.Equal(t, "delete:7", *kb.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "edit:7", *kb.InlineKeyboard[1][1].CallbackData)

	// у "не пришёл" нет повторной кнопки
	kb = personalKeyboard(7, models.StatusCancelled)
	require.NotNil(t, kb)
	assert.Len(t, kb.InlineKeyboard[0], 1)

	assert.Nil(t, personalKeyboard(7, models.StatusDeleted))
}

func TestAddBookingSendsConfirmationAndBoard(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	env.bot.handleMessage(ctx, tgbotapi.Update{Message: textMessage(testChatID, testAuthor, "18:30 Анна 300 лари 1ч")})

	all := env.tg.allTexts()
	assert.Contains(t, all, "Добавлено!\n1. 18:30 — Анна 300 лари (1ч)")
	assert.Contains(t, all, "Брони на 10.03.2025")

	shift, err := env.bot.ledger.EnsureShift(ctx, testChatID)
	require.NoError(t, err)
	require.Len(t, shift.Bookings, 1)
	assert.NotZero(t, shift.Bookings[0].ReplyMessageID)
}

func TestAddBookingIgnoresPlainText(t *testing.T) {
	env := newBotEnv(t)

	env.bot.handleMessage(context.Background(), tgbotapi.Update{Message: textMessage(testChatID, testAuthor, "просто болтаем")})

	assert.Empty(t, env.tg.sent)
}

func TestAddBookingRejectsForeignChat(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	env.bot.handleMessage(ctx, tgbotapi.Update{Message: textMessage(777, testAuthor, "18:30 Анна 1ч")})

	assert.Empty(t, env.tg.sent)
}

func TestCallbackMarksArrived(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	booking, err := env.bot.ledger.AddBooking(ctx, testChatID, "18:30 Анна 300 лари 1ч", testAuthor)
	require.NoError(t, err)
	require.NoError(t, env.bot.ledger.SetReplyMessage(ctx, testChatID, booking.ID, 600))

	env.bot.handleCallbackQuery(ctx, callbackUpdate(testChatID, testAuthor, "done:1", 600))

	updated, err := env.bot.ledger.FindBooking(ctx, testChatID, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, updated.Status)
	assert.Contains(t, env.tg.answers, "Клиент пришёл — таймер запущен!")
	assert.Contains(t, env.tg.markupEdits, 600)
}

func TestCallbackRejectsForeignUser(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	booking, err := env.bot.ledger.AddBooking(ctx, testChatID, "18:30 Анна 1ч", testAuthor)
	require.NoError(t, err)

	env.bot.handleCallbackQuery(ctx, callbackUpdate(testChatID, 99, "done:1", 600))

	updated, err := env.bot.ledger.FindBooking(ctx, testChatID, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)
	assert.Contains(t, env.tg.answers, "Это не твоя бронь!")
}

func TestCallbackUnknownBooking(t *testing.T) {
	env := newBotEnv(t)

	env.bot.handleCallbackQuery(context.Background(), callbackUpdate(testChatID, testAuthor, "done:404", 600))

	assert.Contains(t, env.tg.answers, "Бронь не найдена.")
}

func TestEditFlow(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	booking, err := env.bot.ledger.AddBooking(ctx, testChatID, "18:30 Анна 1ч", testAuthor)
	require.NoError(t, err)

	env.bot.handleCallbackQuery(ctx, callbackUpdate(testChatID, testAuthor, "edit:1", 600))
	assert.Contains(t, env.tg.lastText(), "Редактируй бронь:")

	pending, err := env.bot.state.PendingEdit(ctx, testAuthor)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, booking.ID, pending.BookingID)

	env.bot.handleMessage(ctx, tgbotapi.Update{Message: textMessage(testChatID, testAuthor, "19:00 Анна 2ч")})

	updated, err := env.bot.ledger.FindBooking(ctx, testChatID, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "19:00", updated.Time)
	assert.Equal(t, "2ч", updated.DurationLabel)

	pending, err = env.bot.state.PendingEdit(ctx, testAuthor)
	require.NoError(t, err)
	assert.Nil(t, pending)
	assert.Contains(t, env.tg.allTexts(), "Бронь обновлена!")
}

func TestEditFlowRequiresTimePrefix(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	_, err := env.bot.ledger.AddBooking(ctx, testChatID, "18:30 Анна 1ч", testAuthor)
	require.NoError(t, err)
	env.bot.handleCallbackQuery(ctx, callbackUpdate(testChatID, testAuthor, "edit:1", 600))

	env.bot.handleMessage(ctx, tgbotapi.Update{Message: textMessage(testChatID, testAuthor, "без времени")})

	assert.Contains(t, env.tg.lastText(), "Начни с времени")

	// состояние не сброшено, можно прислать корректный текст
	pending, err := env.bot.state.PendingEdit(ctx, testAuthor)
	require.NoError(t, err)
	assert.NotNil(t, pending)
}

func TestCancelEditCallback(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	_, err := env.bot.ledger.AddBooking(ctx, testChatID, "18:30 Анна 1ч", testAuthor)
	require.NoError(t, err)
	env.bot.handleCallbackQuery(ctx, callbackUpdate(testChatID, testAuthor, "edit:1", 600))

	env.bot.handleCallbackQuery(ctx, callbackUpdate(testChatID, testAuthor, "cancel_edit", 601))

	pending, err := env.bot.state.PendingEdit(ctx, testAuthor)
	require.NoError(t, err)
	assert.Nil(t, pending)
	assert.Contains(t, env.tg.answers, "Редактирование отменено")
}

func TestOwnerOnlyCommands(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	for _, cmd := range []string{"/summary", "/expense еда 10", "/new_shift", "/report 01.03-10.03", "/setrate лари 0.38"} {
		env.tg.sent = nil
		env.bot.handleCommand(ctx, commandMessage(testChatID, testAuthor, cmd))
		assert.Equal(t, "Ты не владелец", env.tg.lastText(), cmd)
	}
}

func TestCmdExpense(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	env.bot.handleCommand(ctx, commandMessage(testChatID, testOwner, "/expense квартира 100 лари за месяц"))

	// 100 лари по запасному курсу 0.37
	// тип расхода выводится с заглавной буквы
	assert.Contains(t, env.tg.lastText(), "Добавлен расход: Квартира 37.00 USD")
	assert.Contains(t, env.tg.lastText(), "за месяц")

	shift, err := env.bot.ledger.EnsureShift(ctx, testChatID)
	require.NoError(t, err)
	require.Len(t, shift.Expenses, 1)
	assert.Equal(t, models.CurrencyLari, shift.Expenses[0].Currency)
}

func TestCmdExpenseUsage(t *testing.T) {
	env := newBotEnv(t)

	env.bot.handleCommand(context.Background(), commandMessage(testChatID, testOwner, "/expense"))

	assert.Contains(t, env.tg.lastText(), "Использование: /expense")
}

func TestCmdNewShift(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	_, err := env.bot.ledger.AddBooking(ctx, testChatID, "18:30 Анна 1ч", testAuthor)
	require.NoError(t, err)

	env.bot.handleCommand(ctx, commandMessage(testChatID, testOwner, "/new_shift"))

	assert.Contains(t, env.tg.allTexts(), "Смена сброшена вручную!")
	shift, err := env.bot.ledger.EnsureShift(ctx, testChatID)
	require.NoError(t, err)
	assert.Empty(t, shift.Bookings)
}

func TestCmdSetRate(t *testing.T) {
	env := newBotEnv(t)

	env.bot.handleCommand(context.Background(), commandMessage(testChatID, testOwner, "/setrate лари 0.40"))

	assert.Contains(t, env.tg.lastText(), "Курс Лари установлен: 0.4000 USD")
	assert.InDelta(t, 0.40, env.bot.converter.Snapshot().Rate(models.CurrencyLari), 1e-9)
}

func TestCmdSetPercent(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	env.bot.handleCommand(ctx, commandMessage(testChatID, testOwner, "/setpercent Анна 15"))

	assert.Contains(t, env.tg.lastText(), "Процент для Анна: 15%")
	settings, err := env.bot.settings.Get(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.15, settings.SalaryPercent["Анна"], 1e-9)
}

func TestSummarySentToOwners(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	booking, err := env.bot.ledger.AddBooking(ctx, testChatID, "18:30 Анна 300 лари 1ч", testAuthor)
	require.NoError(t, err)
	_, err = env.bot.ledger.Transition(ctx, testChatID, booking.ID, ledger.ActionMarkArrived, testAuthor)
	require.NoError(t, err)

	env.bot.handleCommand(ctx, commandMessage(testChatID, testOwner, "/summary"))

	var ownerText string
	for _, s := range env.tg.sent {
		if s.chatID == testOwner {
			ownerText = s.text
		}
	}
	require.NotEmpty(t, ownerText)
	assert.Contains(t, ownerText, "Общие итоги смены:")
	assert.Contains(t, ownerText, "Лари: 300 (на двоих: 150)")
	assert.Contains(t, ownerText, "Общая выручка: 111.00 USD")
	assert.Contains(t, ownerText, "На двоих: 55.50 USD")
	assert.Contains(t, ownerText, "ЗП операторам (от полной суммы):")
	assert.Contains(t, ownerText, "Анна: 11.10 USD (10%)")
	assert.Equal(t, "Проверь личку!", env.tg.lastText())
}

func TestSummaryShowsExpensesWithoutDeducting(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	booking, err := env.bot.ledger.AddBooking(ctx, testChatID, "18:30 Анна 100 долларов 1ч", testAuthor)
	require.NoError(t, err)
	_, err = env.bot.ledger.Transition(ctx, testChatID, booking.ID, ledger.ActionMarkArrived, testAuthor)
	require.NoError(t, err)
	_, err = env.bot.ledger.AddExpense(ctx, testChatID, "такси", 20, models.CurrencyUSD, "", testOwner)
	require.NoError(t, err)

	text, err := env.bot.shiftSummaryText(ctx, testChatID)
	require.NoError(t, err)

	assert.Contains(t, text, "Расходы за смену:")
	assert.Contains(t, text, "Такси: 20.00 USD")
	assert.Contains(t, text, "Итого расходов: 20.00 USD")
	// расходы только показываются
	assert.Contains(t, text, "Общая выручка: 100.00 USD")
}

func TestParseCurrencyToken(t *testing.T) {
	cases := map[string]models.Currency{
		"лари":    models.CurrencyLari,
		"GEL":     models.CurrencyLari,
		"$":       models.CurrencyUSD,
		"доллары": models.CurrencyUSD,
		"евро":    models.CurrencyEuro,
		"usdt":    models.CurrencyCrypto,
		"драм":    models.CurrencyDram,
	}
	for token, want := range cases {
		got, ok := parseCurrencyToken(token)
		require.True(t, ok, token)
		assert.Equal(t, want, got, token)
	}

	_, ok := parseCurrencyToken("рубль")
	assert.False(t, ok)
}

func TestHelpCommand(t *testing.T) {
	env := newBotEnv(t)

	env.bot.handleCommand(context.Background(), commandMessage(testChatID, testAuthor, "/help"))

	assert.Contains(t, env.tg.lastText(), "/summary")
}

func TestIsAllowedChatEmptyListAllowsAll(t *testing.T) {
	env := newBotEnv(t)

	env.bot.config.AllowedChats = nil
	assert.True(t, env.bot.isAllowedChat(777))

	env.bot.config.AllowedChats = []int64{testChatID}
	assert.True(t, env.bot.isAllowedChat(testChatID))
	assert.False(t, env.bot.isAllowedChat(777))
}
