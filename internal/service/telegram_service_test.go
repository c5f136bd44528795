package service

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"smena/internal/models"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *mockSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tgbotapi.APIResponse), args.Error(1)
}

func (m *mockSender) GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	args := m.Called(config)
	return args.Get(0).(tgbotapi.Chat), args.Error(1)
}

func (m *mockSender) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	args := m.Called(config)
	return args.Get(0).(tgbotapi.UpdatesChannel)
}

func (m *mockSender) GetSelf() tgbotapi.User {
	args := m.Called()
	return args.Get(0).(tgbotapi.User)
}

func (m *mockSender) StopReceivingUpdates() {
	m.Called()
}

func TestSendHTML(t *testing.T) {
	sender := new(mockSender)
	svc := NewTelegramService(sender)

	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ParseMode == tgbotapi.ModeHTML && msg.Text == "<b>Итоги</b>"
	})).Return(tgbotapi.Message{MessageID: 1}, nil)

	msg, err := svc.SendHTML(-100, "<b>Итоги</b>")
	require.NoError(t, err)
	assert.Equal(t, 1, msg.MessageID)
	sender.AssertExpectations(t)
}

func TestEditMessageWithKeyboard(t *testing.T) {
	sender := new(mockSender)
	svc := NewTelegramService(sender)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Пришла", "done:1")),
	)

	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		_, ok := c.(tgbotapi.EditMessageTextConfig)
		return ok
	})).Return(tgbotapi.Message{MessageID: 2}, nil).Twice()

	_, err := svc.EditMessage(-100, 2, "текст", &keyboard)
	require.NoError(t, err)
	_, err = svc.EditMessage(-100, 2, "текст", nil)
	require.NoError(t, err)
	sender.AssertExpectations(t)
}

func TestDeleteMessage(t *testing.T) {
	sender := new(mockSender)
	svc := NewTelegramService(sender)

	sender.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{Ok: true}, nil)
	assert.NoError(t, svc.DeleteMessage(-100, 5))
	sender.AssertExpectations(t)
}

func TestResolveChatTitle(t *testing.T) {
	sender := new(mockSender)
	svc := NewTelegramService(sender)
	ctx := context.Background()

	t.Run("WithTitle", func(t *testing.T) {
		sender.On("GetChat", mock.Anything).Return(tgbotapi.Chat{Title: "Салон на Руставели"}, nil).Once()

		title, err := svc.ResolveChatTitle(ctx, -100)
		require.NoError(t, err)
		assert.Equal(t, "Салон на Руставели", title)
	})

	t.Run("EmptyTitleFallback", func(t *testing.T) {
		sender.On("GetChat", mock.Anything).Return(tgbotapi.Chat{}, nil).Once()

		title, err := svc.ResolveChatTitle(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultChatTitle, title)
	})

	t.Run("APIError", func(t *testing.T) {
		sender.On("GetChat", mock.Anything).Return(tgbotapi.Chat{}, assert.AnError).Once()

		_, err := svc.ResolveChatTitle(ctx, 43)
		assert.Error(t, err)
	})
}

func TestAnswerCallback(t *testing.T) {
	sender := new(mockSender)
	svc := NewTelegramService(sender)

	sender.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{Ok: true}, nil)
	assert.NoError(t, svc.AnswerCallback("cb-id", "Готово"))
	sender.AssertExpectations(t)
}
