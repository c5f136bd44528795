package service

import (
	"context"
	"time"

	"smena/internal/domain"
	"smena/internal/models"

	"github.com/rs/zerolog"
)

// StateService ведёт диалоги редактирования: после нажатия «Редактировать»
// от пользователя ждут новый текст брони. Состояние живёт в хранилище
// с TTL, брошенный диалог истекает сам.
type StateService struct {
	stateRepo domain.StateRepository
	logger    *zerolog.Logger
}

func NewStateService(stateRepo domain.StateRepository, logger *zerolog.Logger) *StateService {
	return &StateService{
		stateRepo: stateRepo,
		logger:    logger,
	}
}

// StartEdit начинает диалог редактирования брони. Новый диалог вытесняет
// предыдущий: у пользователя одно активное редактирование.
func (s *StateService) StartEdit(ctx context.Context, userID, chatID, bookingID int64, promptMessageID int) error {
	state := &models.EditState{
		UserID:          userID,
		ChatID:          chatID,
		BookingID:       bookingID,
		PromptMessageID: promptMessageID,
		StartedAt:       time.Now(),
	}
	return s.stateRepo.SetState(ctx, state)
}

// PendingEdit возвращает активный диалог пользователя или nil.
func (s *StateService) PendingEdit(ctx context.Context, userID int64) (*models.EditState, error) {
	state, err := s.stateRepo.GetState(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get edit state")
		return nil, err
	}
	return state, nil
}

// FinishEdit завершает диалог после принятия нового текста или отмены.
func (s *StateService) FinishEdit(ctx context.Context, userID int64) error {
	return s.stateRepo.ClearState(ctx, userID)
}

// CheckRateLimit ограничивает частоту действий пользователя.
func (s *StateService) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	allowed, err := s.stateRepo.CheckRateLimit(ctx, userID, limit, window)
	if err != nil {
		// при сбое лимитера не блокируем пользователей
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to check rate limit")
		return true, nil
	}
	return allowed, nil
}
