package service

import (
	"context"
	"fmt"

	"smena/internal/domain"
	"smena/internal/models"

	"github.com/rs/zerolog"
)

// SettingsService — административные мутации настроек: ручные курсы и
// проценты комиссий. Каждая мутация сразу персистится.
type SettingsService struct {
	store  domain.Store
	logger *zerolog.Logger
}

func NewSettingsService(store domain.Store, logger *zerolog.Logger) *SettingsService {
	return &SettingsService{
		store:  store,
		logger: logger,
	}
}

// Get возвращает текущие настройки.
func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	return s.store.GetSettings(ctx)
}

// SetRate устанавливает ручной курс валюты к доллару. Нулевое значение
// снимает переопределение, возвращая управление провайдеру.
func (s *SettingsService) SetRate(ctx context.Context, cur models.Currency, rate float64) error {
	if cur == models.CurrencyUSD || cur == models.CurrencyCrypto {
		return fmt.Errorf("курс %s фиксирован и не настраивается", cur)
	}
	if rate < 0 {
		return fmt.Errorf("курс не может быть отрицательным")
	}

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return err
	}
	if settings.Rates == nil {
		settings.Rates = make(map[models.Currency]float64)
	}
	if rate == 0 {
		delete(settings.Rates, cur)
	} else {
		settings.Rates[cur] = rate
	}

	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return err
	}
	s.logger.Info().Str("currency", string(cur)).Float64("rate", rate).Msg("Ручной курс обновлён")
	return nil
}

// SetSalaryPercent задаёт персональный процент комиссии оператора.
// Ноль снимает переопределение.
func (s *SettingsService) SetSalaryPercent(ctx context.Context, operator string, percent float64) error {
	if operator == "" {
		return fmt.Errorf("не указано имя оператора")
	}
	if percent < 0 || percent >= 1 {
		return fmt.Errorf("процент должен быть долей от 0 до 1")
	}

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return err
	}
	if settings.SalaryPercent == nil {
		settings.SalaryPercent = make(map[string]float64)
	}
	if percent == 0 {
		delete(settings.SalaryPercent, operator)
	} else {
		settings.SalaryPercent[operator] = percent
	}

	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return err
	}
	s.logger.Info().Str("operator", operator).Float64("percent", percent).Msg("Процент оператора обновлён")
	return nil
}

// SetDefaultPercent задаёт процент комиссии по умолчанию.
func (s *SettingsService) SetDefaultPercent(ctx context.Context, percent float64) error {
	if percent < 0 || percent >= 1 {
		return fmt.Errorf("процент должен быть долей от 0 до 1")
	}

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return err
	}
	settings.DefaultPercent = percent

	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return err
	}
	s.logger.Info().Float64("percent", percent).Msg("Процент по умолчанию обновлён")
	return nil
}
