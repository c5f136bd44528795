package worker

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler запускает периодические задачи по cron-расписанию.
type Scheduler struct {
	cron   *cron.Cron
	logger *zerolog.Logger
}

func NewScheduler(logger *zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// AddJob регистрирует задачу. Паника внутри задачи не роняет процесс.
func (s *Scheduler) AddJob(spec, name string, fn func()) error {
	_, err := s.cron.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().
					Str("job", name).
					Interface("panic", r).
					Msg("Паника в периодической задаче")
			}
		}()

		s.logger.Debug().Str("job", name).Msg("Запуск периодической задачи")
		fn()
	})
	if err != nil {
		return fmt.Errorf("не удалось зарегистрировать задачу %s: %w", name, err)
	}

	s.logger.Info().Str("job", name).Str("spec", spec).Msg("Периодическая задача зарегистрирована")
	return nil
}

// Start запускает планировщик в фоне.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop останавливает планировщик и дожидается выполняющихся задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
