package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smena/internal/currency"
	"smena/internal/domain"
	"smena/internal/models"
	"smena/internal/report"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// shiftTask — конверт задачи синхронизации с номером попытки.
type shiftTask struct {
	Record   *models.ShiftArchiveRecord `json:"record"`
	Attempts int                        `json:"attempts"`
}

// ShiftSyncWorker выгружает заархивированные смены во внешнюю таблицу.
// Очередь живёт в Redis для переживания рестартов; без Redis работает
// внутренний канал. После исчерпания попыток задача уходит в deadletter.
type ShiftSyncWorker struct {
	sheets      domain.SheetsWriter
	converter   *currency.Converter
	redis       *redis.Client
	retryPolicy RetryPolicy
	queue       chan shiftTask
	queueKey    string
	deadLetter  string
	logger      *zerolog.Logger
}

func NewShiftSyncWorker(sheets domain.SheetsWriter, converter *currency.Converter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *ShiftSyncWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &ShiftSyncWorker{
		sheets:      sheets,
		converter:   converter,
		redis:       redisClient,
		retryPolicy: retry,
		queue:       make(chan shiftTask, 128),
		queueKey:    "sheets:shift_queue",
		deadLetter:  "sheets:deadletter",
		logger:      logger,
	}
}

// EnqueueShift ставит смену в очередь синхронизации.
func (w *ShiftSyncWorker) EnqueueShift(ctx context.Context, rec *models.ShiftArchiveRecord) error {
	if rec == nil {
		return errors.New("archive record is nil")
	}

	task := shiftTask{Record: rec}

	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Msg("Redis недоступен, задача уходит во внутреннюю очередь")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
		return nil
	default:
		return fmt.Errorf("очередь синхронизации переполнена, смена чата %d потеряна", rec.ChatID)
	}
}

// Run крутит обработку очереди до отмены контекста.
func (w *ShiftSyncWorker) Run(ctx context.Context) {
	w.logger.Info().Msg("Воркер синхронизации таблицы запущен")
	defer w.logger.Info().Msg("Воркер синхронизации таблицы остановлен")

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-w.queue:
			w.process(ctx, task)
		default:
			if task, ok := w.tryRedis(ctx); ok {
				w.process(ctx, task)
				continue
			}
			select {
			case <-ctx.Done():
				return
			case task := <-w.queue:
				w.process(ctx, task)
			case <-time.After(time.Second):
			}
		}
	}
}

func (w *ShiftSyncWorker) process(ctx context.Context, task shiftTask) {
	rec := task.Record
	if rec == nil {
		return
	}

	summary := report.Aggregate(rec.Bookings, w.converter.Snapshot(), nil)
	err := w.sheets.AppendShiftRows(ctx, rec, summary.TotalUSD)
	if err == nil {
		w.logger.Info().
			Int64("chat_id", rec.ChatID).
			Str("business_date", rec.BusinessDate).
			Msg("Смена выгружена в таблицу")
		return
	}

	task.Attempts++
	if task.Attempts >= w.retryPolicy.MaxRetries {
		w.logger.Error().Err(err).
			Int64("chat_id", rec.ChatID).
			Int("attempts", task.Attempts).
			Msg("Попытки синхронизации исчерпаны, задача в deadletter")
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.Attempts)
	w.logger.Warn().Err(err).
		Int64("chat_id", rec.ChatID).
		Int("attempt", task.Attempts).
		Dur("delay", delay).
		Msg("Выгрузка смены не удалась, повтор позже")

	// повтор планируется без блокировки цикла обработки;
	// в очередь возвращается та же задача, счётчик попыток сохраняется
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(delay):
			if w.redis != nil {
				pushErr := w.pushRedis(ctx, task)
				if pushErr == nil {
					return
				}
				w.logger.Warn().Err(pushErr).Msg("Redis недоступен, повтор уходит во внутреннюю очередь")
			}
			select {
			case w.queue <- task:
			default:
				w.logger.Error().
					Int64("chat_id", rec.ChatID).
					Msg("Очередь синхронизации переполнена, повтор потерян")
			}
		}
	}()
}

func (w *ShiftSyncWorker) tryRedis(ctx context.Context) (shiftTask, bool) {
	if w.redis == nil {
		return shiftTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.queueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Warn().Err(err).Msg("Ошибка чтения очереди синхронизации из Redis")
		}
		return shiftTask{}, false
	}
	if len(res) != 2 {
		return shiftTask{}, false
	}
	var task shiftTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("Не удалось декодировать задачу синхронизации")
		return shiftTask{}, false
	}
	return task, true
}

func (w *ShiftSyncWorker) pushRedis(ctx context.Context, task shiftTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.queueKey, data).Err()
}

func (w *ShiftSyncWorker) pushDeadLetter(ctx context.Context, task shiftTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Msg("Не удалось закодировать задачу для deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetter, data).Err(); err != nil {
		w.logger.Error().Err(err).Msg("Не удалось записать задачу в deadletter")
	}
}
