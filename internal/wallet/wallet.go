package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"smena/internal/domain"

	"github.com/rs/zerolog"
)

// HTTPBalanceFetcher читает баланс USDT-кошелька через HTTP API
// наблюдателя блокчейна.
type HTTPBalanceFetcher struct {
	baseURL string
	address string
	client  *http.Client
}

func NewHTTPBalanceFetcher(baseURL, address string, timeout time.Duration) *HTTPBalanceFetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPBalanceFetcher{
		baseURL: baseURL,
		address: address,
		client:  &http.Client{Timeout: timeout},
	}
}

func (f *HTTPBalanceFetcher) FetchBalance(ctx context.Context) (float64, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/balance", f.baseURL, f.address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("wallet request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("wallet fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("wallet fetch: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Balance float64 `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("wallet decode: %w", err)
	}
	return payload.Balance, nil
}

// Watcher периодически опрашивает баланс и отдаёт последнее
// известное значение. При ошибке опроса значение не сбрасывается.
type Watcher struct {
	fetcher domain.BalanceFetcher
	logger  *zerolog.Logger

	mu        sync.RWMutex
	balance   float64
	fetchedAt time.Time
}

func NewWatcher(fetcher domain.BalanceFetcher, logger *zerolog.Logger) *Watcher {
	return &Watcher{fetcher: fetcher, logger: logger}
}

// Refresh опрашивает источник и запоминает результат.
func (w *Watcher) Refresh(ctx context.Context) error {
	balance, err := w.fetcher.FetchBalance(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("Не удалось получить баланс кошелька, показываем последнее значение")
		return err
	}

	w.mu.Lock()
	w.balance = balance
	w.fetchedAt = time.Now()
	w.mu.Unlock()

	w.logger.Debug().Float64("balance", balance).Msg("Баланс кошелька обновлён")
	return nil
}

// Last возвращает последний известный баланс и время его получения.
// Нулевое время означает, что баланс ещё ни разу не был получен.
func (w *Watcher) Last() (float64, time.Time) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balance, w.fetchedAt
}
