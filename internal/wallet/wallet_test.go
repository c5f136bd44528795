package wallet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

type stubFetcher struct {
	balance float64
	err     error
}

func (s *stubFetcher) FetchBalance(ctx context.Context) (float64, error) {
	return s.balance, s.err
}

func TestHTTPBalanceFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts/TAbc123/balance", r.URL.Path)
		_, _ = w.Write([]byte(`{"balance": 1523.75}`))
	}))
	defer srv.Close()

	f := NewHTTPBalanceFetcher(srv.URL, "TAbc123", time.Second)
	balance, err := f.FetchBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1523.75, balance)
}

func TestHTTPBalanceFetcherBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewHTTPBalanceFetcher(srv.URL, "TAbc123", time.Second)
	_, err := f.FetchBalance(context.Background())
	assert.Error(t, err)
}

func TestWatcherKeepsLastBalanceOnError(t *testing.T) {
	fetcher := &stubFetcher{balance: 100}
	w := NewWatcher(fetcher, testLogger())

	require.NoError(t, w.Refresh(context.Background()))
	balance, at := w.Last()
	assert.Equal(t, 100.0, balance)
	assert.False(t, at.IsZero())

	fetcher.err = assert.AnError
	assert.Error(t, w.Refresh(context.Background()))

	balance, _ = w.Last()
	assert.Equal(t, 100.0, balance)
}

func TestWatcherZeroBeforeFirstFetch(t *testing.T) {
	w := NewWatcher(&stubFetcher{}, testLogger())
	balance, at := w.Last()
	assert.Zero(t, balance)
	assert.True(t, at.IsZero())
}
