package quote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"stock_simulator/internal/domain"
	"stock_simulator/internal/quote"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newServer answers /quote with status and body and counts calls.
func newServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "secret-token", r.URL.Query().Get("token"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestGetQuote_Success(t *testing.T) {
	t.Parallel()

	// Arrange: a Finnhub-shaped payload
	srv, calls := newServer(t, http.StatusOK, `{"c":187.44,"d":1.2,"dp":0.65,"h":188,"l":185.1,"o":186,"pc":186.24,"t":1700000000}`)
	client := quote.NewFinnhubClient("secret-token", quote.WithBaseURL(srv.URL))

	// Act: lower-case, padded symbol is normalized
	q, err := client.GetQuote(context.Background(), "  aapl ")

	// Assert
	require.NoError(t, err)
	require.Equal(t, "AAPL", q.Symbol)
	require.True(t, q.Current.Equal(decimal.RequireFromString("187.44")))
	require.True(t, q.PreviousClose.Equal(decimal.RequireFromString("186.24")))
	require.Equal(t, time.Unix(1700000000, 0).UTC(), q.Timestamp)
	require.EqualValues(t, 1, calls.Load())
}

func TestGetQuote_MissingPriceIsInvalidSymbol(t *testing.T) {
	t.Parallel()

	for name, body := range map[string]string{
		"missing key": `{"d":null}`,
		"null price":  `{"c":null}`,
		"zero price":  `{"c":0,"d":null,"dp":null,"h":0,"l":0,"o":0,"pc":0,"t":0}`,
	} {
		name, body := name, body
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			srv, _ := newServer(t, http.StatusOK, body)
			client := quote.NewFinnhubClient("secret-token", quote.WithBaseURL(srv.URL))

			_, err := client.GetQuote(context.Background(), "AAPL")
			require.ErrorIs(t, err, domain.ErrInvalidSymbol)
		})
	}
}

func TestGetQuote_EmptySymbolSkipsUpstream(t *testing.T) {
	t.Parallel()

	srv, calls := newServer(t, http.StatusOK, `{"c":1}`)
	client := quote.NewFinnhubClient("secret-token", quote.WithBaseURL(srv.URL))

	_, err := client.GetQuote(context.Background(), "   ")

	require.ErrorIs(t, err, domain.ErrInvalidSymbol)
	require.Zero(t, calls.Load())
}

func TestGetQuote_NonSuccessIsUpstreamUnavailable(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusTooManyRequests, http.StatusUnauthorized, http.StatusBadGateway} {
		srv, calls := newServer(t, status, `{"error":"nope"}`)
		client := quote.NewFinnhubClient("secret-token", quote.WithBaseURL(srv.URL))

		_, err := client.GetQuote(context.Background(), "AAPL")

		require.ErrorIs(t, err, domain.ErrUpstreamUnavailable, "status %d", status)
		require.NotContains(t, err.Error(), "secret-token")
		require.EqualValues(t, 1, calls.Load(), "no retries")
	}
}

func TestGetQuote_TimeoutIsUpstreamUnavailable(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	client := quote.NewFinnhubClient("secret-token", quote.WithBaseURL(srv.URL), quote.WithTimeout(50*time.Millisecond))

	_, err := client.GetQuote(context.Background(), "AAPL")

	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	require.NotContains(t, err.Error(), "secret-token")
}

func TestGetQuote_MalformedPayloadIsGenericError(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t, http.StatusOK, `<html>maintenance</html>`)
	client := quote.NewFinnhubClient("secret-token", quote.WithBaseURL(srv.URL))

	_, err := client.GetQuote(context.Background(), "AAPL")

	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrInvalidSymbol)
	require.NotErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestGetQuote_RateLimitHonoursContext(t *testing.T) {
	t.Parallel()

	srv, calls := newServer(t, http.StatusOK, `{"c":10}`)
	client := quote.NewFinnhubClient("secret-token", quote.WithBaseURL(srv.URL), quote.WithRateLimit(0.001, 1))

	// Act: the first call spends the only token
	_, err := client.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	// Act: the second call cannot get a token before its deadline
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.GetQuote(ctx, "AAPL")

	// Assert
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	require.EqualValues(t, 1, calls.Load())
}
