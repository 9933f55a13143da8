// Package quote looks up current stock prices from Finnhub.
package quote

import (
	"context"       // Request cancellation
	"encoding/json" // Payload decoding
	"strings"       // Symbol normalization
	"time"          // Timeouts and timestamps

	"stock_simulator/internal/domain" // Domain errors

	"github.com/go-resty/resty/v2"  // HTTP client
	"github.com/pkg/errors"         // Error wrapping
	"github.com/shopspring/decimal" // Exact decimal prices
	"github.com/sirupsen/logrus"    // Logging library
	"golang.org/x/time/rate"        // Outbound rate limit
)

const (
	DefaultBaseURL = "https://finnhub.io/api/v1" // Finnhub REST root
	DefaultTimeout = 5 * time.Second             // Bound on one lookup
)

// Quote is a point-in-time price for a symbol.
type Quote struct {
	Symbol        string          `json:"symbol"`         // Normalized ticker
	Current       decimal.Decimal `json:"current"`        // Current price
	Change        decimal.Decimal `json:"change"`         // Change since previous close
	PercentChange decimal.Decimal `json:"percent_change"` // Change in percent
	High          decimal.Decimal `json:"high"`           // Day high
	Low           decimal.Decimal `json:"low"`            // Day low
	Open          decimal.Decimal `json:"open"`           // Day open
	PreviousClose decimal.Decimal `json:"previous_close"` // Previous close
	Timestamp     time.Time       `json:"timestamp"`      // Quote time, zero when unknown
}

// finnhubQuote mirrors the /quote payload. Pointers tell a missing key from a zero.
type finnhubQuote struct {
	C  *decimal.Decimal `json:"c"`  // Current price
	D  *decimal.Decimal `json:"d"`  // Change
	DP *decimal.Decimal `json:"dp"` // Percent change
	H  *decimal.Decimal `json:"h"`  // High
	L  *decimal.Decimal `json:"l"`  // Low
	O  *decimal.Decimal `json:"o"`  // Open
	PC *decimal.Decimal `json:"pc"` // Previous close
	T  int64            `json:"t"`  // Unix seconds
}

// FinnhubClient is the quote gateway. One GET per lookup, no retries, no caching.
type FinnhubClient struct {
	http    *resty.Client // Configured HTTP client
	token   string        // API token
	limiter *rate.Limiter // Outbound request budget
}

// Option configures a FinnhubClient.
type Option func(*FinnhubClient)

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *FinnhubClient) {
		c.http.SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	}
}

// WithTimeout bounds each lookup.
func WithTimeout(timeout time.Duration) Option {
	return func(c *FinnhubClient) {
		c.http.SetTimeout(timeout)
	}
}

// WithRateLimit caps outbound requests per second. burst allows short spikes.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *FinnhubClient) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewFinnhubClient creates a client authenticated with token.
func NewFinnhubClient(token string, options ...Option) *FinnhubClient {
	c := &FinnhubClient{
		http: resty.New().
			SetBaseURL(DefaultBaseURL).
			SetTimeout(DefaultTimeout).
			SetHeader("Accept", "application/json"),
		token:   token,                        // API token
		limiter: rate.NewLimiter(rate.Inf, 1), // Unlimited unless configured
	}
	for _, option := range options {
		option(c) // Apply overrides
	}
	return c
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// GetQuote returns the current quote for symbol.
//
// Errors: domain.ErrInvalidSymbol when the symbol is empty or Finnhub has no
// price for it, domain.ErrUpstreamUnavailable on transport failures, timeouts
// and non-2xx answers. A body that is not JSON yields a plain error.
func (c *FinnhubClient) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = NormalizeSymbol(symbol) // Trim and upper-case
	if symbol == "" {
		return nil, domain.ErrInvalidSymbol
	}
	if err := c.limiter.Wait(ctx); err != nil { // Wait for a free slot
		return nil, errors.Wrap(domain.ErrUpstreamUnavailable, "rate limit wait aborted")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"symbol": symbol, "token": c.token}).
		Get("/quote")
	if err != nil {
		// The request URL carries the token, so only the symbol is logged.
		logrus.WithFields(logrus.Fields{"symbol": symbol, "timeout": errors.Is(err, context.DeadlineExceeded)}).
			Warn("Quote request failed")
		return nil, errors.Wrapf(domain.ErrUpstreamUnavailable, "quote %s", symbol)
	}
	if !resp.IsSuccess() {
		logrus.WithFields(logrus.Fields{"symbol": symbol, "status": resp.StatusCode()}).Warn("Quote request rejected")
		return nil, errors.Wrapf(domain.ErrUpstreamUnavailable, "quote %s: status %d", symbol, resp.StatusCode())
	}

	var payload finnhubQuote // Raw Finnhub answer
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, errors.Wrapf(err, "decode quote for %s", symbol)
	}
	// Finnhub answers unknown tickers with c=0 rather than an error.
	if payload.C == nil || !payload.C.IsPositive() {
		return nil, errors.Wrapf(domain.ErrInvalidSymbol, "no price for %s", symbol)
	}

	q := &Quote{
		Symbol:        symbol,             // Normalized ticker
		Current:       *payload.C,         // Current price
		Change:        orZero(payload.D),  // Change
		PercentChange: orZero(payload.DP), // Percent change
		High:          orZero(payload.H),  // High
		Low:           orZero(payload.L),  // Low
		Open:          orZero(payload.O),  // Open
		PreviousClose: orZero(payload.PC), // Previous close
	}
	if payload.T > 0 {
		q.Timestamp = time.Unix(payload.T, 0).UTC() // Finnhub sends unix seconds
	}
	return q, nil
}

// orZero treats a missing field as zero
func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
