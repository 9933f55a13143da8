package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"stock_simulator/internal/api"
	"stock_simulator/internal/domain"
	"stock_simulator/internal/middleware"
	"stock_simulator/internal/quote"
	"stock_simulator/internal/service"
	"stock_simulator/internal/store/storetest"
	"stock_simulator/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingNotifier struct {
	mu        sync.Mutex
	purchases []string
}

func (n *recordingNotifier) NotifyPurchase(_ context.Context, symbol string, _ int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.purchases = append(n.purchases, symbol)
	return nil
}

type testApp struct {
	router   *gin.Engine
	svc      *service.TradingService
	gdb      *gorm.DB
	notifier *recordingNotifier
}

// newTestApp wires the real stack against sqlite, miniredis and a fake Finnhub.
func newTestApp(t *testing.T, prices map[string]string) *testApp {
	t.Helper()
	finnhub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		if symbol == "BROKEN" {
			_, _ = w.Write([]byte("<html>maintenance</html>"))
			return
		}
		price, ok := prices[symbol]
		if !ok {
			price = "0"
		}
		_, _ = w.Write([]byte(`{"c":` + price + `}`))
	}))
	t.Cleanup(finnhub.Close)

	accounts, gdb := storetest.New(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	notifier := &recordingNotifier{}
	svc, err := service.NewTradingService(accounts,
		quote.NewFinnhubClient("test-token", quote.WithBaseURL(finnhub.URL)),
		notifier,
		utils.NewRedisLocker(rdb, 5*time.Second, time.Second),
		service.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	t.Cleanup(svc.Wait)

	router, err := api.NewRouter(api.RouterDeps{
		Service:  svc,
		Accounts: accounts,
		Redis:    rdb,
		Session:  api.SessionConfig{Secret: "test-secret", TTL: time.Hour},
	})
	require.NoError(t, err)
	return &testApp{router: router, svc: svc, gdb: gdb, notifier: notifier}
}

// do sends a form request, authenticated with token when it is not empty.
func (a *testApp) do(t *testing.T, method, path string, form url.Values, token string) *httptest.ResponseRecorder {
	t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// login registers email and returns a bearer token for it.
func (a *testApp) login(t *testing.T, email string) string {
	t.Helper()
	creds := url.Values{"email": {email}, "password": {"password123"}}
	rec := a.do(t, http.MethodPost, "/register", creds, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/login", creds, "")
	require.Equal(t, http.StatusOK, rec.Code)
	token, _ := decode(t, rec)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func flash(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	f, ok := decode(t, rec)["flash"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return f["category"].(string), f["message"].(string)
}

func requireDecimal(t *testing.T, want string, got any) {
	t.Helper()
	s, ok := got.(string)
	require.True(t, ok, "decimal rendered as %T", got)
	require.True(t, decimal.RequireFromString(want).Equal(decimal.RequireFromString(s)), "got %s, want %s", s, want)
}

func TestGuard_RedirectsAnonymousCallers(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil)

	for _, path := range []string{"/dashboard", "/portfolio", "/settings", "/admin/accounts"} {
		rec := app.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}

	rec := app.do(t, http.MethodGet, "/dashboard", nil, "not-a-token")
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil)
	creds := url.Values{"email": {"Alice@Example.com"}, "password": {"password123"}}

	// Register, then the same email again in another case
	rec := app.do(t, http.MethodPost, "/register", creds, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = app.do(t, http.MethodPost, "/register", url.Values{"email": {"alice@example.com"}, "password": {"password123"}}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	category, message := flash(t, rec)
	require.Equal(t, api.FlashDanger, category)
	require.Equal(t, "An account with this email already exists.", message)

	// Wrong password and unknown email read the same
	rec = app.do(t, http.MethodPost, "/login", url.Values{"email": {"alice@example.com"}, "password": {"wrong-password"}}, "")
	_, wrongPassword := flash(t, rec)
	rec = app.do(t, http.MethodPost, "/login", url.Values{"email": {"bob@example.com"}, "password": {"password123"}}, "")
	_, unknownEmail := flash(t, rec)
	require.Equal(t, wrongPassword, unknownEmail)

	// A successful login sets an HttpOnly session cookie that opens the dashboard
	rec = app.do(t, http.MethodPost, "/login", creds, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	require.True(t, session.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(session)
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	account := decode(t, rec)["account"].(map[string]any)
	require.Equal(t, "alice@example.com", account["email"])
	requireDecimal(t, "10000", account["cash_balance"])
	require.Empty(t, account["holdings"])
}

func TestRegister_MalformedBody(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil)

	rec := app.do(t, http.MethodPost, "/register", url.Values{"email": {"x@example.com"}}, "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid request", decode(t, rec)["error"])
}

func TestLogout_RevokesSession(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil)
	token := app.login(t, "carol@example.com")

	rec := app.do(t, http.MethodPost, "/logout", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	// The token is still signed and unexpired, but its session is gone
	rec = app.do(t, http.MethodGet, "/dashboard", nil, token)
	require.Equal(t, http.StatusFound, rec.Code)
}

func TestTradingFlow(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, map[string]string{"AAPL": "100"})
	token := app.login(t, "dave@example.com")

	// Reset to 1000
	rec := app.do(t, http.MethodPost, "/settings", url.Values{"initial_capital": {"1000"}}, token)
	category, _ := flash(t, rec)
	require.Equal(t, api.FlashSuccess, category)

	// Buy 5 @ 100
	rec = app.do(t, http.MethodPost, "/buy_stock", url.Values{"symbol": {"aapl"}, "quantity": {"5"}}, token)
	category, message := flash(t, rec)
	require.Equal(t, api.FlashSuccess, category, message)
	app.svc.Wait()
	require.Equal(t, []string{"AAPL"}, app.notifier.purchases)

	rec = app.do(t, http.MethodGet, "/portfolio", nil, token)
	body := decode(t, rec)
	requireDecimal(t, "500", body["cash_balance"])
	require.Len(t, body["stocks"], 1)

	// History is cached until the next state change
	rec = app.do(t, http.MethodGet, "/portfolio/trades", nil, token)
	require.Equal(t, false, decode(t, rec)["cached"])
	rec = app.do(t, http.MethodGet, "/portfolio/trades", nil, token)
	history := decode(t, rec)
	require.Equal(t, true, history["cached"])
	require.EqualValues(t, 2, history["total"])

	// Liquidate at 100: (100 - 90) * 5 = 50
	rec = app.do(t, http.MethodPost, "/portfolio", nil, token)
	category, message = flash(t, rec)
	require.Equal(t, api.FlashSuccess, category)
	require.Equal(t, "All holdings sold, total profit: 50.00", message)

	rec = app.do(t, http.MethodGet, "/portfolio/trades", nil, token)
	history = decode(t, rec)
	require.Equal(t, false, history["cached"])
	require.EqualValues(t, 3, history["total"])

	// Nothing left to sell
	rec = app.do(t, http.MethodPost, "/portfolio", nil, token)
	category, _ = flash(t, rec)
	require.Equal(t, api.FlashInfo, category)

	rec = app.do(t, http.MethodGet, "/dashboard", nil, token)
	requireDecimal(t, "550", decode(t, rec)["account"].(map[string]any)["cash_balance"])
}

func TestBuy_ExpectedFailuresFlash(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, map[string]string{"AAPL": "100"})
	token := app.login(t, "erin@example.com")
	app.do(t, http.MethodPost, "/settings", url.Values{"initial_capital": {"100"}}, token)

	cases := []struct {
		form    url.Values
		message string
	}{
		{url.Values{"symbol": {"AAPL"}, "quantity": {"5"}}, "Insufficient funds to complete the purchase."},
		{url.Values{"symbol": {"NOPE"}, "quantity": {"1"}}, "Invalid stock symbol."},
		{url.Values{"symbol": {"AAPL"}, "quantity": {"0"}}, "Quantity must be a positive whole number."},
	}
	for _, tc := range cases {
		rec := app.do(t, http.MethodPost, "/buy_stock", tc.form, token)
		require.Equal(t, http.StatusOK, rec.Code)
		category, message := flash(t, rec)
		require.Equal(t, api.FlashDanger, category)
		require.Equal(t, tc.message, message)
	}

	rec := app.do(t, http.MethodGet, "/dashboard", nil, token)
	requireDecimal(t, "100", decode(t, rec)["account"].(map[string]any)["cash_balance"])
}

func TestStockSearch(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, map[string]string{"MSFT": "410.5"})
	token := app.login(t, "frank@example.com")

	rec := app.do(t, http.MethodPost, "/stock_search", url.Values{"symbol": {"msft"}}, token)
	stock := decode(t, rec)["stock_data"].(map[string]any)
	require.Equal(t, "MSFT", stock["symbol"])
	requireDecimal(t, "410.5", stock["current"])

	// An unreadable upstream answer is not leaked to the user
	rec = app.do(t, http.MethodPost, "/stock_search", url.Values{"symbol": {"BROKEN"}}, token)
	_, message := flash(t, rec)
	require.Equal(t, api.GenericErrorMessage, message)
}

func TestSettings_RejectsBadAmount(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil)
	token := app.login(t, "gina@example.com")

	for _, amount := range []string{"-5", "lots"} {
		rec := app.do(t, http.MethodPost, "/settings", url.Values{"initial_capital": {amount}}, token)
		_, message := flash(t, rec)
		require.Equal(t, "Initial capital must be a non-negative amount.", message)
	}
}

func TestAdminRoutes(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil)
	token := app.login(t, "ops@example.com")

	rec := app.do(t, http.MethodGet, "/admin/accounts", nil, token)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Roles are re-read on every request
	require.NoError(t, app.gdb.Model(&domain.Account{}).Where("email = ?", "ops@example.com").
		Update("role", domain.RoleAdmin).Error)

	rec = app.do(t, http.MethodGet, "/admin/accounts", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.EqualValues(t, 1, body["total"])
	require.Equal(t, false, body["cached"])

	rec = app.do(t, http.MethodGet, "/admin/accounts", nil, token)
	require.Equal(t, true, decode(t, rec)["cached"])

	// A balance change drops the cached listing
	rec = app.do(t, http.MethodPost, "/settings", url.Values{"initial_capital": {"2500"}}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = app.do(t, http.MethodGet, "/admin/accounts", nil, token)
	body = decode(t, rec)
	require.Equal(t, false, body["cached"])
	accounts := body["accounts"].([]any)
	require.Len(t, accounts, 1)
	requireDecimal(t, "2500", accounts[0].(map[string]any)["cash_balance"])

	// So does a new registration
	app.login(t, "second@example.com")
	rec = app.do(t, http.MethodGet, "/admin/accounts", nil, token)
	body = decode(t, rec)
	require.Equal(t, false, body["cached"])
	require.EqualValues(t, 2, body["total"])

	rec = app.do(t, http.MethodGet, "/admin/trades?type=buy&from=2020-01-01", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 0, decode(t, rec)["total"])

	rec = app.do(t, http.MethodGet, "/admin/trades?account_id=abc", nil, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	message, expected := api.UserMessage(domain.ErrAccountBusy)
	require.True(t, expected)
	require.NotEqual(t, api.GenericErrorMessage, message)

	message, expected = api.UserMessage(context.DeadlineExceeded)
	require.False(t, expected)
	require.Equal(t, api.GenericErrorMessage, message)
}
