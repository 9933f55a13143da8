package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes

	"stock_simulator/internal/domain"     // Importing domain models
	"stock_simulator/internal/middleware" // Current account
	"stock_simulator/internal/service"    // Trading rules
	"stock_simulator/internal/utils"      // Cache helpers

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Exact decimal money
	"github.com/sirupsen/logrus"    // Logging library
)

// SettingsRequest resets the starting capital
type SettingsRequest struct {
	InitialCapital string `form:"initial_capital" json:"initial_capital" binding:"required"` // New cash balance
}

// StockSearchRequest looks up one symbol
type StockSearchRequest struct {
	Symbol string `form:"symbol" json:"symbol"` // Ticker symbol
}

// BuyRequest purchases shares at the current quote
type BuyRequest struct {
	Symbol   string `form:"symbol" json:"symbol"`     // Ticker symbol
	Quantity int64  `form:"quantity" json:"quantity"` // Whole shares
}

// AccountView is the account as shown on the dashboard and portfolio pages
type AccountView struct {
	ID          uint             `json:"id"`           // Account ID
	Email       string           `json:"email"`        // Account email
	CashBalance decimal.Decimal  `json:"cash_balance"` // Virtual cash
	Holdings    []domain.Holding `json:"holdings"`     // Owned holdings, oldest first
}

func newAccountView(account *domain.Account) AccountView {
	holdings := account.Holdings
	if holdings == nil {
		holdings = []domain.Holding{} // Render an empty list, not null
	}
	return AccountView{ID: account.ID, Email: account.Email, CashBalance: account.CashBalance, Holdings: holdings}
}

// DashboardHandler shows the caller's balance and holdings
func DashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, _ := middleware.CurrentAccount(c) // Resolved by the session guard
		c.JSON(http.StatusOK, gin.H{"account": newAccountView(account)})
	}
}

// SettingsPageHandler shows the current balance next to the reset form
func SettingsPageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, _ := middleware.CurrentAccount(c)
		c.JSON(http.StatusOK, gin.H{
			"page":         "settings",                  // Page name
			"fields":       []string{"initial_capital"}, // Form fields
			"cash_balance": account.CashBalance,         // Current balance
		})
	}
}

// SettingsHandler overwrites the balance and discards every holding without credit
func SettingsHandler(svc *service.TradingService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetUint(middleware.AccountIDKey) // Get accountID from context
		var req SettingsRequest                         // Bind form or JSON request to struct
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c)
			return
		}
		amount, err := decimal.NewFromString(req.InitialCapital)
		if err != nil {
			respondError(c, domain.ErrInvalidAmount, nil)
			return
		}
		account, err := svc.UpdateInitialCapital(c.Request.Context(), accountID, amount)
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": accountID, "amount": req.InitialCapital})
			return
		}
		invalidateAccount(rdb, accountID)
		respondFlash(c, http.StatusOK, FlashSuccess, "Initial capital updated. All holdings were cleared without credit.", gin.H{
			"account": newAccountView(account), // Account after the reset
		})
	}
}

// StockSearchHandler returns the current quote for a symbol
func StockSearchHandler(svc *service.TradingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StockSearchRequest // Bind form or JSON request to struct
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c)
			return
		}
		q, err := svc.Quote(c.Request.Context(), req.Symbol)
		if err != nil {
			respondError(c, err, logrus.Fields{"symbol": req.Symbol})
			return
		}
		c.JSON(http.StatusOK, gin.H{"stock_data": q})
	}
}

// BuyStockHandler buys shares at the current quote
func BuyStockHandler(svc *service.TradingService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetUint(middleware.AccountIDKey) // Get accountID from context
		var req BuyRequest                              // Bind form or JSON request to struct
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c)
			return
		}
		result, err := svc.Buy(c.Request.Context(), accountID, req.Symbol, req.Quantity)
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": accountID, "symbol": req.Symbol, "quantity": req.Quantity})
			return
		}
		invalidateAccount(rdb, accountID)
		respondFlash(c, http.StatusOK, FlashSuccess, "Stock purchased successfully!", gin.H{"purchase": result})
	}
}

// PortfolioHandler lists the caller's holdings
func PortfolioHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, _ := middleware.CurrentAccount(c)
		view := newAccountView(account)
		c.JSON(http.StatusOK, gin.H{"stocks": view.Holdings, "cash_balance": view.CashBalance})
	}
}

// LiquidateHandler sells every holding and credits the profit
func LiquidateHandler(svc *service.TradingService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetUint(middleware.AccountIDKey) // Get accountID from context
		result, err := svc.LiquidateAll(c.Request.Context(), accountID)
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": accountID})
			return
		}
		if len(result.Sold) == 0 {
			respondFlash(c, http.StatusOK, FlashInfo, "You have no holdings to sell.", gin.H{"liquidation": result})
			return
		}
		invalidateAccount(rdb, accountID)
		message := "All holdings sold, total profit: " + result.Profit.StringFixed(2)
		respondFlash(c, http.StatusOK, FlashSuccess, message, gin.H{"liquidation": result})
	}
}

// TradeHistoryHandler returns the caller's trades, newest first, paginated and cached
func TradeHistoryHandler(svc *service.TradingService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetUint(middleware.AccountIDKey) // Get accountID from context
		page := parsePage(c)                            // Page and page size
		cacheKey := utils.TradesCacheKey(accountID, page.Page, page.PageSize)
		ctx := c.Request.Context()
		var cached tradePage
		// If found in cache, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.Cached = true
			c.JSON(http.StatusOK, cached)
			return
		}
		trades, total, err := svc.Trades(ctx, accountID, page)
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": accountID})
			return
		}
		resp := tradePage{
			Trades:     trades,                 // List of trades
			Page:       page.Page,              // Current page
			PageSize:   page.PageSize,          // Page size
			Total:      total,                  // Total trades
			TotalPages: page.TotalPages(total), // Total pages
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, utils.ViewCacheTTL) // Cache the page
		c.JSON(http.StatusOK, resp)
	}
}

// tradePage is one page of a trade listing
type tradePage struct {
	Trades     []domain.Trade `json:"trades"`      // List of trades
	Page       int            `json:"page"`        // Current page
	PageSize   int            `json:"page_size"`   // Page size
	Total      int64          `json:"total"`       // Total trades
	TotalPages int            `json:"total_pages"` // Total pages
	Cached     bool           `json:"cached"`      // Served from cache
}

// invalidateAccount drops cached views after a state change; a cache miss only costs a query
func invalidateAccount(rdb *redis.Client, accountID uint) {
	if err := utils.InvalidateAccount(context.Background(), rdb, accountID); err != nil {
		logrus.WithFields(logrus.Fields{
			"account_id": accountID,   // Account ID
			"error":      err.Error(), // Error message
		}).Warn("Cache invalidation failed")
	}
	invalidateAdminViews(rdb) // Admin listings show balances and trades too
}

// invalidateAdminViews drops the cached admin listings
func invalidateAdminViews(rdb *redis.Client) {
	if err := utils.InvalidateAdminViews(context.Background(), rdb); err != nil {
		logrus.WithError(err).Warn("Admin cache invalidation failed")
	}
}
