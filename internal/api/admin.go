package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Date filters

	"stock_simulator/internal/domain"  // Importing domain models
	"stock_simulator/internal/service" // Trading rules
	"stock_simulator/internal/store"   // Listing filters
	"stock_simulator/internal/utils"   // Cache helpers

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Exact decimal money
	"github.com/sirupsen/logrus"    // Logging library
)

// AccountAdminResponse represents the account data returned to admin
type AccountAdminResponse struct {
	ID          uint             `json:"id"`           // Account ID
	Email       string           `json:"email"`        // Account email
	Role        string           `json:"role"`         // Account role
	CashBalance decimal.Decimal  `json:"cash_balance"` // Virtual cash
	Holdings    []domain.Holding `json:"holdings"`     // Owned holdings
}

// accountPage is one page of the account listing
type accountPage struct {
	Accounts   []AccountAdminResponse `json:"accounts"`    // List of accounts
	Page       int                    `json:"page"`        // Current page
	PageSize   int                    `json:"page_size"`   // Page size
	Total      int64                  `json:"total"`       // Total number of accounts
	TotalPages int                    `json:"total_pages"` // Total pages
	Cached     bool                   `json:"cached"`      // Served from cache
}

// ListAccountsHandler returns all accounts with their holdings
func ListAccountsHandler(svc *service.TradingService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page := parsePage(c) // Page and page size
		// Create a cache key based on pagination parameters
		cacheKey := utils.AdminCachePrefix + "accounts:page=" + strconv.Itoa(page.Page) + ":size=" + strconv.Itoa(page.PageSize)
		var cached accountPage
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.Cached = true
			c.JSON(http.StatusOK, cached)
			return
		}
		accounts, total, err := svc.Accounts(ctx, page)
		if err != nil {
			respondError(c, err, logrus.Fields{"page": page.Page})
			return
		}
		// Map accounts to response format
		resp := make([]AccountAdminResponse, len(accounts))
		for i, a := range accounts {
			resp[i] = AccountAdminResponse{
				ID:          a.ID,                        // Account ID
				Email:       a.Email,                     // Account email
				Role:        a.Role,                      // Account role
				CashBalance: a.CashBalance,               // Virtual cash
				Holdings:    newAccountView(&a).Holdings, // Never null
			}
		}
		respData := accountPage{
			Accounts:   resp,                   // List of accounts
			Page:       page.Page,              // Current page
			PageSize:   page.PageSize,          // Page size
			Total:      total,                  // Total number of accounts
			TotalPages: page.TotalPages(total), // Total pages
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, utils.ViewCacheTTL)
		c.JSON(http.StatusOK, respData) // Return the response
	}
}

// ListTradesHandler returns all trades, with optional filtering by account, type, or date
func ListTradesHandler(svc *service.TradingService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		filter, ok := parseTradeFilter(c)
		if !ok {
			badRequest(c)
			return
		}
		page := parsePage(c) // Page and page size
		// Build cache key from all query params
		var keyParts []string
		for _, k := range []string{"account_id", "type", "from", "to"} {
			keyParts = append(keyParts, k+"="+c.Query(k)) // Append key-value pair
		}
		keyParts = append(keyParts, "page="+strconv.Itoa(page.Page), "size="+strconv.Itoa(page.PageSize))
		cacheKey := utils.AdminCachePrefix + "trades:" + strings.Join(keyParts, ":")

		var cached tradePage
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.Cached = true
			c.JSON(http.StatusOK, cached)
			return
		}
		trades, total, err := svc.AllTrades(ctx, filter, page)
		if err != nil {
			respondError(c, err, logrus.Fields{"filter": filter})
			return
		}
		respData := tradePage{
			Trades:     trades,                 // List of trades
			Page:       page.Page,              // Current page
			PageSize:   page.PageSize,          // Page size
			Total:      total,                  // Total number of trades
			TotalPages: page.TotalPages(total), // Total pages
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, utils.ViewCacheTTL)
		c.JSON(http.StatusOK, respData) // Return the response
	}
}

// parseTradeFilter reads account_id, type, from and to. Dates are RFC 3339,
// YYYY-MM-DD or Unix milliseconds.
func parseTradeFilter(c *gin.Context) (store.TradeFilter, bool) {
	var filter store.TradeFilter
	if v := c.Query("account_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return filter, false
		}
		filter.AccountID = uint(id) // Filter by account
	}
	filter.Type = c.Query("type") // Filter by trade type
	var ok bool
	if filter.From, ok = parseMillis(c.Query("from")); !ok {
		return filter, false
	}
	if filter.To, ok = parseMillis(c.Query("to")); !ok {
		return filter, false
	}
	return filter, true
}

// parseMillis converts a date filter to Unix milliseconds; empty means unset
func parseMillis(v string) (int64, bool) {
	if v == "" {
		return 0, true
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return ms, true
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}
