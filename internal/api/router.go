package api

import (
	"stock_simulator/internal/middleware" // Session and admin guards
	"stock_simulator/internal/service"    // Trading rules
	"stock_simulator/internal/store"      // Account lookups for the guard

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// RouterDeps is everything the HTTP surface needs, built once at startup
type RouterDeps struct {
	Service        *service.TradingService // Trading rules
	Accounts       *store.AccountStore     // Used by the session guard
	Redis          *redis.Client           // Sessions and view cache
	Session        SessionConfig           // Token signing and cookie settings
	TrustedProxies []string                // Proxies allowed to set client IP headers
}

// NewRouter registers every route on a fresh gin engine
func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	r := gin.New()                      // Gin router instance
	r.Use(gin.Logger(), gin.Recovery()) // Same middleware as gin.Default
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, err
	}

	// Public routes
	r.GET("/", HomeHandler())                                              // Home page
	r.GET("/register", FormHandler("register", "email", "password"))       // Registration form
	r.POST("/register", RegisterHandler(deps.Service, deps.Redis))         // Registration endpoint
	r.GET("/login", FormHandler("login", "email", "password"))             // Login form
	r.POST("/login", LoginHandler(deps.Service, deps.Redis, deps.Session)) // Login endpoint

	// Trading routes (protected by the session guard)
	auth := r.Group("")
	auth.Use(middleware.SessionAuthMiddleware(deps.Session.Secret, deps.Redis, deps.Accounts))
	auth.GET("/logout", LogoutHandler(deps.Redis, deps.Session))                 // Logout endpoint
	auth.POST("/logout", LogoutHandler(deps.Redis, deps.Session))                // Logout endpoint
	auth.GET("/dashboard", DashboardHandler())                                   // Balance and holdings
	auth.GET("/settings", SettingsPageHandler())                                 // Reset form
	auth.POST("/settings", SettingsHandler(deps.Service, deps.Redis))            // Reset initial capital
	auth.GET("/stock_search", FormHandler("stock_search", "symbol"))             // Search form
	auth.POST("/stock_search", StockSearchHandler(deps.Service))                 // Quote lookup
	auth.POST("/buy_stock", BuyStockHandler(deps.Service, deps.Redis))           // Buy endpoint
	auth.GET("/portfolio", PortfolioHandler())                                   // Holdings
	auth.POST("/portfolio", LiquidateHandler(deps.Service, deps.Redis))          // Liquidate all
	auth.GET("/portfolio/trades", TradeHistoryHandler(deps.Service, deps.Redis)) // Trade history

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.SessionAuthMiddleware(deps.Session.Secret, deps.Redis, deps.Accounts), middleware.AdminOnlyMiddleware())
	adminGroup.GET("/accounts", ListAccountsHandler(deps.Service, deps.Redis)) // List accounts endpoint
	adminGroup.GET("/trades", ListTradesHandler(deps.Service, deps.Redis))     // List trades endpoint

	return r, nil
}
