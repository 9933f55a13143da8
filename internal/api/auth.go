package api

import (
	"net/http" // HTTP status codes
	"time"     // Session lifetime

	"stock_simulator/internal/middleware" // Session cookie and context keys
	"stock_simulator/internal/service"    // Trading rules
	"stock_simulator/internal/utils"      // JWT and session helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// SessionConfig controls how login sessions are issued
type SessionConfig struct {
	Secret string        // Token signing key
	TTL    time.Duration // Token and session record lifetime
	Secure bool          // Send the cookie over HTTPS only
}

// Request struct for registration
type RegisterRequest struct {
	Email    string `form:"email" json:"email" binding:"required"`       // Email must be provided
	Password string `form:"password" json:"password" binding:"required"` // Password must be provided
}

// Request struct for login
type LoginRequest struct {
	Email    string `form:"email" json:"email" binding:"required"`       // Email must be provided
	Password string `form:"password" json:"password" binding:"required"` // Password must be provided
}

// HomeHandler describes the public entry points
func HomeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":     "Stock Trading Simulator", // Application name
			"register": "/register",               // Sign-up form
			"login":    "/login",                  // Sign-in form
		})
	}
}

// FormHandler answers GET on a form route with the fields the POST expects
func FormHandler(page string, fields ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"page": page, "fields": fields})
	}
}

// RegisterHandler creates an account with the default starting balance
func RegisterHandler(svc *service.TradingService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind form or JSON request to struct
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c)
			return
		}
		account, err := svc.Register(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, err, logrus.Fields{"email": req.Email})
			return
		}
		invalidateAdminViews(rdb) // New row in the account listing
		// Return success response
		respondFlash(c, http.StatusCreated, FlashSuccess, "Registration successful, please log in.", gin.H{
			"account":  account,              // New account
			"redirect": middleware.LoginPath, // Next page
		})
	}
}

// LoginHandler authenticates an account and starts a session
func LoginHandler(svc *service.TradingService, rdb *redis.Client, cfg SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind form or JSON request to struct
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c)
			return
		}
		ctx := c.Request.Context()
		account, err := svc.Authenticate(ctx, req.Email, req.Password)
		if err != nil {
			respondError(c, err, logrus.Fields{"email": req.Email})
			return
		}
		// Generate JWT token and its server-side session record
		token, sessionID, err := utils.GenerateJWT(account.ID, cfg.Secret, cfg.TTL)
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": account.ID})
			return
		}
		if err := utils.SaveSession(ctx, rdb, sessionID, account.ID, cfg.TTL); err != nil {
			respondError(c, err, logrus.Fields{"account_id": account.ID})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.SessionCookie, token, int(cfg.TTL.Seconds()), "/", "", cfg.Secure, true)
		logrus.WithFields(logrus.Fields{
			"account_id": account.ID,                      // Account ID
			"timestamp":  time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("Login")
		respondFlash(c, http.StatusOK, FlashSuccess, "Logged in successfully.", gin.H{
			"token":    token,        // Also usable as a bearer token
			"redirect": "/dashboard", // Next page
		})
	}
}

// LogoutHandler ends the current session and clears the cookie
func LogoutHandler(rdb *redis.Client, cfg SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessionID := c.GetString(middleware.SessionIDKey); sessionID != "" {
			if err := utils.DeleteSession(c.Request.Context(), rdb, sessionID); err != nil {
				respondError(c, err, logrus.Fields{"account_id": c.GetUint(middleware.AccountIDKey)})
				return
			}
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.SessionCookie, "", -1, "/", "", cfg.Secure, true) // Expire the cookie
		respondFlash(c, http.StatusOK, FlashInfo, "You have been logged out.", gin.H{
			"redirect": middleware.LoginPath, // Next page
		})
	}
}
