package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"stock_simulator/internal/domain" // Importing domain models
	"stock_simulator/internal/store"  // Account lookups
	"stock_simulator/internal/utils"  // JWT and session helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// Context keys and cookie name shared with the handlers
const (
	SessionCookie = "session"   // Cookie carrying the session token
	AccountKey    = "account"   // *domain.Account of the caller
	AccountIDKey  = "accountID" // uint ID of the caller
	SessionIDKey  = "sessionID" // Session ID (token jti)
	LoginPath     = "/login"    // Where unauthenticated callers are sent
)

// SessionToken returns the session token from the cookie or the Authorization header
func SessionToken(c *gin.Context) string {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		return token // Browser session
	}
	authHeader := c.GetHeader("Authorization") // API clients
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// SessionAuthMiddleware resolves the caller's account from a signed session token and
// its redis session record. Anything short of a live session redirects to the login page.
func SessionAuthMiddleware(secret string, rdb *redis.Client, accounts *store.AccountStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := SessionToken(c) // Cookie or bearer token
		if tokenStr == "" {
			unauthenticated(c, "missing session token")
			return
		}
		claims, err := utils.ParseJWT(tokenStr, secret) // Parse the JWT token
		if err != nil {
			unauthenticated(c, "invalid or expired token")
			return
		}
		ctx := c.Request.Context()
		accountID, found, err := utils.SessionAccount(ctx, rdb, claims.ID) // Server-side session record
		if err != nil {
			logrus.WithFields(logrus.Fields{"error": err.Error()}).Error("Session lookup failed")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Session store unavailable"})
			return
		}
		// Logged out, expired, or a token minted for another account
		if !found || accountID != claims.AccountID {
			unauthenticated(c, "session ended")
			return
		}
		account, err := accounts.FindByID(ctx, accountID) // Re-resolve on every request
		if err != nil {
			logrus.WithFields(logrus.Fields{"account_id": accountID, "error": err.Error()}).Error("Account lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Account lookup failed"})
			return
		}
		if account == nil {
			unauthenticated(c, "account not found")
			return
		}
		c.Set(AccountKey, account)      // Store account in context
		c.Set(AccountIDKey, account.ID) // Store accountID in context
		c.Set(SessionIDKey, claims.ID)  // Needed by logout
		c.Next()                        // Proceed to the next handler
	}
}

// CurrentAccount returns the account resolved by SessionAuthMiddleware
func CurrentAccount(c *gin.Context) (*domain.Account, bool) {
	v, exists := c.Get(AccountKey)
	if !exists {
		return nil, false
	}
	account, ok := v.(*domain.Account)
	return account, ok && account != nil
}

// unauthenticated sends the caller to the login page
func unauthenticated(c *gin.Context, reason string) {
	logrus.WithFields(logrus.Fields{
		"path":   c.Request.URL.Path, // Requested path
		"reason": reason,             // Why the guard refused
		"error":  domain.ErrUnauthenticated.Error(),
	}).Debug("Redirecting to login")
	c.Redirect(http.StatusFound, LoginPath)
	c.Abort()
}
