package middleware

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// AdminOnlyMiddleware lets only operator accounts through. It runs after
// SessionAuthMiddleware, which has already re-read the account from the store.
func AdminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := CurrentAccount(c) // Get account from context
		// Check if the session guard ran
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Check if account role is admin
		if !account.IsAdmin() {
			logrus.WithFields(logrus.Fields{
				"account_id": account.ID,         // Caller
				"path":       c.Request.URL.Path, // Requested path
			}).Warn("Admin route refused")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}
