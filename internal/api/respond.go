package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"stock_simulator/internal/domain" // Error kinds
	"stock_simulator/internal/store"  // Pagination

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/pkg/errors"      // Error classification
	"github.com/sirupsen/logrus" // Logging library
)

// Flash categories
const (
	FlashSuccess = "success" // Operation completed
	FlashInfo    = "info"    // Nothing to do
	FlashDanger  = "danger"  // Operation refused or failed
)

// GenericErrorMessage is shown for every failure that is not an expected kind
const GenericErrorMessage = "Something went wrong, please try again later."

// Flash is a one-shot user message
type Flash struct {
	Category string `json:"category"` // success, info or danger
	Message  string `json:"message"`  // Human readable text
}

// errorMessages maps expected error kinds to what the user sees
var errorMessages = []struct {
	kind    error
	message string
}{
	{domain.ErrDuplicateEmail, "An account with this email already exists."},
	{domain.ErrInvalidCredentials, "Invalid email or password."},
	{domain.ErrInvalidSymbol, "Invalid stock symbol."},
	{domain.ErrUpstreamUnavailable, "The stock quote service is unavailable, please try again later."},
	{domain.ErrInsufficientFunds, "Insufficient funds to complete the purchase."},
	{domain.ErrInvalidQuantity, "Quantity must be a positive whole number."},
	{domain.ErrInvalidAmount, "Initial capital must be a non-negative amount."},
	{domain.ErrInvalidEmail, "Please enter a valid email address."},
	{domain.ErrInvalidPassword, "Password must be between 8 and 72 characters."},
	{domain.ErrAccountBusy, "Another operation on your account is in progress, please retry."},
	{domain.ErrAccountNotFound, "Account not found."},
}

// UserMessage returns the message for err and whether err is an expected kind
func UserMessage(err error) (string, bool) {
	for _, m := range errorMessages {
		if errors.Is(err, m.kind) {
			return m.message, true
		}
	}
	return GenericErrorMessage, false
}

// respondFlash answers with a flash message and any extra fields
func respondFlash(c *gin.Context, status int, category, message string, extra gin.H) {
	body := gin.H{"flash": Flash{Category: category, Message: message}}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

// respondError turns err into a danger flash. Unexpected errors are logged with
// fields and replaced by the generic message.
func respondError(c *gin.Context, err error, fields logrus.Fields) {
	message, expected := UserMessage(err)
	if !expected {
		entry := logrus.WithFields(fields).WithField("path", c.Request.URL.Path)
		entry.WithField("error", err.Error()).Error("Request failed")
	}
	respondFlash(c, http.StatusOK, FlashDanger, message, nil)
}

// badRequest answers malformed bodies
func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
}

// parsePage reads page and page_size query parameters with defaults 1 and 20
func parsePage(c *gin.Context) store.Page {
	page := 1      // Default page
	pageSize := 20 // Default page size
	// If page exists in query
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	// If page_size exists in query
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size if valid
		}
	}
	return store.Page{Page: page, PageSize: pageSize}
}
