package domain

import "github.com/pkg/errors" // Error helpers

// Expected, user-facing error kinds. Callers classify with errors.Is.
var (
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrInvalidSymbol       = errors.New("invalid stock symbol")
	ErrUpstreamUnavailable = errors.New("quote service unavailable")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidQuantity     = errors.New("quantity must be a positive integer")
	ErrInvalidAmount       = errors.New("amount must not be negative")
	ErrInvalidEmail        = errors.New("invalid email address")
	ErrInvalidPassword     = errors.New("password must be 8-72 characters")
	ErrAccountBusy         = errors.New("account is busy")
	ErrAccountNotFound     = errors.New("account not found")
)
