package domain

import "errors"

var (
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrUnexpectedStatus    = errors.New("unexpected provider status")
	ErrMalformedCallback   = errors.New("malformed callback payload")
	ErrMissingFields       = errors.New("missing required parameters")
	ErrChatNotFound        = errors.New("user not found or no telegram chat id")
	ErrDelivery            = errors.New("chat delivery failed")
)
