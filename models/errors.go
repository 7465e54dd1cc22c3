package models

import "errors"

// Sentinel errors returned by the repositories. Handlers translate these to
// HTTP statuses; anything else is treated as an internal failure.
var (
	ErrNotFound           = errors.New("event not found")
	ErrEventClosed        = errors.New("event is already completed")
	ErrSelfPurchase       = errors.New("organizer cannot buy a ticket for their own event")
	ErrAlreadyPurchased   = errors.New("ticket already purchased for this event")
	ErrSoldOut            = errors.New("event is fully booked")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email has been used")
)
