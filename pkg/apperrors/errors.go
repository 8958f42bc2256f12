package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNoGoogleAccount = errors.New("no google account linked")
	ErrQueueFull       = errors.New("queue full")
)
