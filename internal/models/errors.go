package models

import "errors"

// Domain errors shared by repositories, services and handlers.
// Wrap them with context and match with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrAlreadyEnrolled    = errors.New("already enrolled in this course")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrPaymentRequired    = errors.New("payment not completed")
)
