package domain

import "errors"

var (
	// Validation errors
	ErrEmptyContent    = errors.New("content cannot be empty")
	ErrContentTooLong  = errors.New("content exceeds 500 characters")
	ErrInvalidPosition = errors.New("position must not be negative")

	// Business logic errors
	ErrTodoNotFound  = errors.New("todo not found")
	ErrUnknownTodoID = errors.New("ordering references an unknown todo id")
)
